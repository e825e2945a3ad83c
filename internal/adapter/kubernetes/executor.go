package kubernetes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/chiwei-platform/executor-k8s/internal/domain"
	"github.com/chiwei-platform/executor-k8s/internal/manifest"
	"github.com/chiwei-platform/executor-k8s/internal/port"
	"github.com/chiwei-platform/executor-k8s/internal/scm"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/labels"
)

var _ port.BuildExecutor = (*Executor)(nil)

const (
	labelBuildID     = "sdbuild"
	buildContainer   = "build"
	DefaultNamespace = "default"
	DefaultTokenPath = "/etc/kubernetes/apikey/token"
)

type ExecutorConfig struct {
	// Token 为空时从 TokenPath 读取一次。
	Token         string
	TokenPath     string
	Host          string
	JobsNamespace string
	Renderer      *manifest.Renderer
	// Transport 为空时按 TransportConfig 创建，熔断状态随 Executor 实例隔离。
	Transport       *Transport
	TransportConfig TransportConfig
}

// Executor 通过 K8s REST API 启动、停止构建并读取构建日志。
type Executor struct {
	transport *Transport
	renderer  *manifest.Renderer
	jobsURL   string
	podsURL   string
}

func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: kubernetes host is required", domain.ErrInvalidInput)
	}
	if cfg.JobsNamespace == "" {
		cfg.JobsNamespace = DefaultNamespace
	}
	if cfg.Renderer == nil {
		r, err := manifest.Load("", false)
		if err != nil {
			return nil, err
		}
		cfg.Renderer = r
	}

	t := cfg.Transport
	if t == nil {
		token := cfg.Token
		if token == "" {
			path := cfg.TokenPath
			if path == "" {
				path = DefaultTokenPath
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read api token %s: %w", path, err)
			}
			token = strings.TrimSpace(string(data))
		}
		tc := cfg.TransportConfig
		tc.Token = token
		t = NewTransport(tc)
	}

	base := "https://" + cfg.Host
	ns := url.PathEscape(cfg.JobsNamespace)
	return &Executor{
		transport: t,
		renderer:  cfg.Renderer,
		jobsURL:   fmt.Sprintf("%s/apis/batch/v1/namespaces/%s/jobs", base, ns),
		podsURL:   fmt.Sprintf("%s/api/v1/namespaces/%s/pods", base, ns),
	}, nil
}

func (e *Executor) Start(ctx context.Context, req domain.BuildRequest) error {
	loc, err := scm.Parse(req.ScmURL)
	if err != nil {
		return err
	}

	body, err := e.renderer.Render(manifest.Values{
		manifest.BuildID:    req.BuildID,
		manifest.JobID:      req.JobID,
		manifest.PipelineID: req.PipelineID,
		manifest.GitOrg:     loc.Org,
		manifest.GitRepo:    loc.Repo,
		manifest.GitBranch:  loc.Branch,
		manifest.JobName:    req.JobName,
	})
	if err != nil {
		return err
	}

	resp, err := e.transport.Execute(ctx, Request{
		Method: http.MethodPost,
		URL:    e.jobsURL,
		Body:   body,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return &domain.StatusError{Op: "create", StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return nil
}

func (e *Executor) Stop(ctx context.Context, req domain.StopRequest) error {
	resp, err := e.transport.Execute(ctx, Request{
		Method: http.MethodDelete,
		URL:    e.jobsURL + "?" + selectorQuery(req.BuildID),
	})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &domain.StatusError{Op: "delete", StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return nil
}

func (e *Executor) Stream(ctx context.Context, req domain.StreamRequest) (io.ReadCloser, error) {
	podName, err := e.findPod(ctx, req.BuildID)
	if err != nil {
		return nil, err
	}

	logURL := fmt.Sprintf("%s/%s/log?container=%s&follow=true&pretty=true",
		e.podsURL, url.PathEscape(podName), buildContainer)
	resp, err := e.transport.Raw(ctx, logURL)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// findPod 通过 sdbuild 标签列出 Pod 并按 selectPod 的策略选出一个。
func (e *Executor) findPod(ctx context.Context, buildID string) (string, error) {
	resp, err := e.transport.Execute(ctx, Request{
		Method: http.MethodGet,
		URL:    e.podsURL + "?" + selectorQuery(buildID),
	})
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: build %s: status %d: %s", domain.ErrPodLookup, buildID, resp.StatusCode, resp.Body)
	}

	var pods corev1.PodList
	if err := resp.DecodeJSON(&pods); err != nil {
		return "", fmt.Errorf("%w: build %s: decode pod list: %v", domain.ErrPodLookup, buildID, err)
	}
	if len(pods.Items) == 0 {
		return "", fmt.Errorf("%w for build %s", domain.ErrPodNotFound, buildID)
	}

	pod := selectPod(pods.Items)
	if pod.Name == "" {
		return "", fmt.Errorf("%w: build %s: pod has no name", domain.ErrPodLookup, buildID)
	}
	return pod.Name, nil
}

// selectPod 在多个匹配的 Pod 中优先选择 Running 的，其次选择创建时间最新的；
// 都相同时保留列表中靠前的那个。
func selectPod(pods []corev1.Pod) corev1.Pod {
	best := 0
	for i := 1; i < len(pods); i++ {
		if betterPod(&pods[i], &pods[best]) {
			best = i
		}
	}
	return pods[best]
}

func betterPod(a, b *corev1.Pod) bool {
	aRunning := a.Status.Phase == corev1.PodRunning
	bRunning := b.Status.Phase == corev1.PodRunning
	if aRunning != bRunning {
		return aRunning
	}
	return b.CreationTimestamp.Before(&a.CreationTimestamp)
}

// selectorQuery 生成 labelSelector=sdbuild=<buildID>，"=" 不转义以与 K8s 文档写法一致。
func selectorQuery(buildID string) string {
	selector := labels.Set{labelBuildID: url.QueryEscape(buildID)}.String()
	return "labelSelector=" + selector
}
