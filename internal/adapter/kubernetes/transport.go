package kubernetes

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/chiwei-platform/executor-k8s/internal/domain"
	"github.com/chiwei-platform/executor-k8s/internal/observability"
	"github.com/sony/gobreaker"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/transport"
	"k8s.io/client-go/util/retry"
)

const breakerName = "kubernetes-api"

// BreakerConfig 控制熔断器：Interval 窗口内失败次数达到 MaxFailures 即打开，
// Timeout 冷却后放行一次试探请求。
type BreakerConfig struct {
	MaxFailures uint32
	Interval    time.Duration
	Timeout     time.Duration
}

type TransportConfig struct {
	Token     string
	VerifyTLS bool
	// Timeout 只作用于经熔断器的离散请求，日志流不设超时。
	Timeout time.Duration
	// Retries 是传输层失败后的重试次数，熔断拒绝不重试。
	Retries int
	Breaker BreakerConfig
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Request 描述一次经熔断器发出的平台请求，Body 非空时按 JSON 编码。
type Request struct {
	Method string
	URL    string
	Body   any
}

// Response 是平台请求的归一化结果，任何状态码都按正常响应返回。
type Response struct {
	StatusCode int
	Body       []byte
}

func (r *Response) DecodeJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Transport 为平台 REST 调用加上熔断、鉴权和 TLS 策略。
// 熔断状态归属于单个 Transport 实例，经它发出的所有请求共享。
type Transport struct {
	client       *http.Client
	streamClient *http.Client
	breaker      *gobreaker.CircuitBreaker
	breakerCfg   BreakerConfig
	backoff      wait.Backoff
	metrics      *observability.Metrics
	logger       *slog.Logger
}

func NewTransport(cfg TransportConfig) *Transport {
	if cfg.Breaker.MaxFailures == 0 {
		cfg.Breaker.MaxFailures = 5
	}
	if cfg.Breaker.Interval <= 0 {
		cfg.Breaker.Interval = 60 * time.Second
	}
	if cfg.Breaker.Timeout == 0 {
		cfg.Breaker.Timeout = 10 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSClientConfig = &tls.Config{InsecureSkipVerify: !cfg.VerifyTLS}
	rt := transport.NewBearerAuthRoundTripper(cfg.Token, base)

	t := &Transport{
		client:       &http.Client{Transport: rt, Timeout: cfg.Timeout},
		streamClient: &http.Client{Transport: rt},
		backoff: wait.Backoff{
			Steps:    cfg.Retries + 1,
			Duration: 200 * time.Millisecond,
			Factor:   2.0,
			Jitter:   0.1,
			Cap:      5 * time.Second,
		},
		breakerCfg: cfg.Breaker,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}

	maxFailures := cfg.Breaker.MaxFailures
	t.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.TotalFailures >= maxFailures
		},
		// 调用方主动取消不算作平台故障
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			t.logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			t.metrics.SetBreakerState(name, stateValue(to))
		},
	})
	t.metrics.SetBreakerState(breakerName, stateValue(gobreaker.StateClosed))
	return t
}

// Execute 经熔断器发出请求。传输层错误原样返回；熔断打开时返回 domain.ErrCircuitOpen，
// 不会发起网络请求。
func (t *Transport) Execute(ctx context.Context, req Request) (*Response, error) {
	var body []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = b
	}

	var resp *Response
	err := retry.OnError(t.backoff, isRetriable, func() error {
		out, err := t.breaker.Execute(func() (interface{}, error) {
			return t.do(ctx, req.Method, req.URL, body)
		})
		if err != nil {
			return err
		}
		resp = out.(*Response)
		return nil
	})
	switch {
	case isBreakerRejection(err):
		t.metrics.IncRequest(req.Method, "rejected")
		return nil, fmt.Errorf("%w: %s %s", domain.ErrCircuitOpen, req.Method, req.URL)
	case err != nil:
		t.metrics.IncRequest(req.Method, "error")
		return nil, err
	}
	t.metrics.IncRequest(req.Method, "ok")
	return resp, nil
}

// Raw 绕过熔断器直接发出 GET，返回未读取的响应，用于日志流。
func (t *Transport) Raw(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return t.streamClient.Do(req)
}

// State 返回当前熔断器状态。
func (t *Transport) State() gobreaker.State {
	return t.breaker.State()
}

func (t *Transport) do(ctx context.Context, method, url string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func isRetriable(err error) bool {
	if isBreakerRejection(err) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
