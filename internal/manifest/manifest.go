// Package manifest 根据模板和构建元数据渲染提交给 K8s 的 Job 请求体。
package manifest

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/chiwei-platform/executor-k8s/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed templates/job.yaml.tim
var defaultTemplate string

// 模板中可替换的占位符集合，其他 {{...}} 原样保留。
const (
	BuildID    = "build_id"
	JobID      = "job_id"
	PipelineID = "pipeline_id"
	GitOrg     = "git_org"
	GitRepo    = "git_repo"
	GitBranch  = "git_branch"
	JobName    = "job_name"
)

var placeholders = []string{BuildID, JobID, PipelineID, GitOrg, GitRepo, GitBranch, JobName}

// Values 是占位符到替换值的映射。
type Values map[string]string

// Manifest 是渲染后的结构化文档，直接作为 JSON 请求体发送。
type Manifest map[string]any

// Metadata 返回 metadata 段中的字符串字段。
func (m Manifest) Metadata(key string) string {
	meta, ok := m["metadata"].(map[string]any)
	if !ok {
		return ""
	}
	v, _ := meta[key].(string)
	return v
}

// Render 替换模板中的占位符并解析为 Manifest。本函数不做 I/O。
func Render(template string, values Values) (Manifest, error) {
	pairs := make([]string, 0, len(placeholders)*2)
	for _, p := range placeholders {
		v, ok := values[p]
		if !ok {
			continue
		}
		pairs = append(pairs, "{{"+p+"}}", v)
	}
	text := strings.NewReplacer(pairs...).Replace(template)

	var m Manifest
	if err := yaml.Unmarshal([]byte(text), &m); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTemplateParse, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: template rendered to an empty document", domain.ErrTemplateParse)
	}
	// 非字符串键的映射无法作为 JSON 请求体发送
	if _, err := json.Marshal(m); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTemplateParse, err)
	}
	return m, nil
}

// Renderer 持有加载好的模板，每次 start 复用。
type Renderer struct {
	template string
}

func NewRenderer(template string) *Renderer {
	return &Renderer{template: template}
}

// Load 从 path 读取模板；path 为空时使用内置模板。
// fallback 为 true 时文件不存在也退回内置模板。
func Load(path string, fallback bool) (*Renderer, error) {
	if path == "" {
		return NewRenderer(defaultTemplate), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if fallback && errors.Is(err, fs.ErrNotExist) {
			return NewRenderer(defaultTemplate), nil
		}
		return nil, fmt.Errorf("read manifest template %s: %w", path, err)
	}
	return NewRenderer(string(data)), nil
}

func (r *Renderer) Render(values Values) (Manifest, error) {
	return Render(r.template, values)
}
