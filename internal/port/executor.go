package port

import (
	"context"
	"io"
	"time"

	"github.com/chiwei-platform/executor-k8s/internal/domain"
)

// BuildExecutor 把构建生命周期操作翻译为 K8s Job/Pod API 调用。
type BuildExecutor interface {
	// Start 渲染 Job 模板并创建 Job。
	Start(ctx context.Context, req domain.BuildRequest) error
	// Stop 按 sdbuild 标签删除 Job。
	Stop(ctx context.Context, req domain.StopRequest) error
	// Stream 找到构建 Pod 并返回其 build 容器的实时日志流，调用方负责 Close。
	Stream(ctx context.Context, req domain.StreamRequest) (io.ReadCloser, error)
}

// LogQuerier 查询 Pod 已被清理的构建的历史日志（如 Loki）。
type LogQuerier interface {
	QueryBuildLogs(ctx context.Context, namespace, buildID string, start, end time.Time) (string, error)
}

// ExecutionRepository 保存每次操作的执行记录。
type ExecutionRepository interface {
	Save(ctx context.Context, exec *domain.Execution) error
	FindByBuild(ctx context.Context, buildID string) ([]*domain.Execution, error)
}
