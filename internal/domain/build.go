package domain

import "time"

// BuildRequest 是调度系统下发的一次构建启动请求。
// BuildID 同时作为 Job/Pod 的 sdbuild 标签，用于后续 stop/stream 定位资源。
type BuildRequest struct {
	BuildID    string `json:"buildId"`
	JobID      string `json:"jobId"`
	PipelineID string `json:"pipelineId"`
	JobName    string `json:"jobName"`
	ScmURL     string `json:"scmUrl"`
	Container  string `json:"container"`
}

type StopRequest struct {
	BuildID string `json:"buildId"`
}

type StreamRequest struct {
	BuildID string `json:"buildId"`
}

// Operation 是执行器对外暴露的三种操作。
type Operation string

const (
	OperationStart  Operation = "start"
	OperationStop   Operation = "stop"
	OperationStream Operation = "stream"
)

type Outcome string

const (
	OutcomeOK    Outcome = "ok"
	OutcomeError Outcome = "error"
)

// Execution 是一次操作的执行记录，仅在配置了数据库时持久化。
type Execution struct {
	ID        string    `json:"id"`
	BuildID   string    `json:"build_id"`
	Operation Operation `json:"operation"`
	Outcome   Outcome   `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
