package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/chiwei-platform/executor-k8s/internal/domain"
	"github.com/chiwei-platform/executor-k8s/internal/observability"
	"github.com/chiwei-platform/executor-k8s/internal/port"
	"github.com/google/uuid"
)

// ExecutionService 对 BuildExecutor 的调用做入参校验、日志、指标和执行记录。
type ExecutionService struct {
	executor   port.BuildExecutor
	execRepo   port.ExecutionRepository
	logQuerier port.LogQuerier
	metrics    *observability.Metrics
	namespace  string
}

func NewExecutionService(
	executor port.BuildExecutor,
	execRepo port.ExecutionRepository,
	logQuerier port.LogQuerier,
	metrics *observability.Metrics,
	namespace string,
) *ExecutionService {
	return &ExecutionService{
		executor:   executor,
		execRepo:   execRepo,
		logQuerier: logQuerier,
		metrics:    metrics,
		namespace:  namespace,
	}
}

func (s *ExecutionService) StartBuild(ctx context.Context, req domain.BuildRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	err := s.executor.Start(ctx, req)
	s.record(ctx, req.BuildID, domain.OperationStart, err)
	return err
}

func (s *ExecutionService) StopBuild(ctx context.Context, buildID string) error {
	if err := domain.ValidateBuildID(buildID); err != nil {
		return err
	}
	err := s.executor.Stop(ctx, domain.StopRequest{BuildID: buildID})
	s.record(ctx, buildID, domain.OperationStop, err)
	return err
}

// StreamBuildLogs 返回构建 Pod 的实时日志流，调用方负责 Close。
func (s *ExecutionService) StreamBuildLogs(ctx context.Context, buildID string) (io.ReadCloser, error) {
	if err := domain.ValidateBuildID(buildID); err != nil {
		return nil, err
	}
	stream, err := s.executor.Stream(ctx, domain.StreamRequest{BuildID: buildID})
	s.record(ctx, buildID, domain.OperationStream, err)
	return stream, err
}

// HistoryLogs 从 Loki 查询 Pod 已被清理的构建日志，since 为 Go duration 字符串。
func (s *ExecutionService) HistoryLogs(ctx context.Context, buildID, since string) (string, error) {
	if err := domain.ValidateBuildID(buildID); err != nil {
		return "", err
	}
	if s.logQuerier == nil {
		return "", fmt.Errorf("log history %w", domain.ErrNotFound)
	}

	duration, err := time.ParseDuration(since)
	if err != nil {
		return "", fmt.Errorf("%w: invalid since %q: %v", domain.ErrInvalidInput, since, err)
	}
	if duration <= 0 {
		return "", fmt.Errorf("%w: since must be positive", domain.ErrInvalidInput)
	}

	end := time.Now()
	return s.logQuerier.QueryBuildLogs(ctx, s.namespace, buildID, end.Add(-duration), end)
}

func (s *ExecutionService) ListExecutions(ctx context.Context, buildID string) ([]*domain.Execution, error) {
	if err := domain.ValidateBuildID(buildID); err != nil {
		return nil, err
	}
	if s.execRepo == nil {
		return nil, domain.ErrExecutionNotFound
	}
	return s.execRepo.FindByBuild(ctx, buildID)
}

// record 记录一次操作结果；写入执行记录失败只打日志，不影响操作本身的返回值。
func (s *ExecutionService) record(ctx context.Context, buildID string, op domain.Operation, opErr error) {
	outcome := domain.OutcomeOK
	if opErr != nil {
		outcome = domain.OutcomeError
		slog.Warn("executor operation failed", "operation", op, "build_id", buildID, "error", opErr)
	} else {
		slog.Info("executor operation succeeded", "operation", op, "build_id", buildID)
	}
	s.metrics.IncOperation(string(op), string(outcome))

	if s.execRepo == nil {
		return
	}
	exec := &domain.Execution{
		ID:        uuid.New().String(),
		BuildID:   buildID,
		Operation: op,
		Outcome:   outcome,
		CreatedAt: time.Now(),
	}
	if opErr != nil {
		exec.Error = opErr.Error()
	}
	if err := s.execRepo.Save(context.WithoutCancel(ctx), exec); err != nil {
		slog.Error("failed to save execution", "operation", op, "build_id", buildID, "error", err)
	}
}
