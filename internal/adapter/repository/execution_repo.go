package repository

import (
	"context"

	"github.com/chiwei-platform/executor-k8s/internal/domain"
	"github.com/chiwei-platform/executor-k8s/internal/port"
	"gorm.io/gorm"
)

var _ port.ExecutionRepository = (*ExecutionRepo)(nil)

type ExecutionRepo struct {
	db *gorm.DB
}

func NewExecutionRepo(db *gorm.DB) *ExecutionRepo {
	return &ExecutionRepo{db: db}
}

func (r *ExecutionRepo) Save(ctx context.Context, exec *domain.Execution) error {
	return r.db.WithContext(ctx).Create(executionToModel(exec)).Error
}

func (r *ExecutionRepo) FindByBuild(ctx context.Context, buildID string) ([]*domain.Execution, error) {
	var models []ExecutionModel
	if err := r.db.WithContext(ctx).Where("build_id = ?", buildID).Order("created_at asc").Find(&models).Error; err != nil {
		return nil, err
	}
	execs := make([]*domain.Execution, 0, len(models))
	for i := range models {
		execs = append(execs, modelToExecution(&models[i]))
	}
	return execs, nil
}

func executionToModel(e *domain.Execution) *ExecutionModel {
	return &ExecutionModel{
		ID:        e.ID,
		BuildID:   e.BuildID,
		Operation: string(e.Operation),
		Outcome:   string(e.Outcome),
		Error:     e.Error,
		CreatedAt: e.CreatedAt,
	}
}

func modelToExecution(m *ExecutionModel) *domain.Execution {
	return &domain.Execution{
		ID:        m.ID,
		BuildID:   m.BuildID,
		Operation: domain.Operation(m.Operation),
		Outcome:   domain.Outcome(m.Outcome),
		Error:     m.Error,
		CreatedAt: m.CreatedAt,
	}
}
