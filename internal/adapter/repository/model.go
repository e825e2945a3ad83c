package repository

import "time"

// ExecutionModel 是一次执行器操作的持久化记录。
type ExecutionModel struct {
	ID        string `gorm:"primaryKey"`
	BuildID   string `gorm:"index"`
	Operation string
	Outcome   string
	Error     string
	CreatedAt time.Time
}

func (ExecutionModel) TableName() string {
	return "executions"
}
