package domain

import (
	"encoding/json"
	"time"
)

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// OptimizationRun: 一次排程优化运行的记录
// Parameters/Result/Diagnostics 以 JSON 形式存储，避免数据库结构随算法参数演进而频繁变更
type OptimizationRun struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Status       RunStatus       `json:"status"`
	Parameters   json.RawMessage `json:"parameters"`
	Result       json.RawMessage `json:"result,omitempty"`
	Diagnostics  json.RawMessage `json:"diagnostics,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	CreatedBy    int64           `json:"createdBy"`
	CreatedAt    time.Time       `json:"createdAt"`
	FinishedAt   *time.Time      `json:"finishedAt,omitempty"`
	Version      int32           `json:"-"`
}

// RunProgress: 写入 redis 的运行进度，带过期时间
type RunProgress struct {
	Status      RunStatus `json:"status"`
	Island      int       `json:"island"`
	Generation  int       `json:"generation"`
	BestFitness float64   `json:"bestFitness"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RunJob: 投递到消息队列的优化任务
type RunJob struct {
	RunID int64 `json:"runID"`
}
