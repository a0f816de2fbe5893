package domain

import "time"

// Task: 待指派的任务，加载后只读
// TaskKey 是业务标识（如 T01），依赖列表引用的也是业务标识
type Task struct {
	ID                int64              `json:"id"`
	TaskKey           string             `json:"taskKey"`
	Name              string             `json:"name"`
	EstimatedHours    float64            `json:"estimatedHours"`
	SkillRequirements map[string]float64 `json:"skillRequirements"`
	Dependencies      []string           `json:"dependencies"`
	CreatedAt         time.Time          `json:"createdAt"`
	Version           int32              `json:"-"`
}
