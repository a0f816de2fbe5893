package domain

import "time"

// Worker: 可被指派任务的工人，技能熟练度取值范围 [0,1]
type Worker struct {
	ID             int64              `json:"id"`
	WorkerKey      string             `json:"workerKey"`
	Name           string             `json:"name"`
	Skills         map[string]float64 `json:"skills"`
	AvailableHours float64            `json:"availableHours"`
	IsActive       bool               `json:"isActive"`
	CreatedAt      time.Time          `json:"createdAt"`
	Version        int32              `json:"-"`
}
