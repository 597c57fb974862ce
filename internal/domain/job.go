package domain

import "github.com/google/uuid"

// OptimizationJob 是投递到 optimization_queue 的消息体
type OptimizationJob struct {
	RunID       uuid.UUID      `json:"runID"`
	Scenario    *ScenarioInput `json:"scenario"`
	Seed        int64          `json:"seed"`
	NotifyEmail string         `json:"notifyEmail,omitempty"`
}
