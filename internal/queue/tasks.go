package queue

import (
	"encoding/json"

	"github.com/adreward-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCommissionReconcile 佣金补发任务
	TaskCommissionReconcile = constants.TaskCommissionReconcile
)

// CommissionReconcilePayload 佣金补发任务载荷。
// FailureID 非零时补发单条，Sweep 为 true 时批量扫描待补发记录。
type CommissionReconcilePayload struct {
	FailureID uint `json:"failure_id,omitempty"`
	Sweep     bool `json:"sweep,omitempty"`
}

// NewCommissionReconcileTask 创建佣金补发任务
func NewCommissionReconcileTask(payload CommissionReconcilePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionReconcile, body), nil
}

// ParseCommissionReconcilePayload 解析佣金补发任务载荷
func ParseCommissionReconcilePayload(task *asynq.Task) (CommissionReconcilePayload, error) {
	var payload CommissionReconcilePayload
	if task == nil {
		return payload, nil
	}
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
