package utils

import (
	"fmt"
	"slices"

	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
)

func ValidateTask(task *domain.Task) error {
	if task.EstimatedHours <= 0 {
		return fmt.Errorf("任务 %s 的预估工时必须大于 0", task.TaskKey)
	}

	for skill, level := range task.SkillRequirements {
		if level < 0 || level > 1 {
			return fmt.Errorf("任务 %s 对技能 %s 的要求必须在 [0,1] 范围内", task.TaskKey, skill)
		}
	}

	seen := make([]string, 0, len(task.Dependencies))
	for _, dep := range task.Dependencies {
		if dep == task.TaskKey {
			return fmt.Errorf("任务 %s 不能依赖自己", task.TaskKey)
		}
		if slices.Contains(seen, dep) {
			return fmt.Errorf("任务 %s 的依赖 %s 重复出现", task.TaskKey, dep)
		}
		seen = append(seen, dep)
	}

	return nil
}

func ValidateWorker(worker *domain.Worker) error {
	if worker.AvailableHours <= 0 {
		return fmt.Errorf("工人 %s 的可用工时必须大于 0", worker.WorkerKey)
	}

	for skill, level := range worker.Skills {
		if level < 0 || level > 1 {
			return fmt.Errorf("工人 %s 的技能 %s 熟练度必须在 [0,1] 范围内", worker.WorkerKey, skill)
		}
	}

	return nil
}
