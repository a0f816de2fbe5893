package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateRandomWorker(t *testing.T) {
	for i := 1; i <= 20; i++ {
		worker := GenerateRandomWorker(i)
		require.Equal(t, fmt.Sprintf("W%02d", i), worker.WorkerKey)
		require.NotEmpty(t, worker.Name)
		require.NoError(t, ValidateWorker(worker))
	}
}

// 随机任务的依赖只指向编号更小的任务，按生成顺序逐个校验即可保证无环
func TestGenerateRandomTasksAcyclic(t *testing.T) {
	tasks := GenerateRandomTasks(30)
	require.Len(t, tasks, 30)

	known := make(map[string]bool)
	for _, task := range tasks {
		require.NoError(t, ValidateTask(task))
		for _, dep := range task.Dependencies {
			require.True(t, known[dep], "依赖 %s 必须先于 %s 生成", dep, task.TaskKey)
		}
		known[task.TaskKey] = true
	}
}
