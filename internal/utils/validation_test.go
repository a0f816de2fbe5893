package utils

import (
	"testing"

	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestValidateTask(t *testing.T) {
	valid := &domain.Task{
		TaskKey:           "T01",
		Name:              "需求分析",
		EstimatedHours:    8,
		SkillRequirements: map[string]float64{"分析": 0.6},
		Dependencies:      []string{"T00"},
	}
	require.NoError(t, ValidateTask(valid))

	zeroHours := *valid
	zeroHours.EstimatedHours = 0
	require.Error(t, ValidateTask(&zeroHours))

	badLevel := *valid
	badLevel.SkillRequirements = map[string]float64{"分析": 1.2}
	require.Error(t, ValidateTask(&badLevel))

	selfDep := *valid
	selfDep.Dependencies = []string{"T01"}
	require.Error(t, ValidateTask(&selfDep))

	dupDep := *valid
	dupDep.Dependencies = []string{"T00", "T00"}
	require.Error(t, ValidateTask(&dupDep))
}

func TestValidateWorker(t *testing.T) {
	valid := &domain.Worker{
		WorkerKey:      "W01",
		Name:           "张三",
		Skills:         map[string]float64{"后端": 0.8},
		AvailableHours: 40,
	}
	require.NoError(t, ValidateWorker(valid))

	zeroHours := *valid
	zeroHours.AvailableHours = 0
	require.Error(t, ValidateWorker(&zeroHours))

	badLevel := *valid
	badLevel.Skills = map[string]float64{"后端": -0.1}
	require.Error(t, ValidateWorker(&badLevel))
}
