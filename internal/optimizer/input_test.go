package optimizer

import (
	"testing"

	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInstanceTopologicalOrder(t *testing.T) {
	inst, err := newInstance(testTasks(), testWorkers())
	require.NoError(t, err)

	require.Len(t, inst.topoOrder, 5)
	assert.Equal(t, "t1", inst.topoOrder[0])
	assert.Equal(t, "t5", inst.topoOrder[4])

	// 每个任务都排在它的所有依赖之后
	for _, task := range inst.tasks {
		for _, dep := range task.Dependencies {
			assert.Less(t, inst.orderIndex[dep], inst.orderIndex[task.TaskKey],
				"任务 %s 必须排在依赖 %s 之后", task.TaskKey, dep)
		}
	}
}

func TestNewInstanceDeterministicOrder(t *testing.T) {
	first, err := newInstance(testTasks(), testWorkers())
	require.NoError(t, err)
	second, err := newInstance(testTasks(), testWorkers())
	require.NoError(t, err)

	assert.Equal(t, first.topoOrder, second.topoOrder)
}

func TestNewInstanceCycle(t *testing.T) {
	tasks := []*domain.Task{
		{TaskKey: "a", EstimatedHours: 1, Dependencies: []string{"c"}},
		{TaskKey: "b", EstimatedHours: 1, Dependencies: []string{"a"}},
		{TaskKey: "c", EstimatedHours: 1, Dependencies: []string{"b"}},
	}

	_, err := newInstance(tasks, testWorkers())
	require.Error(t, err)

	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, inputErr.OffendingIDs)
}

func TestNewInstanceUnknownDependency(t *testing.T) {
	tasks := []*domain.Task{
		{TaskKey: "a", EstimatedHours: 1, Dependencies: []string{"missing"}},
	}

	_, err := newInstance(tasks, testWorkers())
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Contains(t, inputErr.OffendingIDs, "missing")
}

func TestNewInstanceDuplicateTaskKey(t *testing.T) {
	tasks := []*domain.Task{
		{TaskKey: "a", EstimatedHours: 1},
		{TaskKey: "a", EstimatedHours: 2},
	}

	_, err := newInstance(tasks, testWorkers())
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
}

func TestNewInstanceNoWorkers(t *testing.T) {
	_, err := newInstance(testTasks(), nil)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestNewInstanceNoTasks(t *testing.T) {
	_, err := newInstance(nil, testWorkers())

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestValidateInput(t *testing.T) {
	require.NoError(t, ValidateInput(testTasks(), testWorkers()))

	var cfgErr *ConfigurationError
	require.ErrorAs(t, ValidateInput(testTasks(), nil), &cfgErr)

	// t1 依赖 t5 之后整条链闭合成环
	tasks := testTasks()
	tasks[0].Dependencies = []string{"t5"}
	var inputErr *InputError
	require.ErrorAs(t, ValidateInput(tasks, testWorkers()), &inputErr)
}

func TestRescheduleRestoresDependencyOrder(t *testing.T) {
	inst := mustInstance(testTasks(), testWorkers())

	// 故意把 t4 的开始时间设在依赖完工之前
	s := &Solution{Assignments: []Assignment{
		{TaskID: "t1", WorkerID: "w1", Start: 0},
		{TaskID: "t2", WorkerID: "w1", Start: 4},
		{TaskID: "t3", WorkerID: "w2", Start: 4},
		{TaskID: "t4", WorkerID: "w2", Start: 0},
		{TaskID: "t5", WorkerID: "w2", Start: 0},
	}}
	inst.reschedule(s, false)

	starts := make(map[string]float64)
	for _, a := range s.Assignments {
		starts[a.TaskID] = a.Start
	}
	assert.GreaterOrEqual(t, starts["t4"], 12.0, "t4 必须等 t2 完工")
	assert.GreaterOrEqual(t, starts["t5"], starts["t4"]+5)
}
