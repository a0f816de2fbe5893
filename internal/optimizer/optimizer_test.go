package optimizer

import (
	"io"
	"log/slog"

	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testTasks 五个任务组成的菱形依赖：t1 -> {t2, t3} -> t4 -> t5
func testTasks() []*domain.Task {
	return []*domain.Task{
		{TaskKey: "t1", Name: "需求分析", EstimatedHours: 4, SkillRequirements: map[string]float64{"analysis": 0.6}},
		{TaskKey: "t2", Name: "后端开发", EstimatedHours: 8, SkillRequirements: map[string]float64{"backend": 0.6}, Dependencies: []string{"t1"}},
		{TaskKey: "t3", Name: "前端开发", EstimatedHours: 6, SkillRequirements: map[string]float64{"frontend": 0.6}, Dependencies: []string{"t1"}},
		{TaskKey: "t4", Name: "集成测试", EstimatedHours: 5, SkillRequirements: map[string]float64{"testing": 0.4}, Dependencies: []string{"t2", "t3"}},
		{TaskKey: "t5", Name: "上线部署", EstimatedHours: 2, SkillRequirements: map[string]float64{"ops": 0.4}, Dependencies: []string{"t4"}},
	}
}

func testWorkers() []*domain.Worker {
	return []*domain.Worker{
		{WorkerKey: "w1", Name: "张三", Skills: map[string]float64{"analysis": 0.9, "backend": 0.8, "testing": 0.6}, AvailableHours: 40},
		{WorkerKey: "w2", Name: "李四", Skills: map[string]float64{"frontend": 0.8, "testing": 0.6, "ops": 0.7}, AvailableHours: 40},
		{WorkerKey: "w3", Name: "王五", Skills: map[string]float64{"backend": 0.6, "frontend": 0.6, "ops": 0.5, "analysis": 0.7}, AvailableHours: 40},
	}
}

// testParameters 小而快的参数配置，固定种子保证测试可复现
func testParameters() Parameters {
	p := DefaultParameters()
	p.PopulationSize = 20
	p.MaxGenerations = 30
	p.IslandCount = 1
	p.UseLocalSearch = false
	p.PlateauWindow = 0
	p.TimeLimitSeconds = 60
	p.RandomSeed = 42
	return p
}

func mustInstance(tasks []*domain.Task, workers []*domain.Worker) *instance {
	inst, err := newInstance(tasks, workers)
	if err != nil {
		panic(err)
	}
	return inst
}
