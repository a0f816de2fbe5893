package seed

import (
	"log/slog"

	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
	"github.com/nc-lab-dev/task-scheduler/backend/internal/repository"
)

// demoWorkers 是一个小型开发团队，技能熟练度取值范围 [0,1]
var demoWorkers = []*domain.Worker{
	{WorkerKey: "W01", Name: "陈志远", Skills: map[string]float64{"分析": 0.90, "文档": 0.70, "设计": 0.60}, AvailableHours: 40},
	{WorkerKey: "W02", Name: "林晓梅", Skills: map[string]float64{"后端": 0.85, "测试": 0.55, "运维": 0.40}, AvailableHours: 40},
	{WorkerKey: "W03", Name: "王建国", Skills: map[string]float64{"后端": 0.70, "前端": 0.50, "分析": 0.45}, AvailableHours: 36},
	{WorkerKey: "W04", Name: "赵思琪", Skills: map[string]float64{"前端": 0.90, "设计": 0.75}, AvailableHours: 40},
	{WorkerKey: "W05", Name: "刘德海", Skills: map[string]float64{"测试": 0.80, "文档": 0.60, "前端": 0.35}, AvailableHours: 32},
	{WorkerKey: "W06", Name: "杨雨欣", Skills: map[string]float64{"运维": 0.85, "后端": 0.50, "测试": 0.45}, AvailableHours: 40},
}

// demoTasks 是一个完整的交付流程，依赖只指向更早的阶段
var demoTasks = []*domain.Task{
	{TaskKey: "T01", Name: "需求调研", EstimatedHours: 8, SkillRequirements: map[string]float64{"分析": 0.70}},
	{TaskKey: "T02", Name: "系统设计", EstimatedHours: 10, SkillRequirements: map[string]float64{"分析": 0.60, "设计": 0.50}, Dependencies: []string{"T01"}},
	{TaskKey: "T03", Name: "接口设计", EstimatedHours: 6, SkillRequirements: map[string]float64{"后端": 0.50, "文档": 0.40}, Dependencies: []string{"T02"}},
	{TaskKey: "T04", Name: "数据库设计", EstimatedHours: 6, SkillRequirements: map[string]float64{"后端": 0.60}, Dependencies: []string{"T02"}},
	{TaskKey: "T05", Name: "后端核心开发", EstimatedHours: 16, SkillRequirements: map[string]float64{"后端": 0.70}, Dependencies: []string{"T03", "T04"}},
	{TaskKey: "T06", Name: "前端页面开发", EstimatedHours: 14, SkillRequirements: map[string]float64{"前端": 0.70, "设计": 0.40}, Dependencies: []string{"T03"}},
	{TaskKey: "T07", Name: "前后端联调", EstimatedHours: 8, SkillRequirements: map[string]float64{"前端": 0.50, "后端": 0.50}, Dependencies: []string{"T05", "T06"}},
	{TaskKey: "T08", Name: "集成测试", EstimatedHours: 10, SkillRequirements: map[string]float64{"测试": 0.70}, Dependencies: []string{"T07"}},
	{TaskKey: "T09", Name: "性能压测", EstimatedHours: 6, SkillRequirements: map[string]float64{"测试": 0.60, "运维": 0.50}, Dependencies: []string{"T08"}},
	{TaskKey: "T10", Name: "部署上线", EstimatedHours: 4, SkillRequirements: map[string]float64{"运维": 0.70}, Dependencies: []string{"T09"}},
	{TaskKey: "T11", Name: "用户手册编写", EstimatedHours: 6, SkillRequirements: map[string]float64{"文档": 0.60}, Dependencies: []string{"T07"}},
}

// SeedDemoData 向数据库插入一套固定的演示数据，方便本地直接发起优化运行
func SeedDemoData(r *repository.Repository) {
	workerCnt := 0
	for _, worker := range demoWorkers {
		if err := r.CreateWorker(worker); err != nil {
			slog.Error("插入工人失败", "workerKey", worker.WorkerKey, "error", err)
			continue
		}
		workerCnt++
	}

	taskCnt := 0
	for _, task := range demoTasks {
		if err := r.CreateTask(task); err != nil {
			slog.Error("插入任务失败", "taskKey", task.TaskKey, "error", err)
			continue
		}
		taskCnt++
	}

	slog.Info("插入演示数据完成", "workers", workerCnt, "tasks", taskCnt)
}
