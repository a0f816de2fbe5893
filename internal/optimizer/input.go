package optimizer

import (
	"sort"

	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
)

// instance: 预处理后的只读问题实例，所有算子共享
type instance struct {
	tasks   []*domain.Task
	workers []*domain.Worker

	taskIndex   map[string]*domain.Task
	workerIndex map[string]*domain.Worker

	// topoOrder 任务的拓扑序，所有解的基因都按这个顺序排列
	topoOrder []string
	// orderIndex TaskKey -> 在拓扑序中的下标
	orderIndex map[string]int

	// skillKeys 每个任务按字典序排列的技能需求键，保证适应度计算的浮点求和顺序稳定
	skillKeys map[string][]string

	// totalHours 所有任务工时之和，作为最差（完全串行）完工时间的参照
	totalHours float64
}

// ValidateInput 对任务和工人做结构校验（非空、标识唯一、依赖存在且无环），
// 供调用方在投递异步运行之前同步发现输入问题
func ValidateInput(tasks []*domain.Task, workers []*domain.Worker) error {
	_, err := newInstance(tasks, workers)
	return err
}

func newInstance(tasks []*domain.Task, workers []*domain.Worker) (*instance, error) {
	if len(workers) == 0 {
		return nil, newConfigurationError("没有任何可用的工人")
	}
	if len(tasks) == 0 {
		return nil, newConfigurationError("没有任何待排程的任务")
	}

	inst := &instance{
		tasks:       make([]*domain.Task, len(tasks)),
		workers:     make([]*domain.Worker, len(workers)),
		taskIndex:   make(map[string]*domain.Task, len(tasks)),
		workerIndex: make(map[string]*domain.Worker, len(workers)),
		orderIndex:  make(map[string]int, len(tasks)),
		skillKeys:   make(map[string][]string, len(tasks)),
	}

	// 固定任务和工人的遍历顺序，保证同一种子下结果可复现
	copy(inst.tasks, tasks)
	sort.Slice(inst.tasks, func(i, j int) bool { return inst.tasks[i].TaskKey < inst.tasks[j].TaskKey })
	copy(inst.workers, workers)
	sort.Slice(inst.workers, func(i, j int) bool { return inst.workers[i].WorkerKey < inst.workers[j].WorkerKey })

	for _, t := range inst.tasks {
		if _, exists := inst.taskIndex[t.TaskKey]; exists {
			return nil, newInputError("存在重复的任务标识", t.TaskKey)
		}
		inst.taskIndex[t.TaskKey] = t
		inst.totalHours += t.EstimatedHours

		keys := make([]string, 0, len(t.SkillRequirements))
		for skill := range t.SkillRequirements {
			keys = append(keys, skill)
		}
		sort.Strings(keys)
		inst.skillKeys[t.TaskKey] = keys
	}
	for _, w := range inst.workers {
		if _, exists := inst.workerIndex[w.WorkerKey]; exists {
			return nil, newInputError("存在重复的工人标识", w.WorkerKey)
		}
		inst.workerIndex[w.WorkerKey] = w
	}

	// 检查依赖引用是否都存在
	for _, t := range inst.tasks {
		for _, dep := range t.Dependencies {
			if _, exists := inst.taskIndex[dep]; !exists {
				return nil, newInputError("任务依赖了不存在的任务", t.TaskKey, dep)
			}
		}
	}

	order, err := topologicalOrder(inst.tasks, inst.taskIndex)
	if err != nil {
		return nil, err
	}
	inst.topoOrder = order
	for i, key := range order {
		inst.orderIndex[key] = i
	}

	return inst, nil
}

// topologicalOrder 使用 Kahn 算法求拓扑序，检测依赖环
func topologicalOrder(tasks []*domain.Task, index map[string]*domain.Task) ([]string, error) {
	inDegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string, len(tasks))

	for _, t := range tasks {
		inDegree[t.TaskKey] += 0
		for _, dep := range t.Dependencies {
			inDegree[t.TaskKey]++
			dependents[dep] = append(dependents[dep], t.TaskKey)
		}
	}

	// 用有序队列保证拓扑序的确定性
	queue := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if inDegree[t.TaskKey] == 0 {
			queue = append(queue, t.TaskKey)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(tasks))
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		order = append(order, key)

		ready := make([]string, 0)
		for _, next := range dependents[key] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
			}
		}
		sort.Strings(ready)
		queue = append(queue, ready...)
	}

	if len(order) != len(tasks) {
		// 剩余入度非零的任务即为环上（或依赖环的下游）的任务
		remaining := make([]string, 0)
		for key, deg := range inDegree {
			if deg > 0 {
				remaining = append(remaining, key)
			}
		}
		sort.Strings(remaining)
		return nil, newInputError("任务依赖中存在环", remaining...)
	}

	return order, nil
}

// duration 任务工时，任务必然存在于实例中
func (inst *instance) duration(taskKey string) float64 {
	return inst.taskIndex[taskKey].EstimatedHours
}

// reschedule 按拓扑序重算开始时间：每个任务的开始时间不早于其所有前置任务的完工时间，
// 并在可行的前提下尽量保留原有的时间基因；硬约束模式下还会顺延以避免同一工人档期重叠
func (inst *instance) reschedule(s *Solution, hard bool) {
	starts := make(map[string]float64, len(s.Assignments))
	byTask := make(map[string]int, len(s.Assignments))
	for i, a := range s.Assignments {
		byTask[a.TaskID] = i
	}

	var workerFree map[string]float64
	if hard {
		workerFree = make(map[string]float64, len(inst.workers))
	}

	for _, key := range inst.topoOrder {
		i, ok := byTask[key]
		if !ok {
			continue
		}
		a := &s.Assignments[i]

		depEnd := 0.0
		for _, dep := range inst.taskIndex[key].Dependencies {
			end := starts[dep] + inst.duration(dep)
			if end > depEnd {
				depEnd = end
			}
		}

		start := a.Start
		if start < depEnd {
			start = depEnd
		}
		if hard && start < workerFree[a.WorkerID] {
			start = workerFree[a.WorkerID]
		}

		a.Start = start
		starts[key] = start
		if hard {
			end := start + inst.duration(key)
			if end > workerFree[a.WorkerID] {
				workerFree[a.WorkerID] = end
			}
		}
	}
}

// dependencyFloor 计算某个任务当前允许的最早开始时间（所有前置任务完工时间的最大值）
func (inst *instance) dependencyFloor(s *Solution, taskKey string) float64 {
	starts := make(map[string]float64, len(s.Assignments))
	for _, a := range s.Assignments {
		starts[a.TaskID] = a.Start
	}

	floor := 0.0
	for _, dep := range inst.taskIndex[taskKey].Dependencies {
		end := starts[dep] + inst.duration(dep)
		if end > floor {
			floor = end
		}
	}
	return floor
}
