package optimizer

// refiner 精炼器：在遗传算子之后对个体做进一步打磨
// 两种实现（爬山式局部搜索、模拟退火）返回的解的适应度都不低于输入解
type refiner interface {
	refine(s *Solution, b FitnessBreakdown) (*Solution, FitnessBreakdown)
}

// localSearch 严格改进的爬山搜索：
// 按确定性顺序枚举“把某个任务重指派给另一个工人”和“把某个任务的开始时间平移一小步”两类邻居，
// 每轮移动到整个邻域中最优的改进邻居；一整轮都没有改进则停止
type localSearch struct {
	inst       *instance
	eval       *evaluator
	hard       bool
	iterations int
	sample     int
}

func newLocalSearch(inst *instance, eval *evaluator, params Parameters) *localSearch {
	return &localSearch{
		inst:       inst,
		eval:       eval,
		hard:       params.ConstraintMode == ConstraintModeHard,
		iterations: params.RefinerIterations,
		sample:     params.NeighborhoodSample,
	}
}

func (ls *localSearch) refine(s *Solution, b FitnessBreakdown) (*Solution, FitnessBreakdown) {
	current := s
	currentFit := b

	for iter := 0; iter < ls.iterations; iter++ {
		neighbor, neighborFit, improved := ls.bestMove(current, currentFit)
		if !improved {
			break
		}
		current = neighbor
		currentFit = neighborFit
	}

	return current, currentFit
}

// bestMove 在邻域中寻找严格最优的改进邻居（最优改进策略）
// 邻域枚举顺序固定：按基因位置，先按工人的有序下标枚举重指派，再枚举前移/后移两个时间平移，
// 保证同样的输入总走同样的路径；评估数达到采样上限后停止枚举，返回已找到的最优邻居
func (ls *localSearch) bestMove(s *Solution, fit FitnessBreakdown) (*Solution, FitnessBreakdown, bool) {
	var best *Solution
	bestFit := fit
	evaluated := 0

	consider := func(neighbor *Solution) bool {
		if ls.sample > 0 && evaluated >= ls.sample {
			return false
		}
		evaluated++

		ls.inst.reschedule(neighbor, ls.hard)
		neighborFit := ls.eval.evaluate(neighbor)
		if neighborFit.Total > bestFit.Total {
			best = neighbor
			bestFit = neighborFit
		}
		return true
	}

	for i := range s.Assignments {
		a := s.Assignments[i]

		for _, w := range ls.inst.workers {
			if w.WorkerKey == a.WorkerID {
				continue
			}
			neighbor := s.Clone()
			neighbor.Assignments[i].WorkerID = w.WorkerKey
			if !consider(neighbor) {
				return best, bestFit, best != nil
			}
		}

		// 时间平移：前移被钳制在前置任务的完工时间，避免制造依赖违反
		delta := ls.inst.duration(a.TaskID) / 2
		if delta <= 0 {
			delta = 1
		}
		floor := ls.inst.dependencyFloor(s, a.TaskID)
		for _, start := range [2]float64{a.Start - delta, a.Start + delta} {
			if start < floor {
				start = floor
			}
			if start == a.Start {
				continue
			}
			neighbor := s.Clone()
			neighbor.Assignments[i].Start = start
			if !consider(neighbor) {
				return best, bestFit, best != nil
			}
		}
	}

	return best, bestFit, best != nil
}
