package optimizer

import (
	"sort"
	"sync"
	"sync/atomic"
)

// FitnessBreakdown 适应度明细，Total 取值范围 [0,1]，越大越好
type FitnessBreakdown struct {
	Total      float64 `json:"total"`
	Completion float64 `json:"completion"`
	Balance    float64 `json:"balance"`
	Skill      float64 `json:"skill"`
	Dependency float64 `json:"dependency"`

	Makespan             float64 `json:"makespan"`
	DependencyViolations int     `json:"dependencyViolations"`
	OverlapViolations    int     `json:"overlapViolations"`
	SkillViolations      int     `json:"skillViolations"`
}

// Infeasible 返回解是否仍然违反硬约束（依赖顺序或工人档期重叠）
func (b FitnessBreakdown) Infeasible() bool {
	return b.DependencyViolations > 0 || b.OverlapViolations > 0
}

const cacheShardCount = 16

// fitnessCache 分片锁的适应度缓存，生命周期与一次优化运行绑定
// 同一指纹的并发写入是幂等的（适应度计算是确定性的），后写覆盖即可
type fitnessCache struct {
	shards [cacheShardCount]cacheShard
	hits   atomic.Int64
	misses atomic.Int64
}

type cacheShard struct {
	mu sync.RWMutex
	m  map[uint64]FitnessBreakdown
}

func newFitnessCache() *fitnessCache {
	c := &fitnessCache{}
	for i := range c.shards {
		c.shards[i].m = make(map[uint64]FitnessBreakdown)
	}
	return c
}

func (c *fitnessCache) shard(fp uint64) *cacheShard {
	return &c.shards[fp%cacheShardCount]
}

func (c *fitnessCache) get(fp uint64) (FitnessBreakdown, bool) {
	s := c.shard(fp)
	s.mu.RLock()
	b, ok := s.m[fp]
	s.mu.RUnlock()
	return b, ok
}

func (c *fitnessCache) put(fp uint64, b FitnessBreakdown) {
	s := c.shard(fp)
	s.mu.Lock()
	s.m[fp] = b
	s.mu.Unlock()
}

// evaluator 适应度评估器，持有共享缓存
type evaluator struct {
	inst    *instance
	weights FitnessWeights
	hard    bool
	cache   *fitnessCache
}

func newEvaluator(inst *instance, weights FitnessWeights, mode ConstraintMode, cache *fitnessCache) *evaluator {
	return &evaluator{
		inst:    inst,
		weights: weights,
		hard:    mode == ConstraintModeHard,
		cache:   cache,
	}
}

// evaluate 带缓存的评估，这是整个算法中调用最频繁的路径，缓存命中时必须是 O(1)
func (e *evaluator) evaluate(s *Solution) FitnessBreakdown {
	fp := s.Fingerprint()
	if b, ok := e.cache.get(fp); ok {
		e.cache.hits.Add(1)
		return b
	}
	e.cache.misses.Add(1)

	// 注意：不要在持有分片锁的情况下重算适应度
	b := e.evaluateUncached(s)
	e.cache.put(fp, b)
	return b
}

const timeEpsilon = 1e-9

// evaluateUncached 计算适应度明细，结果只依赖指派内容，对同一个解必然返回相同的值
func (e *evaluator) evaluateUncached(s *Solution) FitnessBreakdown {
	var b FitnessBreakdown

	starts := make(map[string]float64, len(s.Assignments))
	workloads := make(map[string]float64, len(e.inst.workers))
	intervals := make(map[string][][2]float64, len(e.inst.workers))

	minStart := 0.0
	maxEnd := 0.0
	for i, a := range s.Assignments {
		dur := e.inst.duration(a.TaskID)
		starts[a.TaskID] = a.Start
		workloads[a.WorkerID] += dur
		intervals[a.WorkerID] = append(intervals[a.WorkerID], [2]float64{a.Start, a.Start + dur})

		if i == 0 || a.Start < minStart {
			minStart = a.Start
		}
		if end := a.Start + dur; end > maxEnd {
			maxEnd = end
		}
	}
	b.Makespan = maxEnd - minStart

	// 完工时间分数：以完全串行执行作为最差参照
	if e.inst.totalHours > 0 {
		b.Completion = clamp01(1 - b.Makespan/e.inst.totalHours)
	} else {
		b.Completion = 1
	}

	// 负载均衡分数：1 - 各工人工时的归一化方差（方差除以均值平方）
	mean := e.inst.totalHours / float64(len(e.inst.workers))
	if mean > 0 {
		variance := 0.0
		for _, w := range e.inst.workers {
			d := workloads[w.WorkerKey] - mean
			variance += d * d
		}
		variance /= float64(len(e.inst.workers))
		b.Balance = clamp01(1 - variance/(mean*mean))
	} else {
		b.Balance = 1
	}

	// 技能匹配分数：对每一项技能需求，达标记 1 分，不达标按比例给分并记一次违反
	skillSum := 0.0
	skillCount := 0
	for _, a := range s.Assignments {
		task := e.inst.taskIndex[a.TaskID]
		worker := e.inst.workerIndex[a.WorkerID]
		for _, skill := range e.inst.skillKeys[a.TaskID] {
			required := task.SkillRequirements[skill]
			level := worker.Skills[skill]
			skillCount++
			if level >= required {
				skillSum++
				continue
			}
			b.SkillViolations++
			if required > 0 {
				skillSum += clamp01(level / required)
			}
		}
	}
	if skillCount > 0 {
		b.Skill = skillSum / float64(skillCount)
	} else {
		b.Skill = 1
	}

	// 依赖满足分数：满足的依赖边所占的比例
	depCount := 0
	depSatisfied := 0
	for _, t := range e.inst.tasks {
		for _, dep := range t.Dependencies {
			depCount++
			depEnd := starts[dep] + e.inst.duration(dep)
			if starts[t.TaskKey]+timeEpsilon >= depEnd {
				depSatisfied++
			} else {
				b.DependencyViolations++
			}
		}
	}
	if depCount > 0 {
		b.Dependency = float64(depSatisfied) / float64(depCount)
	} else {
		b.Dependency = 1
	}

	// 统计工人档期重叠
	for _, w := range e.inst.workers {
		iv := intervals[w.WorkerKey]
		sort.Slice(iv, func(i, j int) bool { return iv[i][0] < iv[j][0] })
		for i := 0; i+1 < len(iv); i++ {
			if iv[i][1] > iv[i+1][0]+timeEpsilon {
				b.OverlapViolations++
			}
		}
	}

	b.Total = e.weights.Completion*b.Completion +
		e.weights.Balance*b.Balance +
		e.weights.Skill*b.Skill +
		e.weights.Dependency*b.Dependency

	// 档期重叠不参与加权子分数，直接从总分中扣除
	if b.OverlapViolations > 0 {
		b.Total -= 0.05 * float64(b.OverlapViolations)
	}

	// 硬约束模式下，任何依赖违反都会把总分拉向 0
	if e.hard && b.DependencyViolations > 0 {
		b.Total /= float64(1 + 10*b.DependencyViolations)
	}

	b.Total = clamp01(b.Total)
	return b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
