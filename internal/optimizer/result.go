package optimizer

import (
	"time"
)

// IslandReport 单个岛屿的演化统计
type IslandReport struct {
	Island      int         `json:"island"`
	Generations int         `json:"generations"`
	State       IslandState `json:"state"`
	BestFitness float64     `json:"bestFitness"`
}

// Diagnostics 一次优化运行的诊断信息，随结果一并持久化
type Diagnostics struct {
	Islands         []IslandReport `json:"islands"`
	MigrationEvents int64          `json:"migrationEvents"`
	CacheHits       int64          `json:"cacheHits"`
	CacheMisses     int64          `json:"cacheMisses"`
	Infeasible      bool           `json:"infeasible"`
	ElapsedSeconds  float64        `json:"elapsedSeconds"`
}

// Result 优化运行的最终产出
type Result struct {
	Best        *Solution        `json:"best"`
	Fitness     FitnessBreakdown `json:"fitness"`
	Diagnostics Diagnostics      `json:"diagnostics"`
}

// buildResult 汇总所有岛屿的历史最优，选出全局最优解
// 总分相同的情况下优先选依赖违反更少的解，再优先选完工时间更短的解
func buildResult(evolvers []*evolver, coord *coordinator, cache *fitnessCache, elapsed time.Duration) *Result {
	r := &Result{
		Diagnostics: Diagnostics{
			Islands:        make([]IslandReport, len(evolvers)),
			CacheHits:      cache.hits.Load(),
			CacheMisses:    cache.misses.Load(),
			ElapsedSeconds: elapsed.Seconds(),
		},
	}
	if coord != nil {
		r.Diagnostics.MigrationEvents = coord.events.Load()
	}

	for i, ev := range evolvers {
		r.Diagnostics.Islands[i] = IslandReport{
			Island:      i,
			Generations: ev.generation,
			State:       ev.state,
			BestFitness: ev.bestFit.Total,
		}

		if r.Best == nil || betterThan(ev.bestFit, r.Fitness) {
			r.Best = ev.best
			r.Fitness = ev.bestFit
		}
	}

	r.Diagnostics.Infeasible = r.Fitness.Infeasible()
	return r
}

// betterThan 全局最优的比较规则
func betterThan(a, b FitnessBreakdown) bool {
	if a.Total != b.Total {
		return a.Total > b.Total
	}
	if a.DependencyViolations != b.DependencyViolations {
		return a.DependencyViolations < b.DependencyViolations
	}
	return a.Makespan < b.Makespan
}
