package optimizer

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
)

// Progress 一次演化进度快照，通过回调上报给调用方
type Progress struct {
	Island      int         `json:"island"`
	Generation  int         `json:"generation"`
	BestFitness float64     `json:"bestFitness"`
	State       IslandState `json:"state"`
}

// ProgressFunc 进度回调。回调在岛屿 goroutine 中执行，实现方需要自己保证线程安全且不能阻塞太久
type ProgressFunc func(p Progress)

// Optimizer 排程优化器入口，无状态，可以被多个运行并发使用
type Optimizer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Optimizer {
	return &Optimizer{logger: logger}
}

// Optimize 执行一次完整的优化运行：
// 每个岛屿在独立的 goroutine 上演化自己的种群，按固定间隔在屏障处交换精英个体，
// 全部岛屿终止后在所有岛屿的历史最优中选出全局最优
func (o *Optimizer) Optimize(ctx context.Context, tasks []*domain.Task, workers []*domain.Worker, params Parameters, progress ProgressFunc) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	inst, err := newInstance(tasks, workers)
	if err != nil {
		return nil, err
	}

	seed := params.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	started := time.Now()
	deadline := started.Add(time.Duration(params.TimeLimitSeconds * float64(time.Second)))
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	o.logger.Info("开始优化运行",
		slog.Int("tasks", len(inst.tasks)),
		slog.Int("workers", len(inst.workers)),
		slog.String("params", params.String()),
		slog.Int64("seed", seed),
	)

	// 所有岛屿共享同一个适应度缓存
	cache := newFitnessCache()

	evolvers := make([]*evolver, params.IslandCount)
	for i := range evolvers {
		islandParams := params
		if params.DiversifyIslands {
			islandParams = diversify(params, i)
		}
		eval := newEvaluator(inst, params.Weights, params.ConstraintMode, cache)
		rng := rand.New(rand.NewSource(seed + int64(i)))
		evolvers[i] = newEvolver(inst, islandParams, eval, rng, deadline)
	}

	migrate := params.IslandCount > 1 && params.MigrationCount > 0
	var coord *coordinator
	if migrate {
		coord = newCoordinator(params.IslandCount, params.Topology, rand.New(rand.NewSource(seed-1)))
		go coord.run()
	}

	var wg sync.WaitGroup
	for i, ev := range evolvers {
		wg.Add(1)
		go func(idx int, ev *evolver) {
			defer wg.Done()
			o.runIsland(ctx, idx, ev, coord, params, progress)
		}(i, ev)
	}
	wg.Wait()

	result := buildResult(evolvers, coord, cache, time.Since(started))

	o.logger.Info("优化运行结束",
		slog.Float64("bestFitness", result.Fitness.Total),
		slog.Float64("elapsedSeconds", result.Diagnostics.ElapsedSeconds),
		slog.Int64("cacheHits", result.Diagnostics.CacheHits),
		slog.Int64("cacheMisses", result.Diagnostics.CacheMisses),
	)

	return result, nil
}

// runIsland 驱动单个岛屿直至终止。岛屿终止后必须向协调器注销，
// 否则仍在等待迁移屏障的其它岛屿会永远阻塞
func (o *Optimizer) runIsland(ctx context.Context, idx int, ev *evolver, coord *coordinator, params Parameters, progress ProgressFunc) {
	ev.initialize()

	for {
		state := ev.step(ctx)

		if progress != nil {
			progress(Progress{
				Island:      idx,
				Generation:  ev.generation,
				BestFitness: ev.bestFit.Total,
				State:       state,
			})
		}

		if state.Terminal() {
			break
		}

		if coord != nil && ev.generation%params.MigrationInterval == 0 {
			migrants := coord.exchange(idx, ev.emigrants(params.MigrationCount))
			ev.acceptMigrants(migrants)
		}
	}

	if coord != nil {
		coord.leave(idx)
	}

	o.logger.Debug("岛屿演化结束",
		slog.Int("island", idx),
		slog.Int("generations", ev.generation),
		slog.String("state", string(ev.state)),
		slog.Float64("bestFitness", ev.bestFit.Total),
	)
}

// diversify 在基准参数上给不同岛屿分配不同的探索强度
func diversify(base Parameters, island int) Parameters {
	p := base
	switch island % 4 {
	case 1:
		p.MutationRate = capRate(base.MutationRate * 1.5)
	case 2:
		p.MutationRate = capRate(base.MutationRate * 2)
		p.CrossoverRate = capRate(base.CrossoverRate * 0.9)
	case 3:
		p.MutationRate = base.MutationRate * 0.5
		p.TournamentSize = base.TournamentSize + 1
		if p.TournamentSize > p.PopulationSize {
			p.TournamentSize = p.PopulationSize
		}
	}
	return p
}

func capRate(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

// migrationOffer 某个岛屿在迁移屏障处提交的迁出个体
type migrationOffer struct {
	island    int
	emigrants []*Solution
	reply     chan []*Solution
}

// coordinator 迁移协调器：实现一个成员数量可变的汇合屏障
// 当所有仍在演化的岛屿都提交了迁出个体后，按拓扑一次性完成交换；
// 已终止的岛屿通过 leave 注销，屏障随之收缩
type coordinator struct {
	topology MigrationTopology
	rng      *rand.Rand

	offerCh chan migrationOffer
	leaveCh chan int

	active int
	events atomic.Int64
}

func newCoordinator(islands int, topology MigrationTopology, rng *rand.Rand) *coordinator {
	return &coordinator{
		topology: topology,
		rng:      rng,
		offerCh:  make(chan migrationOffer),
		leaveCh:  make(chan int),
		active:   islands,
	}
}

// exchange 提交迁出个体并阻塞到本轮交换完成，返回分配给该岛屿的迁入个体
func (c *coordinator) exchange(island int, emigrants []*Solution) []*Solution {
	reply := make(chan []*Solution, 1)
	c.offerCh <- migrationOffer{island: island, emigrants: emigrants, reply: reply}
	return <-reply
}

// leave 岛屿终止时注销，使屏障不再等待它
func (c *coordinator) leave(island int) {
	c.leaveCh <- island
}

func (c *coordinator) run() {
	pending := make([]migrationOffer, 0, c.active)

	for c.active > 0 {
		select {
		case off := <-c.offerCh:
			pending = append(pending, off)
		case <-c.leaveCh:
			c.active--
		}

		if len(pending) > 0 && len(pending) == c.active {
			c.dispatch(pending)
			pending = pending[:0]
		}
	}
}

// dispatch 按拓扑完成一轮交换。迁入个体一定来自其它岛屿，绝不包含自己迁出的个体
func (c *coordinator) dispatch(offers []migrationOffer) {
	n := len(offers)
	if n < 2 {
		// 只剩一个岛屿时没有交换对象
		for _, off := range offers {
			off.reply <- nil
		}
		return
	}

	// 按岛屿编号排序，保证环形拓扑在动态成员下仍然稳定
	for i := 1; i < n; i++ {
		for j := i; j > 0 && offers[j].island < offers[j-1].island; j-- {
			offers[j], offers[j-1] = offers[j-1], offers[j]
		}
	}

	for i, off := range offers {
		var source int
		switch c.topology {
		case TopologyRandom:
			source = c.rng.Intn(n - 1)
			if source >= i {
				source++
			}
		default: // TopologyRing
			source = (i - 1 + n) % n
		}
		off.reply <- offers[source].emigrants
	}

	c.events.Add(1)
}
