package optimizer

import (
	"fmt"
	"hash/fnv"
	"math"
)

// Assignment: 某个任务的一次指派（任务 -> 执行人 + 开始时间）
type Assignment struct {
	TaskID   string  `json:"taskID"`
	WorkerID string  `json:"workerID"`
	Start    float64 `json:"start"`
}

// Solution: 一个候选排程，基因按任务的拓扑序排列
// 约定：Assignments[i].TaskID 与实例的拓扑序一一对应，交叉操作依赖这个约定
type Solution struct {
	Assignments []Assignment `json:"assignments"`
}

// Clone 深拷贝解，防止繁殖过程中基因被共享修改
func (s *Solution) Clone() *Solution {
	c := &Solution{
		Assignments: make([]Assignment, len(s.Assignments)),
	}
	copy(c.Assignments, s.Assignments)
	return c
}

// Fingerprint 计算解的指纹，作为适应度缓存的键
// 由于所有解共享同一个任务顺序，直接按序哈希即可保证规范性
func (s *Solution) Fingerprint() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, a := range s.Assignments {
		_, _ = h.Write([]byte(a.TaskID))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(a.WorkerID))
		_, _ = h.Write([]byte{0})
		bits := math.Float64bits(a.Start)
		for i := 0; i < 8; i++ {
			buf[i] = byte(bits >> (8 * i))
		}
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// ConstraintMode 约束处理模式
type ConstraintMode string

const (
	// ConstraintModeSoft 软约束：违反约束只会降低适应度，允许算法探索暂时非法的区域（默认）
	ConstraintModeSoft ConstraintMode = "soft"
	// ConstraintModeHard 硬约束：构造解时就避免工人档期冲突，依赖违反会使适应度急剧下降
	ConstraintModeHard ConstraintMode = "hard"
)

// MigrationTopology 岛屿间迁移的拓扑结构
type MigrationTopology string

const (
	TopologyRing   MigrationTopology = "ring"
	TopologyRandom MigrationTopology = "random"
)

// FitnessWeights 各项子分数的权重，要求总和为 1
type FitnessWeights struct {
	Completion float64 `json:"completion"`
	Balance    float64 `json:"balance"`
	Skill      float64 `json:"skill"`
	Dependency float64 `json:"dependency"`
}

// 遗传算法参数
type Parameters struct {
	PopulationSize int     `json:"populationSize"`
	MaxGenerations int     `json:"maxGenerations"`
	CrossoverRate  float64 `json:"crossoverRate"`
	MutationRate   float64 `json:"mutationRate"`
	TournamentSize int     `json:"tournamentSize"`
	EliteCount     int     `json:"eliteCount"`

	// 局部搜索和模拟退火是互斥的两种精炼方式，每个岛最多启用其中一种
	UseLocalSearch        bool `json:"useLocalSearch"`
	UseSimulatedAnnealing bool `json:"useSimulatedAnnealing"`

	IslandCount       int               `json:"islandCount"`
	MigrationInterval int               `json:"migrationInterval"`
	MigrationCount    int               `json:"migrationCount"`
	Topology          MigrationTopology `json:"migrationTopology"`
	// DiversifyIslands 为 true 时，各个岛会在基准参数上做不同幅度的扰动，提升种群多样性
	DiversifyIslands bool `json:"diversifyIslands"`

	TimeLimitSeconds float64 `json:"timeLimitSeconds"`
	PlateauEpsilon   float64 `json:"plateauEpsilon"`
	// PlateauWindow 为 0 表示不启用平台期收敛判定
	PlateauWindow int `json:"plateauWindow"`

	Weights        FitnessWeights `json:"weights"`
	ConstraintMode ConstraintMode `json:"constraintMode"`

	// GreedyFraction 初始化种群中贪心构造个体所占的比例，其余为随机构造
	GreedyFraction float64 `json:"greedyFraction"`

	InitialTemperature float64 `json:"initialTemperature"`
	CoolingRate        float64 `json:"coolingRate"`
	MinTemperature     float64 `json:"minTemperature"`

	// RefinerIterations 精炼（局部搜索/退火）的迭代上限
	RefinerIterations int `json:"refinerIterations"`
	// NeighborhoodSample 局部搜索每轮最多评估的邻居数量，用于控制大规模问题的开销
	NeighborhoodSample int `json:"neighborhoodSample"`

	// RandomSeed 为 0 时使用时间种子
	RandomSeed int64 `json:"randomSeed"`
}

const weightSumTolerance = 1e-6

func (p Parameters) Validate() error {
	if p.PopulationSize <= 0 {
		return newConfigurationError("种群大小必须大于 0（收到 %d）", p.PopulationSize)
	}
	if p.MaxGenerations <= 0 {
		return newConfigurationError("最大迭代代数必须大于 0（收到 %d）", p.MaxGenerations)
	}
	if p.CrossoverRate < 0 || p.CrossoverRate > 1 {
		return newConfigurationError("交叉概率必须在 [0,1] 范围内（收到 %f）", p.CrossoverRate)
	}
	if p.MutationRate < 0 || p.MutationRate > 1 {
		return newConfigurationError("变异概率必须在 [0,1] 范围内（收到 %f）", p.MutationRate)
	}
	if p.TournamentSize < 2 {
		return newConfigurationError("锦标赛规模必须不小于 2（收到 %d）", p.TournamentSize)
	}
	if p.EliteCount < 0 || p.EliteCount >= p.PopulationSize {
		return newConfigurationError("精英数量必须在 [0, 种群大小) 范围内（收到 %d）", p.EliteCount)
	}
	if p.UseLocalSearch && p.UseSimulatedAnnealing {
		return newConfigurationError("局部搜索和模拟退火不能同时启用")
	}
	if p.IslandCount < 1 {
		return newConfigurationError("岛屿数量必须不小于 1（收到 %d）", p.IslandCount)
	}
	if p.MigrationInterval <= 0 {
		return newConfigurationError("迁移间隔必须大于 0（收到 %d）", p.MigrationInterval)
	}
	if p.MigrationCount < 0 || p.MigrationCount > p.PopulationSize {
		return newConfigurationError("迁移数量必须在 [0, 种群大小] 范围内（收到 %d）", p.MigrationCount)
	}
	switch p.Topology {
	case TopologyRing, TopologyRandom:
	default:
		return newConfigurationError("未知的迁移拓扑：%q", p.Topology)
	}
	if p.TimeLimitSeconds <= 0 {
		return newConfigurationError("时间限制必须大于 0（收到 %f）", p.TimeLimitSeconds)
	}
	if p.PlateauWindow < 0 {
		return newConfigurationError("平台期窗口不能为负（收到 %d）", p.PlateauWindow)
	}
	if p.PlateauEpsilon < 0 {
		return newConfigurationError("平台期阈值不能为负（收到 %f）", p.PlateauEpsilon)
	}
	sum := p.Weights.Completion + p.Weights.Balance + p.Weights.Skill + p.Weights.Dependency
	if p.Weights.Completion < 0 || p.Weights.Balance < 0 || p.Weights.Skill < 0 || p.Weights.Dependency < 0 {
		return newConfigurationError("适应度权重不能为负")
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return newConfigurationError("适应度权重之和必须为 1（收到 %f）", sum)
	}
	switch p.ConstraintMode {
	case ConstraintModeSoft, ConstraintModeHard:
	default:
		return newConfigurationError("未知的约束模式：%q", p.ConstraintMode)
	}
	if p.GreedyFraction < 0 || p.GreedyFraction > 1 {
		return newConfigurationError("贪心构造比例必须在 [0,1] 范围内（收到 %f）", p.GreedyFraction)
	}
	if p.UseSimulatedAnnealing {
		if p.InitialTemperature <= 0 {
			return newConfigurationError("初始温度必须大于 0（收到 %f）", p.InitialTemperature)
		}
		if p.CoolingRate <= 0 || p.CoolingRate >= 1 {
			return newConfigurationError("冷却速率必须在 (0,1) 范围内（收到 %f）", p.CoolingRate)
		}
		if p.MinTemperature <= 0 || p.MinTemperature > p.InitialTemperature {
			return newConfigurationError("最低温度必须在 (0, 初始温度] 范围内（收到 %f）", p.MinTemperature)
		}
	}
	if p.RefinerIterations < 0 {
		return newConfigurationError("精炼迭代上限不能为负（收到 %d）", p.RefinerIterations)
	}
	if p.NeighborhoodSample < 0 {
		return newConfigurationError("邻域采样数量不能为负（收到 %d）", p.NeighborhoodSample)
	}
	return nil
}

func DefaultParameters() Parameters {
	return Parameters{
		PopulationSize:     50,
		MaxGenerations:     100,
		CrossoverRate:      0.8,
		MutationRate:       0.1,
		TournamentSize:     3,
		EliteCount:         2,
		UseLocalSearch:     true,
		IslandCount:        4,
		MigrationInterval:  10,
		MigrationCount:     3,
		Topology:           TopologyRing,
		DiversifyIslands:   true,
		TimeLimitSeconds:   30,
		PlateauEpsilon:     1e-6,
		PlateauWindow:      20,
		Weights:            FitnessWeights{Completion: 0.3, Balance: 0.2, Skill: 0.2, Dependency: 0.3},
		ConstraintMode:     ConstraintModeSoft,
		GreedyFraction:     0.7,
		InitialTemperature: 100,
		CoolingRate:        0.95,
		MinTemperature:     0.1,
		RefinerIterations:  30,
		NeighborhoodSample: 200,
	}
}

// String 便于日志输出关键参数
func (p Parameters) String() string {
	return fmt.Sprintf("pop=%d gen=%d islands=%d cx=%.2f mut=%.2f", p.PopulationSize, p.MaxGenerations, p.IslandCount, p.CrossoverRate, p.MutationRate)
}
