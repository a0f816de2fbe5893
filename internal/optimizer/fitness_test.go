package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSolution(inst *instance) *Solution {
	s := &Solution{Assignments: []Assignment{
		{TaskID: "t1", WorkerID: "w1", Start: 0},
		{TaskID: "t2", WorkerID: "w1", Start: 4},
		{TaskID: "t3", WorkerID: "w2", Start: 4},
		{TaskID: "t4", WorkerID: "w2", Start: 12},
		{TaskID: "t5", WorkerID: "w2", Start: 17},
	}}
	inst.reschedule(s, false)
	return s
}

func TestEvaluateDeterministic(t *testing.T) {
	inst := mustInstance(testTasks(), testWorkers())
	s := validSolution(inst)

	e1 := newEvaluator(inst, DefaultParameters().Weights, ConstraintModeSoft, newFitnessCache())
	e2 := newEvaluator(inst, DefaultParameters().Weights, ConstraintModeSoft, newFitnessCache())

	assert.Equal(t, e1.evaluateUncached(s), e2.evaluateUncached(s))
}

func TestEvaluateValidSolution(t *testing.T) {
	inst := mustInstance(testTasks(), testWorkers())
	eval := newEvaluator(inst, DefaultParameters().Weights, ConstraintModeSoft, newFitnessCache())

	b := eval.evaluate(validSolution(inst))

	assert.Zero(t, b.DependencyViolations)
	assert.Zero(t, b.OverlapViolations)
	assert.Zero(t, b.SkillViolations)
	assert.False(t, b.Infeasible())
	assert.Greater(t, b.Total, 0.0)
	assert.LessOrEqual(t, b.Total, 1.0)
	assert.InDelta(t, 19.0, b.Makespan, 1e-9)
}

func TestEvaluateDetectsDependencyViolation(t *testing.T) {
	inst := mustInstance(testTasks(), testWorkers())
	eval := newEvaluator(inst, DefaultParameters().Weights, ConstraintModeSoft, newFitnessCache())

	s := &Solution{Assignments: []Assignment{
		{TaskID: "t1", WorkerID: "w1", Start: 10},
		{TaskID: "t2", WorkerID: "w1", Start: 0},
		{TaskID: "t3", WorkerID: "w2", Start: 0},
		{TaskID: "t4", WorkerID: "w2", Start: 0},
		{TaskID: "t5", WorkerID: "w3", Start: 0},
	}}
	b := eval.evaluate(s)

	assert.Positive(t, b.DependencyViolations)
	assert.Less(t, b.Dependency, 1.0)
	assert.True(t, b.Infeasible())
}

func TestEvaluateHardModePenalty(t *testing.T) {
	inst := mustInstance(testTasks(), testWorkers())
	s := &Solution{Assignments: []Assignment{
		{TaskID: "t1", WorkerID: "w1", Start: 10},
		{TaskID: "t2", WorkerID: "w1", Start: 0},
		{TaskID: "t3", WorkerID: "w2", Start: 0},
		{TaskID: "t4", WorkerID: "w2", Start: 6},
		{TaskID: "t5", WorkerID: "w3", Start: 11},
	}}

	soft := newEvaluator(inst, DefaultParameters().Weights, ConstraintModeSoft, newFitnessCache()).evaluate(s)
	hard := newEvaluator(inst, DefaultParameters().Weights, ConstraintModeHard, newFitnessCache()).evaluate(s)

	require.Positive(t, soft.DependencyViolations)
	assert.Less(t, hard.Total, soft.Total, "硬约束模式下依赖违反的惩罚必须更重")
}

func TestFitnessCacheHitMiss(t *testing.T) {
	inst := mustInstance(testTasks(), testWorkers())
	cache := newFitnessCache()
	eval := newEvaluator(inst, DefaultParameters().Weights, ConstraintModeSoft, cache)

	s := validSolution(inst)
	first := eval.evaluate(s)
	second := eval.evaluate(s.Clone())

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), cache.misses.Load())
	assert.Equal(t, int64(1), cache.hits.Load())
}

func TestFingerprintSensitivity(t *testing.T) {
	inst := mustInstance(testTasks(), testWorkers())
	s := validSolution(inst)

	changed := s.Clone()
	changed.Assignments[1].WorkerID = "w3"

	assert.NotEqual(t, s.Fingerprint(), changed.Fingerprint())
	assert.Equal(t, s.Fingerprint(), s.Clone().Fingerprint())
}
