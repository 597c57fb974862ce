package allocator

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairKeepsWeightWithinCapacity(t *testing.T) {
	a := newAllocator(t, mixedScenario(t), WithParameters(fastParameters(50)))

	for v := range a.sc.Vehicles {
		g := &Gene{VehicleIndex: v, AssignmentID: 0, Supplies: make([]int, a.sc.SupplyCount())}
		for i := range g.Supplies {
			g.Supplies[i] = 40 + a.rng.Intn(60)
		}
		require.Greater(t, a.weight(g), a.capacity(g))

		a.repair(g, repairTargetRatio)
		assert.LessOrEqual(t, a.weight(g), a.capacity(g)*repairTargetRatio+1e-9)
		for _, q := range g.Supplies {
			assert.GreaterOrEqual(t, q, 0)
		}
	}
}

func TestRepairIsIdempotent(t *testing.T) {
	a := newAllocator(t, mixedScenario(t), WithParameters(fastParameters(50)))

	for round := 0; round < 20; round++ {
		g := &Gene{VehicleIndex: round % a.sc.VehicleCount(), Supplies: make([]int, a.sc.SupplyCount())}
		for i := range g.Supplies {
			g.Supplies[i] = a.rng.Intn(120) - 10
		}

		a.repair(g, repairTargetRatio)
		once := slices.Clone(g.Supplies)
		a.repair(g, repairTargetRatio)
		assert.Equal(t, once, g.Supplies)
	}
}

func TestRepairLeavesFeasibleGeneUntouched(t *testing.T) {
	a := newAllocator(t, mixedScenario(t), WithParameters(fastParameters(50)))

	g := &Gene{VehicleIndex: 1, Supplies: make([]int, a.sc.SupplyCount())}
	g.Supplies[0] = 3
	g.Supplies[4] = 7
	before := slices.Clone(g.Supplies)

	a.repair(g, repairTargetRatio)
	assert.Equal(t, before, g.Supplies)
}

func TestTrimVectorClearsUnreachableVector(t *testing.T) {
	a := newAllocator(t, mixedScenario(t), WithParameters(fastParameters(50)))

	supplies := make([]int, a.sc.SupplyCount())
	supplies[3] = 1
	// 单件物资就超过容量时无法削减到目标以内
	a.trimVector(supplies, 0.5, repairTargetRatio)
	assert.Zero(t, a.vectorWeight(supplies))
}

func TestGenerateSuppliesRespectsCapacity(t *testing.T) {
	a := newAllocator(t, mixedScenario(t), WithParameters(fastParameters(50)))

	for _, capacity := range []float64{200, 800, 1500, 3500} {
		supplies := a.generateSupplies(capacity, fillPlan{target: 0.95, priorityCap: 30, otherCap: 15})
		require.Len(t, supplies, a.sc.SupplyCount())
		assert.LessOrEqual(t, a.vectorWeight(supplies), capacity)
	}
}
