package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestStepSizeAdapterDirection: acceptance below target must shrink the step,
// acceptance above target must grow it.
func TestStepSizeAdapterDirection(t *testing.T) {
	shrink := NewStepSizeAdapter(1, 0.8, 100)
	var eps float64
	for i := 0; i < 20; i++ {
		eps = shrink.Update(0)
	}
	assert.Less(t, eps, 1.0)

	grow := NewStepSizeAdapter(0.01, 0.8, 100)
	for i := 0; i < 20; i++ {
		eps = grow.Update(1)
	}
	assert.Greater(t, eps, 0.01)
}

// TestStepSizeAdapterFreezes checks the step size stops moving after warm-up.
func TestStepSizeAdapterFreezes(t *testing.T) {
	a := NewStepSizeAdapter(0.5, 0.65, 10)
	for i := 0; i < 10; i++ {
		assert.True(t, a.Warm())
		a.Update(0.3)
	}
	assert.False(t, a.Warm())

	frozen := a.StepSize()
	assert.Equal(t, frozen, a.Update(0))
	assert.Equal(t, frozen, a.Update(1))
}

func TestStepSizeAdapterWithoutWarmup(t *testing.T) {
	a := NewStepSizeAdapter(0.25, 0.8, 0)
	assert.InDelta(t, 0.25, a.StepSize(), 1e-15)
	assert.InDelta(t, 0.25, a.Update(0), 1e-15)
}
