package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeAward(t *testing.T) {
	tests := []struct {
		name       string
		basePoints int
		streak     int
		want       int
	}{
		{"no multiplier below first tier", 10, 1, 10},
		{"no multiplier at streak 2", 10, 2, 10},
		{"1.2x at streak 3", 10, 3, 12},
		{"1.2x holds through streak 6", 10, 6, 12},
		{"1.5x at streak 7", 10, 7, 15},
		{"1.5x beyond streak 7", 10, 30, 15},
		{"hard item at 1.5x", 20, 7, 30},
		{"easy item rounds half up", 5, 3, 6},
		{"zero base stays zero", 0, 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeAward(tt.basePoints, tt.streak))
		})
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		points int
		want   int
	}{
		{0, 0},
		{49, 0},
		{50, 1},
		{149, 1},
		{150, 2},
		{300, 3},
		{500, 4},
		{750, 5},
		{999, 5},
		{1000, 6},
		{5000, 6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.points), "levelFor(%d)", tt.points)
	}
}

func TestLevelTitle(t *testing.T) {
	assert.Equal(t, "Newcomer", LevelTitle(0))
	assert.Equal(t, "Summit", LevelTitle(6))

	// Out-of-range levels clamp to the table.
	assert.Equal(t, "Newcomer", LevelTitle(-1))
	assert.Equal(t, "Summit", LevelTitle(42))
}
