package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/testsched/internal/ir"
)

// TestParseDemand tests single demand entries.
func TestParseDemand(t *testing.T) {
	tests := []struct {
		in   string
		want ir.Demand
	}{
		{"性能监控仪", ir.Demand{Name: "性能监控仪", Qty: 1}},
		{"负载生成器×2", ir.Demand{Name: "负载生成器", Qty: 2}},
		{" 负载生成器 * 3 ", ir.Demand{Name: "负载生成器", Qty: 3}},
		{"电源＊0", ir.Demand{Name: "电源", Qty: 0}},
	}
	for _, tt := range tests {
		got, err := ParseDemand(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseDemand("×2")
	assert.Error(t, err)
	_, err = ParseDemand("x×y")
	assert.Error(t, err)
}

// TestParseDemands tests separated lists and none markers.
func TestParseDemands(t *testing.T) {
	got, err := ParseDemands("示波器、电源×2，频谱仪")
	require.NoError(t, err)
	assert.Equal(t, []ir.Demand{
		{Name: "示波器", Qty: 1},
		{Name: "电源", Qty: 2},
		{Name: "频谱仪", Qty: 1},
	}, got)

	for _, none := range []string{"无", "none", "NONE", "", "  "} {
		got, err := ParseDemands(none)
		require.NoError(t, err)
		assert.Empty(t, got, "%q", none)
	}
}

// TestIsNone tests the none markers.
func TestIsNone(t *testing.T) {
	assert.True(t, IsNone("无"))
	assert.True(t, IsNone(" None "))
	assert.False(t, IsNone("无线模块"))
}
