package testutil

import (
	"testing"

	"github.com/roach88/testsched/internal/ir"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSampleDataset_Shape tests the reference dataset's contents.
func TestSampleDataset_Shape(t *testing.T) {
	ds := SampleDataset()
	require.Len(t, ds.Items, 8)
	assert.Equal(t, SamplePhases(), ds.Phases)
	assert.Equal(t, 1, ds.Capacities["性能监控仪"])
	assert.ElementsMatch(t, []string{"响应时间测试", "API接口测试"}, ds.Dependencies["功能完整性验收"])

	ids := make(map[int]bool)
	for _, item := range ds.Items {
		assert.False(t, ids[item.ID], "duplicate id %d", item.ID)
		ids[item.ID] = true
		assert.Positive(t, item.Duration)
	}
}

// TestSampleDataset_FreshCopy tests that callers cannot corrupt later fixtures.
func TestSampleDataset_FreshCopy(t *testing.T) {
	a := SampleDataset()
	a.Items[0].Name = "changed"
	a.Capacities["性能监控仪"] = 9

	b := SampleDataset()
	assert.Equal(t, "API接口测试", b.Items[0].Name)
	assert.Equal(t, 1, b.Capacities["性能监控仪"])
}

// TestNewItem_Options tests the item builder.
func TestNewItem_Options(t *testing.T) {
	item := NewItem(3, "x", "p", 2,
		WithGroup("g"),
		WithEquipment("e1"),
		WithInstruments("i1"),
		WithInstrumentQty("i2", 3))

	assert.Equal(t, "g", item.Group)
	require.Len(t, item.Demands(), 3)
	assert.Equal(t, 3, item.Demands()[2].Qty)

	ptrs := Pointers([]ir.TestItem{item})
	assert.Equal(t, 3, ptrs[0].ID)
}
