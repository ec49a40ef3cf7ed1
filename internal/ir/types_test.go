package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDemandsMerge tests merging of equipment and instrument demands.
func TestDemandsMerge(t *testing.T) {
	item := TestItem{
		Equipment:   []Demand{{Name: "服务器", Qty: 1}, {Name: "示波器", Qty: 1}},
		Instruments: []Demand{{Name: "示波器", Qty: 2}, {Name: "探头", Qty: 1}},
	}

	assert.Equal(t, []Demand{
		{Name: "探头", Qty: 1},
		{Name: "服务器", Qty: 1},
		{Name: "示波器", Qty: 3},
	}, item.Demands())
	assert.Equal(t, 3, item.ResourceCount())
}

// TestDemandsEmpty tests an item with no resource requirement.
func TestDemandsEmpty(t *testing.T) {
	item := TestItem{}
	assert.Nil(t, item.Demands())
	assert.Equal(t, 0, item.ResourceCount())
}

// TestHasGroup tests the none marker on groups.
func TestHasGroup(t *testing.T) {
	assert.True(t, (&TestItem{Group: "性能组"}).HasGroup())
	assert.False(t, (&TestItem{Group: ""}).HasGroup())
	assert.False(t, (&TestItem{Group: NoneMarker}).HasGroup())
}

// TestPhaseOrder tests index and precedence lookups.
func TestPhaseOrder(t *testing.T) {
	order := PhaseOrder{"集成测试", "系统测试", "验收测试"}

	assert.Equal(t, 1, order.Index("系统测试"))
	assert.Equal(t, -1, order.Index("未知"))
	assert.True(t, order.Before("集成测试", "验收测试"))
	assert.False(t, order.Before("验收测试", "集成测试"))
	assert.False(t, order.Before("集成测试", "集成测试"))
	assert.False(t, order.Before("未知", "集成测试"))
}

// TestDemandString tests rendering of quantities.
func TestDemandString(t *testing.T) {
	assert.Equal(t, "性能监控仪", Demand{Name: "性能监控仪", Qty: 1}.String())
	assert.Equal(t, "负载生成器×2", Demand{Name: "负载生成器", Qty: 2}.String())
}
