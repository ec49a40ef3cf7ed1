// Package testutil provides fixtures shared by package tests.
//
// It depends on ir only, so every package can import it from internal tests
// without creating an import cycle.
package testutil

import (
	"github.com/roach88/testsched/internal/ir"
)

// Phase names of the sample dataset.
const (
	PhaseIntegration = "集成测试"
	PhaseSystem      = "系统测试"
	PhaseAcceptance  = "验收测试"
)

// SamplePhases is the phase order of the sample dataset.
func SamplePhases() ir.PhaseOrder {
	return ir.PhaseOrder{PhaseIntegration, PhaseSystem, PhaseAcceptance}
}

// SampleDataset returns the eight-item reference dataset. Every call returns
// a fresh copy that the caller may mutate.
func SampleDataset() *ir.Dataset {
	return &ir.Dataset{
		Phases: SamplePhases(),
		Items: []ir.TestItem{
			NewItem(1, "API接口测试", PhaseIntegration, 4, WithGroup("接口组"), WithInstruments("接口测试工具")),
			NewItem(2, "数据库集成测试", PhaseIntegration, 6),
			NewItem(3, "响应时间测试", PhaseSystem, 3, WithInstruments("性能监控仪")),
			NewItem(4, "并发压力测试", PhaseSystem, 8, WithInstrumentQty("负载生成器", 2)),
			NewItem(5, "故障恢复测试", PhaseSystem, 5),
			NewItem(6, "功能完整性验收", PhaseAcceptance, 6),
			NewItem(7, "性能指标验收", PhaseAcceptance, 2, WithInstruments("性能监控仪")),
			NewItem(8, "安全漏洞扫描", PhaseAcceptance, 4),
		},
		Capacities: ir.Capacities{
			"性能监控仪":  1,
			"负载生成器":  2,
			"接口测试工具": 1,
		},
		Dependencies: map[string][]string{
			"功能完整性验收": {"响应时间测试", "API接口测试"},
			"安全漏洞扫描":  {"功能完整性验收"},
		},
	}
}

// ItemOption customizes an item built by NewItem.
type ItemOption func(*ir.TestItem)

// NewItem builds a test item with no group and no resource demands.
func NewItem(id int, name, phase string, duration int, opts ...ItemOption) ir.TestItem {
	item := ir.TestItem{ID: id, Name: name, Phase: phase, Duration: duration}
	for _, opt := range opts {
		opt(&item)
	}
	return item
}

// WithGroup sets the item's group.
func WithGroup(group string) ItemOption {
	return func(t *ir.TestItem) { t.Group = group }
}

// WithInstruments adds one unit of each named instrument.
func WithInstruments(names ...string) ItemOption {
	return func(t *ir.TestItem) {
		for _, n := range names {
			t.Instruments = append(t.Instruments, ir.Demand{Name: n, Qty: 1})
		}
	}
}

// WithInstrumentQty adds qty units of one instrument.
func WithInstrumentQty(name string, qty int) ItemOption {
	return func(t *ir.TestItem) {
		t.Instruments = append(t.Instruments, ir.Demand{Name: name, Qty: qty})
	}
}

// WithEquipment adds one unit of each named piece of equipment.
func WithEquipment(names ...string) ItemOption {
	return func(t *ir.TestItem) {
		for _, n := range names {
			t.Equipment = append(t.Equipment, ir.Demand{Name: n, Qty: 1})
		}
	}
}

// Pointers returns pointers into items, preserving order.
func Pointers(items []ir.TestItem) []*ir.TestItem {
	out := make([]*ir.TestItem, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out
}
