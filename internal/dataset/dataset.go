// Package dataset reads planning inputs from YAML, JSON or CUE files.
//
// The file layout is:
//
//	phases: [集成测试, 系统测试, 验收测试]   # optional phase order
//	test_items:
//	  - test_id: 1
//	    test_phase: 集成测试
//	    test_group: 接口组
//	    test_item: API接口测试
//	    required_equipment: 无
//	    required_instruments: 接口测试工具
//	    duration: 4
//	instruments:
//	  接口测试工具: 1
//	dependencies:
//	  功能完整性验收: [响应时间测试, API接口测试]
//
// Loading only decodes and normalizes. Semantic validation belongs to
// planner.LoadData.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/testsched/internal/ir"
)

// LoadError reports a dataset file that could not be decoded.
type LoadError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("dataset %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error { return e.Err }

type fileItem struct {
	ID          int        `yaml:"test_id"`
	Phase       string     `yaml:"test_phase"`
	Group       string     `yaml:"test_group"`
	Name        string     `yaml:"test_item"`
	Equipment   DemandList `yaml:"required_equipment"`
	Instruments DemandList `yaml:"required_instruments"`
	Duration    int        `yaml:"duration"`
}

type file struct {
	Phases       []string            `yaml:"phases"`
	Items        []fileItem          `yaml:"test_items"`
	Instruments  map[string]Capacity `yaml:"instruments"`
	Dependencies map[string]NameList `yaml:"dependencies"`
}

// Load reads the dataset at path. Files ending in .cue are evaluated as CUE;
// everything else is parsed as YAML, which includes JSON.
func Load(path string) (*ir.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return Parse(path, data)
}

// Parse decodes dataset bytes; path selects the format and labels errors.
func Parse(path string, data []byte) (*ir.Dataset, error) {
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		v := cuecontext.New().CompileBytes(data, cue.Filename(path))
		if err := v.Validate(cue.Concrete(true)); err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
		exported, err := v.MarshalJSON()
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
		data = exported
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return f.dataset(), nil
}

func (f *file) dataset() *ir.Dataset {
	ds := &ir.Dataset{
		Capacities:   ir.Capacities{},
		Dependencies: make(map[string][]string, len(f.Dependencies)),
	}
	for _, p := range f.Phases {
		if !IsNone(p) {
			ds.Phases = append(ds.Phases, Normalize(p))
		}
	}
	for _, it := range f.Items {
		group := Normalize(it.Group)
		if IsNone(group) {
			group = ""
		}
		ds.Items = append(ds.Items, ir.TestItem{
			ID:          it.ID,
			Phase:       Normalize(it.Phase),
			Group:       group,
			Name:        Normalize(it.Name),
			Equipment:   it.Equipment,
			Instruments: it.Instruments,
			Duration:    it.Duration,
		})
	}
	sort.SliceStable(ds.Items, func(i, j int) bool { return ds.Items[i].ID < ds.Items[j].ID })

	for name, c := range f.Instruments {
		if c.Unlimited {
			continue
		}
		ds.Capacities[Normalize(name)] = c.Value
	}
	for name, deps := range f.Dependencies {
		if len(deps) == 0 {
			continue
		}
		key := Normalize(name)
		ds.Dependencies[key] = append(ds.Dependencies[key], deps...)
	}
	return ds
}

// Marshal renders ds in the YAML file layout.
func Marshal(ds *ir.Dataset) ([]byte, error) {
	type outItem struct {
		ID          int    `yaml:"test_id"`
		Phase       string `yaml:"test_phase"`
		Group       string `yaml:"test_group"`
		Name        string `yaml:"test_item"`
		Equipment   string `yaml:"required_equipment"`
		Instruments string `yaml:"required_instruments"`
		Duration    int    `yaml:"duration"`
	}
	out := struct {
		Phases       []string            `yaml:"phases,omitempty"`
		Items        []outItem           `yaml:"test_items"`
		Instruments  map[string]int      `yaml:"instruments"`
		Dependencies map[string][]string `yaml:"dependencies"`
	}{
		Phases:       ds.Phases,
		Instruments:  ds.Capacities,
		Dependencies: ds.Dependencies,
	}
	for _, it := range ds.Items {
		group := it.Group
		if group == "" {
			group = ir.NoneMarker
		}
		out.Items = append(out.Items, outItem{
			ID:          it.ID,
			Phase:       it.Phase,
			Group:       group,
			Name:        it.Name,
			Equipment:   joinDemands(it.Equipment),
			Instruments: joinDemands(it.Instruments),
			Duration:    it.Duration,
		})
	}
	return yaml.Marshal(out)
}

func joinDemands(ds []ir.Demand) string {
	if len(ds) == 0 {
		return ir.NoneMarker
	}
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = d.String()
	}
	return strings.Join(parts, ",")
}
