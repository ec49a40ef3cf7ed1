package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/roach88/testsched/internal/ir"
)

// separators split list-valued strings: ASCII and full-width commas, the
// enumeration comma and semicolons.
const separators = ",，、;；"

// quantity markers accepted between a resource name and its unit count.
var quantityMarkers = []string{"×", "*", "＊"}

// Normalize trims s and converts it to Unicode NFC.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// IsNone reports whether s is a "no requirement" marker.
func IsNone(s string) bool {
	s = Normalize(s)
	return s == "" || s == ir.NoneMarker || strings.EqualFold(s, "none")
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(separators, r)
	})
}

// ParseDemand parses one "name" or "name×qty" entry.
func ParseDemand(entry string) (ir.Demand, error) {
	entry = Normalize(entry)
	for _, marker := range quantityMarkers {
		i := strings.LastIndex(entry, marker)
		if i < 0 {
			continue
		}
		name := Normalize(entry[:i])
		qtyText := strings.TrimSpace(entry[i+len(marker):])
		qty, err := strconv.Atoi(qtyText)
		if err != nil {
			return ir.Demand{}, fmt.Errorf("demand %q: quantity %q is not an integer", entry, qtyText)
		}
		if name == "" {
			return ir.Demand{}, fmt.Errorf("demand %q: missing resource name", entry)
		}
		return ir.Demand{Name: name, Qty: qty}, nil
	}
	return ir.Demand{Name: entry, Qty: 1}, nil
}

// ParseDemands parses a separated list of demand entries. None markers
// yield an empty list.
func ParseDemands(s string) ([]ir.Demand, error) {
	var out []ir.Demand
	for _, entry := range splitList(s) {
		if IsNone(entry) {
			continue
		}
		d, err := ParseDemand(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// DemandList decodes either a separated string or a sequence of entries.
type DemandList []ir.Demand

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *DemandList) UnmarshalYAML(node *yaml.Node) error {
	entries, err := scalarOrList(node)
	if err != nil {
		return err
	}
	var out DemandList
	for _, e := range entries {
		ds, err := ParseDemands(e)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		out = append(out, ds...)
	}
	*l = out
	return nil
}

// NameList decodes item names given as a separated string or a sequence.
type NameList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *NameList) UnmarshalYAML(node *yaml.Node) error {
	entries, err := scalarOrList(node)
	if err != nil {
		return err
	}
	var out NameList
	for _, e := range entries {
		for _, name := range splitList(e) {
			if !IsNone(name) {
				out = append(out, Normalize(name))
			}
		}
	}
	*l = out
	return nil
}

// Capacity is a resource capacity; Unlimited marks an unconstrained resource.
type Capacity struct {
	Value     int
	Unlimited bool
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Capacity) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: capacity must be a scalar", node.Line)
	}
	text := Normalize(node.Value)
	if IsNone(text) || strings.EqualFold(text, "unlimited") {
		*c = Capacity{Unlimited: true}
		return nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return fmt.Errorf("line %d: capacity %q is not an integer", node.Line, node.Value)
	}
	*c = Capacity{Value: n}
	return nil
}

// scalarOrList returns the string entries of a scalar or sequence node.
func scalarOrList(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil, nil
		}
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(node.Content))
		for _, child := range node.Content {
			if child.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: expected a string entry", child.Line)
			}
			out = append(out, child.Value)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("line %d: expected a string or a list", node.Line)
	}
}
