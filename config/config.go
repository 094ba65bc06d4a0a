// Package config loads the YAML file that seeds a domain.State with
// externally-known register and memory values before analysis starts,
// using gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cs-au-dk/bindom/isa"
	"github.com/cs-au-dk/bindom/taint"
	"github.com/cs-au-dk/bindom/value"
)

// File is the top-level YAML document shape.
type File struct {
	Registers []RegisterBinding `yaml:"registers"`
	Memory    []MemoryBinding   `yaml:"memory"`
}

// RegisterBinding seeds one register with a region-tagged content value
// and an optional taint pattern.
type RegisterBinding struct {
	Register string     `yaml:"register"`
	Region   string     `yaml:"region"`
	Value    ContentDoc `yaml:"value"`
	Taint    *TaintDoc  `yaml:"taint,omitempty"`
}

// MemoryBinding seeds a byte range starting at Address. Count > 1
// broadcasts a single byte-sized value over Address..Address+Count
// inclusive, i.e. Count+1 bytes (write_repeat_byte_in_mem); Count <= 1
// writes Value once at its own operand-rounded size.
type MemoryBinding struct {
	Address uint64     `yaml:"address"`
	Region  string     `yaml:"region"`
	Value   ContentDoc `yaml:"value"`
	Taint   *TaintDoc  `yaml:"taint,omitempty"`
	Count   int        `yaml:"count,omitempty"`
}

// ContentDoc is the YAML spelling of value.Content's tagged union.
type ContentDoc struct {
	Kind  string `yaml:"kind"`
	Z     int64  `yaml:"z,omitempty"`
	Mask  uint64 `yaml:"mask,omitempty"`
	Bytes string `yaml:"bytes,omitempty"`
}

// TaintDoc is the YAML spelling of taint.Pattern.
type TaintDoc struct {
	Kind string `yaml:"kind"`
	Mask uint64 `yaml:"mask,omitempty"`
}

// Load reads and parses path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &f, nil
}

// RegisterValue resolves the binding's register name.
func (b RegisterBinding) RegisterValue() (isa.Register, error) {
	r, ok := isa.ParseRegister(b.Register)
	if !ok {
		return isa.Register{}, fmt.Errorf("config: unknown register %q", b.Register)
	}
	return r, nil
}

// parseRegion parses a region tag shared by register and memory bindings.
func parseRegion(s string) (value.Region, error) {
	switch s {
	case "", "global":
		return value.Global, nil
	case "stack":
		return value.Stack, nil
	case "heap":
		return value.Heap, nil
	}
	return 0, fmt.Errorf("config: unknown region %q", s)
}

// RegionValue resolves the binding's region.
func (b RegisterBinding) RegionValue() (value.Region, error) { return parseRegion(b.Region) }

// RegionValue resolves the binding's region.
func (b MemoryBinding) RegionValue() (value.Region, error) { return parseRegion(b.Region) }

// Content resolves a ContentDoc to a value.Content.
func (c ContentDoc) Content() (value.Content, error) {
	switch c.Kind {
	case "concrete":
		return value.ConcreteContent(c.Z), nil
	case "concrete_masked":
		return value.ConcreteMaskedContent(c.Z, c.Mask), nil
	case "bytes":
		return value.BytesValue(c.Bytes), nil
	case "bytes_masked":
		return value.BytesMaskedValue(c.Bytes, c.Mask), nil
	}
	return value.Content{}, fmt.Errorf("config: unknown content kind %q", c.Kind)
}

// Pattern resolves a *TaintDoc to a taint.Pattern; a nil doc means "do
// not taint".
func (t *TaintDoc) Pattern() (taint.Pattern, error) {
	if t == nil {
		return taint.NoTaint(), nil
	}
	switch t.Kind {
	case "", "none":
		return taint.NoTaint(), nil
	case "all":
		return taint.AllTaint(), nil
	case "mask":
		return taint.MaskTaint(t.Mask), nil
	}
	return taint.Pattern{}, fmt.Errorf("config: unknown taint kind %q", t.Kind)
}
