package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cs-au-dk/bindom/value"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bindom.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadParsesRegistersAndMemory(t *testing.T) {
	path := writeTemp(t, `
registers:
  - register: eax
    region: heap
    value:
      kind: concrete
      z: 16
    taint:
      kind: all
memory:
  - address: 4096
    region: stack
    value:
      kind: bytes
      bytes: "ab"
    count: 2
`)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Registers) != 1 || len(f.Memory) != 1 {
		t.Fatalf("got %d registers, %d memory bindings, want 1 and 1", len(f.Registers), len(f.Memory))
	}
	rb := f.Registers[0]
	if rb.Register != "eax" {
		t.Errorf("Register = %q, want %q", rb.Register, "eax")
	}
	reg, err := rb.RegisterValue()
	if err != nil {
		t.Fatalf("RegisterValue: %v", err)
	}
	if reg.String() != "EAX" {
		t.Errorf("RegisterValue().String() = %q, want %q", reg.String(), "EAX")
	}
	region, err := rb.RegionValue()
	if err != nil || region != value.Heap {
		t.Errorf("RegionValue() = (%v,%v), want (Heap,nil)", region, err)
	}
	pattern, err := rb.Taint.Pattern()
	if err != nil {
		t.Fatalf("Pattern: %v", err)
	}
	if mask := pattern.Resolve(32).Mask(); mask != 0xffffffff {
		t.Errorf("all-taint pattern should resolve to a full mask for 32 bits, got %#x", mask)
	}

	mb := f.Memory[0]
	if mb.Address != 4096 || mb.Count != 2 {
		t.Errorf("got (address=%d,count=%d), want (4096,2)", mb.Address, mb.Count)
	}
	content, err := mb.Value.Content()
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if content.SizeBits(32) != 8 {
		t.Errorf("a 2-char Bytes content has SizeBits = 4*len(b) = 8, got %d", content.SizeBits(32))
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestRegisterBindingUnknownRegisterFails(t *testing.T) {
	rb := RegisterBinding{Register: "not-a-register"}
	if _, err := rb.RegisterValue(); err == nil {
		t.Error("expected an error for an unrecognized register name")
	}
}

func TestParseRegionRejectsUnknown(t *testing.T) {
	if _, err := parseRegion("nowhere"); err == nil {
		t.Error("expected an error for an unrecognized region")
	}
}

func TestContentDocRejectsUnknownKind(t *testing.T) {
	c := ContentDoc{Kind: "nonsense"}
	if _, err := c.Content(); err == nil {
		t.Error("expected an error for an unrecognized content kind")
	}
}

func TestTaintDocNilMeansNoTaint(t *testing.T) {
	var td *TaintDoc
	p, err := td.Pattern()
	if err != nil {
		t.Fatalf("Pattern: %v", err)
	}
	if mask := p.Resolve(32).Mask(); mask != 0 {
		t.Errorf("a nil TaintDoc should resolve to no taint, got mask %#x", mask)
	}
}

func TestTaintDocRejectsUnknownKind(t *testing.T) {
	td := &TaintDoc{Kind: "weird"}
	if _, err := td.Pattern(); err == nil {
		t.Error("expected an error for an unrecognized taint kind")
	}
}
