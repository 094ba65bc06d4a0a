package domain

import (
	"testing"

	"github.com/cs-au-dk/bindom/isa"
	"github.com/cs-au-dk/bindom/value"
)

func emptyBacking() *Backing { return &Backing{} }

func TestWriteThenReadRoundTrips(t *testing.T) {
	env := Empty[value.CT]()
	env, err := WriteInMemory(env, 0x1000, value.Singleton(32, 0xDEADBEEF), 32, true, false)
	if err != nil {
		t.Fatalf("WriteInMemory: %v", err)
	}
	got := GetMemValue(env, emptyBacking(), value.ConcreteTaintOps, 0x1000, 32, false)
	z, ok := got.ToZ()
	if !ok || uint64(z) != 0xDEADBEEF {
		t.Errorf("read-after-write = (%#x,%v), want (0xDEADBEEF,true)", z, ok)
	}
}

func TestStrongUpdateOverwritesPreviousValue(t *testing.T) {
	env := Empty[value.CT]()
	env, _ = WriteInMemory(env, 0x10, value.Singleton(8, 1), 8, true, false)
	env, _ = WriteInMemory(env, 0x10, value.Singleton(8, 2), 8, true, false)
	got := GetMemValue(env, emptyBacking(), value.ConcreteTaintOps, 0x10, 8, false)
	z, _ := got.ToZ()
	if z != 2 {
		t.Errorf("strong update should overwrite: got %d, want 2", z)
	}
}

func TestWeakUpdateJoinsWithPreviousValue(t *testing.T) {
	env := Empty[value.CT]()
	env, _ = WriteInMemory(env, 0x10, value.Singleton(8, 1), 8, true, false)
	env, _ = WriteInMemory(env, 0x10, value.Singleton(8, 2), 8, false, false)
	got := GetMemValue(env, emptyBacking(), value.ConcreteTaintOps, 0x10, 8, false)
	if !got.IsSubset(value.Range(8, 1, 2)) || !value.Range(8, 1, 2).IsSubset(got) {
		t.Errorf("weak update should join with the previous value: got %v, want Range(1,2)", got)
	}
}

func TestWriteSplitsEnclosingInterval(t *testing.T) {
	env := Empty[value.CT]()
	env = env.Set(MemItvDim(0x100, 0x110), value.Singleton(8, 0))
	env, err := WriteInMemory(env, 0x105, value.Singleton(8, 9), 8, true, false)
	if err != nil {
		t.Fatalf("WriteInMemory: %v", err)
	}
	// The byte at 0x105 is now exactly 9.
	got := GetMemValue(env, emptyBacking(), value.ConcreteTaintOps, 0x105, 8, false)
	z, _ := got.ToZ()
	if z != 9 {
		t.Errorf("written byte = %d, want 9", z)
	}
	// Bytes on either side of the split still read the original value.
	left := GetMemValue(env, emptyBacking(), value.ConcreteTaintOps, 0x100, 8, false)
	lz, _ := left.ToZ()
	if lz != 0 {
		t.Errorf("byte before the split = %d, want 0", lz)
	}
	right := GetMemValue(env, emptyBacking(), value.ConcreteTaintOps, 0x110, 8, false)
	rz, _ := right.ToZ()
	if rz != 0 {
		t.Errorf("byte after the split = %d, want 0", rz)
	}
}

func TestWeakUpdateOnAbsentCellFails(t *testing.T) {
	env := Empty[value.CT]()
	_, err := WriteInMemory(env, 0x10, value.Singleton(8, 1), 8, false, false)
	if err != ErrEmpty {
		t.Errorf("weak write to an absent cell should fail with ErrEmpty, got %v", err)
	}
}

func TestWriteRepeatByteFillsRange(t *testing.T) {
	env := Empty[value.CT]()
	env = WriteRepeatByteInMem(env, 0x2000, value.Singleton(8, 0), 16)
	for _, a := range []isa.Address{0x2000, 0x2005, 0x200f} {
		got := GetMemValue(env, emptyBacking(), value.ConcreteTaintOps, a, 8, false)
		z, ok := got.ToZ()
		if !ok || z != 0 {
			t.Errorf("byte at %s = (%d,%v), want (0,true)", a, z, ok)
		}
	}
	key, _, ok := env.FindByAddr(0x2000)
	if !ok || key.Lo() != 0x2000 || key.Hi() != 0x2010 {
		t.Errorf("expected a single compressed interval [0x2000,0x2010] (n+1 bytes, the preserved off-by-one), got %v (ok=%v)", key, ok)
	}
}

func TestWriteRepeatByteOverwritesExistingKeys(t *testing.T) {
	env := Empty[value.CT]()
	env, _ = WriteInMemory(env, 0x2002, value.Singleton(8, 77), 8, true, false)
	env = WriteRepeatByteInMem(env, 0x2000, value.Singleton(8, 0), 8)
	got := GetMemValue(env, emptyBacking(), value.ConcreteTaintOps, 0x2002, 8, false)
	z, _ := got.ToZ()
	if z != 0 {
		t.Errorf("repeat-byte fill should overwrite a byte set inside its range, got %d", z)
	}
}

func TestLittleEndianMultiByteRead(t *testing.T) {
	env := Empty[value.CT]()
	env, _ = WriteInMemory(env, 0x3000, value.Singleton(16, 0xABCD), 16, true, false)
	got := GetMemValue(env, emptyBacking(), value.ConcreteTaintOps, 0x3000, 16, false)
	z, ok := got.ToZ()
	if !ok || uint64(z) != 0xABCD {
		t.Errorf("little-endian round trip = (%#x,%v), want (0xABCD,true)", z, ok)
	}
}
