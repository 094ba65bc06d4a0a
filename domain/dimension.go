// Package domain implements the unrelational abstract domain core: an
// ordered map from dimensions (registers and memory cells) to cell
// values, with lattice operations, a byte-granular memory engine backed
// by the loaded binary's sections, an expression evaluator, and the
// intrinsic string/hex/configuration operations built on top of it.
//
// The domain is a functor over the cell-value package: every exported
// type here is generic in a type parameter V satisfying value.Value[V],
// monomorphized by the caller rather than dispatched dynamically.
package domain

import (
	"fmt"

	"github.com/cs-au-dk/bindom/isa"
)

// DimKind tags which of the three Dimension shapes a key has.
type DimKind int

const (
	DimReg DimKind = iota
	DimMem
	DimMemItv
)

// Dimension is an Env key: a register, a single memory byte, or a
// compressed run of equal-valued bytes. Reg keys order before every
// memory key; among memory keys, overlapping ranges compare equal so
// that a single-address probe locates an enclosing MemItv (see
// dimensionComparer).
type Dimension struct {
	kind DimKind
	reg  isa.Register
	lo   isa.Address
	hi   isa.Address
}

// RegDim builds a Reg(r) dimension.
func RegDim(r isa.Register) Dimension { return Dimension{kind: DimReg, reg: r} }

// MemDim builds a Mem(a) dimension: a single byte.
func MemDim(a isa.Address) Dimension { return Dimension{kind: DimMem, lo: a, hi: a} }

// MemItvDim builds a MemItv(lo, hi) dimension: a compressed run of
// bytes sharing one value, lo and hi both inclusive.
func MemItvDim(lo, hi isa.Address) Dimension {
	if hi < lo {
		panic("domain.MemItvDim: hi < lo")
	}
	return Dimension{kind: DimMemItv, lo: lo, hi: hi}
}

func (d Dimension) Kind() DimKind   { return d.kind }
func (d Dimension) IsReg() bool     { return d.kind == DimReg }
func (d Dimension) IsMem() bool     { return d.kind == DimMem }
func (d Dimension) IsMemItv() bool  { return d.kind == DimMemItv }
func (d Dimension) Register() isa.Register {
	if d.kind != DimReg {
		panic("domain.Dimension.Register: not a Reg dimension")
	}
	return d.reg
}
func (d Dimension) Lo() isa.Address { return d.lo }
func (d Dimension) Hi() isa.Address { return d.hi }

// ContainsAddr reports whether a falls inside a memory dimension's
// range. Always false for a Reg dimension.
func (d Dimension) ContainsAddr(a isa.Address) bool {
	if d.kind == DimReg {
		return false
	}
	return d.lo <= a && a <= d.hi
}

// Bits reports the bit-width a cell at this dimension must have:
// register width for Reg, 8 for any memory dimension.
func (d Dimension) Bits() int {
	if d.kind == DimReg {
		return d.reg.Size()
	}
	return 8
}

func (d Dimension) String() string {
	switch d.kind {
	case DimReg:
		return d.reg.String()
	case DimMem:
		return fmt.Sprintf("Mem(%s)", d.lo)
	case DimMemItv:
		return fmt.Sprintf("MemItv(%s,%s)", d.lo, d.hi)
	}
	return "?dim?"
}

// dimensionComparer realizes Env's strict total order (spec'd in the
// Dimension data model): all Reg keys precede all memory keys; among
// memory keys, ranges compare by address with overlapping ranges
// comparing equal. That overlap-as-equal rule is what lets a
// single-address probe (MemDim(a)) land on an enclosing MemItv via a
// plain tree lookup, in O(log n), with no separate range-search code
// path — the domain's one use of this comparer's off-label "equal"
// case always goes through Env.FindByAddr, never through a direct
// Env.Set of two genuinely-overlapping stored keys.
type dimensionComparer struct{}

func (dimensionComparer) Compare(a, b Dimension) int {
	if a.kind == DimReg || b.kind == DimReg {
		switch {
		case a.kind == DimReg && b.kind == DimReg:
			if a.reg.Equal(b.reg) {
				return 0
			}
			if a.reg.Less(b.reg) {
				return -1
			}
			return 1
		case a.kind == DimReg:
			return -1
		default:
			return 1
		}
	}
	switch {
	case a.hi < b.lo:
		return -1
	case b.hi < a.lo:
		return 1
	default:
		return 0
	}
}
