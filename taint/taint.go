// Package taint implements the small per-bit taint lattice that the
// domain's cell-value abstraction is built over. The domain core
// treats this lattice as given; this is the concrete instantiation
// used by the value package's concrete Value implementation.
package taint

import "fmt"

// Taint is a per-bit taint mask: bit i set means bit i of the cell it
// annotates is influenced by externally-controlled input. The bottom
// element (no taint) is the zero value.
type Taint struct {
	mask uint64
}

// Bot is the untainted element: ⊥ of the taint lattice.
func Bot() Taint { return Taint{} }

// Top returns the fully-tainted element for a value of the given bit width.
func Top(bits int) Taint {
	if bits >= 64 {
		return Taint{^uint64(0)}
	}
	return Taint{uint64(1)<<bits - 1}
}

// Bits constructs a taint value from an explicit bitmask.
func Bits(mask uint64) Taint { return Taint{mask} }

// IsBot reports whether no bit is tainted.
func (t Taint) IsBot() bool { return t.mask == 0 }

// IsTainted reports whether any bit is tainted.
func (t Taint) IsTainted() bool { return t.mask != 0 }

// Join computes t1 ⊔ t2: a bit is tainted in the join if tainted in either.
func (t1 Taint) Join(t2 Taint) Taint { return Taint{t1.mask | t2.mask} }

// Meet computes t1 ⊓ t2: a bit is tainted in the meet only if tainted in both.
func (t1 Taint) Meet(t2 Taint) Taint { return Taint{t1.mask & t2.mask} }

// Leq computes t1 ⊑ t2 (t1's tainted bits are a subset of t2's).
func (t1 Taint) Leq(t2 Taint) bool { return t1.mask&^t2.mask == 0 }

// Eq reports taint equality.
func (t1 Taint) Eq(t2 Taint) bool { return t1.mask == t2.mask }

// Mask exposes the raw per-bit taint mask.
func (t Taint) Mask() uint64 { return t.mask }

// Span extracts the taint of bits [lo, hi] (inclusive) and re-bases them
// at bit 0, mirroring value.Extract's bit addressing.
func (t Taint) Span(lo, hi int) Taint {
	width := hi - lo + 1
	shifted := t.mask >> lo
	if width >= 64 {
		return Taint{shifted}
	}
	return Taint{shifted & (uint64(1)<<width - 1)}
}

// Combine splices `new`'s taint into `prev`'s taint over bits [lo, hi],
// mirroring value.Combine's bit-field splice.
func Combine(prev, new Taint, lo, hi int) Taint {
	width := hi - lo + 1
	var fieldMask uint64
	if width >= 64 {
		fieldMask = ^uint64(0)
	} else {
		fieldMask = uint64(1)<<width - 1
	}
	fieldMask <<= lo
	cleared := prev.mask &^ fieldMask
	inserted := (new.mask << lo) & fieldMask
	return Taint{cleared | inserted}
}

// GetMinimal returns the taint with the fewest tainted bits of the given
// taints; used when propagating the "minimal taint" of an rvalue's
// dependencies. Ties are broken by mask value for determinism.
func GetMinimal(ts ...Taint) Taint {
	if len(ts) == 0 {
		return Bot()
	}
	best := ts[0]
	bestPop := popcount(best.mask)
	for _, t := range ts[1:] {
		p := popcount(t.mask)
		if p < bestPop || (p == bestPop && t.mask < best.mask) {
			best, bestPop = t, p
		}
	}
	return best
}

func popcount(m uint64) int {
	n := 0
	for m != 0 {
		n += int(m & 1)
		m >>= 1
	}
	return n
}

func (t Taint) String() string {
	if t.IsBot() {
		return "untainted"
	}
	return fmt.Sprintf("tainted(0b%b)", t.mask)
}

// Pattern describes the taint to install from an external
// configuration entry.
type Pattern struct {
	mask  uint64
	isAll bool
}

// NoTaint is the "do not taint" configuration pattern.
func NoTaint() Pattern { return Pattern{} }

// AllTaint marks every bit of the target value as tainted.
func AllTaint() Pattern { return Pattern{isAll: true} }

// MaskTaint marks exactly the given bits as tainted.
func MaskTaint(mask uint64) Pattern { return Pattern{mask: mask} }

// Resolve computes the Taint this pattern installs on a value of the
// given bit width.
func (p Pattern) Resolve(bits int) Taint {
	if p.isAll {
		return Top(bits)
	}
	return Bits(p.mask)
}
