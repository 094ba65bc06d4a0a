package domain

import (
	"sort"

	"github.com/benbjohnson/immutable"

	"github.com/cs-au-dk/bindom/isa"
	"github.com/cs-au-dk/bindom/value"
)

// Env is the ordered associative container mapping Dimension keys to
// cell values: a persistent map supporting point lookup and a
// range-find over memory addresses in O(log n) via dimensionComparer.
type Env[V value.Value[V]] struct {
	mp *immutable.SortedMap[Dimension, V]
}

// Empty builds the empty environment.
func Empty[V value.Value[V]]() Env[V] {
	return Env[V]{mp: immutable.NewSortedMap[Dimension, V](dimensionComparer{})}
}

func (e Env[V]) Len() int { return e.mp.Len() }

// Find does a point lookup; for a memory probe key it resolves through
// dimensionComparer's overlap rule exactly like FindByAddr, but
// without recovering which stored key matched.
func (e Env[V]) Find(k Dimension) (V, bool) { return e.mp.Get(k) }

// FindByAddr locates the Mem or enclosing MemItv key containing
// address a, returning the real stored key (not just its value) so
// callers can decide how to split it.
func (e Env[V]) FindByAddr(a isa.Address) (Dimension, V, bool) {
	it := e.mp.Iterator()
	it.Seek(MemDim(a))
	if it.Done() {
		var zero V
		return Dimension{}, zero, false
	}
	k, v, _ := it.Next()
	if !k.ContainsAddr(a) {
		var zero V
		return Dimension{}, zero, false
	}
	return k, v, true
}

// nextMemKeyFrom locates the next memory dimension whose range starts
// at or after a, skipping past Reg keys (which always sort before any
// memory probe). Used to jump over unoccupied address ranges in O(log
// n) instead of walking them byte by byte.
func (e Env[V]) nextMemKeyFrom(a isa.Address) (Dimension, bool) {
	it := e.mp.Iterator()
	it.Seek(MemDim(a))
	if it.Done() {
		return Dimension{}, false
	}
	k, _, _ := it.Next()
	if k.IsReg() {
		return Dimension{}, false
	}
	return k, true
}

// Set inserts or replaces the value at k. Callers responsible for the
// "no two keys overlap" invariant must Remove any overlapping key
// first; Set never splits.
func (e Env[V]) Set(k Dimension, v V) Env[V] {
	return Env[V]{mp: e.mp.Set(k, v)}
}

func (e Env[V]) Remove(k Dimension) Env[V] {
	return Env[V]{mp: e.mp.Delete(k)}
}

// Map rebuilds the environment with f applied to every cell.
func (e Env[V]) Map(f func(Dimension, V) V) Env[V] {
	out := Empty[V]()
	it := e.mp.Iterator()
	for !it.Done() {
		k, v, _ := it.Next()
		out = out.Set(k, f(k, v))
	}
	return out
}

// Iterate calls f for every (dimension, value) pair in key order,
// stopping early if f returns false.
func (e Env[V]) Iterate(f func(Dimension, V) bool) {
	it := e.mp.Iterator()
	for !it.Done() {
		k, v, _ := it.Next()
		if !f(k, v) {
			return
		}
	}
}

// Fold folds f over every (dimension, value) pair in key order.
func Fold[V value.Value[V], Acc any](e Env[V], init Acc, f func(Acc, Dimension, V) Acc) Acc {
	acc := init
	e.Iterate(func(k Dimension, v V) bool {
		acc = f(acc, k, v)
		return true
	})
	return acc
}

// mergeAtoms walks e1 and e2 together, visiting one atomic cell per
// call: each register present in either side (exact key match), then
// each maximal address range over which both sides' memory keys are
// constant (a breakpoint merge over the union of both sides' interval
// boundaries). This is what lets join/meet/widen/is_subset treat a
// MemItv on one side and several narrower keys on the other
// correctly, instead of only ever matching identically-shaped keys.
// Visiting stops early if visit returns false.
func mergeAtoms[V value.Value[V]](e1, e2 Env[V], visit func(k Dimension, v1 V, has1 bool, v2 V, has2 bool) bool) {
	seenRegs := map[isa.Register]bool{}
	stop := false

	e1.Iterate(func(k Dimension, v1 V) bool {
		if !k.IsReg() {
			return true
		}
		seenRegs[k.Register()] = true
		v2, has2 := e2.Find(k)
		if !visit(k, v1, true, v2, has2) {
			stop = true
			return false
		}
		return true
	})
	if stop {
		return
	}
	e2.Iterate(func(k Dimension, v2 V) bool {
		if !k.IsReg() || seenRegs[k.Register()] {
			return true
		}
		var zero V
		if !visit(k, zero, false, v2, true) {
			stop = true
			return false
		}
		return true
	})
	if stop {
		return
	}

	breakpoints := map[isa.Address]bool{}
	collect := func(e Env[V]) {
		e.Iterate(func(k Dimension, _ V) bool {
			if k.IsReg() {
				return true
			}
			breakpoints[k.Lo()] = true
			if k.Hi() != ^isa.Address(0) {
				breakpoints[k.Hi()+1] = true
			}
			return true
		})
	}
	collect(e1)
	collect(e2)
	if len(breakpoints) == 0 {
		return
	}
	pts := make([]isa.Address, 0, len(breakpoints))
	for a := range breakpoints {
		pts = append(pts, a)
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i] < pts[j] })

	for i := 0; i+1 < len(pts); i++ {
		lo, hi := pts[i], pts[i+1]-1
		if hi < lo {
			continue
		}
		_, v1, has1 := e1.FindByAddr(lo)
		_, v2, has2 := e2.FindByAddr(lo)
		if !has1 && !has2 {
			continue
		}
		key := MemItvDim(lo, hi)
		if lo == hi {
			key = MemDim(lo)
		}
		if !visit(key, v1, has1, v2, has2) {
			return
		}
	}
}

// ForAll2 is for_all2(e1, e2, f): it reports whether f holds over
// every atomic cell of the union of e1 and e2's dimensions.
func ForAll2[V value.Value[V]](e1, e2 Env[V], f func(k Dimension, v1 V, has1 bool, v2 V, has2 bool) bool) bool {
	ok := true
	mergeAtoms(e1, e2, func(k Dimension, v1 V, has1 bool, v2 V, has2 bool) bool {
		if !f(k, v1, has1, v2, has2) {
			ok = false
			return false
		}
		return true
	})
	return ok
}

// MissingPolicy governs what Map2 does with a dimension present on
// only one side.
type MissingPolicy int

const (
	// MissingKeep carries the present side's value through unchanged
	// (join: an unconstrained cell on the other side is more permissive).
	MissingKeep MissingPolicy = iota
	// MissingDrop omits the dimension from the result (meet: a
	// constraint missing on either side cannot be intersected).
	MissingDrop
	// MissingTop installs V.top at the present side's bit-width
	// (widen: a newly-appearing or newly-vanishing dimension widens
	// straight to top rather than iterating further).
	MissingTop
)

// Map2 is map2(e1, e2, combine): it builds a fresh environment by
// combining every atomic cell of e1 and e2 with `combine` where both
// sides have a value, and applying `policy` where only one side does.
func Map2[V value.Value[V]](e1, e2 Env[V], ops value.Ops[V], policy MissingPolicy, combine func(V, V) V) Env[V] {
	out := Empty[V]()
	mergeAtoms(e1, e2, func(k Dimension, v1 V, has1 bool, v2 V, has2 bool) bool {
		switch {
		case has1 && has2:
			out = out.Set(k, combine(v1, v2))
		case has1 && !has2:
			if policy != MissingDrop {
				out = out.Set(k, missingResult(policy, ops, v1, k.Bits()))
			}
		case !has1 && has2:
			if policy != MissingDrop {
				out = out.Set(k, missingResult(policy, ops, v2, k.Bits()))
			}
		}
		return true
	})
	return out
}

func missingResult[V value.Value[V]](policy MissingPolicy, ops value.Ops[V], v V, bits int) V {
	if policy == MissingTop {
		return ops.Top(bits)
	}
	return v
}

// IsSubsetEnv computes is_subset pointwise: every cell e1 has must
// either be absent from e2 (e2 side unconstrained) or be a subset of
// e2's cell at that dimension.
func IsSubsetEnv[V value.Value[V]](e1, e2 Env[V]) bool {
	return ForAll2(e1, e2, func(_ Dimension, v1 V, has1 bool, v2 V, has2 bool) bool {
		if !has1 || !has2 {
			return true
		}
		return v1.IsSubset(v2)
	})
}
