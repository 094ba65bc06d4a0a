package domain

import (
	"strings"

	"github.com/cs-au-dk/bindom/colorize"
	"github.com/cs-au-dk/bindom/isa"
	"github.com/cs-au-dk/bindom/value"
)

// State is the two-point lifted domain state: Bottom ⊔ Concrete(env).
// Bottom denotes the empty concretization. The zero value of State is
// not Bottom and has no environment map; states are built with Init or
// Bot.
type State[V value.Value[V]] struct {
	bottom bool
	env    Env[V]
}

// Init builds the empty Concrete state: no registers or memory cells
// known yet, but not Bottom.
func Init[V value.Value[V]]() State[V] { return State[V]{env: Empty[V]()} }

// Bot builds the Bottom state.
func Bot[V value.Value[V]]() State[V] { return State[V]{bottom: true} }

func (s State[V]) IsBottom() bool { return s.bottom }

// Env exposes the underlying environment; ok is false for Bottom.
func (s State[V]) Env() (env Env[V], ok bool) {
	if s.bottom {
		return Env[V]{}, false
	}
	return s.env, true
}

func withEnv[V value.Value[V]](e Env[V]) State[V] { return State[V]{env: e} }

// IsSubset reports whether every concretization of s1 is also a
// concretization of s2.
func IsSubset[V value.Value[V]](s1, s2 State[V]) bool {
	if s1.bottom {
		return true
	}
	if s2.bottom {
		return false
	}
	return IsSubsetEnv(s1.env, s2.env)
}

// Join computes s1 ⊔ s2: pointwise V.join on shared dimensions, with
// dimensions present on only one side preserved as-is (more
// concretizations survive a join).
func Join[V value.Value[V]](s1, s2 State[V], ops value.Ops[V]) State[V] {
	if s1.bottom {
		return s2
	}
	if s2.bottom {
		return s1
	}
	return withEnv(Map2(s1.env, s2.env, ops, MissingKeep, func(a, b V) V { return a.Join(b) }))
}

// Meet computes s1 ⊓ s2: pointwise V.meet restricted to dimensions
// present in both; an environment with no dimensions at all is treated
// as unconstrained (no information yet), so meeting it with anything
// returns the other side unchanged.
func Meet[V value.Value[V]](s1, s2 State[V], ops value.Ops[V]) State[V] {
	if s1.bottom || s2.bottom {
		return Bot[V]()
	}
	if s1.env.Len() == 0 {
		return s2
	}
	if s2.env.Len() == 0 {
		return s1
	}
	return withEnv(Map2(s1.env, s2.env, ops, MissingDrop, func(a, b V) V { return a.Meet(b) }))
}

// Widen computes s1 ▽ s2: pointwise V.widen; a dimension missing on
// either side falls back to V.top rather than widening against an
// absent partner.
func Widen[V value.Value[V]](s1, s2 State[V], ops value.Ops[V]) State[V] {
	if s1.bottom {
		return s2
	}
	if s2.bottom {
		return s1
	}
	return withEnv(Map2(s1.env, s2.env, ops, MissingTop, func(a, b V) V { return a.Widen(b) }))
}

// Forget maps every cell to V.top.
func Forget[V value.Value[V]](s State[V], ops value.Ops[V]) State[V] {
	if s.bottom {
		return s
	}
	return withEnv(s.env.Map(func(k Dimension, _ V) V { return ops.Top(k.Bits()) }))
}

// ForgetReg forgets a single register's value while preserving its
// taint via V.forget.
func ForgetReg[V value.Value[V]](s State[V], r isa.Register) State[V] {
	if s.bottom {
		return s
	}
	v, ok := s.env.Find(RegDim(r))
	if !ok {
		return s
	}
	return withEnv(s.env.Set(RegDim(r), v.Forget()))
}

// String renders the state for debugging/CLI display, colorized via
// the colorize package.
func (s State[V]) String() string {
	if s.bottom {
		return colorize.Bot("⊥")
	}
	var b strings.Builder
	b.WriteString("{\n")
	s.env.Iterate(func(k Dimension, v V) bool {
		b.WriteString("  ")
		b.WriteString(colorize.Dim(k.String()))
		b.WriteString(" -> ")
		b.WriteString(colorize.Value(v.String()))
		b.WriteString("\n")
		return true
	})
	b.WriteString("}")
	return b.String()
}
