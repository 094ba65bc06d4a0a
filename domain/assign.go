package domain

import (
	"github.com/cs-au-dk/bindom/isa"
	"github.com/cs-au-dk/bindom/taint"
	"github.com/cs-au-dk/bindom/value"
)

// Lval is an assignment destination: a whole register, a register
// bit-slice, or a memory dereference.
type Lval interface {
	lvalNode()
}

type RegLval struct{ Reg isa.Register }
type RegSliceLval struct {
	Reg    isa.Register
	Lo, Hi int
}
type MemLval struct {
	Addr     Expr
	SizeBits int
}

func (RegLval) lvalNode()      {}
func (RegSliceLval) lvalNode() {}
func (MemLval) lvalNode()      {}

// Set evaluates src and stores it at dst, span-tainting the result
// from src's operands and collapsing to Bottom if src evaluates to
// V.bot or dst cannot be resolved to any address.
func Set[V value.Value[V]](s State[V], dst Lval, src Expr, b *Backing, ops value.Ops[V]) (State[V], bool) {
	if s.bottom {
		return s, false
	}

	ev := NewEvaluator(s.env, b, ops)
	v, tainted, err := ev.Eval(src)
	if err != nil {
		return Bot[V](), tainted
	}
	v = spanTaint(ev, src, v)

	if v.IsBot() {
		return Bot[V](), tainted
	}

	switch d := dst.(type) {
	case RegLval:
		return withEnv(s.env.Set(RegDim(d.Reg), v)), tainted

	case RegSliceLval:
		prev, ok := s.env.Find(RegDim(d.Reg))
		if !ok {
			return Bot[V](), tainted
		}
		combined := prev.Combine(v, d.Lo, d.Hi)
		return withEnv(s.env.Set(RegDim(d.Reg), combined)), tainted

	case MemLval:
		addrVal, _, err := ev.Eval(d.Addr)
		if err != nil {
			return Bot[V](), tainted
		}
		addrs, enumErr := addrVal.ToAddresses()
		if enumErr != nil || len(addrs) == 0 {
			return Bot[V](), false
		}
		if len(addrs) == 1 {
			env, err := WriteInMemory(s.env, addrs[0], v, d.SizeBits, true, false)
			if err != nil {
				return Bot[V](), tainted
			}
			return withEnv(env), tainted
		}
		env := s.env
		for _, a := range addrs {
			env, err = WriteInMemory(env, a, v, d.SizeBits, false, false)
			if err != nil {
				return Bot[V](), tainted
			}
		}
		return withEnv(env), tainted
	}
	panic("domain: Set: unhandled lvalue shape")
}

// spanTaint implements span_taint(state, src, v'): when src is a
// memory read or a unary/binary operation, the minimal taint among its
// operand cells is propagated onto the assigned value, so a
// per-bit-taint cell-value abstraction does not lose the rvalue's
// taint when the result's own taint mask happens to under-report it.
func spanTaint[V value.Value[V]](ev Evaluator[V], src Expr, v V) V {
	operandTaints := collectOperandTaints(ev, src)
	if len(operandTaints) == 0 {
		return v
	}
	return v.SpanTaint(taint.GetMinimal(operandTaints...))
}

func collectOperandTaints[V value.Value[V]](ev Evaluator[V], e Expr) []taint.Taint {
	switch n := e.(type) {
	case MemExpr:
		av, _, err := ev.Eval(n.Addr)
		if err != nil {
			return nil
		}
		return []taint.Taint{av.GetMinimalTaint()}
	case BinExpr:
		v1, _, err1 := ev.Eval(n.X)
		v2, _, err2 := ev.Eval(n.Y)
		var ts []taint.Taint
		if err1 == nil {
			ts = append(ts, v1.GetMinimalTaint())
		}
		if err2 == nil {
			ts = append(ts, v2.GetMinimalTaint())
		}
		return ts
	case UnExpr:
		v1, _, err1 := ev.Eval(n.X)
		if err1 != nil {
			return nil
		}
		return []taint.Taint{v1.GetMinimalTaint()}
	}
	return nil
}

// Compare checks whether e1 cmp e2 is feasible in s and, if so, narrows
// s along that branch. A fixpoint driver uses this to propagate
// conditional information along a taken edge.
func Compare[V value.Value[V]](s State[V], e1 Expr, cmp value.Cmp, e2 Expr, b *Backing, ops value.Ops[V]) (State[V], bool) {
	if s.bottom {
		return s, false
	}
	ev := NewEvaluator(s.env, b, ops)
	v1, t1, err := ev.Eval(e1)
	if err != nil || v1.IsBot() {
		return Bot[V](), false
	}
	v2, t2, err := ev.Eval(e2)
	if err != nil || v2.IsBot() {
		return Bot[V](), false
	}
	tainted := t1 || t2

	if !v1.Compare(cmp, v2) {
		return Bot[V](), false
	}
	return valRestrict(s, e1, cmp, v2), tainted
}

// valRestrict narrows the state along the branch that was just taken:
// only the "e1 is a whole register and cmp is EQ" shape gets a precise
// refinement (meeting that register with the compared-against value);
// every other shape leaves the state unchanged.
func valRestrict[V value.Value[V]](s State[V], e1 Expr, cmp value.Cmp, v2 V) State[V] {
	if cmp != value.EQ {
		return s
	}
	r, ok := e1.(RegExpr)
	if !ok {
		return s
	}
	prev, found := s.env.Find(RegDim(r.Reg))
	if !found {
		return s
	}
	met := prev.Meet(v2)
	if met.IsBot() {
		return Bot[V]()
	}
	return withEnv(s.env.Set(RegDim(r.Reg), met))
}
