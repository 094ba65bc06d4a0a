package domain

import (
	"errors"
	"fmt"

	"github.com/cs-au-dk/bindom/isa"
	"github.com/cs-au-dk/bindom/value"
)

func errIsEnumFailure(err error) bool { return errors.Is(err, value.ErrEnumFailure) }

// Expr is a node of the assembly expression grammar the decoder hands
// to the evaluator. Concrete node types implement it as a closed set
// via the unexported exprNode marker, matched with a type switch in
// Evaluator.Eval.
type Expr interface {
	exprNode()
}

// ConstExpr is Const(word): a literal machine word.
type ConstExpr struct {
	Word isa.Word
}

// RegExpr is Lval(V(T r)): a whole-register read.
type RegExpr struct {
	Reg isa.Register
}

// RegSliceExpr is Lval(V(P(r, lo, hi))): a bit-sliced register read.
type RegSliceExpr struct {
	Reg    isa.Register
	Lo, Hi int
}

// MemExpr is Lval(M(e, n)): a memory dereference of an address
// expression, n bits wide.
type MemExpr struct {
	Addr     Expr
	SizeBits int
}

// BinExpr is BinOp(op, e1, e2).
type BinExpr struct {
	Op   value.BinOp
	X, Y Expr
}

// UnExpr is UnOp(op, e).
type UnExpr struct {
	Op value.UnOp
	X  Expr
}

// TernExpr is TernOp(c, e_t, e_f); SizeBits is the shared bit-width of
// both branches, needed to build a V.bot of the right width if neither
// branch turns out feasible.
type TernExpr struct {
	Cond     BExpr
	T, F     Expr
	SizeBits int
}

func (ConstExpr) exprNode()    {}
func (RegExpr) exprNode()      {}
func (RegSliceExpr) exprNode() {}
func (MemExpr) exprNode()      {}
func (BinExpr) exprNode()      {}
func (UnExpr) exprNode()       {}
func (TernExpr) exprNode()     {}

// BExpr is a node of the Boolean sub-grammar used by conditional
// branches and ternaries.
type BExpr interface {
	bexprNode()
}

// BConst is BConst b: a literal truth value.
type BConst struct{ B bool }

// BNot is BUnOp(LogNot, e).
type BNot struct{ X BExpr }

// LogOp enumerates the two logical connectives of BBinOp.
type LogOp int

const (
	LogAnd LogOp = iota
	LogOr
)

// BBin is BBinOp(LogOr|LogAnd, e1, e2).
type BBin struct {
	Op   LogOp
	X, Y BExpr
}

// CmpExpr is Cmp(cmp, e1, e2).
type CmpExpr struct {
	Cmp  value.Cmp
	X, Y Expr
}

func (BConst) bexprNode()  {}
func (BNot) bexprNode()    {}
func (BBin) bexprNode()    {}
func (CmpExpr) bexprNode() {}

func (op LogOp) String() string {
	switch op {
	case LogAnd:
		return "&&"
	case LogOr:
		return "||"
	}
	return "?logop?"
}

// Evaluator evaluates Expr/BExpr trees against one environment,
// reading through to the section backing for memory addresses the
// environment has no cell for.
type Evaluator[V value.Value[V]] struct {
	Env     Env[V]
	Backing *Backing
	Ops     value.Ops[V]
}

// NewEvaluator builds an Evaluator for one read of a fixed environment.
func NewEvaluator[V value.Value[V]](env Env[V], backing *Backing, ops value.Ops[V]) Evaluator[V] {
	return Evaluator[V]{Env: env, Backing: backing, Ops: ops}
}

// Eval evaluates e, returning its cell value and whether the result
// depends on any tainted input.
func (ev Evaluator[V]) Eval(e Expr) (V, bool, error) {
	switch n := e.(type) {
	case ConstExpr:
		return ev.Ops.OfWord(n.Word), false, nil

	case RegExpr:
		v, ok := ev.Env.Find(RegDim(n.Reg))
		if !ok {
			return ev.Ops.Bot(n.Reg.Size()), false, nil
		}
		return v, v.IsTainted(), nil

	case RegSliceExpr:
		v, ok := ev.Env.Find(RegDim(n.Reg))
		if !ok {
			return ev.Ops.Bot(n.Hi - n.Lo + 1), false, nil
		}
		sliced := v.Extract(n.Lo, n.Hi)
		return sliced, sliced.IsTainted(), nil

	case MemExpr:
		return ev.evalMem(n)

	case BinExpr:
		return ev.evalBin(n)

	case UnExpr:
		return ev.evalUn(n)

	case TernExpr:
		return ev.evalTern(n)
	}
	panic(fmt.Sprintf("domain: Eval: unhandled expression node %T", e))
}

func (ev Evaluator[V]) evalMem(n MemExpr) (V, bool, error) {
	addrVal, addrTainted, err := ev.Eval(n.Addr)
	if err != nil {
		return ev.Ops.Bot(n.SizeBits), false, err
	}

	addrs, enumErr := addrVal.ToAddresses()
	if enumErr != nil {
		if errIsEnumFailure(enumErr) {
			return ev.Ops.Top(n.SizeBits), true, nil
		}
		return ev.Ops.Bot(n.SizeBits), false, ErrBotDeref
	}
	if len(addrs) == 0 {
		return ev.Ops.Bot(n.SizeBits), false, ErrBotDeref
	}

	var result V
	tainted := addrTainted
	for i, a := range addrs {
		readVal := GetMemValue(ev.Env, ev.Backing, ev.Ops, a, n.SizeBits, false)
		if i == 0 {
			result = readVal
		} else {
			result = result.Join(readVal)
		}
		if readVal.IsTainted() {
			tainted = true
		}
	}
	return result, tainted, nil
}

func (ev Evaluator[V]) evalBin(n BinExpr) (V, bool, error) {
	if n.Op == value.Xor {
		if rx, ok1 := n.X.(RegExpr); ok1 {
			if ry, ok2 := n.Y.(RegExpr); ok2 && rx.Reg.Equal(ry.Reg) {
				return ev.evalXorSelf(rx.Reg)
			}
		}
	}

	v1, t1, err := ev.Eval(n.X)
	if err != nil {
		var zero V
		return zero, false, err
	}
	v2, t2, err := ev.Eval(n.Y)
	if err != nil {
		var zero V
		return zero, false, err
	}
	result := v1.Binary(n.Op, v2)
	return result, t1 || t2 || result.IsTainted(), nil
}

// evalXorSelf implements the XOR self-identity idiom: a register
// xor'd with itself is always zero, but when the register is the
// stack pointer the result keeps the Stack region tag a plain
// untainted zero word would lose.
func (ev Evaluator[V]) evalXorSelf(r isa.Register) (V, bool, error) {
	bits := r.Size()
	if r.IsStackPointer() {
		v := ev.Ops.OfConfig(value.Stack, value.ConcreteContent(0), bits)
		return v, v.IsTainted(), nil
	}
	v := ev.Ops.OfWord(isa.NewWord(bits, 0)).Untaint()
	return v, false, nil
}

func (ev Evaluator[V]) evalUn(n UnExpr) (V, bool, error) {
	v, t, err := ev.Eval(n.X)
	if err != nil {
		var zero V
		return zero, false, err
	}
	result := v.Unary(n.Op)
	return result, t || result.IsTainted(), nil
}

func (ev Evaluator[V]) evalTern(n TernExpr) (V, bool, error) {
	trueFeasible, trueTainted, err := ev.EvalBExpr(n.Cond, true)
	if err != nil {
		return ev.Ops.Bot(n.SizeBits), false, err
	}
	falseFeasible, falseTainted, err := ev.EvalBExpr(n.Cond, false)
	if err != nil {
		return ev.Ops.Bot(n.SizeBits), false, err
	}

	switch {
	case trueFeasible && falseFeasible:
		vt, tt, err := ev.Eval(n.T)
		if err != nil {
			return ev.Ops.Bot(n.SizeBits), false, err
		}
		vf, tf, err := ev.Eval(n.F)
		if err != nil {
			return ev.Ops.Bot(n.SizeBits), false, err
		}
		result := vt.Join(vf)
		tainted := tt || tf || trueTainted || falseTainted
		if tainted {
			result = result.Taint()
		}
		return result, tainted, nil

	case trueFeasible:
		vt, tt, err := ev.Eval(n.T)
		if err != nil {
			return ev.Ops.Bot(n.SizeBits), false, err
		}
		tainted := tt || trueTainted
		if tainted {
			vt = vt.Taint()
		}
		return vt, tainted, nil

	case falseFeasible:
		vf, tf, err := ev.Eval(n.F)
		if err != nil {
			return ev.Ops.Bot(n.SizeBits), false, err
		}
		tainted := tf || falseTainted
		if tainted {
			vf = vf.Taint()
		}
		return vf, tainted, nil

	default:
		return ev.Ops.Bot(n.SizeBits), false, nil
	}
}

// EvalBExpr reports whether c can be forced to equal truth value b,
// and whether that determination rests on tainted data. Boolean
// connectives flip to their De Morgan dual when b=false.
func (ev Evaluator[V]) EvalBExpr(c BExpr, b bool) (feasible bool, tainted bool, err error) {
	switch n := c.(type) {
	case BConst:
		return n.B == b, false, nil

	case BNot:
		return ev.EvalBExpr(n.X, !b)

	case BBin:
		return ev.evalBBin(n, b)

	case CmpExpr:
		return ev.evalCmp(n, b)
	}
	panic(fmt.Sprintf("domain: EvalBExpr: unhandled boolean expression node %T", c))
}

func (ev Evaluator[V]) evalBBin(n BBin, b bool) (bool, bool, error) {
	fX, tX, err := ev.EvalBExpr(n.X, b)
	if err != nil {
		return false, false, err
	}
	fY, tY, err := ev.EvalBExpr(n.Y, b)
	if err != nil {
		return false, false, err
	}
	switch n.Op {
	case LogAnd:
		if b {
			return fX && fY, tX || tY, nil
		}
		return fX || fY, tX || tY, nil
	case LogOr:
		if b {
			return fX || fY, tX || tY, nil
		}
		return fX && fY, tX || tY, nil
	}
	panic("domain: evalBBin: unknown logical operator")
}

func (ev Evaluator[V]) evalCmp(n CmpExpr, b bool) (bool, bool, error) {
	v1, t1, err := ev.Eval(n.X)
	if err != nil {
		return false, false, err
	}
	v2, t2, err := ev.Eval(n.Y)
	if err != nil {
		return false, false, err
	}
	cmp := n.Cmp
	if !b {
		cmp = cmp.Invert()
	}
	return v1.Compare(cmp, v2), t1 || t2, nil
}
