package value

import (
	"fmt"
	"strconv"

	"github.com/cs-au-dk/bindom/isa"
	"github.com/cs-au-dk/bindom/taint"
)

// maxAddrEnum bounds how many concrete addresses ToAddresses will
// enumerate before giving up rather than materialize an impractically
// large set.
const maxAddrEnum = 4096

// CT ("concrete-with-taint") is the concrete-plus-taint cell-value
// instantiation used by the domain's own tests and by the CLI
// front-end. It represents a cell as an unsigned interval [lo, hi]
// within [0, 2^bits-1] together with a per-bit taint mask.
type CT struct {
	bits   int
	bot    bool
	lo, hi uint64
	t      taint.Taint
}

var _ Value[CT] = CT{}

func maxForBits(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<bits - 1
}

func mask(bits int, v uint64) uint64 { return v & maxForBits(bits) }

// Bot builds ⊥ for the given bit width.
func Bot(bits int) CT { return CT{bits: bits, bot: true} }

// Top builds ⊤ for the given bit width: the full range, untainted.
func Top(bits int) CT { return CT{bits: bits, lo: 0, hi: maxForBits(bits)} }

// Singleton builds the singleton interval {v}, masked to bits.
func Singleton(bits int, v uint64) CT {
	v = mask(bits, v)
	return CT{bits: bits, lo: v, hi: v}
}

// Range builds the interval [lo, hi], masked to bits.
func Range(bits int, lo, hi uint64) CT {
	lo, hi = mask(bits, lo), mask(bits, hi)
	if lo > hi {
		return Bot(bits)
	}
	return CT{bits: bits, lo: lo, hi: hi}
}

func (v CT) Bits() int { return v.bits }
func (v CT) IsBot() bool {
	return v.bot
}
func (v CT) IsTop() bool {
	return !v.bot && v.lo == 0 && v.hi == maxForBits(v.bits)
}

func (v CT) singleton() (uint64, bool) {
	if v.bot || v.lo != v.hi {
		return 0, false
	}
	return v.lo, true
}

func (v CT) IsSubset(o CT) bool {
	if v.bot {
		return true
	}
	if o.bot {
		return false
	}
	return v.lo >= o.lo && v.hi <= o.hi
}

func (v CT) Join(o CT) CT {
	if v.bot {
		return o
	}
	if o.bot {
		return v
	}
	lo, hi := v.lo, v.hi
	if o.lo < lo {
		lo = o.lo
	}
	if o.hi > hi {
		hi = o.hi
	}
	return CT{bits: v.bits, lo: lo, hi: hi, t: v.t.Join(o.t)}
}

func (v CT) Meet(o CT) CT {
	if v.bot || o.bot {
		return Bot(v.bits)
	}
	lo, hi := v.lo, v.hi
	if o.lo > lo {
		lo = o.lo
	}
	if o.hi < hi {
		hi = o.hi
	}
	if lo > hi {
		return Bot(v.bits)
	}
	return CT{bits: v.bits, lo: lo, hi: hi, t: v.t.Meet(o.t)}
}

// Widen implements the standard widen-to-extremes strategy: any bound
// that moved outward jumps straight to the representable extreme, which
// guarantees stabilization within two iterations regardless of how far
// the sequence would otherwise have to climb.
func (v CT) Widen(o CT) CT {
	if v.bot {
		return o
	}
	if o.bot {
		return v
	}
	lo, hi := v.lo, v.hi
	if o.lo < lo {
		lo = 0
	}
	if o.hi > hi {
		hi = maxForBits(v.bits)
	}
	return CT{bits: v.bits, lo: lo, hi: hi, t: v.t.Join(o.t)}
}

func (v CT) ToZ() (int64, bool) {
	s, ok := v.singleton()
	if !ok {
		return 0, false
	}
	return int64(s), true
}

func (v CT) ToChar() (byte, bool) {
	s, ok := v.singleton()
	if !ok || v.bits != 8 {
		return 0, false
	}
	return byte(s), true
}

func (v CT) ToString() (string, bool) {
	s, ok := v.singleton()
	if !ok {
		return "", false
	}
	return strconv.FormatUint(s, 10), true
}

func (v CT) ToStrings() ([]string, bool) {
	if v.bot || v.hi-v.lo+1 > maxAddrEnum {
		return nil, false
	}
	out := make([]string, 0, v.hi-v.lo+1)
	for x := v.lo; x <= v.hi; x++ {
		out = append(out, strconv.FormatUint(x, 10))
		if x == v.hi {
			break
		}
	}
	return out, true
}

func (v CT) ToAddresses() ([]isa.Address, error) {
	if v.bot {
		return nil, nil
	}
	span := v.hi - v.lo + 1
	// span wraps to 0 for the full 64-bit range.
	if span == 0 || span > maxAddrEnum {
		return nil, ErrEnumFailure
	}
	out := make([]isa.Address, 0, span)
	for x := v.lo; ; x++ {
		out = append(out, isa.Address(x))
		if x == v.hi {
			break
		}
	}
	return out, nil
}

func (v CT) combinedTaint(o CT) taint.Taint { return v.t.Join(o.t) }

func (v CT) Binary(op BinOp, o CT) CT {
	if v.bot || o.bot {
		return Bot(v.bits)
	}
	t := v.combinedTaint(o)

	vs, vOK := v.singleton()
	os, oOK := o.singleton()
	bothSingleton := vOK && oOK

	result := func(x uint64) CT {
		r := Singleton(v.bits, x)
		r.t = t
		return r
	}
	top := func() CT {
		r := Top(v.bits)
		r.t = t
		return r
	}

	switch op {
	case Add:
		if !bothSingleton {
			lo := mask(v.bits, v.lo+o.lo)
			hi := mask(v.bits, v.hi+o.hi)
			if hi < lo {
				return top()
			}
			r := Range(v.bits, lo, hi)
			r.t = t
			return r
		}
		return result(vs + os)
	case Sub:
		if !bothSingleton {
			return top()
		}
		return result(vs - os)
	case Mul:
		if !bothSingleton {
			return top()
		}
		return result(vs * os)
	case DivU:
		if !bothSingleton || os == 0 {
			return top()
		}
		return result(vs / os)
	case DivS:
		if !bothSingleton || os == 0 {
			return top()
		}
		return result(uint64(toSigned(vs, v.bits) / toSigned(os, v.bits)))
	case RemU:
		if !bothSingleton || os == 0 {
			return top()
		}
		return result(vs % os)
	case RemS:
		if !bothSingleton || os == 0 {
			return top()
		}
		return result(uint64(toSigned(vs, v.bits) % toSigned(os, v.bits)))
	case And:
		if !bothSingleton {
			return top()
		}
		return result(vs & os)
	case Or:
		if !bothSingleton {
			return top()
		}
		return result(vs | os)
	case Xor:
		if !bothSingleton {
			return top()
		}
		return result(vs ^ os)
	case Shl:
		if !bothSingleton {
			return top()
		}
		return result(vs << os)
	case ShrU:
		if !bothSingleton {
			return top()
		}
		return result(vs >> os)
	case ShrS:
		if !bothSingleton {
			return top()
		}
		return result(uint64(toSigned(vs, v.bits) >> os))
	}
	return top()
}

func toSigned(u uint64, bits int) int64 {
	if bits >= 64 {
		return int64(u)
	}
	signBit := uint64(1) << (bits - 1)
	if u&signBit != 0 {
		return int64(u) - int64(uint64(1)<<bits)
	}
	return int64(u)
}

func (v CT) Unary(op UnOp) CT {
	if v.bot {
		return v
	}
	s, ok := v.singleton()
	if !ok {
		r := Top(v.bits)
		r.t = v.t
		return r
	}
	switch op {
	case Neg:
		r := Singleton(v.bits, mask(v.bits, ^s+1))
		r.t = v.t
		return r
	case Not:
		r := Singleton(v.bits, mask(v.bits, ^s))
		r.t = v.t
		return r
	}
	r := Top(v.bits)
	r.t = v.t
	return r
}

// Compare implements the feasibility test documented on Value.Compare:
// it reports whether some concretization pair (a, b) with a ∈ v and
// b ∈ o satisfies cmp.
func (v CT) Compare(cmp Cmp, o CT) bool {
	if v.bot || o.bot {
		return false
	}
	switch cmp {
	case EQ:
		return v.lo <= o.hi && o.lo <= v.hi
	case NEQ:
		vs, vOK := v.singleton()
		os, oOK := o.singleton()
		return !(vOK && oOK && vs == os)
	case LtU:
		return v.lo < o.hi
	case LeU:
		return v.lo <= o.hi
	case GtU:
		return v.hi > o.lo
	case GeU:
		return v.hi >= o.lo
	case LtS:
		return toSigned(v.lo, v.bits) < toSigned(o.hi, o.bits)
	case LeS:
		return toSigned(v.lo, v.bits) <= toSigned(o.hi, o.bits)
	case GtS:
		return toSigned(v.hi, v.bits) > toSigned(o.lo, o.bits)
	case GeS:
		return toSigned(v.hi, v.bits) >= toSigned(o.lo, o.bits)
	}
	return false
}

func (v CT) Extract(lo, hi int) CT {
	width := hi - lo + 1
	if v.bot {
		return Bot(width)
	}
	s, ok := v.singleton()
	t := v.t.Span(lo, hi)
	if ok {
		r := Singleton(width, s>>lo)
		r.t = t
		return r
	}
	r := Top(width)
	r.t = t
	return r
}

func (v CT) Combine(o CT, lo, hi int) CT {
	if v.bot {
		return v
	}
	width := hi - lo + 1
	t := taint.Combine(v.t, o.t, lo, hi)

	vs, vOK := v.singleton()
	os, oOK := o.singleton()
	if vOK && oOK {
		var fieldMask uint64
		if width >= 64 {
			fieldMask = ^uint64(0)
		} else {
			fieldMask = uint64(1)<<width - 1
		}
		fieldMask = mask(v.bits, fieldMask<<lo)
		spliced := (vs &^ fieldMask) | mask(v.bits, (os<<lo)&fieldMask)
		r := Singleton(v.bits, spliced)
		r.t = t
		return r
	}
	r := Top(v.bits)
	r.t = t
	return r
}

func (v CT) Forget() CT {
	r := Top(v.bits)
	r.t = v.t
	return r
}

func (v CT) Untaint() CT {
	v.t = taint.Bot()
	return v
}

func (v CT) Taint() CT {
	v.t = taint.Top(v.bits)
	return v
}

func (v CT) SpanTaint(t taint.Taint) CT {
	v.t = v.t.Join(t)
	return v
}

func (v CT) IsTainted() bool { return v.t.IsTainted() }

func (v CT) GetMinimalTaint() taint.Taint { return v.t }

func (v CT) String() string {
	if v.bot {
		return "⊥"
	}
	taintSuffix := ""
	if v.IsTainted() {
		taintSuffix = "!" + v.t.String()
	}
	if v.lo == v.hi {
		return fmt.Sprintf("0x%x:%d%s", v.lo, v.bits, taintSuffix)
	}
	return fmt.Sprintf("[0x%x,0x%x]:%d%s", v.lo, v.hi, v.bits, taintSuffix)
}

// OfWord lifts a concrete machine word to its singleton cell value.
func OfWord(w isa.Word) CT { return Singleton(w.Bits, w.Value) }

// OfConfig lifts an external-configuration content value to a cell.
// The region parameter only affects XOR-self-identity handling
// upstream in the expression evaluator; it carries no information in
// the concrete-with-taint value representation itself.
func OfConfig(region Region, content Content, sizeBits int) CT {
	switch content.Kind {
	case ConcreteZ:
		return Singleton(sizeBits, uint64(content.Z))
	case ConcreteZMasked:
		z := mask(sizeBits, uint64(content.Z))
		return Range(sizeBits, z&^content.Mask, z|content.Mask)
	case BytesContent:
		return bytesToValue(sizeBits, content.Bytes)
	case BytesContentMasked:
		v := bytesToValue(sizeBits, content.Bytes)
		if v.bot {
			return v
		}
		return Range(sizeBits, v.lo&content.Mask, v.hi|content.Mask)
	}
	panic("value.OfConfig: invalid content kind")
}

func bytesToValue(sizeBits int, b string) CT {
	var acc uint64
	for i := 0; i < len(b) && i < 8; i++ {
		acc = acc<<8 | uint64(b[i])
	}
	return Singleton(sizeBits, acc)
}

// TaintOfConfig attaches a configured taint pattern to v.
func TaintOfConfig(pattern taint.Pattern, sizeBits int, v CT) CT {
	v.t = v.t.Join(pattern.Resolve(sizeBits))
	return v
}

// Concat concatenates values most-significant-first, matching
// Value.Concat's documented ordering.
func Concat(vs []CT) CT {
	if len(vs) == 0 {
		return Bot(0)
	}
	if len(vs) == 1 {
		return vs[0]
	}
	totalBits := 0
	for _, v := range vs {
		totalBits += v.bits
	}

	allSingleton := true
	var acc uint64
	var t taint.Taint
	shift := 0
	// Walk right-to-left so the first element ends up most significant.
	for i := len(vs) - 1; i >= 0; i-- {
		v := vs[i]
		if v.bot {
			return Bot(totalBits)
		}
		s, ok := v.singleton()
		if ok {
			acc |= mask(v.bits, s) << shift
		} else {
			allSingleton = false
		}
		t = taint.Combine(t, v.t, shift, shift+v.bits-1)
		shift += v.bits
	}

	if !allSingleton {
		r := Top(totalBits)
		r.t = t
		return r
	}
	r := Singleton(totalBits, acc)
	r.t = t
	return r
}

// OfRepeatVal concatenates n copies of pattern, each patternSize bits.
func OfRepeatVal(pattern CT, patternSize, n int) CT {
	if n <= 0 {
		return Bot(0)
	}
	vs := make([]CT, n)
	for i := range vs {
		vs[i] = pattern
	}
	return Concat(vs)
}

// ConcreteTaintOps is the Ops[CT] instantiation used throughout the
// domain's tests and the CLI front-end.
var ConcreteTaintOps = Ops[CT]{
	Bot:           Bot,
	Top:           Top,
	OfWord:        OfWord,
	OfConfig:      OfConfig,
	TaintOfConfig: TaintOfConfig,
	Concat:        Concat,
	OfRepeatVal:   OfRepeatVal,
}
