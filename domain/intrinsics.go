package domain

import (
	"fmt"
	"io"
	"strings"

	"github.com/cs-au-dk/bindom/colorize"
	"github.com/cs-au-dk/bindom/isa"
	"github.com/cs-au-dk/bindom/value"
)

// PadOption configures how a bounded scan's result is padded out to the
// full upper bound once a terminator has actually been found short of
// it. Left padding is unsupported, and every operation that receives
// one with Left=true fails rather than silently ignoring it.
type PadOption[V value.Value[V]] struct {
	Char V
	Left bool
}

// IGetBytes runs a bounded scan from addr for a cell matching cmp
// against terminator, independently per candidate start address, and
// keeps the longest result. When the terminator is found short of
// upperBound and pad is set, the result is padded on the right with
// pad.Char out to upperBound; when the terminator is never found, the
// scan always reports upperBound with an empty byte list, regardless
// of pad.
func IGetBytes[V value.Value[V]](s State[V], addrExpr Expr, cmp value.Cmp, termExpr Expr, upperBound, sizeBits int, b *Backing, ops value.Ops[V], withException bool, pad *PadOption[V]) (int, []V, error) {
	if pad != nil && pad.Left {
		return 0, nil, fmt.Errorf("domain: left padding is not supported")
	}
	env, ok := s.Env()
	if !ok {
		return 0, nil, ErrBotDeref
	}
	ev := NewEvaluator(env, b, ops)

	addrVal, _, err := ev.Eval(addrExpr)
	if err != nil {
		return 0, nil, err
	}
	addrs, enumErr := addrVal.ToAddresses()
	if enumErr != nil || len(addrs) == 0 {
		return 0, nil, ErrNotFound
	}

	term, _, err := ev.Eval(termExpr)
	if err != nil {
		return 0, nil, err
	}

	off := sizeBits / 8
	bestLen := -1
	var bestBytes []V

	for _, a := range addrs {
		length, collected, found := scanForTerminator(ev, a, off, sizeBits, cmp, term, upperBound)

		var candLen int
		var candBytes []V
		switch {
		case found && pad != nil:
			candLen = upperBound
			candBytes = make([]V, upperBound)
			copy(candBytes, collected)
			for i := length; i < upperBound; i++ {
				candBytes[i] = pad.Char
			}
		case found:
			candLen, candBytes = length, collected
		case withException:
			return 0, nil, ErrNotFound
		default:
			candLen = upperBound
			candBytes = nil
		}
		if candLen > bestLen {
			bestLen, bestBytes = candLen, candBytes
		}
	}
	return bestLen, bestBytes, nil
}

// scanForTerminator walks the bounded scan one cell at a time. It stops
// early, short of upperBound, the moment a cell is backed by neither
// the environment nor a loaded section, and reports that stop as
// "terminator not found" (so IGetBytes does not pad it).
func scanForTerminator[V value.Value[V]](ev Evaluator[V], a isa.Address, off, sizeBits int, cmp value.Cmp, term V, upperBound int) (int, []V, bool) {
	var collected []V
	o := 0
	for o < upperBound {
		v, present := probeMemCell(ev.Env, ev.Backing, ev.Ops, a+isa.Address(o), sizeBits)
		if !present {
			return o, collected, false
		}
		if v.Compare(cmp, term) {
			return o, collected, true
		}
		collected = append(collected, v)
		o += off
	}
	return o, collected, false
}

// probeMemCell reads a cell exactly like GetMemValue, additionally
// reporting whether the address was backed by anything at all (as
// opposed to falling through to a synthetic Bot because neither the
// environment nor any loaded section covers it).
func probeMemCell[V value.Value[V]](env Env[V], b *Backing, ops value.Ops[V], addr isa.Address, sizeBits int) (V, bool) {
	n := sizeBits / 8
	present := true
	for i := 0; i < n; i++ {
		a := addr + isa.Address(i)
		if _, _, ok := env.FindByAddr(a); ok {
			continue
		}
		if _, err := ReadFromSections(b, ops, a); err != nil {
			present = false
			break
		}
	}
	if !present {
		var zero V
		return zero, false
	}
	return GetMemValue(env, b, ops, addr, sizeBits, false), true
}

// GetBytes materializes a bounded scan's result to a Go string,
// folding every underlying failure into ErrConcretization.
func GetBytes[V value.Value[V]](s State[V], addrExpr Expr, cmp value.Cmp, termExpr Expr, upperBound, sizeBits int, b *Backing, ops value.Ops[V]) (int, string, error) {
	length, cells, err := IGetBytes(s, addrExpr, cmp, termExpr, upperBound, sizeBits, b, ops, true, nil)
	if err != nil {
		return 0, "", ErrConcretization
	}
	buf := make([]byte, 0, len(cells))
	for _, c := range cells {
		ch, ok := c.ToChar()
		if !ok {
			return 0, "", ErrConcretization
		}
		buf = append(buf, ch)
	}
	return length, string(buf), nil
}

// CopyUntil scans src for a terminator the same way IGetBytes does,
// then writes the scanned cells into memory starting at dst. A
// singleton destination address is written strongly; any other
// destination shape falls back to a weak write at every candidate.
func CopyUntil[V value.Value[V]](s State[V], dst, src Expr, termExpr Expr, termSizeBits, upperBound int, b *Backing, ops value.Ops[V], withException bool, pad *PadOption[V]) (State[V], error) {
	if s.bottom {
		return s, nil
	}
	ev := NewEvaluator(s.env, b, ops)

	dstVal, _, err := ev.Eval(dst)
	if err != nil {
		return Bot[V](), err
	}
	dstAddrs, enumErr := dstVal.ToAddresses()
	if enumErr != nil || len(dstAddrs) == 0 {
		return Bot[V](), ErrBotDeref
	}

	_, cells, err := IGetBytes(s, src, value.EQ, termExpr, upperBound, termSizeBits, b, ops, withException, pad)
	if err != nil {
		return Bot[V](), err
	}

	env := s.env
	strong := len(dstAddrs) == 1
	for _, base := range dstAddrs {
		for i, cell := range cells {
			env, err = WriteInMemory(env, base+isa.Address(i), cell, 8, strong, false)
			if err != nil {
				return Bot[V](), err
			}
		}
	}
	return withEnv(env), nil
}

// CopyChars is CopyUntil with an implicit zero-byte terminator, the
// ordinary C-string-copy case.
func CopyChars[V value.Value[V]](s State[V], dst, src Expr, nb int, b *Backing, ops value.Ops[V], pad *PadOption[V]) (State[V], error) {
	zeroTerm := ConstExpr{Word: isa.NewWord(8, 0)}
	return CopyUntil(s, dst, src, zeroTerm, 8, nb, b, ops, false, pad)
}

// PrintUntil and PrintChars dump the scanned bytes to w instead of
// writing them into memory.
func PrintUntil[V value.Value[V]](w io.Writer, s State[V], src Expr, termExpr Expr, termSizeBits, upperBound int, b *Backing, ops value.Ops[V]) error {
	_, cells, err := IGetBytes(s, src, value.EQ, termExpr, upperBound, termSizeBits, b, ops, false, nil)
	if err != nil {
		return err
	}
	return PrintBytes(w, cells)
}

func PrintChars[V value.Value[V]](w io.Writer, s State[V], src Expr, nb int, b *Backing, ops value.Ops[V]) error {
	zeroTerm := ConstExpr{Word: isa.NewWord(8, 0)}
	return PrintUntil(w, s, src, zeroTerm, 8, nb, b, ops)
}

// PrintBytes materializes each cell to a byte and writes the
// resulting string to w.
func PrintBytes[V value.Value[V]](w io.Writer, cells []V) error {
	buf := make([]byte, 0, len(cells))
	for _, c := range cells {
		ch, ok := c.ToChar()
		if !ok {
			return ErrConcretization
		}
		buf = append(buf, ch)
	}
	_, err := w.Write(buf)
	return err
}

// ToHex is the pure hex formatter shared by CopyHex and PrintHex:
// wordSizeBits sets the minimum digit count, and when fullPrint is set
// and v carries taint the rendering becomes "value!taint".
func ToHex[V value.Value[V]](v V, wordSizeBits int, fullPrint bool) (string, error) {
	z, ok := v.ToZ()
	if !ok {
		return "", ErrConcretization
	}
	digits := wordSizeBits / 4
	if digits < 1 {
		digits = 1
	}
	s := fmt.Sprintf("0x%0*x", digits, uint64(z))
	if fullPrint && v.IsTainted() {
		s = fmt.Sprintf("%s!%s", s, v.GetMinimalTaint().String())
	}
	return s, nil
}

// CopyHex formats src as hex digits and writes them as individual
// character cells starting at dst. A non-singleton destination
// intentionally degrades the whole state to Forget (every cell becomes
// V.top) rather than enumerating weak writes across an unknown set of
// addresses.
func CopyHex[V value.Value[V]](s State[V], dst, src Expr, nb int, capitalise bool, pad *PadOption[V], wordSizeBits int, b *Backing, ops value.Ops[V]) (State[V], error) {
	if s.bottom {
		return s, nil
	}
	if pad != nil && pad.Left {
		return Bot[V](), fmt.Errorf("domain: left padding is not supported")
	}
	ev := NewEvaluator(s.env, b, ops)

	srcVal, srcTainted, err := ev.Eval(src)
	if err != nil {
		return Bot[V](), err
	}
	hexFull, err := ToHex(srcVal, wordSizeBits, false)
	if err != nil {
		return Bot[V](), err
	}
	digits := strings.TrimPrefix(hexFull, "0x")
	if capitalise {
		digits = strings.ToUpper(digits)
	}

	anyCharTainted := srcTainted
	switch {
	case len(digits) < nb:
		padChar := byte('0')
		if pad != nil {
			if ch, ok := pad.Char.ToChar(); ok {
				padChar = ch
			}
			if pad.Char.IsTainted() {
				anyCharTainted = true
			}
		}
		digits += strings.Repeat(string(padChar), nb-len(digits))
	case len(digits) > nb:
		digits = digits[:nb]
	}

	dstVal, _, err := ev.Eval(dst)
	if err != nil {
		return Bot[V](), err
	}
	dstAddrs, enumErr := dstVal.ToAddresses()
	if enumErr != nil || len(dstAddrs) == 0 {
		return Bot[V](), ErrBotDeref
	}
	if len(dstAddrs) > 1 {
		return Forget(s, ops), nil
	}

	env := s.env
	addr := dstAddrs[0]
	for i := 0; i < len(digits); i++ {
		cell := ops.OfWord(isa.NewWord(8, uint64(digits[i])))
		if anyCharTainted {
			cell = cell.Taint()
		}
		env, err = WriteInMemory(env, addr+isa.Address(i), cell, 8, true, false)
		if err != nil {
			return Bot[V](), err
		}
	}
	return withEnv(env), nil
}

// PrintHex writes to_hex's rendering of v to w, colorized.
func PrintHex[V value.Value[V]](w io.Writer, v V, wordSizeBits int, fullPrint bool) error {
	s, err := ToHex(v, wordSizeBits, fullPrint)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, colorize.Value(s))
	return err
}
