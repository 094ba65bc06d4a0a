package value

import (
	"errors"
	"testing"

	"github.com/cs-au-dk/bindom/isa"
	"github.com/cs-au-dk/bindom/taint"
)

func TestIsSubsetReflexiveAndBotAbsorbing(t *testing.T) {
	v := Range(8, 1, 10)
	if !v.IsSubset(v) {
		t.Error("IsSubset should be reflexive")
	}
	if !Bot(8).IsSubset(v) {
		t.Error("Bot should be a subset of everything")
	}
	if v.IsSubset(Bot(8)) && !v.IsBot() {
		t.Error("a non-bottom value should not be a subset of Bot")
	}
}

func TestJoinMeetBounds(t *testing.T) {
	a := Range(8, 2, 5)
	b := Range(8, 4, 9)
	j := a.Join(b)
	if !j.IsSubset(Range(8, 2, 9)) || !Range(8, 2, 9).IsSubset(j) {
		t.Errorf("Join bounds: got %v, want Range(2,9)", j)
	}
	m := a.Meet(b)
	if !m.IsSubset(Range(8, 4, 5)) || !Range(8, 4, 5).IsSubset(m) {
		t.Errorf("Meet bounds: got %v, want Range(4,5)", m)
	}
}

func TestMeetDisjointIsBot(t *testing.T) {
	a := Range(8, 1, 2)
	b := Range(8, 5, 6)
	if !a.Meet(b).IsBot() {
		t.Error("Meet of disjoint ranges should be Bot")
	}
}

func TestWidenSnapsOutwardBound(t *testing.T) {
	a := Singleton(8, 5)
	b := Range(8, 3, 10)
	w := a.Widen(b)
	if w.hi != maxForBits(8) {
		t.Errorf("Widen growing upper-unbounded direction should snap hi to max, got hi=%d", w.hi)
	}
	if w.lo != 0 {
		t.Errorf("Widen should snap lo to 0 when it moved outward, got lo=%d", w.lo)
	}
}

func TestToZSingletonOnly(t *testing.T) {
	s := Singleton(8, 42)
	z, ok := s.ToZ()
	if !ok || z != 42 {
		t.Errorf("Singleton(8,42).ToZ() = (%d, %v), want (42, true)", z, ok)
	}
	r := Range(8, 1, 2)
	if _, ok := r.ToZ(); ok {
		t.Error("a non-singleton range should not materialize via ToZ")
	}
}

func TestToAddressesEmptyIsNotAnError(t *testing.T) {
	addrs, err := Bot(8).ToAddresses()
	if err != nil {
		t.Errorf("Bot().ToAddresses() returned an error: %v", err)
	}
	if len(addrs) != 0 {
		t.Errorf("Bot().ToAddresses() = %v, want empty", addrs)
	}
}

func TestToAddressesTooWideFails(t *testing.T) {
	wide := Top(32)
	_, err := wide.ToAddresses()
	if !errors.Is(err, ErrEnumFailure) {
		t.Errorf("Top(32).ToAddresses() error = %v, want ErrEnumFailure", err)
	}
}

func TestToAddressesEnumeratesSmallRange(t *testing.T) {
	r := Range(16, 0x1000, 0x1003)
	addrs, err := r.ToAddresses()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []isa.Address{0x1000, 0x1001, 0x1002, 0x1003}
	if len(addrs) != len(want) {
		t.Fatalf("got %d addresses, want %d", len(addrs), len(want))
	}
	for i, a := range want {
		if addrs[i] != a {
			t.Errorf("addrs[%d] = %s, want %s", i, addrs[i], a)
		}
	}
}

func TestBinaryExactOnSingletons(t *testing.T) {
	a := Singleton(8, 3)
	b := Singleton(8, 4)
	got := a.Binary(Add, b)
	z, ok := got.ToZ()
	if !ok || z != 7 {
		t.Errorf("3 + 4 = (%d, %v), want (7, true)", z, ok)
	}
}

func TestBinaryImpreciseYieldsTop(t *testing.T) {
	a := Range(8, 0, 3)
	b := Singleton(8, 2)
	got := a.Binary(Mul, b)
	if !got.IsTop() {
		t.Error("Mul with a non-singleton operand should force the result to Top")
	}
}

func TestBinaryAddPreservesRangeWithoutOverflow(t *testing.T) {
	a := Range(8, 0, 3)
	b := Singleton(8, 1)
	got := a.Binary(Add, b)
	if !got.IsSubset(Range(8, 1, 4)) || !Range(8, 1, 4).IsSubset(got) {
		t.Errorf("Add should stay precise on a non-overflowing range: got %v, want Range(1,4)", got)
	}
}

func TestCompareOverlap(t *testing.T) {
	a := Range(8, 0, 5)
	b := Range(8, 5, 10)
	if !a.Compare(EQ, b) {
		t.Error("ranges sharing the boundary 5 should be feasibly EQ")
	}
	c := Range(8, 0, 4)
	d := Range(8, 5, 10)
	if c.Compare(EQ, d) {
		t.Error("disjoint ranges should not be feasibly EQ")
	}
}

func TestExtractCombineRoundTrip(t *testing.T) {
	v := Singleton(16, 0xABCD)
	low := v.Extract(0, 7)
	z, ok := low.ToZ()
	if !ok || z != 0xCD {
		t.Errorf("Extract(0,7) = (%d,%v), want (0xCD, true)", z, ok)
	}
	combined := v.Combine(Singleton(8, 0x12), 0, 7)
	z2, ok := combined.ToZ()
	if !ok || z2 != 0xAB12 {
		t.Errorf("Combine low byte = (%#x,%v), want (0xAB12, true)", z2, ok)
	}
}

func TestTaintPropagationThroughBinary(t *testing.T) {
	a := Singleton(8, 1)
	a.t = taint.Top(8)
	b := Singleton(8, 2)
	got := a.Binary(Add, b)
	if !got.IsTainted() {
		t.Error("taint on an operand should propagate through Binary")
	}
}

func TestConcatMostSignificantFirst(t *testing.T) {
	hi := Singleton(8, 0xAB)
	lo := Singleton(8, 0xCD)
	got := Concat([]CT{hi, lo})
	z, ok := got.ToZ()
	if !ok || z != 0xABCD {
		t.Errorf("Concat([hi,lo]) = (%#x,%v), want (0xABCD,true)", z, ok)
	}
}

func TestOfRepeatVal(t *testing.T) {
	b := Singleton(8, 0x90)
	got := OfRepeatVal(b, 8, 3)
	z, ok := got.ToZ()
	if !ok || z != 0x909090 {
		t.Errorf("OfRepeatVal = (%#x,%v), want (0x909090,true)", z, ok)
	}
}
