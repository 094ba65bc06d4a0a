package domain

import (
	"bytes"
	"testing"

	"github.com/cs-au-dk/bindom/isa"
	"github.com/cs-au-dk/bindom/value"
)

func writeASCII(t *testing.T, env Env[value.CT], addr isa.Address, s string) Env[value.CT] {
	t.Helper()
	for i := 0; i < len(s); i++ {
		var err error
		env, err = WriteInMemory(env, addr+isa.Address(i), value.Singleton(8, uint64(s[i])), 8, true, false)
		if err != nil {
			t.Fatalf("WriteInMemory: %v", err)
		}
	}
	return env
}

func TestGetBytesMaterializesNulTerminatedString(t *testing.T) {
	env := Empty[value.CT]()
	env = writeASCII(t, env, 0x3000, "hi\x00")
	s := withEnv(env)

	length, got, err := GetBytes(s, ConstExpr{Word: isa.NewWord(64, 0x3000)}, value.EQ, ConstExpr{Word: isa.NewWord(8, 0)}, 16, 8, emptyBacking(), value.ConcreteTaintOps)
	if err != nil {
		t.Fatalf("GetBytes: %v", err)
	}
	if length != 2 || got != "hi" {
		t.Errorf("GetBytes = (%d,%q), want (2,%q)", length, got, "hi")
	}
}

func TestGetBytesFailsWithConcretizationWhenNoTerminator(t *testing.T) {
	env := Empty[value.CT]()
	env = writeASCII(t, env, 0x3000, "abcdefgh")
	s := withEnv(env)

	_, _, err := GetBytes(s, ConstExpr{Word: isa.NewWord(64, 0x3000)}, value.EQ, ConstExpr{Word: isa.NewWord(8, 0)}, 4, 8, emptyBacking(), value.ConcreteTaintOps)
	if err != ErrConcretization {
		t.Errorf("got %v, want ErrConcretization", err)
	}
}

func TestIGetBytesPadsToUpperBoundWhenTerminatorFoundEarly(t *testing.T) {
	env := Empty[value.CT]()
	env = writeASCII(t, env, 0x3000, "hi\x00!!")
	s := withEnv(env)

	pad := &PadOption[value.CT]{Char: value.Singleton(8, '_')}
	length, cells, err := IGetBytes(s, ConstExpr{Word: isa.NewWord(64, 0x3000)}, value.EQ, ConstExpr{Word: isa.NewWord(8, 0)}, 16, 8, emptyBacking(), value.ConcreteTaintOps, false, pad)
	if err != nil {
		t.Fatalf("IGetBytes: %v", err)
	}
	if length != 16 {
		t.Errorf("length = %d, want 16", length)
	}
	want := append([]byte("hi"), bytes.Repeat([]byte("_"), 14)...)
	for i, w := range want {
		ch, ok := cells[i].ToChar()
		if !ok || ch != w {
			t.Errorf("cells[%d] = (%v,%v), want %q", i, ch, ok, w)
		}
	}
}

func TestIGetBytesNotFoundIgnoresPadAndReturnsEmpty(t *testing.T) {
	env := Empty[value.CT]()
	env = writeASCII(t, env, 0x3000, "abcd")
	s := withEnv(env)

	pad := &PadOption[value.CT]{Char: value.Singleton(8, '.')}
	length, cells, err := IGetBytes(s, ConstExpr{Word: isa.NewWord(64, 0x3000)}, value.EQ, ConstExpr{Word: isa.NewWord(8, 0)}, 4, 8, emptyBacking(), value.ConcreteTaintOps, false, pad)
	if err != nil {
		t.Fatalf("IGetBytes: %v", err)
	}
	if length != 4 {
		t.Errorf("length = %d, want 4", length)
	}
	if cells != nil {
		t.Errorf("cells = %v, want nil: a scan that never finds its terminator ignores pad", cells)
	}
}

func TestIGetBytesWithExceptionFailsWhenTerminatorMissing(t *testing.T) {
	env := Empty[value.CT]()
	env = writeASCII(t, env, 0x3000, "abcd")
	s := withEnv(env)

	_, _, err := IGetBytes(s, ConstExpr{Word: isa.NewWord(64, 0x3000)}, value.EQ, ConstExpr{Word: isa.NewWord(8, 0)}, 4, 8, emptyBacking(), value.ConcreteTaintOps, true, nil)
	if err != ErrNotFound {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestCopyCharsCopiesUpToNulTerminator(t *testing.T) {
	env := Empty[value.CT]()
	env = writeASCII(t, env, 0x3000, "ok\x00")
	s := withEnv(env)

	s2, err := CopyChars(s, ConstExpr{Word: isa.NewWord(64, 0x4000)}, ConstExpr{Word: isa.NewWord(64, 0x3000)}, 8, emptyBacking(), value.ConcreteTaintOps, nil)
	if err != nil {
		t.Fatalf("CopyChars: %v", err)
	}
	env2, _ := s2.Env()
	for i, want := range []byte("ok") {
		_, v, ok := env2.FindByAddr(0x4000 + isa.Address(i))
		if !ok {
			t.Fatalf("byte %d not written", i)
		}
		ch, _ := v.ToChar()
		if ch != want {
			t.Errorf("byte %d = %q, want %q", i, ch, want)
		}
	}
}

func TestPrintCharsWritesToProvidedWriter(t *testing.T) {
	env := Empty[value.CT]()
	env = writeASCII(t, env, 0x5000, "yo\x00")
	s := withEnv(env)

	var buf bytes.Buffer
	if err := PrintChars(&buf, s, ConstExpr{Word: isa.NewWord(64, 0x5000)}, 8, emptyBacking(), value.ConcreteTaintOps); err != nil {
		t.Fatalf("PrintChars: %v", err)
	}
	if buf.String() != "yo" {
		t.Errorf("got %q, want %q", buf.String(), "yo")
	}
}

func TestToHexFormatsWithMinimumDigitsAndTaintSuffix(t *testing.T) {
	v := value.Singleton(16, 0xAB)
	s, err := ToHex[value.CT](v, 16, false)
	if err != nil {
		t.Fatalf("ToHex: %v", err)
	}
	if s != "0x00ab" {
		t.Errorf("got %q, want %q", s, "0x00ab")
	}

	tainted := v.Taint()
	full, err := ToHex[value.CT](tainted, 16, true)
	if err != nil {
		t.Fatalf("ToHex: %v", err)
	}
	if !bytes.Contains([]byte(full), []byte("!")) {
		t.Errorf("full_print rendering of a tainted value should contain a taint suffix, got %q", full)
	}
}

func TestCopyHexWritesPaddedUppercaseDigits(t *testing.T) {
	env := Empty[value.CT]()
	s := withEnv(env)

	s2, err := CopyHex(s, ConstExpr{Word: isa.NewWord(64, 0x6000)}, ConstExpr{Word: isa.NewWord(8, 0xF)}, 4, true, nil, 8, emptyBacking(), value.ConcreteTaintOps)
	if err != nil {
		t.Fatalf("CopyHex: %v", err)
	}
	env2, _ := s2.Env()
	var got []byte
	for i := 0; i < 4; i++ {
		_, v, ok := env2.FindByAddr(0x6000 + isa.Address(i))
		if !ok {
			t.Fatalf("hex digit %d not written", i)
		}
		ch, _ := v.ToChar()
		got = append(got, ch)
	}
	if string(got) != "0F00" {
		t.Errorf("got %q, want %q", string(got), "0F00")
	}
}
