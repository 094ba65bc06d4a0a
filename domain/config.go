package domain

import (
	"github.com/cs-au-dk/bindom/isa"
	"github.com/cs-au-dk/bindom/taint"
	"github.com/cs-au-dk/bindom/value"
)

// SetRegisterFromConfig installs a freshly configured value at Reg(r),
// overwriting whatever was there.
func SetRegisterFromConfig[V value.Value[V]](s State[V], r isa.Register, region value.Region, content value.Content, pattern taint.Pattern, ops value.Ops[V]) State[V] {
	if s.bottom {
		return s
	}
	bits := r.Size()
	v := ops.OfConfig(region, content, bits)
	v = ops.TaintOfConfig(pattern, bits, v)
	return withEnv(s.env.Set(RegDim(r), v))
}

// SetMemoryFromConfig installs a freshly configured value starting at
// addr. A repeated-byte initialization (nb > 1) requires an 8-bit
// content size; anything else is a configuration bug, not a
// recoverable runtime condition, so it aborts rather than returning an
// error.
func SetMemoryFromConfig[V value.Value[V]](s State[V], addr isa.Address, region value.Region, content value.Content, pattern taint.Pattern, nb, operandSizeBits int, ops value.Ops[V]) (State[V], error) {
	if s.bottom {
		return s, nil
	}
	sz := content.SizeBits(operandSizeBits)

	if nb > 1 {
		if sz != 8 {
			panic("domain: repeated memory init only works with bytes")
		}
		v := ops.OfConfig(region, content, sz)
		v = ops.TaintOfConfig(pattern, sz, v)
		return withEnv(WriteRepeatByteInMem(s.env, addr, v, nb)), nil
	}

	bigEndian := content.Kind == value.BytesContent || content.Kind == value.BytesContentMasked
	v := ops.OfConfig(region, content, sz)
	v = ops.TaintOfConfig(pattern, sz, v)
	env, err := WriteInMemory(s.env, addr, v, sz, true, bigEndian)
	if err != nil {
		return Bot[V](), err
	}
	return withEnv(env), nil
}

// TaintRegisterMask re-taints an already-present register cell without
// disturbing its value. A missing register surfaces ErrNotFound
// unchanged.
func TaintRegisterMask[V value.Value[V]](s State[V], r isa.Register, pattern taint.Pattern, ops value.Ops[V]) (State[V], error) {
	if s.bottom {
		return s, nil
	}
	prev, ok := s.env.Find(RegDim(r))
	if !ok {
		return s, ErrNotFound
	}
	v := ops.TaintOfConfig(pattern, r.Size(), prev)
	return withEnv(s.env.Set(RegDim(r), v)), nil
}

// TaintAddressMask re-taints whichever Mem/MemItv cell presently
// covers address a.
func TaintAddressMask[V value.Value[V]](s State[V], a isa.Address, pattern taint.Pattern, ops value.Ops[V]) (State[V], error) {
	if s.bottom {
		return s, nil
	}
	key, prev, ok := s.env.FindByAddr(a)
	if !ok {
		return s, ErrNotFound
	}
	v := ops.TaintOfConfig(pattern, 8, prev)
	return withEnv(s.env.Set(key, v)), nil
}
