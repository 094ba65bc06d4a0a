package domain

import (
	"github.com/cs-au-dk/bindom/isa"
	"github.com/cs-au-dk/bindom/value"
)

func byteAddrs(addr isa.Address, n int) []isa.Address {
	out := make([]isa.Address, n)
	for i := 0; i < n; i++ {
		out[i] = addr + isa.Address(i)
	}
	return out
}

// memRangeDim picks Mem for a single byte or MemItv for a genuine
// range, keeping Env free of degenerate one-byte MemItv entries.
func memRangeDim(lo, hi isa.Address) Dimension {
	if lo == hi {
		return MemDim(lo)
	}
	return MemItvDim(lo, hi)
}

// GetMemValue reads sizeBits worth of memory starting at addr,
// concatenating per-byte cells in either byte order. If the environment
// lacks a cell for any of the bytes, the whole read is redone from the
// section backing, and V.bot is returned if some byte lies in no section.
// The expression evaluator's memory reads always pass bigEndian=false;
// the parameter exists so other callers are not forced into it.
func GetMemValue[V value.Value[V]](env Env[V], b *Backing, ops value.Ops[V], addr isa.Address, sizeBits int, bigEndian bool) V {
	n := sizeBits / 8
	addrs := byteAddrs(addr, n)
	vals := make([]V, n)

	allFound := true
	for i, a := range addrs {
		_, v, ok := env.FindByAddr(a)
		if !ok {
			allFound = false
			break
		}
		vals[i] = v
	}

	if !allFound {
		for i, a := range addrs {
			v, err := ReadFromSections(b, ops, a)
			if err != nil {
				return ops.Bot(sizeBits)
			}
			vals[i] = v
		}
	}

	if !bigEndian {
		for i, j := 0, len(vals)-1; i < j; i, j = i+1, j-1 {
			vals[i], vals[j] = vals[j], vals[i]
		}
	}
	return ops.Concat(vals)
}

// WriteInMemory splits v into sizeBits/8 byte cells and writes each
// one, strongly or weakly, in either byte order.
func WriteInMemory[V value.Value[V]](env Env[V], addr isa.Address, v V, sizeBits int, strong, bigEndian bool) (Env[V], error) {
	n := sizeBits / 8
	addrs := byteAddrs(addr, n)
	if bigEndian {
		for i, j := 0, len(addrs)-1; i < j; i, j = i+1, j-1 {
			addrs[i], addrs[j] = addrs[j], addrs[i]
		}
	}
	for i, a := range addrs {
		byteVal := v.Extract(i*8, i*8+7)
		var err error
		env, err = writeByte(env, a, byteVal, strong)
		if err != nil {
			return env, err
		}
	}
	return env, nil
}

func writeByte[V value.Value[V]](env Env[V], a isa.Address, b V, strong bool) (Env[V], error) {
	key, prev, found := env.FindByAddr(a)
	if !found {
		if !strong {
			return env, ErrEmpty
		}
		return env.Set(MemDim(a), b), nil
	}

	switch key.Kind() {
	case DimReg:
		panic("domain: writeByte located a Reg dimension where a Mem/MemItv was expected")
	case DimMem:
		newVal := b
		if !strong {
			newVal = b.Join(prev)
		}
		return env.Set(key, newVal), nil
	case DimMemItv:
		env = env.Remove(key)
		lo, hi := key.Lo(), key.Hi()
		if lo < a {
			env = env.Set(memRangeDim(lo, a-1), prev)
		}
		if a < hi {
			env = env.Set(memRangeDim(a+1, hi), prev)
		}
		newVal := b
		if !strong {
			newVal = b.Join(prev)
		}
		return env.Set(MemDim(a), newVal), nil
	}
	panic("domain: writeByte: unreachable dimension kind")
}

// WriteRepeatByteInMem does a strong, byte-broadcast fill of n copies
// of byteVal starting at addr, used for zero-fill / constant-fill
// configuration initialization. The filled range is inclusive of
// addr+n itself rather than stopping at addr+n-1: an off-by-one that
// broadcasts one byte more than n would suggest, preserved bit-exact
// because callers and fixtures are written against it (see
// DESIGN.md's Open Questions).
func WriteRepeatByteInMem[V value.Value[V]](env Env[V], addr isa.Address, byteVal V, n int) Env[V] {
	if n <= 0 {
		return env
	}
	hi := addr + isa.Address(n)

	a := addr
	for a <= hi {
		key, prev, found := env.FindByAddr(a)
		if !found {
			nk, hasNext := env.nextMemKeyFrom(a)
			if !hasNext || nk.Lo() > hi {
				break
			}
			a = nk.Lo()
			continue
		}
		switch key.Kind() {
		case DimMem:
			env = env.Remove(key)
			a = key.Hi() + 1
		case DimMemItv:
			env = env.Remove(key)
			lo, khi := key.Lo(), key.Hi()
			if lo < addr {
				env = env.Set(memRangeDim(lo, addr-1), prev)
			}
			if khi > hi {
				env = env.Set(memRangeDim(hi+1, khi), prev)
			}
			a = khi + 1
		default:
			panic("domain: WriteRepeatByteInMem found a Reg dimension inside a memory range")
		}
	}
	return env.Set(memRangeDim(addr, hi), byteVal)
}
