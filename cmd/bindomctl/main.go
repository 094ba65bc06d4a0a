// Command bindomctl loads an ELF binary, seeds the abstract domain from
// an optional YAML configuration file, and prints the resulting state —
// a small driver for exercising the domain package outside of a full
// fixpoint analysis.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/cs-au-dk/bindom/colorize"
	"github.com/cs-au-dk/bindom/config"
	"github.com/cs-au-dk/bindom/domain"
	"github.com/cs-au-dk/bindom/isa"
	"github.com/cs-au-dk/bindom/value"
)

// Opts holds the parsed command-line flags.
type Opts struct {
	BinPath    string
	ConfigPath string
	NoColor    bool
	OperandSz  int
}

func parseOpts() Opts {
	var o Opts
	flag.StringVar(&o.BinPath, "bin", "", "path to the ELF binary to load")
	flag.StringVar(&o.ConfigPath, "config", "", "path to a YAML configuration file seeding initial register/memory values")
	flag.BoolVar(&o.NoColor, "no-color", false, "disable colorized output")
	flag.IntVar(&o.OperandSz, "operand-size", 32, "default operand size in bits, used to round Concrete(Z) configuration values")
	flag.Parse()
	return o
}

func main() {
	opts := parseOpts()
	if opts.BinPath == "" {
		log.Fatal("bindomctl: -bin is required")
	}
	colorize.SetEnabled(!opts.NoColor)

	backing, err := domain.Open(opts.BinPath)
	if err != nil {
		log.Fatalf("bindomctl: %v", err)
	}
	defer backing.Close()

	log.Printf("loaded %s: %d sections", opts.BinPath, len(backing.Sections()))
	for _, s := range backing.Sections() {
		fmt.Printf("  %-20s va=%s size=0x%x\n", s.Name, s.VirtAddr, s.VirtSize)
	}

	ops := value.ConcreteTaintOps
	state := domain.Init[value.CT]()

	if opts.ConfigPath != "" {
		state, err = applyConfig(state, opts.ConfigPath, opts.OperandSz, ops)
		if err != nil {
			log.Fatalf("bindomctl: %v", err)
		}
	}

	state, err = runDemoSequence(state, backing, ops)
	if err != nil {
		log.Fatalf("bindomctl: %v", err)
	}

	fmt.Println(state.String())
}

// scratchBase is an address range outside of any loaded section, used
// purely to give the demo sequence somewhere to write; it is not
// meant to resemble a real program's memory layout.
const scratchBase = isa.Address(0x10000000)

// runDemoSequence exercises set, compare, copy_chars and copy_hex
// end-to-end against the seeded state, the way a scripted driver would
// before handing the state off to a fixpoint analysis.
func runDemoSequence(state domain.State[value.CT], b *domain.Backing, ops value.Ops[value.CT]) (domain.State[value.CT], error) {
	ecx, ok := isa.ParseRegister("ecx")
	if !ok {
		return state, fmt.Errorf("bindomctl: could not resolve the ecx register")
	}

	state, _ = domain.Set(state, domain.RegLval{Reg: ecx}, domain.ConstExpr{Word: isa.NewWord(32, 0x2a)}, b, ops)
	state, _ = domain.Compare(state, domain.RegExpr{Reg: ecx}, value.EQ, domain.ConstExpr{Word: isa.NewWord(32, 0x2a)}, b, ops)

	for i, ch := range []byte("ok\x00") {
		dst := domain.MemLval{Addr: domain.ConstExpr{Word: isa.NewWord(64, uint64(scratchBase)+uint64(i))}, SizeBits: 8}
		state, _ = domain.Set(state, dst, domain.ConstExpr{Word: isa.NewWord(8, uint64(ch))}, b, ops)
	}

	var err error
	state, err = domain.CopyChars(state,
		domain.ConstExpr{Word: isa.NewWord(64, uint64(scratchBase)+0x100)},
		domain.ConstExpr{Word: isa.NewWord(64, uint64(scratchBase))},
		8, b, ops, nil)
	if err != nil {
		return state, err
	}

	state, err = domain.CopyHex(state,
		domain.ConstExpr{Word: isa.NewWord(64, uint64(scratchBase)+0x200)},
		domain.RegExpr{Reg: ecx}, 8, true, nil, 32, b, ops)
	if err != nil {
		return state, err
	}

	return state, nil
}

func applyConfig(state domain.State[value.CT], path string, operandSz int, ops value.Ops[value.CT]) (domain.State[value.CT], error) {
	file, err := config.Load(path)
	if err != nil {
		return state, err
	}

	for _, rb := range file.Registers {
		r, err := rb.RegisterValue()
		if err != nil {
			return state, err
		}
		region, err := rb.RegionValue()
		if err != nil {
			return state, err
		}
		content, err := rb.Value.Content()
		if err != nil {
			return state, err
		}
		pattern, err := rb.Taint.Pattern()
		if err != nil {
			return state, err
		}
		state = domain.SetRegisterFromConfig(state, r, region, content, pattern, ops)
	}

	for _, mb := range file.Memory {
		region, err := mb.RegionValue()
		if err != nil {
			return state, err
		}
		content, err := mb.Value.Content()
		if err != nil {
			return state, err
		}
		pattern, err := mb.Taint.Pattern()
		if err != nil {
			return state, err
		}
		nb := mb.Count
		if nb < 1 {
			nb = 1
		}
		state, err = domain.SetMemoryFromConfig(state, isa.Address(mb.Address), region, content, pattern, nb, operandSz, ops)
		if err != nil {
			return state, err
		}
	}

	return state, nil
}
