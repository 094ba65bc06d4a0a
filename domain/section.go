package domain

import (
	"debug/elf"
	"fmt"
	"os"
	"syscall"

	"github.com/cs-au-dk/bindom/isa"
	"github.com/cs-au-dk/bindom/value"
)

// Section maps one loaded segment's virtual address range to its
// location in the raw file image.
type Section struct {
	VirtAddr isa.Address
	VirtSize uint64
	RawAddr  uint64
	RawSize  uint64
	Name     string
}

func (s Section) containsVA(a isa.Address) bool {
	return a >= s.VirtAddr && uint64(a-s.VirtAddr) < s.VirtSize
}

// Backing is the process-wide image backing: the mmapped binary image
// plus its section table, installed once by Open and released by
// Close. It is read-only and safe to share across many State values.
type Backing struct {
	sections []Section
	image    []byte
	file     *os.File
	elfFile  *elf.File
}

// Open loads an ELF binary at path and mmaps it read-only, deriving
// the section table directly from the ELF section headers.
func Open(path string) (*Backing, error) {
	ef, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("domain: open elf: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		ef.Close()
		return nil, fmt.Errorf("domain: open file: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		ef.Close()
		return nil, fmt.Errorf("domain: stat file: %w", err)
	}

	var image []byte
	if fi.Size() > 0 {
		image, err = syscall.Mmap(int(f.Fd()), 0, int(fi.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
		if err != nil {
			f.Close()
			ef.Close()
			return nil, fmt.Errorf("domain: mmap: %w", err)
		}
	}

	b := &Backing{file: f, elfFile: ef, image: image}
	for _, s := range ef.Sections {
		if s.Addr == 0 || s.Size == 0 {
			continue
		}
		b.sections = append(b.sections, Section{
			VirtAddr: isa.Address(s.Addr),
			VirtSize: s.Size,
			RawAddr:  s.Offset,
			RawSize:  sectionRawSize(s),
			Name:     s.Name,
		})
	}
	return b, nil
}

func sectionRawSize(s *elf.Section) uint64 {
	if s.Type == elf.SHT_NOBITS {
		// .bss-like sections occupy virtual space but no file bytes.
		return 0
	}
	return s.Size
}

// Close releases the mmap and closes the underlying file handles.
func (b *Backing) Close() error {
	var firstErr error
	if b.image != nil {
		if err := syscall.Munmap(b.image); err != nil && firstErr == nil {
			firstErr = err
		}
		b.image = nil
	}
	if b.file != nil {
		if err := b.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		b.file = nil
	}
	if b.elfFile != nil {
		if err := b.elfFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		b.elfFile = nil
	}
	return firstErr
}

// Sections exposes the loaded section table (read-only).
func (b *Backing) Sections() []Section { return b.sections }

// ReadFromSections finds the section containing a and reads its byte,
// returning V.top past the raw image (e.g. inside a .bss tail), or
// ErrNotFound if no section contains a.
func ReadFromSections[V value.Value[V]](b *Backing, ops value.Ops[V], a isa.Address) (V, error) {
	if b.image == nil && len(b.sections) > 0 {
		panic("domain.ReadFromSections: image is not mapped")
	}
	for _, s := range b.sections {
		if !s.containsVA(a) {
			continue
		}
		offset := uint64(a - s.VirtAddr)
		if offset >= s.RawSize {
			return ops.Top(8), nil
		}
		idx := s.RawAddr + offset
		if idx >= uint64(len(b.image)) {
			return ops.Top(8), nil
		}
		return ops.OfWord(isa.NewWord(8, uint64(b.image[idx]))), nil
	}
	var zero V
	return zero, ErrNotFound
}
