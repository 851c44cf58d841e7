// Copyright © 2024 The ELPS authors

package elpstest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// WriteELF writes a minimal 64-bit little-endian ELF shared object to name
// below dir and returns its path.  When soname is not empty the object's
// dynamic section carries it as DT_SONAME.  The object has no code and
// cannot be loaded by a dynamic linker; it only satisfies debug/elf.
func WriteELF(t testing.TB, dir, name, soname string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("fixture directory: %v", err)
	}
	if err := os.WriteFile(path, elfObject(soname), 0o600); err != nil {
		t.Fatalf("fixture file: %v", err)
	}
	return path
}

func elfObject(soname string) []byte {
	const hdrSize = 64
	le := binary.LittleEndian

	dynstr := append([]byte{0}, soname...)
	dynstr = append(dynstr, 0)
	var dyn bytes.Buffer
	if soname != "" {
		_ = binary.Write(&dyn, le, elf.Dyn64{Tag: int64(elf.DT_SONAME), Val: 1})
	}
	_ = binary.Write(&dyn, le, elf.Dyn64{Tag: int64(elf.DT_NULL)})
	shstr := []byte("\x00.dynstr\x00.dynamic\x00.shstrtab\x00")

	align := func(n int) int { return (n + 7) &^ 7 }
	dynstrOff := hdrSize
	dynOff := align(dynstrOff + len(dynstr))
	shstrOff := dynOff + dyn.Len()
	shOff := align(shstrOff + len(shstr))

	var buf bytes.Buffer
	hdr := elf.Header64{
		Type:      uint16(elf.ET_DYN),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     uint64(shOff),
		Ehsize:    hdrSize,
		Shentsize: 64,
		Shnum:     4,
		Shstrndx:  3,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	_ = binary.Write(&buf, le, hdr)

	pad := func(off int) {
		for buf.Len() < off {
			buf.WriteByte(0)
		}
	}
	pad(dynstrOff)
	buf.Write(dynstr)
	pad(dynOff)
	buf.Write(dyn.Bytes())
	pad(shstrOff)
	buf.Write(shstr)
	pad(shOff)

	sections := []elf.Section64{
		{},
		{Name: 1, Type: uint32(elf.SHT_STRTAB), Flags: uint64(elf.SHF_ALLOC), Off: uint64(dynstrOff), Size: uint64(len(dynstr)), Addralign: 1},
		{Name: 9, Type: uint32(elf.SHT_DYNAMIC), Flags: uint64(elf.SHF_ALLOC | elf.SHF_WRITE), Off: uint64(dynOff), Size: uint64(dyn.Len()), Link: 1, Addralign: 8, Entsize: 16},
		{Name: 18, Type: uint32(elf.SHT_STRTAB), Off: uint64(shstrOff), Size: uint64(len(shstr)), Addralign: 1},
	}
	for _, sh := range sections {
		_ = binary.Write(&buf, le, sh)
	}
	return buf.Bytes()
}
