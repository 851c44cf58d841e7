// Copyright © 2024 The ELPS authors

package identity

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrUnknownFormat is returned by ReadName for files that are not ELF,
	// Mach-O or PE objects.
	ErrUnknownFormat = errors.New("unknown object file format")
	// ErrNoName is returned by ReadName for objects that declare no name.
	ErrNoName = errors.New("object declares no library name")
)

// ReadName returns the name a shared library declares for itself: DT_SONAME
// for ELF, the LC_ID_DYLIB install name for Mach-O and the export directory
// name for PE.  Only file metadata is read.
func ReadName(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // candidate libraries come from the search path
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck // read only

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return "", fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
	var name string
	switch {
	case bytes.Equal(magic[:], []byte(elf.ELFMAG)):
		name, err = elfName(f)
	case isMachO(magic):
		name, err = machoName(f)
	case magic[0] == 'M' && magic[1] == 'Z':
		name, err = peName(f)
	default:
		return "", fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if name == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoName)
	}
	return name, nil
}

func elfName(r io.ReaderAt) (string, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return "", err
	}
	names, err := f.DynString(elf.DT_SONAME)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[0], nil
}

func isMachO(magic [4]byte) bool {
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		switch order.Uint32(magic[:]) {
		case macho.Magic32, macho.Magic64, macho.MagicFat:
			return true
		}
	}
	return false
}

const loadCmdIDDylib macho.LoadCmd = 0xd

func machoName(r io.ReaderAt) (string, error) {
	f, err := macho.NewFile(r)
	if err != nil {
		fat, ferr := macho.NewFatFile(r)
		if ferr != nil || len(fat.Arches) == 0 {
			return "", err
		}
		f = fat.Arches[0].File
	}
	for _, l := range f.Loads {
		raw := l.Raw()
		if len(raw) < 12 || macho.LoadCmd(f.ByteOrder.Uint32(raw[0:4])) != loadCmdIDDylib {
			continue
		}
		off := f.ByteOrder.Uint32(raw[8:12])
		if int(off) >= len(raw) {
			return "", errors.New("malformed LC_ID_DYLIB command")
		}
		return cstring(raw[off:]), nil
	}
	return "", nil
}

func peName(r io.ReaderAt) (string, error) {
	f, err := pe.NewFile(r)
	if err != nil {
		return "", err
	}
	var dirs []pe.DataDirectory
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		dirs = oh.DataDirectory[:min(int(oh.NumberOfRvaAndSizes), len(oh.DataDirectory))]
	case *pe.OptionalHeader64:
		dirs = oh.DataDirectory[:min(int(oh.NumberOfRvaAndSizes), len(oh.DataDirectory))]
	}
	if len(dirs) <= pe.IMAGE_DIRECTORY_ENTRY_EXPORT {
		return "", nil
	}
	exp := dirs[pe.IMAGE_DIRECTORY_ENTRY_EXPORT]
	if exp.VirtualAddress == 0 {
		return "", nil
	}
	dir, err := peRead(f, exp.VirtualAddress, 16)
	if err != nil {
		return "", err
	}
	nameRVA := binary.LittleEndian.Uint32(dir[12:16])
	b, err := peRead(f, nameRVA, 0)
	if err != nil {
		return "", err
	}
	return cstring(b), nil
}

// peRead returns the section data at rva.  When n is zero the remainder of
// the section is returned.
func peRead(f *pe.File, rva uint32, n uint32) ([]byte, error) {
	for _, s := range f.Sections {
		if rva < s.VirtualAddress || rva >= s.VirtualAddress+s.VirtualSize {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, err
		}
		off := rva - s.VirtualAddress
		if off >= uint32(len(data)) || (n > 0 && off+n > uint32(len(data))) {
			break
		}
		if n == 0 {
			return data[off:], nil
		}
		return data[off : off+n], nil
	}
	return nil, fmt.Errorf("rva %#x is outside the image", rva)
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
