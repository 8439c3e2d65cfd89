// Package noff reads and writes the header of NOFF executables, the simple
// object format user programs are loaded from.
package noff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/vmsim/mem/vm"
)

// Magic identifies a NOFF file.
const Magic = 0xbadfad

// HeaderSize is the size of the encoded header in bytes.
const HeaderSize = 40

// A Segment locates one part of the program in the file and in memory.
type Segment struct {
	VirtualAddr int32
	InFileAddr  int32
	Size        int32
}

// Header describes a NOFF executable.
type Header struct {
	Magic      int32
	Code       Segment
	InitData   Segment
	UninitData Segment
}

// ImageSize returns the bytes the program occupies in memory, stack excluded.
func (h Header) ImageSize() int {
	return int(h.Code.Size) + int(h.InitData.Size) + int(h.UninitData.Size)
}

// EntryPoint returns the address execution starts at.
func (h Header) EntryPoint() int {
	return int(h.Code.VirtualAddr)
}

func (h Header) validate() error {
	segments := []struct {
		name string
		seg  Segment
	}{
		{"code", h.Code},
		{"initialized data", h.InitData},
		{"uninitialized data", h.UninitData},
	}

	for _, s := range segments {
		if s.seg.Size < 0 || s.seg.VirtualAddr < 0 || s.seg.InFileAddr < 0 {
			return fmt.Errorf("%s segment %+v: %w",
				s.name, s.seg, vm.ErrBadExecutableFormat)
		}
	}

	return nil
}

// ReadHeader reads the header at the start of r. Headers written on a machine
// of the other byte order are swapped to host order.
func ReadHeader(r io.ReaderAt) (Header, error) {
	buf := make([]byte, HeaderSize)

	n, err := r.ReadAt(buf, 0)
	if n != HeaderSize {
		return Header{}, fmt.Errorf("header of %d bytes: %w",
			n, errors.Join(vm.ErrBadExecutableFormat, err))
	}

	h := decode(buf, binary.LittleEndian)
	if h.Magic != Magic {
		h = decode(buf, binary.BigEndian)
	}

	if h.Magic != Magic {
		return Header{}, fmt.Errorf("magic %#x: %w",
			uint32(h.Magic), vm.ErrBadExecutableFormat)
	}

	if err := h.validate(); err != nil {
		return Header{}, err
	}

	return h, nil
}

func decode(buf []byte, order binary.ByteOrder) Header {
	word := func(i int) int32 {
		return int32(order.Uint32(buf[i*4:]))
	}

	return Header{
		Magic:      word(0),
		Code:       Segment{word(1), word(2), word(3)},
		InitData:   Segment{word(4), word(5), word(6)},
		UninitData: Segment{word(7), word(8), word(9)},
	}
}

// Encode writes the header in the given byte order.
func (h Header) Encode(order binary.ByteOrder) []byte {
	buf := make([]byte, HeaderSize)
	words := []int32{
		h.Magic,
		h.Code.VirtualAddr, h.Code.InFileAddr, h.Code.Size,
		h.InitData.VirtualAddr, h.InitData.InFileAddr, h.InitData.Size,
		h.UninitData.VirtualAddr, h.UninitData.InFileAddr, h.UninitData.Size,
	}

	for i, w := range words {
		order.PutUint32(buf[i*4:], uint32(w))
	}

	return buf
}

// Build lays out an executable with the code segment at virtual address 0,
// the initialized data right after it, and uninitSize bytes of uninitialized
// data after that.
func Build(code, data []byte, uninitSize int) []byte {
	h := Header{
		Magic: Magic,
		Code: Segment{
			VirtualAddr: 0,
			InFileAddr:  HeaderSize,
			Size:        int32(len(code)),
		},
		InitData: Segment{
			VirtualAddr: int32(len(code)),
			InFileAddr:  int32(HeaderSize + len(code)),
			Size:        int32(len(data)),
		},
		UninitData: Segment{
			VirtualAddr: int32(len(code) + len(data)),
			Size:        int32(uninitSize),
		},
	}

	out := h.Encode(binary.LittleEndian)
	out = append(out, code...)
	out = append(out, data...)

	return out
}
