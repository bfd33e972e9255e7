package sobfile

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// On-disk layout: an 8 byte magic followed by three little-endian uint32
// fields (header size, flags, item size), zero padding up to the header
// size, then the records.
const (
	MinHeaderSize = 32

	magicSize        = 8
	offsetHeaderSize = magicSize
	offsetFlags      = offsetHeaderSize + 4
	offsetItemSize   = offsetFlags + 4
)

var magic = []byte("SOB\x00\x00\x00\x00\x00")

// Flags is the header bit set. Bits beyond FlagSorted are reserved.
type Flags uint32

const FlagSorted Flags = 1 << 0

func (fl Flags) Has(b Flags) bool {
	return fl&b == b
}

type fileHeader struct {
	headerSize uint32
	flags      Flags
	itemSize   uint32
	numItems   int
	raw        []byte
}

// parseHeader reads and validates the header and derives the record count
// from the file size.
func (f *SOBFile) parseHeader() (fileHeader, error) {
	var h fileHeader

	buf := make([]byte, MinHeaderSize)

	if _, err := f.fh.ReadAt(buf, 0); err != nil {
		return h, errors.Wrap(err, "read header")
	}

	if !bytes.Equal(buf[:magicSize], magic) {
		return h, InvalidMagic
	}

	h.headerSize = binary.LittleEndian.Uint32(buf[offsetHeaderSize:])
	h.flags = Flags(binary.LittleEndian.Uint32(buf[offsetFlags:]))
	h.itemSize = binary.LittleEndian.Uint32(buf[offsetItemSize:])

	if h.headerSize < MinHeaderSize {
		return h, errors.Wrapf(InvalidHeaderSize, "%d < %d", h.headerSize, MinHeaderSize)
	}

	// read rest of header
	if h.headerSize > MinHeaderSize {
		rest := make([]byte, h.headerSize-MinHeaderSize)

		if _, err := f.fh.ReadAt(rest, MinHeaderSize); err != nil {
			return h, errors.Wrap(err, "read extended header")
		}

		buf = append(buf, rest...)
	}

	h.raw = buf

	stat, err := f.fh.Stat()

	if err != nil {
		return h, errors.Wrap(err, "stat")
	}

	data := stat.Size() - int64(h.headerSize)

	if data < 0 {
		return h, TruncatedFile
	}

	if h.itemSize == 0 {
		if data != 0 {
			return h, TruncatedFile
		}

		return h, nil
	}

	if data%int64(h.itemSize) != 0 {
		return h, TruncatedFile
	}

	h.numItems = int(data / int64(h.itemSize))

	return h, nil
}

// writeNewHeader lays out a fresh header for a file opened in write mode:
// magic, zero padding up to the header size, then the header size field.
// Flags and item size stay zero until set.
func (f *SOBFile) writeNewHeader() error {
	buf := make([]byte, f.headerSize)
	copy(buf, magic)
	binary.LittleEndian.PutUint32(buf[offsetHeaderSize:], f.headerSize)

	if _, err := f.fh.WriteAt(buf, 0); err != nil {
		return errors.Wrap(err, "write header")
	}

	return errors.Wrap(f.fh.Truncate(int64(f.headerSize)), "truncate to header")
}

func (f *SOBFile) writeHeaderField(offset int64, value uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)

	_, err := f.fh.WriteAt(buf[:], offset)

	return errors.Wrap(err, "write header field")
}

// setFlags persists the union of the current flags and v. No-op when the
// bits are already set.
func (f *SOBFile) setFlags(v Flags) error {
	if f.flags.Has(v) {
		return nil
	}

	f.flags |= v

	return f.writeHeaderField(offsetFlags, uint32(f.flags))
}

// unsetFlags persists the removal of v. No-op when the bits are already
// clear.
func (f *SOBFile) unsetFlags(v Flags) error {
	if f.flags&v == 0 {
		return nil
	}

	f.flags &^= v

	return f.writeHeaderField(offsetFlags, uint32(f.flags))
}
