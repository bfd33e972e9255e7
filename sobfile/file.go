package sobfile

import (
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"sob/config"
)

// SOBFile is a flat file holding a fixed-layout header followed by a
// contiguous array of equal-size byte records, exposed as a random-access,
// appendable, in-place-sortable sequence.
//
// The read cache is never invalidated on Set or Append; callers that mix
// mutation with cached reads must call FillCache again to refresh it.
// Clear does drop the cache.
//
// A SOBFile owns its handle exclusively. It is not safe for concurrent
// use; callers needing shared access must serialize externally.
type SOBFile struct {
	logger  log.Logger
	metrics *FileMetrics

	path string
	fh   *os.File
	mode config.Mode

	headerSize uint32
	itemSize   uint32
	flags      Flags
	length     int
	closed     bool

	cacheCap int
	cache    map[int][]byte

	bufPool *batchPool
}

// Open opens or creates a record file at path according to opts.Mode.
//
// Write mode truncates/creates the file and writes a fresh header; the
// item size must then be set before the first Append. Read and append
// modes parse and validate the existing header, failing with InvalidMagic
// or TruncatedFile as appropriate.
func Open(logger log.Logger, registerer prometheus.Registerer, path string, opts config.FileOptions) (*SOBFile, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	f := &SOBFile{
		logger:     logger,
		path:       path,
		mode:       opts.Mode,
		headerSize: MinHeaderSize,
		cacheCap:   opts.CacheCapacity,
		cache:      make(map[int][]byte),
		bufPool:    newBatchPool(),
	}

	var reg prometheus.Registerer

	if registerer != nil {
		reg = prometheus.WrapRegistererWithPrefix("sobfile_", registerer)
	}

	f.metrics = NewFileMetrics(reg)

	switch opts.Mode {
	case config.ModeWrite:
		fh, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)

		if err != nil {
			return nil, errors.Wrap(err, "create file")
		}

		f.fh = fh

		if err := f.writeNewHeader(); err != nil {
			fh.Close()
			return nil, err
		}

	case config.ModeRead, config.ModeAppend:
		var (
			fh  *os.File
			err error
		)

		if opts.Mode == config.ModeRead {
			fh, err = os.Open(path)
		} else {
			fh, err = os.OpenFile(path, os.O_RDWR, 0)
		}

		if err != nil {
			return nil, errors.Wrap(err, "open file")
		}

		f.fh = fh

		h, err := f.parseHeader()

		if err != nil {
			fh.Close()
			return nil, err
		}

		f.headerSize = h.headerSize
		f.flags = h.flags
		f.itemSize = h.itemSize
		f.length = h.numItems

	default:
		return nil, errors.Wrapf(config.InvalidMode, "'%s'", opts.Mode)
	}

	level.Debug(f.logger).Log("msg", "file opened", "path", path, "mode", opts.Mode, "items", f.length, "itemsize", f.itemSize)

	return f, nil
}

// With opens a file, runs fn against it and closes it on every exit path,
// including a panic inside fn.
func With(logger log.Logger, registerer prometheus.Registerer, path string, opts config.FileOptions, fn func(*SOBFile) error) (err error) {
	f, err := Open(logger, registerer, path, opts)

	if err != nil {
		return err
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(f)
}

// Close releases the file handle. Further operations fail with FileClosed.
func (f *SOBFile) Close() error {
	if f.closed {
		return FileAlreadyClosed
	}

	f.closed = true

	return errors.Wrap(f.fh.Close(), "close file")
}

func (f *SOBFile) Closed() bool {
	return f.closed
}

func (f *SOBFile) Path() string {
	return f.path
}

func (f *SOBFile) Mode() config.Mode {
	return f.mode
}

func (f *SOBFile) Flags() Flags {
	return f.flags
}

// Sorted reports whether the header asserts the records are in
// non-decreasing byte order.
func (f *SOBFile) Sorted() bool {
	return f.flags.Has(FlagSorted)
}

func (f *SOBFile) ItemSize() int {
	return int(f.itemSize)
}

// SetItemSize fixes the record width. Only valid while the file holds no
// records.
func (f *SOBFile) SetItemSize(n int) error {
	if f.closed {
		return FileClosed
	}

	if f.length != 0 {
		return errors.Wrap(SizeLocked, "item size")
	}

	if n <= 0 {
		return errors.Wrapf(InvalidItemSize, "%d", n)
	}

	f.itemSize = uint32(n)

	return f.writeHeaderField(offsetItemSize, f.itemSize)
}

func (f *SOBFile) HeaderSize() int {
	return int(f.headerSize)
}

// SetHeaderSize grows or shrinks the reserved header region. Only valid
// while the file holds no records; the file is resized immediately.
func (f *SOBFile) SetHeaderSize(n int) error {
	if f.closed {
		return FileClosed
	}

	if f.length != 0 {
		return errors.Wrap(SizeLocked, "header size")
	}

	if n < MinHeaderSize {
		return errors.Wrapf(InvalidHeaderSize, "%d < %d", n, MinHeaderSize)
	}

	if err := f.fh.Truncate(int64(n)); err != nil {
		return errors.Wrap(err, "resize header")
	}

	f.headerSize = uint32(n)

	return f.writeHeaderField(offsetHeaderSize, f.headerSize)
}
