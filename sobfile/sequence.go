package sobfile

import (
	"bytes"

	"github.com/pkg/errors"
)

// Len returns the current record count. It is live state, maintained by
// Append and Clear rather than re-derived from the file size.
func (f *SOBFile) Len() int {
	return f.length
}

// offsetOf maps an index to its byte offset, validating bounds. A negative
// index i addresses the abs(i)-th record from the end of the file.
func (f *SOBFile) offsetOf(i int) (int64, error) {
	if i >= 0 {
		if i >= f.length {
			return 0, errors.Wrapf(OutOfRange, "index %d, length %d", i, f.length)
		}

		return int64(f.headerSize) + int64(i)*int64(f.itemSize), nil
	}

	if -i > f.length {
		return 0, errors.Wrapf(OutOfRange, "index %d, length %d", i, f.length)
	}

	end := int64(f.headerSize) + int64(f.length)*int64(f.itemSize)

	return end + int64(i)*int64(f.itemSize), nil
}

// Get returns a copy of the record at index i. The cache is consulted
// first; a miss reads straight from the file without populating the cache.
func (f *SOBFile) Get(i int) ([]byte, error) {
	if f.closed {
		return nil, FileClosed
	}

	if item, ok := f.cache[i]; ok {
		f.metrics.cacheHits.Inc()

		out := make([]byte, len(item))
		copy(out, item)

		return out, nil
	}

	f.metrics.cacheMisses.Inc()

	return f.readAt(i)
}

// readAt reads the record at index i from disk, bypassing the cache.
func (f *SOBFile) readAt(i int) ([]byte, error) {
	offset, err := f.offsetOf(i)

	if err != nil {
		return nil, err
	}

	buf := make([]byte, f.itemSize)

	if _, err := f.fh.ReadAt(buf, offset); err != nil {
		return nil, errors.Wrapf(err, "read record %d", i)
	}

	f.metrics.reads.Inc()

	return buf, nil
}

// Set overwrites the record at index i in place. The value must be exactly
// item size bytes. A successful write clears the sorted flag.
func (f *SOBFile) Set(i int, value []byte) error {
	if f.closed {
		return FileClosed
	}

	if f.itemSize == 0 || len(value) != int(f.itemSize) {
		return errors.Wrapf(SizeMismatch, "len(value)=%d but itemsize=%d", len(value), f.itemSize)
	}

	offset, err := f.offsetOf(i)

	if err != nil {
		return err
	}

	if _, err := f.fh.WriteAt(value, offset); err != nil {
		return errors.Wrapf(err, "write record %d", i)
	}

	f.metrics.writes.Inc()

	if f.Sorted() {
		return f.unsetFlags(FlagSorted)
	}

	return nil
}

// Append writes a record at the end of the file and bumps the length.
// A successful append clears the sorted flag.
func (f *SOBFile) Append(value []byte) error {
	if f.closed {
		return FileClosed
	}

	if f.itemSize == 0 || len(value) != int(f.itemSize) {
		return errors.Wrapf(SizeMismatch, "len(value)=%d but itemsize=%d", len(value), f.itemSize)
	}

	offset := int64(f.headerSize) + int64(f.length)*int64(f.itemSize)

	if _, err := f.fh.WriteAt(value, offset); err != nil {
		return errors.Wrap(err, "append record")
	}

	f.length++
	f.metrics.appends.Inc()

	if f.Sorted() {
		return f.unsetFlags(FlagSorted)
	}

	return nil
}

// AppendAll appends a batch of records with a single write. All values are
// validated before any byte hits the file.
func (f *SOBFile) AppendAll(values [][]byte) error {
	if f.closed {
		return FileClosed
	}

	for i, value := range values {
		if f.itemSize == 0 || len(value) != int(f.itemSize) {
			return errors.Wrapf(SizeMismatch, "value %d: len=%d but itemsize=%d", i, len(value), f.itemSize)
		}
	}

	if len(values) == 0 {
		return nil
	}

	batch := f.bufPool.GetBatch(len(values) * int(f.itemSize))
	defer f.bufPool.PutBatch(batch)

	for _, value := range values {
		*batch = append(*batch, value...)
	}

	offset := int64(f.headerSize) + int64(f.length)*int64(f.itemSize)

	if _, err := f.fh.WriteAt(*batch, offset); err != nil {
		return errors.Wrap(err, "append batch")
	}

	f.length += len(values)
	f.metrics.appends.Add(float64(len(values)))

	if f.Sorted() {
		return f.unsetFlags(FlagSorted)
	}

	return nil
}

// Clear truncates the file back to its header, drops all records and
// empties the cache.
func (f *SOBFile) Clear() error {
	if f.closed {
		return FileClosed
	}

	if err := f.fh.Truncate(int64(f.headerSize)); err != nil {
		return errors.Wrap(err, "truncate to header")
	}

	f.length = 0
	f.cache = make(map[int][]byte)

	return nil
}

// Insert is not supported: the format has no way to shift records.
func (f *SOBFile) Insert(int, []byte) error {
	return errors.Wrap(NotImplemented, "insert")
}

// Delete is not supported: the format has no way to shift records.
func (f *SOBFile) Delete(int) error {
	return errors.Wrap(NotImplemented, "delete")
}

// GetRange is not supported. It fails outright rather than degrading to an
// element-wise loop.
func (f *SOBFile) GetRange(start, stop, step int) ([][]byte, error) {
	return nil, errors.Wrap(NotImplemented, "slicing")
}

// SetRange is not supported. It fails outright rather than degrading to an
// element-wise loop.
func (f *SOBFile) SetRange(start, stop, step int, values [][]byte) error {
	return errors.Wrap(NotImplemented, "slicing")
}

// Count returns the number of records equal to value.
func (f *SOBFile) Count(value []byte) (int, error) {
	if f.closed {
		return 0, FileClosed
	}

	n := 0
	r := f.NewReader()

	for r.Next() {
		if bytes.Equal(r.Record(), value) {
			n++
		}
	}

	if err := r.Err(); err != nil {
		return 0, err
	}

	return n, nil
}

// Index returns the smallest index whose record equals value, searching
// the whole file.
func (f *SOBFile) Index(value []byte) (int, error) {
	return f.IndexRange(value, 0, -1)
}

// IndexRange searches [start, end). An end below start, negative or past
// the last record defaults to the record count. Unsorted files are scanned
// linearly; sorted files use a leftmost binary search over the raw record
// bytes. A miss fails with NotFound.
func (f *SOBFile) IndexRange(value []byte, start, end int) (int, error) {
	if f.closed {
		return 0, FileClosed
	}

	if start < 0 {
		start = 0
	}

	if end < 0 || end < start || end > f.length {
		end = f.length
	}

	if !f.Sorted() {
		// linear search
		for i := start; i < end; i++ {
			item, err := f.Get(i)

			if err != nil {
				return 0, err
			}

			if bytes.Equal(item, value) {
				return i, nil
			}
		}

		return 0, errors.Wrapf(NotFound, "%q", value)
	}

	i, err := f.bisectLeft(value, start, end)

	if err != nil {
		return 0, err
	}

	if i >= f.length {
		return 0, errors.Wrapf(NotFound, "%q", value)
	}

	item, err := f.Get(i)

	if err != nil {
		return 0, err
	}

	if !bytes.Equal(item, value) {
		return 0, errors.Wrapf(NotFound, "%q", value)
	}

	return i, nil
}

// bisectLeft returns the smallest index in [lo, hi) whose record is not
// less than value, or hi if all records are smaller.
func (f *SOBFile) bisectLeft(value []byte, lo, hi int) (int, error) {
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)

		item, err := f.Get(mid)

		if err != nil {
			return 0, err
		}

		if bytes.Compare(item, value) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	return lo, nil
}
