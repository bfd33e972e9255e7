package sobfile

import (
	"bytes"
	"time"

	"github.com/go-kit/log/level"
)

// KeyFunc extracts the comparison key from a record. A nil KeyFunc
// compares the raw record bytes.
type KeyFunc func([]byte) []byte

// Sequence is the capability set the sort depends on. Any file-backed
// sequence satisfying it can be sorted without loading it into memory.
type Sequence interface {
	Len() int
	Get(i int) ([]byte, error)
	Set(i int, value []byte) error
}

// Sort orders the records in place in non-decreasing byte order, or in
// key order when key is non-nil, and sets the sorted flag on success.
//
// Sorting goes straight to disk, so an interrupted sort leaves a
// partially reordered but structurally valid file with the sorted flag
// still clear. Note that IndexRange always compares raw record bytes; a
// file sorted under a non-identity key is not binary-searchable.
func (f *SOBFile) Sort(key KeyFunc) error {
	if f.closed {
		return FileClosed
	}

	start := time.Now()

	// bypass the cache so stale entries cannot leak into the ordering
	if err := quickSort(diskSequence{f}, 0, f.length-1, key); err != nil {
		return err
	}

	f.metrics.sortDuration.Observe(time.Since(start).Seconds())

	level.Debug(f.logger).Log("msg", "file sorted", "items", f.length, "duration", time.Since(start))

	return f.setFlags(FlagSorted)
}

// diskSequence exposes the file as a Sequence whose reads skip the cache.
type diskSequence struct {
	f *SOBFile
}

func (s diskSequence) Len() int { return s.f.Len() }

func (s diskSequence) Get(i int) ([]byte, error) {
	if s.f.closed {
		return nil, FileClosed
	}

	return s.f.readAt(i)
}

func (s diskSequence) Set(i int, value []byte) error {
	return s.f.Set(i, value)
}

func keyOf(item []byte, key KeyFunc) []byte {
	if key == nil {
		return item
	}

	return key(item)
}

// quickSort sorts s[lo..hi] in place through the Sequence contract.
func quickSort(s Sequence, lo, hi int, key KeyFunc) error {
	if lo >= hi {
		return nil
	}

	p, err := partition(s, lo, hi, key)

	if err != nil {
		return err
	}

	if err := quickSort(s, lo, p-1, key); err != nil {
		return err
	}

	return quickSort(s, p+1, hi, key)
}

func partition(s Sequence, lo, hi int, key KeyFunc) (int, error) {
	pivot, err := s.Get(hi)

	if err != nil {
		return 0, err
	}

	pivotKey := keyOf(pivot, key)

	i := lo - 1

	for j := lo; j < hi; j++ {
		item, err := s.Get(j)

		if err != nil {
			return 0, err
		}

		if bytes.Compare(keyOf(item, key), pivotKey) <= 0 {
			i++

			if err := swap(s, i, j); err != nil {
				return 0, err
			}
		}
	}

	if err := swap(s, i+1, hi); err != nil {
		return 0, err
	}

	return i + 1, nil
}

func swap(s Sequence, i, j int) error {
	if i == j {
		return nil
	}

	a, err := s.Get(i)

	if err != nil {
		return err
	}

	b, err := s.Get(j)

	if err != nil {
		return err
	}

	if err := s.Set(i, b); err != nil {
		return err
	}

	return s.Set(j, a)
}
