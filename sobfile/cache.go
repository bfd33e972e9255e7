package sobfile

import "github.com/go-kit/log/level"

// FillCache pre-populates the read cache for the current sorted state,
// bounded by the configured capacity.
//
// Unsorted files cache the leading records, which favors linear scans.
// Sorted files cache the records a binary search would probe, in probe
// order, so that lookups bounded by the capacity never touch the disk.
//
// The cache is not refreshed automatically; call FillCache again after
// mutating the file.
func (f *SOBFile) FillCache() error {
	if f.closed {
		return FileClosed
	}

	if f.cacheCap <= 0 {
		return nil
	}

	var indexes []int

	if f.Sorted() {
		indexes = bisectIndexes(0, f.length, f.cacheCap)
	} else {
		n := f.cacheCap

		if f.length < n {
			n = f.length
		}

		indexes = make([]int, n)

		for i := range indexes {
			indexes[i] = i
		}
	}

	// populate straight from disk so a refill replaces stale entries
	for _, i := range indexes {
		item, err := f.readAt(i)

		if err != nil {
			return err
		}

		f.cache[i] = item
	}

	level.Debug(f.logger).Log("msg", "cache filled", "entries", len(indexes), "sorted", f.Sorted())

	return nil
}

// bisectIndexes enumerates the midpoints a binary search over [lo, hi)
// would probe, in probe order, limited to budget entries. After emitting a
// midpoint the remaining budget is split between the two halves, the lower
// half taking the extra probe when the split is odd.
func bisectIndexes(lo, hi, budget int) []int {
	out := make([]int, 0, budget)

	var walk func(lo, hi, budget int)

	walk = func(lo, hi, budget int) {
		if budget <= 0 || lo >= hi {
			return
		}

		mid := int(uint(lo+hi) >> 1)
		out = append(out, mid)
		budget--

		down := (budget + 1) / 2

		walk(lo, mid, down)
		walk(mid+1, hi, budget-down)
	}

	walk(lo, hi, budget)

	return out
}
