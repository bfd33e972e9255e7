package sobfile

// Reader iterates records in index order.
//
//	r := f.NewReader()
//	for r.Next() {
//	    use(r.Record())
//	}
//	if err := r.Err(); err != nil { ... }
type Reader struct {
	f   *SOBFile
	i   int
	rec []byte
	err error
}

func (f *SOBFile) NewReader() *Reader {
	return &Reader{f: f}
}

func (r *Reader) Next() bool {
	if r.err != nil || r.i >= r.f.Len() {
		return false
	}

	rec, err := r.f.Get(r.i)

	if err != nil {
		r.err = err
		return false
	}

	r.rec = rec
	r.i++

	return true
}

// Record returns the record read by the last successful Next. The slice is
// owned by the caller.
func (r *Reader) Record() []byte {
	return r.rec
}

func (r *Reader) Err() error {
	return r.err
}
