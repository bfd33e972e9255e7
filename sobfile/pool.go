package sobfile

import "sync"

// batchPool recycles the scratch buffers AppendAll concatenates a record
// batch into before its single write.
type batchPool struct {
	pool sync.Pool
}

func newBatchPool() *batchPool {
	return &batchPool{
		pool: sync.Pool{
			New: func() any {
				return new([]byte)
			},
		},
	}
}

// GetBatch returns an empty buffer with room for at least capacity bytes.
func (p *batchPool) GetBatch(capacity int) *[]byte {
	buf := p.pool.Get().(*[]byte)

	if cap(*buf) < capacity {
		*buf = make([]byte, 0, capacity)
	}

	return buf
}

func (p *batchPool) PutBatch(b *[]byte) {
	*b = (*b)[:0]

	p.pool.Put(b)
}
