package pool

import (
	"bytes"
	"sync"
)

// maxRetainedBuffer буферы крупнее не возвращаются в пул
const maxRetainedBuffer = 4 << 20

// ObjectPools содержит пулы объектов для переиспользования при рендеринге выгрузок
type ObjectPools struct {
	bufferPool sync.Pool
}

// Global пулы объектов
var Global = &ObjectPools{
	bufferPool: sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	},
}

// GetBuffer получает пустой буфер из пула
func (p *ObjectPools) GetBuffer() *bytes.Buffer {
	buf := p.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer возвращает буфер в пул
func (p *ObjectPools) PutBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxRetainedBuffer {
		return
	}
	p.bufferPool.Put(buf)
}
