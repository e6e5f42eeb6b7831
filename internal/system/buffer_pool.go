package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// ImagePool переиспользует RGBA-буферы кадров, чтобы экспорт не нагружал GC.
// Все кадры одного экспорта одного размера, поэтому на каждый размер
// заводится свой sync.Pool.
type ImagePool struct {
	mu    sync.Mutex
	pools map[image.Point]*sync.Pool
	// выданные, но еще не возвращенные буферы
	outstanding atomic.Int64
}

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Point]*sync.Pool)}
}

var defaultPool = NewImagePool()

// DefaultPool - общий пул процесса.
func DefaultPool() *ImagePool {
	return defaultPool
}

func (p *ImagePool) forSize(size image.Point, create bool) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	pool, ok := p.pools[size]
	if !ok && create {
		pool = &sync.Pool{
			New: func() any {
				return image.NewRGBA(image.Rectangle{Max: size})
			},
		}
		p.pools[size] = pool
	}
	return pool
}

// Get выдает буфер размера rect. Содержимое не очищается.
func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	img := p.forSize(rect.Size(), true).Get().(*image.RGBA)
	img.Rect = rect
	p.outstanding.Add(1)
	return img
}

// Put возвращает буфер. Буферы чужих размеров игнорируются.
func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	pool := p.forSize(img.Rect.Size(), false)
	if pool == nil {
		return
	}
	p.outstanding.Add(-1)
	pool.Put(img)
}

// Outstanding - количество буферов, выданных и не возвращенных в пул.
func (p *ImagePool) Outstanding() int64 {
	return p.outstanding.Load()
}
