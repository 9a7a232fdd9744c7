// Package mempool pools scratch slices by size class so the per-tick image
// passes reuse buffers instead of allocating.
package mempool

import "sync"

const classStep = 1024

// sizeClass rounds n up to the next multiple of 1024, minimum 1024.
func sizeClass(n int) int {
	if n <= classStep {
		return classStep
	}
	return (n + classStep - 1) / classStep * classStep
}

// Pool hands out []T buffers grouped by size class.
// The zero value is ready to use.
type Pool[T any] struct {
	classes sync.Map // size class -> *sync.Pool of *[]T
}

func (p *Pool[T]) class(cls int) *sync.Pool {
	if sp, ok := p.classes.Load(cls); ok {
		return sp.(*sync.Pool)
	}
	sp, _ := p.classes.LoadOrStore(cls, &sync.Pool{New: func() any {
		buf := make([]T, cls)
		return &buf
	}})
	return sp.(*sync.Pool)
}

// Get returns a buffer of length n. Its contents are unspecified; callers
// that need zeroes must clear it.
func (p *Pool[T]) Get(n int) []T {
	if n <= 0 {
		return nil
	}
	cls := sizeClass(n)
	bp := p.class(cls).Get().(*[]T)
	return (*bp)[:n]
}

// Put returns buf to the pool. Buffers not obtained from Get are dropped.
func (p *Pool[T]) Put(buf []T) {
	c := cap(buf)
	if c == 0 || c != sizeClass(c) {
		return
	}
	buf = buf[:c]
	p.class(c).Put(&buf)
}

var float32s Pool[float32]

// GetFloat32 takes a []float32 of length n from the shared pool.
func GetFloat32(n int) []float32 { return float32s.Get(n) }

// PutFloat32 returns a buffer taken with GetFloat32. Nil is ignored.
func PutFloat32(buf []float32) { float32s.Put(buf) }
