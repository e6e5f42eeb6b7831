package stage

import "sync"

// Viewport is the rectangle the logo bounces in. Resize notifies
// subscribers synchronously in registration order.
type Viewport struct {
	mu        sync.Mutex
	width     int
	height    int
	label     string
	listeners []func(w, h int)
}

func NewViewport(w, h int, label string) *Viewport {
	return &Viewport{width: w, height: h, label: label}
}

func (v *Viewport) Size() (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.width, v.height
}

func (v *Viewport) Label() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.label
}

// Measured reports whether both dimensions are positive.
func (v *Viewport) Measured() bool {
	w, h := v.Size()
	return w > 0 && h > 0
}

func (v *Viewport) OnResize(fn func(w, h int)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners = append(v.listeners, fn)
}

// Resize changes the size; listeners run only when it actually changed.
func (v *Viewport) Resize(w, h int) {
	v.mu.Lock()
	if v.width == w && v.height == h {
		v.mu.Unlock()
		return
	}
	v.width, v.height = w, h
	listeners := make([]func(w, h int), len(v.listeners))
	copy(listeners, v.listeners)
	v.mu.Unlock()

	for _, fn := range listeners {
		fn(w, h)
	}
}

func (v *Viewport) setPreset(w, h int, label string) {
	v.mu.Lock()
	v.label = label
	v.mu.Unlock()
	v.Resize(w, h)
}
