package scene

import "sync"

// Playhead is the current frame of the scene. It implements
// animation.FrameEvents and notifies subscribers synchronously.
type Playhead struct {
	mu       sync.Mutex
	frame    int
	handlers map[int]func(frame int)
	nextID   int
}

// NewPlayhead starts at frame
func NewPlayhead(frame int) *Playhead {
	return &Playhead{frame: frame, handlers: make(map[int]func(int))}
}

// OnFrameChange registers fn and returns its unregister function
func (p *Playhead) OnFrameChange(fn func(frame int)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.handlers, id)
	}
}

// SetFrame moves the playhead and calls every handler
func (p *Playhead) SetFrame(frame int) {
	p.mu.Lock()
	p.frame = frame
	handlers := make([]func(int), 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(frame)
	}
}

// Frame returns the current frame
func (p *Playhead) Frame() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame
}

// Subscribers returns how many handlers are registered
func (p *Playhead) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handlers)
}
