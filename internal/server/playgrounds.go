package server

import (
	"context"
	"sync"
)

// Playground tracks the in-flight run of one WebSocket connection.
type Playground struct {
	mu     sync.Mutex
	cancel context.CancelFunc // nil when idle
}

// begin starts a run. It reports false when a run is already in flight.
func (p *Playground) begin() (context.Context, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil, false
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	return ctx, true
}

// finish releases the run started by begin.
func (p *Playground) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Cancel interrupts the in-flight run, if any.
func (p *Playground) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

// Busy reports whether a run is in flight.
func (p *Playground) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// PlaygroundManager tracks the open playground connections.
type PlaygroundManager struct {
	mu          sync.RWMutex
	playgrounds map[string]*Playground
}

// NewPlaygroundManager creates a new PlaygroundManager.
func NewPlaygroundManager() *PlaygroundManager {
	return &PlaygroundManager{
		playgrounds: make(map[string]*Playground),
	}
}

// Open registers a playground for a connection and returns it. Opening an
// id twice returns the same playground.
func (pm *PlaygroundManager) Open(id string) *Playground {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if p, ok := pm.playgrounds[id]; ok {
		return p
	}
	p := &Playground{}
	pm.playgrounds[id] = p
	return p
}

// Get returns an open playground if it exists.
func (pm *PlaygroundManager) Get(id string) (*Playground, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	p, ok := pm.playgrounds[id]
	return p, ok
}

// Len returns the number of open playgrounds.
func (pm *PlaygroundManager) Len() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.playgrounds)
}

// Remove closes a playground and cancels its in-flight run.
func (pm *PlaygroundManager) Remove(id string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if p, ok := pm.playgrounds[id]; ok {
		p.Cancel()
		delete(pm.playgrounds, id)
	}
}

// CloseAll cancels every in-flight run and forgets all playgrounds.
func (pm *PlaygroundManager) CloseAll() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for id, p := range pm.playgrounds {
		p.Cancel()
		delete(pm.playgrounds, id)
	}
}
