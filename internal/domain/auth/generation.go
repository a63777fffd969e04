package auth

import (
	"errors"
	"sync"
)

// ErrSessionChanged means the session was cleared or replaced while a refresh
// was in flight, so its result was dropped.
var ErrSessionChanged = errors.New("session changed during refresh")

// Generation orders credential writes between the token guard and the session
// manager. Opening or clearing a session advances it; a refresh that started in
// an older generation does not get to persist its result.
type Generation struct {
	mu sync.Mutex
	n  uint64
}

func (g *Generation) Current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Commit runs write only while gen is still current. It returns ErrSessionChanged
// otherwise, without calling write.
func (g *Generation) Commit(gen uint64, write func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.n != gen {
		return ErrSessionChanged
	}
	return write()
}

// Advance runs change and starts a new generation, even when change fails.
func (g *Generation) Advance(change func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return change()
}
