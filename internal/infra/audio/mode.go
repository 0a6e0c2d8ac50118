package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrModeInUse = errors.New("audio mode already configured for another capture")

// ModeGuard guards the process-wide audio configuration. Only one holder may
// have it configured at a time; release restores it exactly once.
type ModeGuard struct {
	mu        sync.Mutex
	configure func() error
	reset     func() error
	held      bool
}

func NewModeGuard(configure, reset func() error) *ModeGuard {
	if configure == nil {
		configure = func() error { return nil }
	}
	if reset == nil {
		reset = func() error { return nil }
	}
	return &ModeGuard{configure: configure, reset: reset}
}

// NewNoopModeGuard is used by devices that do not touch host audio settings.
func NewNoopModeGuard() *ModeGuard {
	return NewModeGuard(nil, nil)
}

func (g *ModeGuard) Acquire(ctx context.Context) (func() error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held {
		return nil, ErrModeInUse
	}
	if err := g.configure(); err != nil {
		return nil, fmt.Errorf("configuring audio mode: %w", err)
	}
	g.held = true

	var once sync.Once
	release := func() error {
		var err error
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			g.held = false
			if resetErr := g.reset(); resetErr != nil {
				err = fmt.Errorf("restoring audio mode: %w", resetErr)
			}
		})
		return err
	}
	return release, nil
}

func (g *ModeGuard) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}
