package refcount

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/refcount/control"
)

// Config holds process-wide settings.
type Config struct {
	// Logger receives diagnostics from this package and the control
	// package. Nil means no logging.
	Logger *zap.Logger

	// LeakDetection registers a cleanup on every bound Shared and Unique
	// handle and reports handles that become unreachable while bound.
	// It costs one runtime cleanup per bind.
	LeakDetection bool
}

var (
	cfgMu         sync.Mutex
	current       Config
	leakDetection atomic.Bool
)

// Configure applies cfg and returns the previous configuration.
// Leak detection applies to handles bound after the call.
func Configure(cfg Config) Config {
	cfgMu.Lock()
	defer cfgMu.Unlock()

	prev := current
	SetLogger(cfg.Logger)
	control.SetLogger(cfg.Logger)
	leakDetection.Store(cfg.LeakDetection)
	current = cfg
	return prev
}

// CurrentConfig returns the active configuration.
func CurrentConfig() Config {
	cfgMu.Lock()
	defer cfgMu.Unlock()
	return current
}
