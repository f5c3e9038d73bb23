package refcount

import (
	"runtime"

	"go.uber.org/zap"
)

// leakGuard reports a handle that became unreachable while still bound.
type leakGuard struct {
	cleanup runtime.Cleanup
	armed   bool
}

type leakInfo struct {
	obj    *Object
	handle string
}

func arm[H any](h *H, g *leakGuard, handle string, o *Object) {
	if !leakDetection.Load() {
		return
	}
	g.cleanup = runtime.AddCleanup(h, reportLeak, leakInfo{obj: o, handle: handle})
	g.armed = true
}

func (g *leakGuard) disarm() {
	if g.armed {
		g.cleanup.Stop()
		g.armed = false
	}
}

func reportLeak(info leakInfo) {
	v := info.obj.target
	Logger().Warn("handle leaked while bound",
		zap.String("handle", info.handle),
		zap.String("type", typeName(v)),
		zap.Uint32("owners", info.obj.strong.Count()))
	emit(EventLeaked, v)
}
