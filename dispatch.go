package refcount

import (
	"go.uber.org/zap"

	"github.com/wippyai/refcount/control"
)

// Reclaimer is implemented by types that take over reclamation once the last
// owner is gone, typically to return the object to a pool or to defer the
// free past concurrent readers.
type Reclaimer interface {
	OnZeroReached()
}

// Dropper is implemented by types that release resources when destroyed.
// It is consulted only when the type is not a Reclaimer.
type Dropper interface {
	Drop()
}

// destroy runs once per object lifetime, after the strong count reached zero.
// Weak handles are detached first so no upgrade can observe a half-destroyed
// object.
func destroy(o *Object) {
	control.NotifyDeadAndDetach(&o.slot)

	v := o.target
	path := dispatch(v)

	if ce := Logger().Check(zap.DebugLevel, "object destroyed"); ce != nil {
		ce.Write(zap.String("type", typeName(v)), zap.String("dispatch", path))
	}
	emit(EventDestroyed, v)
}

func dispatch(v any) string {
	switch d := v.(type) {
	case Reclaimer:
		d.OnZeroReached()
		return "reclaimer"
	case Dropper:
		d.Drop()
		return "dropper"
	default:
		return "default"
	}
}

func releaseShared(o *Object) {
	zero, wasUnique := o.strong.ReleaseShared()
	if wasUnique {
		Logger().Error("shared release on unique object",
			zap.String("type", typeName(o.target)))
	}
	if zero {
		destroy(o)
	}
}
