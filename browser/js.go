//go:build js && wasm

package browser

import (
	"context"
	"syscall/js"
)

// try runs fn and returns a thrown JS exception as an error.
func try(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if je, ok := r.(js.Error); ok {
				err = je
				return
			}
			panic(r)
		}
	}()
	fn()
	return nil
}

type settled struct {
	value js.Value
	err   error
}

// await blocks the calling goroutine until promise settles. It must not be
// called from a JS callback.
func await(ctx context.Context, promise js.Value) (js.Value, error) {
	done := make(chan settled, 1)

	onResolve := js.FuncOf(func(_ js.Value, args []js.Value) any {
		done <- settled{value: arg(args, 0)}
		return nil
	})
	onReject := js.FuncOf(func(_ js.Value, args []js.Value) any {
		done <- settled{err: js.Error{Value: arg(args, 0)}}
		return nil
	})
	release := func() {
		onResolve.Release()
		onReject.Release()
	}

	promise.Call("then", onResolve, onReject)

	select {
	case r := <-done:
		release()
		return r.value, r.err
	case <-ctx.Done():
		// The callbacks stay alive until the promise settles.
		go func() {
			<-done
			release()
		}()
		return js.Undefined(), ctx.Err()
	}
}

func arg(args []js.Value, i int) js.Value {
	if i < len(args) {
		return args[i]
	}
	return js.Undefined()
}

func present(v js.Value) bool {
	return !v.IsUndefined() && !v.IsNull()
}
