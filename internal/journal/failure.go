package journal

import "context"

type failureKey struct{}

type failureSlot struct {
	err error
}

// TrackFailure returns a context under which the store records the storage
// error behind a false ok, and a function that reports it. The store keeps
// its fail-soft signatures; callers that want the cause opt in per call.
func TrackFailure(ctx context.Context) (context.Context, func() error) {
	slot := &failureSlot{}
	return context.WithValue(ctx, failureKey{}, slot), func() error { return slot.err }
}

// noteFailure records err in the context's slot, if there is one.
func noteFailure(ctx context.Context, err error) {
	if slot, ok := ctx.Value(failureKey{}).(*failureSlot); ok {
		slot.err = err
	}
}
