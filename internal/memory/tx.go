package memory

import "context"

type txKey struct{}

// inTx reports whether ctx was handed out by a WithTx of the given store.
func inTx(ctx context.Context, owner any) bool {
	return ctx.Value(txKey{}) == owner
}

func withOwner(ctx context.Context, owner any) context.Context {
	return context.WithValue(ctx, txKey{}, owner)
}
