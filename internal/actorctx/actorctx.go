package actorctx

import (
	"context"

	"github.com/geocoder89/favfilms/internal/auth"
)

type ctxKey struct{}

func WithSubject(ctx context.Context, s auth.Subject) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func SubjectFrom(ctx context.Context) (auth.Subject, bool) {
	v, ok := ctx.Value(ctxKey{}).(auth.Subject)

	return v, ok && v.ID != ""
}
