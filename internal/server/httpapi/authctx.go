package httpapi

import (
	"context"

	"github.com/and161185/bio-card/internal/model"
)

type ctxKey string

const (
	accountKey ctxKey = "bc.account"
	tokenKey   ctxKey = "bc.token"
)

// WithAccount stores the authenticated account and its bearer value in context.
func WithAccount(ctx context.Context, a *model.Account, token string) context.Context {
	ctx = context.WithValue(ctx, accountKey, a)
	return context.WithValue(ctx, tokenKey, token)
}

// AccountFromCtx fetches the authenticated account from context.
func AccountFromCtx(ctx context.Context) (*model.Account, bool) {
	a, ok := ctx.Value(accountKey).(*model.Account)
	return a, ok && a != nil
}

// TokenFromCtx fetches the raw bearer value the account authenticated with.
func TokenFromCtx(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey).(string)
	return t, ok && t != ""
}
