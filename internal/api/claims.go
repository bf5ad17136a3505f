package api

import "context"

type contextKey string

const userClaimsKey contextKey = "user_claims"

// UserClaims is the authenticated identity handlers read from the
// request context. The auth middleware populates it after validating
// the access token.
type UserClaims struct {
	UserID   string
	Username string
}

func WithUserClaims(ctx context.Context, claims *UserClaims) context.Context {
	return context.WithValue(ctx, userClaimsKey, claims)
}

func GetUserClaims(ctx context.Context) *UserClaims {
	claims, _ := ctx.Value(userClaimsKey).(*UserClaims)
	return claims
}
