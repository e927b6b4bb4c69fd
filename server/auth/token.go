package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/tonelab/venue/config"
)

type principalKeyType struct{}

var principalKey = principalKeyType{}

// Principal identifies the caller of a mutating request.
type Principal struct {
	Name string
}

const AdminPrincipal = "admin"

var (
	ErrEmptyToken   = errors.New("received empty token")
	ErrInvalidToken = errors.New("token does not match")
)

// ExtractBearerToken extracts a Bearer token from an Authorization header value.
// Returns an empty string if the header is not present, malformed, or not a Bearer token.
func ExtractBearerToken(auth string) string {
	if auth == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

// Enabled reports whether mutating routes are guarded.
func Enabled(cfg *config.Config) bool {
	return cfg != nil && cfg.Server.AdminToken != ""
}

// VerifyAdminToken compares token against the configured admin token in constant time.
func VerifyAdminToken(cfg *config.Config, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	if !Enabled(cfg) {
		return nil, ErrInvalidToken
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Server.AdminToken)) != 1 {
		return nil, ErrInvalidToken
	}

	return &Principal{Name: AdminPrincipal}, nil
}

func AddPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func GetPrincipal(ctx context.Context) *Principal {
	p, ok := ctx.Value(principalKey).(*Principal)
	if !ok {
		return nil
	}

	return p
}
