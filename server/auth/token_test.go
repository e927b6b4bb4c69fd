package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/tonelab/venue/config"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		name   string
		value  string
		expect string
	}{
		{name: "empty", value: "", expect: ""},
		{name: "no scheme", value: "token", expect: ""},
		{name: "wrong scheme", value: "Basic abc", expect: ""},
		{name: "valid", value: "Bearer abc123", expect: "abc123"},
		{name: "case insensitive", value: "bearer token", expect: "token"},
		{name: "padded", value: "Bearer  token ", expect: "token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractBearerToken(tc.value); got != tc.expect {
				t.Fatalf("ExtractBearerToken(%q) = %q, want %q", tc.value, got, tc.expect)
			}
		})
	}
}

func TestVerifyAdminToken(t *testing.T) {
	cfg := &config.Config{Server: config.Server{AdminToken: "s3cret"}}

	cases := []struct {
		name    string
		cfg     *config.Config
		token   string
		wantErr error
	}{
		{name: "match", cfg: cfg, token: "s3cret"},
		{name: "empty token", cfg: cfg, token: "", wantErr: ErrEmptyToken},
		{name: "mismatch", cfg: cfg, token: "nope", wantErr: ErrInvalidToken},
		{name: "prefix only", cfg: cfg, token: "s3c", wantErr: ErrInvalidToken},
		{name: "no token configured", cfg: &config.Config{}, token: "s3cret", wantErr: ErrInvalidToken},
		{name: "nil config", cfg: nil, token: "s3cret", wantErr: ErrInvalidToken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := VerifyAdminToken(tc.cfg, tc.token)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				if p != nil {
					t.Fatalf("expected no principal on failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name != AdminPrincipal {
				t.Fatalf("unexpected principal %q", p.Name)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	if Enabled(nil) || Enabled(&config.Config{}) {
		t.Fatalf("expected auth disabled without a token")
	}
	if !Enabled(&config.Config{Server: config.Server{AdminToken: "x"}}) {
		t.Fatalf("expected auth enabled with a token")
	}
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	if GetPrincipal(context.Background()) != nil {
		t.Fatalf("expected nil principal on empty context")
	}

	p := &Principal{Name: AdminPrincipal}
	ctx := AddPrincipal(context.Background(), p)
	if GetPrincipal(ctx) != p {
		t.Fatalf("expected to retrieve same principal")
	}
}
