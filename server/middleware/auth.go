package middleware

import (
	"net/http"

	"github.com/tonelab/venue/config"
	"github.com/tonelab/venue/server/auth"
	"github.com/tonelab/venue/server/resp"
	"github.com/tonelab/venue/server/util"
)

// RequireAdmin wraps a mutating handler. When an admin token is configured it must be
// presented as a Bearer token; otherwise the request is rejected with 401. With no token
// configured every request passes through.
func RequireAdmin(cfg *config.Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.Enabled(cfg) {
			next.ServeHTTP(w, r)
			return
		}

		token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		principal, err := auth.VerifyAdminToken(cfg, token)
		if err != nil {
			if cfg.Debug {
				util.FromRequest(r).Infof("rejected admin request: %v", err)
			}
			resp.WriteUnauthorized(w, "Unauthorized")
			return
		}

		rl := util.FromRequest(r).WithUser(principal.Name)
		ctx := util.ContextWithLogger(r.Context(), rl)
		next.ServeHTTP(w, r.WithContext(auth.AddPrincipal(ctx, principal)))
	})
}
