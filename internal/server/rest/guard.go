package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
)

type ctxKey struct{}

// ClaimsFromContext returns the access-token claims the guard attached.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*auth.Claims)
	return c, ok
}

// Guard admits requests carrying a valid access token, taken from the
// Authorization header when present and from the session otherwise. Anything
// else gets 401 and next is not called.
func (h *Handlers) Guard(next http.Handler) http.Handler {
	return h.guard(next, false)
}

// GuardIdentity is Guard that also admits an access token whose only defect
// is expiry. It only establishes who is calling; /refresh uses it.
func (h *Handlers) GuardIdentity(next http.Handler) http.Handler {
	return h.guard(next, true)
}

func (h *Handlers) guard(next http.Handler, allowExpired bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, err := h.accessToken(r)
		if err != nil {
			h.logger.Error(ctx, "session lookup failed", "error", err)
			h.respondMessage(w, r, http.StatusInternalServerError, msgInternal)
			return
		}
		if token == "" {
			h.respondMessage(w, r, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		var claims *auth.Claims
		if allowExpired {
			claims, err = h.signer.VerifyIgnoringExpiry(token, auth.KindAccess)
		} else {
			claims, err = h.signer.Verify(token, auth.KindAccess)
		}
		if err != nil {
			var verr *auth.VerificationError
			reason := "unknown"
			if errors.As(err, &verr) {
				reason = verr.Reason.String()
			}
			h.logger.Info(ctx, "access token rejected", "reason", reason, "path", r.URL.Path)
			h.respondMessage(w, r, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, ctxKey{}, claims)))
	})
}

// accessToken returns "" when the request carries no usable token.
func (h *Handlers) accessToken(r *http.Request) (string, error) {
	if header := r.Header.Get(common.AuthorizationHeaderName); header != "" {
		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok {
			return "", nil
		}
		return strings.TrimSpace(token), nil
	}

	token, _, err := h.sessions.Get(r.Context(), r, common.SessionAccessTokenKey)
	return token, err
}
