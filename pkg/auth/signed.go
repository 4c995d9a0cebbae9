package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"chatforum/pkg/config"
	"chatforum/pkg/logger"
	"chatforum/pkg/utils"
)

type ctxUserKey struct{}

// SignUser computes the hex HMAC-SHA256 of userID under key. The backend
// obtains signatures from /v1/_sign and hands them to browsers, which
// present them on digest and message calls.
func SignUser(key, userID string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// RequireSignedUser verifies the X-User-ID / X-User-Signature header
// pair and injects the verified user id into the request context.
// Backend and admin callers may omit the signature entirely; when one is
// present it is verified regardless of role.
func RequireSignedUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get("X-Role-Name")
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		sig := strings.TrimSpace(r.Header.Get("X-User-Signature"))

		if (role == "backend" || role == "admin") && sig == "" {
			next.ServeHTTP(w, r)
			return
		}

		if sig == "" || userID == "" {
			logger.Warn("missing_signature_headers", "path", r.URL.Path, "remote", r.RemoteAddr)
			utils.JSONError(w, http.StatusUnauthorized, "missing signature headers")
			return
		}

		keys := config.GetSigningKeys()
		if len(keys) == 0 {
			logger.Error("no_signing_keys_configured")
			utils.JSONError(w, http.StatusInternalServerError, "server misconfigured: no signing secrets available")
			return
		}

		ok := false
		for k := range keys {
			if hmac.Equal([]byte(SignUser(k, userID)), []byte(sig)) {
				ok = true
				break
			}
		}
		if !ok {
			logger.Warn("invalid_signature", "user", userID)
			utils.JSONError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the signature-verified user id or "".
func UserIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxUserKey{}).(string); ok {
		return s
	}
	return ""
}

func validateUserID(id string) (bool, string) {
	if id == "" {
		return false, "user id required"
	}
	if len(id) > 128 {
		return false, "user id too long"
	}
	return true, ""
}

// ResolveUserFromRequest is the canonical resolver handlers call. A
// signature-verified id is authoritative and any conflicting id from
// header, query or body yields 403. Without a signature, backend and
// admin callers may supply the id via body, X-User-ID header or query;
// frontend callers get 401.
func ResolveUserFromRequest(r *http.Request, bodyUser string) (string, int, string) {
	if id := UserIDFromContext(r.Context()); id != "" {
		if q := strings.TrimSpace(r.URL.Query().Get("user")); q != "" && q != id {
			return "", http.StatusForbidden, "user mismatch between signature and query param"
		}
		if h := strings.TrimSpace(r.Header.Get("X-User-ID")); h != "" && h != id {
			return "", http.StatusForbidden, "user mismatch between signature and header"
		}
		if bodyUser != "" && bodyUser != id {
			return "", http.StatusForbidden, "user mismatch between signature and body"
		}
		return id, 0, ""
	}

	role := r.Header.Get("X-Role-Name")
	if role == "backend" || role == "admin" {
		for _, candidate := range []string{
			bodyUser,
			strings.TrimSpace(r.Header.Get("X-User-ID")),
			strings.TrimSpace(r.URL.Query().Get("user")),
		} {
			if candidate == "" {
				continue
			}
			if ok, msg := validateUserID(candidate); !ok {
				return "", http.StatusBadRequest, msg
			}
			return candidate, 0, ""
		}
		return "", http.StatusBadRequest, "user id required for backend requests"
	}

	return "", http.StatusUnauthorized, "missing or invalid user signature"
}
