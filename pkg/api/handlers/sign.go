package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"chatforum/pkg/auth"
	"chatforum/pkg/logger"
	"chatforum/pkg/utils"
)

// RegisterSigning registers the signing endpoint onto the provided
// router. The endpoint is protected by the gateway middleware and uses
// the caller's API key value as the signing secret.
func RegisterSigning(r *mux.Router) {
	r.HandleFunc("/_sign", signHandler).Methods(http.MethodPost)
}

// signHandler generates an HMAC-SHA256 signature for a userId using the
// caller's backend API key as the secret. Browsers present the pair on
// digest and message calls; RequireSignedUser verifies it against the
// same key set.
func signHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	role := r.Header.Get("X-Role-Name")
	if role != "backend" {
		logger.Warn("forbidden: non-backend role attempted to sign", "role", role, "remote", r.RemoteAddr)
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}

	authHdr := r.Header.Get("Authorization")
	var key string
	if len(authHdr) > 7 && (authHdr[:7] == "Bearer " || authHdr[:7] == "bearer ") {
		key = authHdr[7:]
	}
	if key == "" {
		key = r.Header.Get("X-API-Key")
	}
	if key == "" {
		logger.Warn("missing api key in signHandler", "remote", r.RemoteAddr)
		utils.JSONError(w, http.StatusUnauthorized, "missing api key")
		return
	}

	var payload struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.UserID == "" {
		logger.Warn("invalid payload in signHandler", "error", err, "remote", r.RemoteAddr)
		utils.JSONError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	sig := auth.SignUser(key, payload.UserID)
	if err := json.NewEncoder(w).Encode(map[string]string{"userId": payload.UserID, "signature": sig}); err != nil {
		logger.Error("failed to encode signHandler response", "error", err, "remote", r.RemoteAddr)
	}
}
