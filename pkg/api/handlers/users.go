package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"chatforum/pkg/logger"
	"chatforum/pkg/utils"
)

// RegisterUsers registers the provisioning endpoint. The gateway scope
// keeps it backend-only.
func RegisterUsers(r *mux.Router, d Deps) {
	r.HandleFunc("/users", d.provisionUser).Methods(http.MethodPost)
}

// provisionUser onboards a new forum member: chat token, user record,
// metadata stash and topic channel membership. The body accepts either a
// flat {"userId": ...} or the identity provider's webhook envelope
// {"data": {"id": ...}}.
func (d Deps) provisionUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var payload struct {
		UserID string `json:"userId"`
		Data   struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	userID := payload.UserID
	if userID == "" {
		userID = payload.Data.ID
	}
	if userID == "" {
		utils.JSONError(w, http.StatusBadRequest, "userId is required")
		return
	}

	res, err := d.Onboard.Provision(r.Context(), userID)
	if err != nil {
		logger.Error("provision_failed", "user", userID, "error", err)
		utils.JSONError(w, http.StatusBadGateway, "provisioning failed")
		return
	}

	utils.JSONWrite(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    res,
	})
}
