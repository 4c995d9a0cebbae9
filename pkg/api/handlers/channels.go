package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"chatforum/pkg/auth"
	"chatforum/pkg/logger"
	"chatforum/pkg/models"
	"chatforum/pkg/utils"
	"chatforum/pkg/validation"
)

// RegisterChannels registers the topic channel endpoints.
func RegisterChannels(r *mux.Router, d Deps) {
	r.HandleFunc("/channels", d.listChannels).Methods(http.MethodGet)
	r.HandleFunc("/channels/{slug}/messages", d.listChannelMessages).Methods(http.MethodGet)
	r.Handle("/channels/{slug}/messages", auth.RequireSignedUser(http.HandlerFunc(d.sendChannelMessage))).Methods(http.MethodPost)
}

// listChannels returns the configured topic channels.
func (d Deps) listChannels(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	type channelInfo struct {
		Slug string `json:"slug"`
		Type string `json:"type"`
	}
	out := make([]channelInfo, 0, len(d.Topics))
	for _, slug := range d.Topics {
		out = append(out, channelInfo{Slug: slug, Type: d.ChannelType})
	}
	utils.JSONWrite(w, http.StatusOK, map[string]any{"channels": out})
}

// listChannelMessages proxies message history from the chat backend.
func (d Deps) listChannelMessages(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	slug := mux.Vars(r)["slug"]

	limit := d.MessageLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && (d.MessageLimit <= 0 || n < d.MessageLimit) {
			limit = n
		}
	}

	msgs, err := d.Backend.Messages(r.Context(), d.ChannelType, slug, limit)
	if err != nil {
		logger.Error("channel_messages_failed", "slug", slug, "error", err)
		utils.JSONError(w, http.StatusBadGateway, "chat backend unavailable")
		return
	}
	if msgs == nil {
		msgs = []models.RawMessage{}
	}
	utils.JSONWrite(w, http.StatusOK, map[string]any{
		"slug":     slug,
		"messages": msgs,
	})
}

// sendChannelMessage relays a selected reply into the live channel,
// attributed to the requesting user.
func (d Deps) sendChannelMessage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	slug := mux.Vars(r)["slug"]

	var payload struct {
		Text   string `json:"text"`
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	userID, code, msg := auth.ResolveUserFromRequest(r, payload.UserID)
	if code != 0 {
		utils.JSONError(w, code, msg)
		return
	}

	msgIn := models.RawMessage{
		ID:   utils.GenMessageID(),
		Text: payload.Text,
		User: &models.Author{ID: userID},
	}
	if err := validation.CheckOutgoingMessage(msgIn); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	sent, err := d.Backend.SendMessage(r.Context(), d.ChannelType, slug, msgIn)
	if err != nil {
		logger.Error("send_message_failed", "slug", slug, "user", userID, "error", err)
		utils.JSONError(w, http.StatusBadGateway, "chat backend unavailable")
		return
	}
	logger.Info("message_relayed", "slug", slug, "user", userID, "id", sent.ID)
	utils.JSONWrite(w, http.StatusOK, map[string]any{"message": sent})
}
