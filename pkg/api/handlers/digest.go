package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"chatforum/pkg/auth"
	"chatforum/pkg/digest"
	"chatforum/pkg/logger"
	"chatforum/pkg/models"
	"chatforum/pkg/snapshot"
	"chatforum/pkg/telemetry"
	"chatforum/pkg/utils"
	"chatforum/pkg/validation"
)

// RegisterDigest registers the digest endpoints onto the provided
// router. POST requires a signed user for frontend callers.
func RegisterDigest(r *mux.Router, d Deps) {
	r.Handle("/digest", auth.RequireSignedUser(http.HandlerFunc(d.postDigest))).Methods(http.MethodPost)
	r.HandleFunc("/digest", d.getDigest).Methods(http.MethodGet)
}

// postDigest runs the full digest pipeline over the posted message
// batch and returns per-author reply suggestions.
func (d Deps) postDigest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	telemetry.SetRequestOp(r.Context(), "build_digest")

	var req models.DigestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	// a signature-verified user is authoritative over the body field
	if verified := auth.UserIDFromContext(r.Context()); verified != "" {
		if req.UserID != "" && req.UserID != verified {
			utils.JSONError(w, http.StatusForbidden, "user mismatch between signature and body")
			return
		}
		req.UserID = verified
	}

	if err := validation.CheckDigestRequest(req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := d.Builder.Build(r.Context(), req)
	if err != nil {
		digestBuilds.WithLabelValues("rejected").Inc()
		switch {
		case errors.Is(err, digest.ErrMissingFields):
			utils.JSONError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, digest.ErrNotConfigured):
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
		default:
			logger.Error("digest_build_failed", "channel", req.ChannelID, "error", err)
			utils.JSONError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	switch {
	case res.Failure != nil:
		digestBuilds.WithLabelValues("failure").Inc()
	case res.Notice != "":
		digestBuilds.WithLabelValues("notice").Inc()
	default:
		digestBuilds.WithLabelValues("ok").Inc()
	}

	// persist the processed batch for GET read-back; failure here never
	// fails the digest itself
	if len(req.Messages) > 0 && snapshot.Ready() {
		span := telemetry.StartSpan(r.Context(), "snapshot.save")
		err := snapshot.Save(models.Snapshot{
			ChannelID: req.ChannelID,
			Slug:      req.Slug,
			UserID:    req.UserID,
			Messages:  res.Processed,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}, d.SnapshotTTL, d.SnapshotMax)
		span()
		if err != nil {
			logger.Warn("snapshot_save_failed", "channel", req.ChannelID, "error", err)
		}
	}

	utils.JSONWrite(w, http.StatusOK, models.DigestResponse{
		Success: true,
		Message: res.Message(),
		Data:    d.Builder.Data(req, res),
	})
}

// getDigest serves the last processed batch for a channel or topic.
// Best effort: a channel with no snapshot yields an empty message list,
// not an error.
func (d Deps) getDigest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	q := r.URL.Query()
	channelID := q.Get("channelId")
	slug := q.Get("slug")
	userID := q.Get("userId")
	if channelID == "" && slug == "" {
		utils.JSONError(w, http.StatusBadRequest, "Either channelId or slug is required")
		return
	}

	var (
		snap models.Snapshot
		err  error
	)
	if channelID != "" {
		snap, err = snapshot.GetByChannel(channelID)
	} else {
		snap, err = snapshot.GetBySlug(slug)
	}
	if err != nil && !errors.Is(err, snapshot.ErrNotFound) {
		logger.Error("snapshot_read_failed", "channel", channelID, "slug", slug, "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	msgs := snap.Messages
	if msgs == nil {
		msgs = []models.NormalizedMessage{}
	}
	if snap.ChannelID != "" {
		channelID = snap.ChannelID
	}
	if snap.Slug != "" {
		slug = snap.Slug
	}

	utils.JSONWrite(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Messages retrieved successfully",
		"data": models.SnapshotData{
			ChannelID:     channelID,
			Slug:          slug,
			UserID:        userID,
			Messages:      msgs,
			TotalMessages: len(msgs),
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
		},
	})
}
