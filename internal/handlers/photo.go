package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fieldworks/sitereport/internal/photo"
)

// CapturePhotoRequest carries one captured image from the UI shell
type CapturePhotoRequest struct {
	Payload string        `json:"payload"` // base64 image bytes
	Caption string        `json:"caption"`
	TakenAt *time.Time    `json:"takenAt,omitempty"`
	GPS     *photo.GPSFix `json:"gps,omitempty"`
}

// capturePhoto stores a photo locally and attempts an inline upload
func (r *Router) capturePhoto(w http.ResponseWriter, req *http.Request) {
	sess, err := r.deps.Service.Active()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if sess.Report().IsTerminal() {
		respondError(w, http.StatusConflict, "Report is submitted and immutable")
		return
	}

	var photoReq CapturePhotoRequest
	if err := json.NewDecoder(req.Body).Decode(&photoReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	raw, err := base64.StdEncoding.DecodeString(photoReq.Payload)
	if err != nil || len(raw) == 0 {
		respondError(w, http.StatusBadRequest, "payload must be base64 image data")
		return
	}

	takenAt := time.Now()
	if photoReq.TakenAt != nil {
		takenAt = *photoReq.TakenAt
	}

	p, err := r.deps.Photos.Capture(req.Context(), sess.Report().ID, raw, photoReq.Caption, photoReq.GPS, takenAt)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// listPhotos returns the open report's photo metadata
func (r *Router) listPhotos(w http.ResponseWriter, req *http.Request) {
	sess, err := r.deps.Service.Active()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	photos, err := r.deps.Store.Photos(sess.Report().ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, photos)
}
