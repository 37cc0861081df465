package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fieldworks/sitereport/internal/models"
	"github.com/fieldworks/sitereport/internal/storage"
	"github.com/fieldworks/sitereport/internal/utils"
)

// LoginRequest is a PIN login request
type LoginRequest struct {
	Name string `json:"name"`
	Pin  string `json:"pin"`
}

// SetupRequest creates the inspector account on first run
type SetupRequest struct {
	Name     string `json:"name"`
	Pin      string `json:"pin"`
	CanForce bool   `json:"canForce"`
}

// login unlocks the agent with the inspector PIN
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if err := json.NewDecoder(req.Body).Decode(&loginReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	var inspector models.Inspector
	if err := r.deps.Store.Local.Where("name = ?", loginReq.Name).First(&inspector).Error; err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !utils.CheckPinHash(loginReq.Pin, inspector.PinHash) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	now := time.Now()
	inspector.LastLoginAt = &now
	if err := r.deps.Store.Local.Save(&inspector).Error; err != nil {
		// Login bookkeeping only; the session itself is unaffected
		log.Printf("⚠️ Could not record login time for %s: %v", inspector.Name, err)
	}

	token, err := utils.GenerateSessionToken(&inspector, r.deps.JWTSecret)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	// The open lock names its holder after whoever logged in
	r.deps.Store.Flags.Set(storage.FlagInspectorName, inspector.Name)
	if inspector.CanForce {
		r.deps.Store.Flags.Set(storage.FlagCanForceLock, "true")
	} else {
		r.deps.Store.Flags.Delete(storage.FlagCanForceLock)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":     token,
		"inspector": inspector,
	})
}

// setupInspector creates the inspector account. Only allowed while no
// account exists; afterwards the device is PIN-locked.
func (r *Router) setupInspector(w http.ResponseWriter, req *http.Request) {
	var setupReq SetupRequest
	if err := json.NewDecoder(req.Body).Decode(&setupReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if setupReq.Name == "" || len(setupReq.Pin) < 4 {
		respondError(w, http.StatusBadRequest, "Name and a PIN of at least 4 digits are required")
		return
	}

	var count int64
	r.deps.Store.Local.Model(&models.Inspector{}).Count(&count)
	if count > 0 {
		respondError(w, http.StatusConflict, "Device is already set up")
		return
	}

	pinHash, err := utils.HashPin(setupReq.Pin)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to hash PIN")
		return
	}

	inspector := models.Inspector{
		ID:       uuid.New().String(),
		Name:     setupReq.Name,
		PinHash:  pinHash,
		CanForce: setupReq.CanForce,
	}
	if err := r.deps.Store.Local.Create(&inspector).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create inspector")
		return
	}

	token, err := utils.GenerateSessionToken(&inspector, r.deps.JWTSecret)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Inspector created but token generation failed")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"token":     token,
		"inspector": inspector,
	})
}
