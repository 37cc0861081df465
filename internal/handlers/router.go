package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fieldworks/sitereport/internal/middleware"
	"github.com/fieldworks/sitereport/internal/photo"
	"github.com/fieldworks/sitereport/internal/refdata"
	"github.com/fieldworks/sitereport/internal/report"
	"github.com/fieldworks/sitereport/internal/storage"
	appsync "github.com/fieldworks/sitereport/internal/sync"
	"github.com/fieldworks/sitereport/internal/websocket"
)

// Deps carries everything the API surface needs
type Deps struct {
	Service   *report.Service
	Store     *storage.Manager
	Engine    *appsync.Engine
	Monitor   *appsync.Monitor
	Photos    *photo.Pipeline
	Refiner   report.Refiner
	Docs      report.DocumentBuilder
	Hub       *websocket.Hub
	RefData   *refdata.Client
	JWTSecret string
}

// Router is the localhost HTTP surface the UI shell talks to
type Router struct {
	*mux.Router
	deps Deps
}

// NewRouter creates the HTTP router with all routes
func NewRouter(deps Deps) *Router {
	r := &Router{
		Router: mux.NewRouter(),
		deps:   deps,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Event stream for the UI shell
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		websocket.ServeWs(deps.Hub, w, req)
	})

	// Auth routes (unauthenticated)
	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/setup", r.setupInspector).Methods("POST")

	// Everything else requires a session token
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(deps.JWTSecret))

	api.HandleFunc("/status", r.getStatus).Methods("GET")
	api.HandleFunc("/sync/drain", r.drainNow).Methods("POST")

	// Reference data
	api.HandleFunc("/projects", r.listProjects).Methods("GET")
	api.HandleFunc("/projects/{id}/contractors", r.listContractors).Methods("GET")
	api.HandleFunc("/refdata/refresh", r.refreshRefData).Methods("POST")

	// Report lifecycle
	reports := api.PathPrefix("/reports").Subrouter()
	reports.HandleFunc("/open", r.openReport).Methods("POST")
	reports.HandleFunc("/close", r.closeReport).Methods("POST")
	reports.HandleFunc("/cancel", r.cancelDraft).Methods("POST")
	reports.HandleFunc("/current", r.getCurrent).Methods("GET")
	reports.HandleFunc("/current/refine", r.refine).Methods("POST")
	reports.HandleFunc("/current/submit", r.submit).Methods("POST")
	reports.HandleFunc("/current/blur", r.blur).Methods("POST")

	// Entry ledger
	reports.HandleFunc("/current/entries", r.appendEntry).Methods("POST")
	reports.HandleFunc("/current/entries", r.listEntries).Methods("GET")
	reports.HandleFunc("/current/entries/{id}", r.editEntry).Methods("PUT")
	reports.HandleFunc("/current/entries/{id}", r.deleteEntry).Methods("DELETE")

	// Toggles, overrides, sub-records
	reports.HandleFunc("/current/toggles/{section}", r.setToggle).Methods("POST")
	reports.HandleFunc("/current/contractors/{id}/no-work", r.markNoWork).Methods("POST")
	reports.HandleFunc("/current/sections/{section}", r.getSection).Methods("GET")
	reports.HandleFunc("/current/sections/{section}", r.overrideSection).Methods("PUT")
	reports.HandleFunc("/current/personnel", r.setPersonnel).Methods("PUT")
	reports.HandleFunc("/current/equipment", r.setEquipment).Methods("PUT")

	// Photos
	reports.HandleFunc("/current/photos", r.capturePhoto).Methods("POST")
	reports.HandleFunc("/current/photos", r.listPhotos).Methods("GET")

	return r
}

// healthCheck returns the health status of the agent
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"server": "agent",
	})
}

// getStatus reports connectivity, backlog and the open report
func (r *Router) getStatus(w http.ResponseWriter, req *http.Request) {
	status := map[string]interface{}{
		"online":            r.deps.Monitor.IsOnline(),
		"outboxBacklog":     r.deps.Engine.Backlog(),
		"reducedDurability": r.deps.Store.Flags.IsSet(storage.FlagReducedDurable),
		"activeReport":      r.deps.Service.ActiveKey(),
	}
	if last := r.deps.Monitor.LastSuccess(); last != nil {
		status["lastRemoteContact"] = last
	}
	respondJSON(w, http.StatusOK, status)
}

// drainNow triggers an immediate outbox replay
func (r *Router) drainNow(w http.ResponseWriter, req *http.Request) {
	if !r.deps.Monitor.IsOnline() {
		respondError(w, http.StatusConflict, "Remote store unreachable")
		return
	}
	r.deps.Engine.DrainNow()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"backlog": r.deps.Engine.Backlog(),
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondDomainError maps core errors onto HTTP statuses
func respondDomainError(w http.ResponseWriter, err error) {
	var guard *report.GuardError
	switch {
	case errors.As(err, &guard):
		respondJSON(w, http.StatusConflict, map[string]string{
			"error": guard.Message,
			"code":  guard.Code,
		})
	case errors.Is(err, report.ErrNoSession):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, report.ErrSessionBusy):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, report.ErrReportSubmitted),
		errors.Is(err, report.ErrToggleLocked),
		errors.Is(err, report.ErrNotRefined):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, report.ErrEntryNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
