package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// listProjects returns the locally cached project list
func (r *Router) listProjects(w http.ResponseWriter, req *http.Request) {
	projects, err := r.deps.Store.Projects()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, projects)
}

// listContractors returns the cached roster for a project
func (r *Router) listContractors(w http.ResponseWriter, req *http.Request) {
	contractors, err := r.deps.Store.Contractors(mux.Vars(req)["id"])
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, contractors)
}

// refreshRefData re-fetches projects and contractors from the backend
func (r *Router) refreshRefData(w http.ResponseWriter, req *http.Request) {
	if r.deps.RefData == nil {
		respondError(w, http.StatusNotImplemented, "Reference data backend not configured")
		return
	}
	if !r.deps.Monitor.IsOnline() {
		respondError(w, http.StatusConflict, "Cannot refresh reference data offline")
		return
	}

	if err := r.deps.RefData.RefreshCache(r.deps.Store); err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	projects, err := r.deps.Store.Projects()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, projects)
}
