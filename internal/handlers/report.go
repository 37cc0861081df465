package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fieldworks/sitereport/internal/models"
	"github.com/fieldworks/sitereport/internal/report"
	"github.com/fieldworks/sitereport/internal/storage"
)

// OpenReportRequest names the report to open for editing
type OpenReportRequest struct {
	ProjectID string `json:"projectId"`
	Date      string `json:"date"`
	Mode      string `json:"mode"`
	Force     bool   `json:"force"`
}

// openReport acquires the edit lock and loads or creates the draft
func (r *Router) openReport(w http.ResponseWriter, req *http.Request) {
	var openReq OpenReportRequest
	if err := json.NewDecoder(req.Body).Decode(&openReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if openReq.ProjectID == "" || openReq.Date == "" {
		respondError(w, http.StatusBadRequest, "projectId and date are required")
		return
	}
	if openReq.Force && !r.deps.Store.Flags.IsSet(storage.FlagCanForceLock) {
		respondError(w, http.StatusForbidden, "This inspector may not take over a live edit session")
		return
	}

	mode := models.CaptureMode(openReq.Mode)
	if mode == "" {
		mode = models.CaptureModeGuided
	}

	res, err := r.deps.Service.Open(req.Context(), report.OpenRequest{
		ProjectID: openReq.ProjectID,
		Date:      openReq.Date,
		Mode:      mode,
		Force:     openReq.Force,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if res.Session == nil {
		// Locked elsewhere; the UI offers a takeover using this holder
		respondJSON(w, http.StatusLocked, map[string]interface{}{
			"error":  "Report is being edited on another device",
			"heldBy": res.HeldBy,
		})
		return
	}

	r.deps.Store.Flags.Set(storage.FlagActiveProjectID, openReq.ProjectID)
	r.deps.Store.Flags.Set(storage.FlagActiveReportID, res.Session.Report().ID)
	respondJSON(w, http.StatusOK, res.Session.Report())
}

// closeReport flushes and releases the open session
func (r *Router) closeReport(w http.ResponseWriter, req *http.Request) {
	if err := r.deps.Service.Close(req.Context()); err != nil {
		respondDomainError(w, err)
		return
	}
	r.deps.Store.Flags.Delete(storage.FlagActiveProjectID)
	r.deps.Store.Flags.Delete(storage.FlagActiveReportID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// cancelDraft deletes a never-submitted draft entirely
func (r *Router) cancelDraft(w http.ResponseWriter, req *http.Request) {
	if err := r.deps.Service.CancelDraft(req.Context()); err != nil {
		respondDomainError(w, err)
		return
	}
	r.deps.Store.Flags.Delete(storage.FlagActiveProjectID)
	r.deps.Store.Flags.Delete(storage.FlagActiveReportID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// getCurrent returns the open report aggregate
func (r *Router) getCurrent(w http.ResponseWriter, req *http.Request) {
	sess, err := r.deps.Service.Active()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.Report())
}

// blur flushes the debounced persist immediately
func (r *Router) blur(w http.ResponseWriter, req *http.Request) {
	sess, err := r.deps.Service.Active()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	sess.Blur()
	respondJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
}

// refine runs the draft -> refined transition
func (r *Router) refine(w http.ResponseWriter, req *http.Request) {
	sess, err := r.deps.Service.Active()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	outcome, err := sess.Refine(req.Context(), r.deps.Refiner, r.deps.Photos, r.deps.Engine)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"report": sess.Report(),
		"queued": outcome.Queued,
	})
}

// submit runs the refined -> submitted transition
func (r *Router) submit(w http.ResponseWriter, req *http.Request) {
	sess, err := r.deps.Service.Active()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := sess.Submit(req.Context(), r.deps.Photos, r.deps.Docs, r.deps.Engine, r.deps.Store); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.Report())
}

// EntryRequest carries entry content
type EntryRequest struct {
	Section string `json:"section"`
	Content string `json:"content"`
}

// appendEntry adds a ledger entry to a section
func (r *Router) appendEntry(w http.ResponseWriter, req *http.Request) {
	sess, err := r.deps.Service.Active()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var entryReq EntryRequest
	if err := json.NewDecoder(req.Body).Decode(&entryReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if entryReq.Section == "" || entryReq.Content == "" {
		respondError(w, http.StatusBadRequest, "section and content are required")
		return
	}

	entry, err := sess.Append(entryReq.Section, entryReq.Content)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

// listEntries returns a section's active entries in order
func (r *Router) listEntries(w http.ResponseWriter, req *http.Request) {
	sess, err := r.deps.Service.Active()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	section := req.URL.Query().Get("section")
	if section != "" {
		respondJSON(w, http.StatusOK, sess.ListActive(section))
		return
	}

	out := make(map[string][]models.Entry)
	for _, sec := range sess.Sections() {
		out[sec] = sess.ListActive(sec)
	}
	respondJSON(w, http.StatusOK, out)
}

// editEntry replaces an entry's content
func (r *Router) editEntry(w http.ResponseWriter, req *http.Request) {
	sess, err := r.deps.Service.Active()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var entryReq EntryRequest
	if err := json.NewDecoder(req.Body).Decode(&entryReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	entry, err := sess.Edit(mux.Vars(req)["id"], entryReq.Content)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// deleteEntry soft-deletes an entry
func (r *Router) deleteEntry(w http.ResponseWriter, req *http.Request) {
	sess, err := r.deps.Service.Active()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := sess.SoftDelete(mux.Vars(req)["id"]); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ToggleRequest answers a section question
type ToggleRequest struct {
	Value string `json:"value"` // yes | no
}

// setToggle answers a write-once section question
func (r *Router) setToggle(w http.ResponseWriter, req *http.Request) {
	sess, err := r.deps.Service.Active()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var toggleReq ToggleRequest
	if err := json.NewDecoder(req.Body).Decode(&toggleReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	section := mux.Vars(req)["section"]
	if err := sess.SetToggle(section, models.ToggleValue(toggleReq.Value)); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"section": section,
		"value":   toggleReq.Value,
	})
}

// markNoWork flags a contractor as having no work today
func (r *Router) markNoWork(w http.ResponseWriter, req *http.Request) {
	sess, err := r.deps.Service.Active()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := sess.MarkNoWork(mux.Vars(req)["id"]); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "marked"})
}

// getSection returns the resolved display text for a section
func (r *Router) getSection(w http.ResponseWriter, req *http.Request) {
	sess, err := r.deps.Service.Active()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	section := mux.Vars(req)["section"]
	respondJSON(w, http.StatusOK, map[string]string{
		"section": section,
		"text":    report.SectionText(sess.Report(), section, ""),
	})
}

// OverrideRequest carries an inspector edit over refined prose
type OverrideRequest struct {
	Text string `json:"text"`
}

// overrideSection records an inspector edit on top of refined prose
func (r *Router) overrideSection(w http.ResponseWriter, req *http.Request) {
	sess, err := r.deps.Service.Active()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var overrideReq OverrideRequest
	if err := json.NewDecoder(req.Body).Decode(&overrideReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	section := mux.Vars(req)["section"]
	if err := sess.OverrideSection(section, overrideReq.Text); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// PersonnelRequest upserts a headcount row
type PersonnelRequest struct {
	Trade string  `json:"trade"`
	Count int     `json:"count"`
	Hours float64 `json:"hours"`
}

// setPersonnel upserts the headcount row for a trade
func (r *Router) setPersonnel(w http.ResponseWriter, req *http.Request) {
	sess, err := r.deps.Service.Active()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var pReq PersonnelRequest
	if err := json.NewDecoder(req.Body).Decode(&pReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := sess.SetPersonnel(pReq.Trade, pReq.Count, pReq.Hours); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// EquipmentRequest upserts an equipment row
type EquipmentRequest struct {
	Name      string  `json:"name"`
	HoursUsed float64 `json:"hoursUsed"`
	Idle      bool    `json:"idle"`
}

// setEquipment upserts an equipment usage row
func (r *Router) setEquipment(w http.ResponseWriter, req *http.Request) {
	sess, err := r.deps.Service.Active()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var eReq EquipmentRequest
	if err := json.NewDecoder(req.Body).Decode(&eReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := sess.SetEquipment(eReq.Name, eReq.HoursUsed, eReq.Idle); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}
