package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldworks/sitereport/internal/models"
)

// ErrNotFound is returned when the durable store has no such record
var ErrNotFound = errors.New("remote: not found")

// Remote is the durable-tier client. It is the source of truth when
// reachable; every write uses stable caller-assigned IDs with upsert
// semantics so replaying a queued operation is a harmless no-op.
type Remote struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewRemote creates a remote-store client. The token is the device JWT
// minted at startup.
func NewRemote(baseURL, token string, timeout time.Duration) *Remote {
	return &Remote{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Healthy checks whether the durable store is reachable
func (r *Remote) Healthy(ctx context.Context) bool {
	if r.baseURL == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// BaseURL returns the configured durable-store URL
func (r *Remote) BaseURL() string {
	return r.baseURL
}

// UpsertReport writes the full report record
func (r *Remote) UpsertReport(ctx context.Context, report *models.Report) error {
	return r.do(ctx, http.MethodPut, "/api/reports/"+report.ID, report, nil)
}

// DeleteReport removes a report (cancelled draft cleanup)
func (r *Remote) DeleteReport(ctx context.Context, reportID string) error {
	err := r.do(ctx, http.MethodDelete, "/api/reports/"+reportID, nil, nil)
	if errors.Is(err, ErrNotFound) {
		// Draft was never checkpointed remotely
		return nil
	}
	return err
}

// FetchReport reads a report by (project, date). Returns ErrNotFound
// when the durable store has none.
func (r *Remote) FetchReport(ctx context.Context, projectID, date string) (*models.Report, error) {
	var report models.Report
	path := fmt.Sprintf("/api/reports/by-key/%s/%s", projectID, date)
	if err := r.do(ctx, http.MethodGet, path, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// UpsertEntry pushes a single ledger entry. Used by the near-real-time
// per-entry backup and by outbox replay.
func (r *Remote) UpsertEntry(ctx context.Context, entry *models.Entry) error {
	return r.do(ctx, http.MethodPut, "/api/entries/"+entry.ID, entry, nil)
}

// UploadPhoto sends photo metadata plus payload and returns the storage path
func (r *Remote) UploadPhoto(ctx context.Context, photo *models.Photo) (string, error) {
	body := map[string]interface{}{
		"id":       photo.ID,
		"reportId": photo.ReportID,
		"caption":  photo.Caption,
		"gps":      photo.GPS,
		"takenAt":  photo.TakenAt,
		"payload":  photo.Payload, // base64 via encoding/json
	}
	var resp struct {
		StoragePath string `json:"storagePath"`
	}
	if err := r.do(ctx, http.MethodPut, "/api/photos/"+photo.ID, body, &resp); err != nil {
		return "", err
	}
	return resp.StoragePath, nil
}

// UploadDocument stores the generated report PDF and returns its durable URL
func (r *Remote) UploadDocument(ctx context.Context, reportID string, pdf []byte) (string, error) {
	body := map[string]interface{}{
		"reportId": reportID,
		"content":  pdf, // base64 via encoding/json
	}
	var resp struct {
		URL string `json:"url"`
	}
	if err := r.do(ctx, http.MethodPut, "/api/documents/"+reportID, body, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// ErrLockConflict is returned when a conditional lock write lost the race
var ErrLockConflict = errors.New("remote: lock conflict")

// GetLock reads the lock record for (project, date); (nil, nil) when absent
func (r *Remote) GetLock(ctx context.Context, projectID, date string) (*models.EditLock, error) {
	var lock models.EditLock
	path := fmt.Sprintf("/api/locks/%s/%s", projectID, date)
	err := r.do(ctx, http.MethodGet, path, nil, &lock)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

// PutLock conditionally writes the lock record. The durable store
// accepts the write only when no record exists, the existing record's
// device matches expectDeviceID, or force is set; otherwise it answers
// 409 and the caller re-reads to learn the holder. This is the only
// atomic primitive the arbitration protocol needs.
func (r *Remote) PutLock(ctx context.Context, lock *models.EditLock, expectDeviceID string, force bool) error {
	body := map[string]interface{}{
		"lock":           lock,
		"expectDeviceId": expectDeviceID,
		"force":          force,
	}
	path := fmt.Sprintf("/api/locks/%s/%s", lock.ProjectID, lock.ReportDate)
	err := r.doWithConflict(ctx, http.MethodPut, path, body, nil)
	return err
}

// DeleteLock drops our lock. Best effort; the caller skips it offline.
func (r *Remote) DeleteLock(ctx context.Context, projectID, date, deviceID string) error {
	path := fmt.Sprintf("/api/locks/%s/%s?device=%s", projectID, date, deviceID)
	err := r.do(ctx, http.MethodDelete, path, nil, nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Apply replays one outbox item against the durable store
func (r *Remote) Apply(ctx context.Context, item models.OutboxItem) error {
	switch item.Operation {
	case models.OutboxOpDelete:
		return r.do(ctx, http.MethodDelete, resourcePath(item), nil, nil)
	case models.OutboxOpUpsert:
		return r.do(ctx, http.MethodPut, resourcePath(item), json.RawMessage(item.Payload), nil)
	default:
		return fmt.Errorf("unknown outbox operation: %s", item.Operation)
	}
}

func resourcePath(item models.OutboxItem) string {
	switch item.ResourceType {
	case "report":
		return "/api/reports/" + item.ResourceID
	case "entry":
		return "/api/entries/" + item.ResourceID
	case "photo":
		return "/api/photos/" + item.ResourceID
	default:
		return "/api/" + item.ResourceType + "s/" + item.ResourceID
	}
}

// doWithConflict is do plus 409 -> ErrLockConflict mapping
func (r *Remote) doWithConflict(ctx context.Context, method, path string, body, out interface{}) error {
	err := r.do(ctx, method, path, body, out)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusConflict {
		return ErrLockConflict
	}
	return err
}

// statusError carries a non-2xx response code
type statusError struct {
	code   int
	method string
	path   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("remote store returned status %d for %s %s", e.code, e.method, e.path)
}

// do performs one JSON round-trip
func (r *Remote) do(ctx context.Context, method, path string, body, out interface{}) error {
	if r.baseURL == "" {
		return fmt.Errorf("remote store URL not configured")
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote store unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		return &statusError{code: resp.StatusCode, method: method, path: path}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
