package refdata

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/kolo/xmlrpc"

	"github.com/fieldworks/sitereport/internal/models"
)

// Client fetches project and contractor reference data from the
// project-management backend over XML-RPC. The device treats the data
// as read-only and caches it locally for offline use.
type Client struct {
	URL       string
	Database  string
	Username  string
	Password  string
	Uid       int
	CommonURL string
	ObjectURL string
}

// NewClient creates a reference-data client
func NewClient(url, db, username, password string) *Client {
	return &Client{
		URL:       url,
		Database:  db,
		Username:  username,
		Password:  password,
		CommonURL: fmt.Sprintf("%s/xmlrpc/2/common", url),
		ObjectURL: fmt.Sprintf("%s/xmlrpc/2/object", url),
	}
}

// Authenticate authenticates with the backend and returns the user ID
func (c *Client) Authenticate() (int, error) {
	client, err := xmlrpc.NewClient(c.CommonURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	args := []interface{}{c.Database, c.Username, c.Password, make([]interface{}, 0)}
	var uid int
	if err := client.Call("authenticate", args, &uid); err != nil {
		return 0, fmt.Errorf("authentication failed: %w", err)
	}

	c.Uid = uid
	return uid, nil
}

// projectRecord mirrors the backend's project model fields
type projectRecord struct {
	ID     string `json:"ref"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// contractorRecord mirrors the backend's contractor model fields
type contractorRecord struct {
	ID         string `json:"ref"`
	ProjectRef string `json:"project_ref"`
	Name       string `json:"name"`
	Trade      string `json:"trade"`
}

// FetchProjects returns the active projects assigned to this inspector
func (c *Client) FetchProjects() ([]models.Project, error) {
	var records []projectRecord
	domain := []interface{}{[]interface{}{"active", "=", true}}
	fields := []string{"ref", "name", "active"}
	if err := c.searchRead("inspection.project", domain, fields, &records); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	projects := make([]models.Project, 0, len(records))
	for _, rec := range records {
		projects = append(projects, models.Project{
			ID:        rec.ID,
			Name:      rec.Name,
			Active:    rec.Active,
			FetchedAt: now,
		})
	}
	return projects, nil
}

// FetchContractors returns the contractor roster for a project
func (c *Client) FetchContractors(projectID string) ([]models.Contractor, error) {
	var records []contractorRecord
	domain := []interface{}{[]interface{}{"project_ref", "=", projectID}}
	fields := []string{"ref", "project_ref", "name", "trade"}
	if err := c.searchRead("inspection.contractor", domain, fields, &records); err != nil {
		return nil, err
	}

	contractors := make([]models.Contractor, 0, len(records))
	for _, rec := range records {
		contractors = append(contractors, models.Contractor{
			ID:        rec.ID,
			ProjectID: rec.ProjectRef,
			Name:      rec.Name,
			Trade:     rec.Trade,
		})
	}
	return contractors, nil
}

// searchRead performs a search_read call and decodes the raw maps into
// the target slice via a JSON round-trip.
func (c *Client) searchRead(model string, domain []interface{}, fields []string, result interface{}) error {
	client, err := xmlrpc.NewClient(c.ObjectURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	args := []interface{}{
		c.Database,
		c.Uid,
		c.Password,
		model,
		"search_read",
		[]interface{}{domain},
		map[string]interface{}{
			"fields": fields,
		},
	}

	var rawResult []map[string]interface{}
	if err := client.Call("execute_kw", args, &rawResult); err != nil {
		return fmt.Errorf("failed to execute search_read on %s: %w", model, err)
	}

	jsonData, err := json.Marshal(rawResult)
	if err != nil {
		return fmt.Errorf("failed to marshal raw result: %w", err)
	}
	if err := json.Unmarshal(jsonData, result); err != nil {
		return fmt.Errorf("failed to unmarshal into target: %w", err)
	}
	return nil
}

// Cacher stores fetched reference data in the local tier
type Cacher interface {
	CacheProjects(projects []models.Project, contractors []models.Contractor) error
}

// RefreshCache pulls all reference data and stores it locally. Called
// at startup when online and on demand; failure is tolerable because
// the previous cache keeps working.
func (c *Client) RefreshCache(cache Cacher) error {
	if _, err := c.Authenticate(); err != nil {
		return err
	}

	projects, err := c.FetchProjects()
	if err != nil {
		return err
	}

	var contractors []models.Contractor
	for _, p := range projects {
		batch, err := c.FetchContractors(p.ID)
		if err != nil {
			log.Printf("⚠️ Contractor fetch for project %s failed: %v", p.ID, err)
			continue
		}
		contractors = append(contractors, batch...)
	}

	if err := cache.CacheProjects(projects, contractors); err != nil {
		return err
	}
	log.Printf("✅ Reference data cached: %d project(s), %d contractor(s)", len(projects), len(contractors))
	return nil
}
