package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DeviceIdentity is the persistent identity of this device. The ID
// names this device in lock records and sync payloads, so it must
// survive restarts and reinstalls of the agent binary.
type DeviceIdentity struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
}

// LoadOrGenerateIdentity ensures the device has a stable identity
// across restarts. ENV vars win, then the local file, then a fresh
// generated identity persisted for next time.
func LoadOrGenerateIdentity() (*DeviceIdentity, error) {
	envID := os.Getenv("DEVICE_ID")
	envName := os.Getenv("DEVICE_NAME")
	if envID != "" {
		return &DeviceIdentity{DeviceID: envID, DeviceName: envName}, nil
	}

	configDir := ".sitereport"
	identityFile := filepath.Join(configDir, "device_identity.json")

	if data, err := os.ReadFile(identityFile); err == nil {
		var identity DeviceIdentity
		if err := json.Unmarshal(data, &identity); err == nil && identity.DeviceID != "" {
			return &identity, nil
		}
	}

	hostname, _ := os.Hostname()
	identity := &DeviceIdentity{
		DeviceID:   uuid.New().String(),
		DeviceName: hostname,
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create identity dir: %w", err)
	}
	data, _ := json.MarshalIndent(identity, "", "  ")
	if err := os.WriteFile(identityFile, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to persist device identity: %w", err)
	}

	return identity, nil
}
