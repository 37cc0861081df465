package main

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fieldworks/sitereport/internal/config"
	"github.com/fieldworks/sitereport/internal/models"
	"github.com/fieldworks/sitereport/internal/storage"
	"github.com/fieldworks/sitereport/internal/utils"
)

// Seeds a demo project, contractor roster and inspector account so the
// agent is usable without a reference-data backend.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	local, err := storage.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to local database: %v", err)
	}
	defer local.Close()

	if err := local.AutoMigrate(
		&models.Project{},
		&models.Contractor{},
		&models.Inspector{},
	); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	now := time.Now().UTC()
	project := models.Project{
		ID:        "demo-riverside",
		Name:      "Riverside Substation Upgrade",
		Active:    true,
		FetchedAt: now,
	}
	if err := local.Save(&project).Error; err != nil {
		log.Fatalf("Failed to seed project: %v", err)
	}

	contractors := []models.Contractor{
		{ID: "demo-c1", ProjectID: project.ID, Name: "Apex Electrical", Trade: "electrical"},
		{ID: "demo-c2", ProjectID: project.ID, Name: "Granite Civil Works", Trade: "civil"},
		{ID: "demo-c3", ProjectID: project.ID, Name: "Northline Steel", Trade: "structural"},
	}
	for i := range contractors {
		if err := local.Save(&contractors[i]).Error; err != nil {
			log.Fatalf("Failed to seed contractor: %v", err)
		}
	}

	var count int64
	local.Model(&models.Inspector{}).Count(&count)
	if count == 0 {
		pinHash, err := utils.HashPin("1234")
		if err != nil {
			log.Fatalf("Failed to hash demo PIN: %v", err)
		}
		inspector := models.Inspector{
			ID:       uuid.New().String(),
			Name:     "Demo Inspector",
			PinHash:  pinHash,
			CanForce: true,
		}
		if err := local.Create(&inspector).Error; err != nil {
			log.Fatalf("Failed to seed inspector: %v", err)
		}
		log.Println("✅ Demo inspector created (PIN 1234)")
	}

	log.Printf("✅ Seeded project %q with %d contractors", project.Name, len(contractors))
}
