package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/GrowlyX/refactorproject-web/internal/config"
	"github.com/GrowlyX/refactorproject-web/internal/database"
	"github.com/GrowlyX/refactorproject-web/internal/models"
)

// Seeds a development database with an organization, a few projects and
// workflows in each state, so the dashboard has something to render.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db.DB()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()
	if err := seed(ctx, db.DB()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	fmt.Println("Seed data created")
}

func seed(ctx context.Context, db *gorm.DB) error {
	now := time.Now().UTC()

	org := models.Organization{
		GithubID:           9000001,
		Name:               "acme-dev",
		Status:             models.OrganizationStatusActive,
		GithubAppInstalled: true,
		LastSyncAt:         &now,
	}
	if err := db.WithContext(ctx).Where("github_id = ?", org.GithubID).FirstOrCreate(&org).Error; err != nil {
		return fmt.Errorf("failed to seed organization: %w", err)
	}

	user := models.User{AuthID: "seed_user"}
	if err := db.WithContext(ctx).Where("auth_id = ?", user.AuthID).FirstOrCreate(&user).Error; err != nil {
		return fmt.Errorf("failed to seed user: %w", err)
	}

	membership := models.OrganizationMember{
		OrganizationID:         org.ID,
		UserID:                 user.ID,
		GithubMembershipActive: true,
		JoinedAt:               now,
	}
	err := db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", org.ID, user.ID).
		FirstOrCreate(&membership).Error
	if err != nil {
		return fmt.Errorf("failed to seed membership: %w", err)
	}

	goLang := "Go"
	projects := []models.Project{
		{
			GithubRepositoryID: 8000001,
			OrganizationID:     org.ID,
			RepositoryName:     "billing-service",
			RepositoryURL:      "https://github.com/acme-dev/billing-service",
			DefaultBranch:      "main",
			Language:           &goLang,
		},
		{
			GithubRepositoryID: 8000002,
			OrganizationID:     org.ID,
			RepositoryName:     "legacy-monolith",
			RepositoryURL:      "https://github.com/acme-dev/legacy-monolith",
			DefaultBranch:      "master",
			IsPrivate:          true,
		},
	}

	states := []models.WorkflowState{
		models.WorkflowStateScheduling,
		models.WorkflowStateInProgress,
		models.WorkflowStateComplete,
	}

	for i := range projects {
		p := &projects[i]
		err := db.WithContext(ctx).
			Where("github_repository_id = ?", p.GithubRepositoryID).
			FirstOrCreate(p).Error
		if err != nil {
			return fmt.Errorf("failed to seed project %s: %w", p.RepositoryName, err)
		}

		for _, state := range states {
			workflow := models.Workflow{
				ProjectID: p.ID,
				State:     state,
			}
			if state == models.WorkflowStateComplete {
				workflow.Results = models.JSON{
					"modules_extracted": 4,
					"files_touched":     112,
				}
			}
			if err := db.WithContext(ctx).Create(&workflow).Error; err != nil {
				return fmt.Errorf("failed to seed workflow: %w", err)
			}
		}
	}

	return nil
}
