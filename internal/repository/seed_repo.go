package repository

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"deploytracker/internal/models"
	"deploytracker/internal/validators"
)

// SeedLoader supplies the deployments a new tracker starts with.
type SeedLoader interface {
	Load(ctx context.Context) ([]models.Deployment, error)
}

// StaticSeed is the built-in seed: one deployment per environment.
type StaticSeed struct{}

func (StaticSeed) Load(ctx context.Context) ([]models.Deployment, error) {
	return []models.Deployment{
		{ID: 1, Name: "v1.0.0", Environment: models.EnvironmentProduction, Status: models.DeploymentStatusSuccess, Date: "2023-06-01"},
		{ID: 2, Name: "v1.1.0", Environment: models.EnvironmentStaging, Status: models.DeploymentStatusFailed, Date: "2023-06-15"},
		{ID: 3, Name: "v1.2.0", Environment: models.EnvironmentDevelopment, Status: models.DeploymentStatusPending, Date: "2023-06-30"},
	}, nil
}

// FileSeed reads seed deployments from a YAML file. The file is read on
// every Load and never written.
type FileSeed struct {
	Path string
}

type seedFile struct {
	Deployments []seedRow `yaml:"deployments"`
}

type seedRow struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment" validate:"required,environment"`
	Status      string `yaml:"status" validate:"required,status"`
	Date        string `yaml:"date" validate:"required,datetime=2006-01-02"`
}

func (s FileSeed) Load(ctx context.Context) ([]models.Deployment, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", s.Path, err)
	}

	deployments := make([]models.Deployment, 0, len(file.Deployments))
	for i, row := range file.Deployments {
		if err := validators.Struct(row); err != nil {
			return nil, fmt.Errorf("seed row %d: %w", i+1, err)
		}
		// IDs follow file order, matching how new deployments are numbered.
		deployments = append(deployments, models.Deployment{
			ID:          i + 1,
			Name:        row.Name,
			Environment: models.Environment(row.Environment),
			Status:      models.DeploymentStatus(row.Status),
			Date:        row.Date,
		})
	}
	return deployments, nil
}

// NewSeedLoader returns a FileSeed for a non-empty path and the built-in
// seed otherwise.
func NewSeedLoader(path string) SeedLoader {
	if path == "" {
		return StaticSeed{}
	}
	return FileSeed{Path: path}
}
