package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"deploytracker/internal/models"
	"deploytracker/internal/repository"
)

// Observer is told about tracker and session activity. The metrics
// package provides the production implementation.
type Observer interface {
	DeploymentAdded(d models.Deployment)
	SessionsActive(n int)
}

type nopObserver struct{}

func (nopObserver) DeploymentAdded(models.Deployment) {}
func (nopObserver) SessionsActive(int)                {}

// Tracker holds one session's deployments and the draft being composed.
// Deployments are append-only: once added they are never changed or
// removed.
type Tracker struct {
	mu          sync.Mutex
	deployments []models.Deployment
	draft       models.Draft

	seed     repository.SeedLoader
	now      func() time.Time
	observer Observer
}

// Snapshot is a consistent view of a tracker for rendering.
type Snapshot struct {
	Deployments []models.Deployment `json:"deployments"`
	Draft       models.Draft        `json:"draft"`
	Chart       []models.ChartPoint `json:"chart"`
}

func NewTracker(seed repository.SeedLoader, now func() time.Time, observer Observer) *Tracker {
	if seed == nil {
		seed = repository.StaticSeed{}
	}
	if now == nil {
		now = time.Now
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Tracker{
		draft:    models.NewDraft(),
		seed:     seed,
		now:      now,
		observer: observer,
	}
}

// Initialize replaces the deployments with the seed set and resets the
// draft. It is called once when a session starts.
func (t *Tracker) Initialize(ctx context.Context) error {
	seed, err := t.seed.Load(ctx)
	if err != nil {
		return fmt.Errorf("load seed deployments: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.deployments = append([]models.Deployment(nil), seed...)
	t.draft = models.NewDraft()
	return nil
}

// DraftUpdate is one field edit coming from the form.
type DraftUpdate struct {
	Field models.DraftField
	Value string
}

// UpdateDraftField sets one field of the draft. The name is free text;
// environment and status must be one of their known values.
func (t *Tracker) UpdateDraftField(field models.DraftField, value string) error {
	return t.ApplyDraft(DraftUpdate{Field: field, Value: value})
}

// ApplyDraft applies several field edits at once. Either all of them take
// effect or, on the first invalid one, none do.
func (t *Tracker) ApplyDraft(updates ...DraftUpdate) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	draft := t.draft
	for _, u := range updates {
		if err := draft.Set(u.Field, u.Value); err != nil {
			return err
		}
	}
	t.draft = draft
	return nil
}

// AddDeployment turns the draft into a deployment dated today (UTC), appends it
// and resets the draft. An empty name is accepted.
func (t *Tracker) AddDeployment() models.Deployment {
	t.mu.Lock()
	d := models.Deployment{
		ID:          len(t.deployments) + 1,
		Name:        t.draft.Name,
		Environment: t.draft.Environment,
		Status:      t.draft.Status,
		Date:        t.now().UTC().Format(models.DateLayout),
	}
	t.deployments = append(t.deployments, d)
	t.draft = models.NewDraft()
	t.mu.Unlock()

	t.observer.DeploymentAdded(d)
	return d
}

func (t *Tracker) Records() []models.Deployment {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.Deployment(nil), t.deployments...)
}

func (t *Tracker) Draft() models.Draft {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.draft
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	deployments := append([]models.Deployment(nil), t.deployments...)
	return Snapshot{
		Deployments: deployments,
		Draft:       t.draft,
		Chart:       Project(deployments),
	}
}
