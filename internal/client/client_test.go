package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"deploytracker/internal/config"
	"deploytracker/internal/handlers"
	"deploytracker/internal/models"
	"deploytracker/internal/repository"
	"deploytracker/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	sessions := services.NewSessionService(repository.StaticSeed{}, time.Hour,
		services.WithClock(func() time.Time { return time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC) }))
	router, err := handlers.NewRouter(config.Default(), sessions, nil, zap.NewNop())
	require.NoError(t, err)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_NormalizesURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "http://localhost:8080"},
		{"localhost:9000", "http://localhost:9000"},
		{"https://tracker.example.com/", "https://tracker.example.com"},
	}
	for _, tt := range tests {
		c, err := New(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, c.baseURL)
	}
}

func TestClient_SessionRoundTrip(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	c, err := New(srv.URL)
	require.NoError(t, err)
	assert.Empty(t, c.SessionID())

	deployments, err := c.ListDeployments(ctx)
	require.NoError(t, err)
	assert.Len(t, deployments, 3)
	require.NotEmpty(t, c.SessionID())

	draft, err := c.UpdateDraft(ctx, models.DraftFieldEnvironment, "staging")
	require.NoError(t, err)
	assert.Equal(t, models.EnvironmentStaging, draft.Environment)

	created, err := c.AddDeployment(ctx, NewDeployment{Name: "v3.1.0"})
	require.NoError(t, err)
	assert.Equal(t, models.Deployment{ID: 4, Name: "v3.1.0", Environment: models.EnvironmentStaging, Status: models.DeploymentStatusPending, Date: "2025-01-15"}, created)

	points, err := c.Chart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, points[1].Deployments)

	resumed, err := New(srv.URL, WithSession(c.SessionID()))
	require.NoError(t, err)
	snap, err := resumed.Summary(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Deployments, 4)
}

func TestClient_APIError(t *testing.T) {
	srv := newServer(t)

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.AddDeployment(context.Background(), NewDeployment{Environment: "qa"})
	var apiErr APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.Status)
	assert.Contains(t, apiErr.Message, "Environment must be one of")
}

func TestClient_EndSession(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	c, err := New(srv.URL)
	require.NoError(t, err)
	require.NoError(t, c.EndSession(ctx), "no session yet is a no-op")

	_, err = c.AddDeployment(ctx, NewDeployment{Name: "temp"})
	require.NoError(t, err)
	ended := c.SessionID()
	require.NoError(t, c.EndSession(ctx))
	assert.Empty(t, c.SessionID())

	resumed, err := New(srv.URL, WithSession(ended))
	require.NoError(t, err)
	deployments, err := resumed.ListDeployments(ctx)
	require.NoError(t, err)
	assert.Len(t, deployments, 3)
}

func TestClient_WithHTTPClient(t *testing.T) {
	srv := newServer(t)

	c, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	assert.Same(t, srv.Client(), c.httpClient)

	_, err = c.Chart(context.Background())
	require.NoError(t, err)

	c, err = New(srv.URL, WithHTTPClient(nil))
	require.NoError(t, err)
	assert.NotNil(t, c.httpClient)
}
