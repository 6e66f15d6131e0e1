package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"deploytracker/internal/config"
	"deploytracker/internal/metrics"
	"deploytracker/internal/middleware"
	"deploytracker/internal/models"
	"deploytracker/internal/repository"
	"deploytracker/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2024, 7, 4, 15, 0, 0, 0, time.UTC)

type testServer struct {
	router   *gin.Engine
	sessions *services.SessionService
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	m := metrics.New()
	sessions := services.NewSessionService(repository.StaticSeed{}, time.Hour,
		services.WithClock(func() time.Time { return testNow }),
		services.WithObserver(m))
	router, err := NewRouter(cfg, sessions, m, zap.NewNop())
	require.NoError(t, err)
	return &testServer{router: router, sessions: sessions}
}

func (s *testServer) api(t *testing.T, sessionID, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(services.SessionHeaderKey, sessionID)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func TestAPI_ListSeedDeployments(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.sessions.NewSessionID()

	w := s.api(t, id, http.MethodGet, "/api/v1/deployments", "")
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[[]models.Deployment](t, w)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, id, w.Header().Get(services.SessionHeaderKey))
}

func TestAPI_DraftThenCreate(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.sessions.NewSessionID()

	w := s.api(t, id, http.MethodPatch, "/api/v1/draft", `{"field":"name","value":"v2.0.0"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.Draft{Name: "v2.0.0", Environment: models.EnvironmentProduction, Status: models.DeploymentStatusPending}, decode[models.Draft](t, w))

	w = s.api(t, id, http.MethodPost, "/api/v1/deployments", "")
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.Deployment](t, w)
	assert.Equal(t, models.Deployment{ID: 4, Name: "v2.0.0", Environment: models.EnvironmentProduction, Status: models.DeploymentStatusPending, Date: "2024-07-04"}, created)

	w = s.api(t, id, http.MethodGet, "/api/v1/draft", "")
	assert.Equal(t, models.NewDraft(), decode[models.Draft](t, w))

	w = s.api(t, id, http.MethodGet, "/api/v1/chart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"name":"production","deployments":2},{"name":"staging","deployments":1},{"name":"development","deployments":1}]`, w.Body.String())
}

func TestAPI_CreateWithBody(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.sessions.NewSessionID()

	w := s.api(t, id, http.MethodPost, "/api/v1/deployments", `{"name":"","environment":"staging","status":"failed"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.Deployment](t, w)
	assert.Equal(t, "", created.Name)
	assert.Equal(t, models.EnvironmentStaging, created.Environment)
	assert.Equal(t, models.DeploymentStatusFailed, created.Status)

	w = s.api(t, id, http.MethodGet, "/api/v1/summary", "")
	summary := decode[services.Snapshot](t, w)
	assert.Len(t, summary.Deployments, 4)
	assert.Equal(t, 2, summary.Chart[1].Deployments)
}

func TestAPI_CreateWithEmptyChunkedBody(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/deployments", io.NopCloser(strings.NewReader("")))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(services.SessionHeaderKey, s.sessions.NewSessionID())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	created := decode[models.Deployment](t, w)
	assert.Equal(t, 4, created.ID)
	assert.Equal(t, models.EnvironmentProduction, created.Environment)
}

func TestAPI_EndSession(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.sessions.NewSessionID()

	w := s.api(t, id, http.MethodPost, "/api/v1/deployments", `{"name":"temp"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, 1, s.sessions.Count())

	w = s.api(t, id, http.MethodDelete, "/api/v1/session", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, s.sessions.Count())

	w = s.api(t, id, http.MethodGet, "/api/v1/deployments", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Deployment](t, w), 3)
}

func TestAPI_Errors(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		wantMsg string
	}{
		{"unknown draft field", http.MethodPatch, "/api/v1/draft", `{"field":"date","value":"x"}`, "Field must be one of name environment status"},
		{"missing draft field", http.MethodPatch, "/api/v1/draft", `{"value":"x"}`, "Field is required"},
		{"bad draft environment", http.MethodPatch, "/api/v1/draft", `{"field":"environment","value":"qa"}`, "invalid environment"},
		{"bad draft status", http.MethodPatch, "/api/v1/draft", `{"field":"status","value":"done"}`, "invalid status"},
		{"bad create environment", http.MethodPost, "/api/v1/deployments", `{"environment":"qa"}`, "Environment must be one of production, staging, development"},
		{"malformed json", http.MethodPost, "/api/v1/deployments", `{`, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			id := s.sessions.NewSessionID()

			w := s.api(t, id, tt.method, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode[errorResponse](t, w).Error, tt.wantMsg)

			// Nothing was recorded and the draft is untouched.
			w = s.api(t, id, http.MethodGet, "/api/v1/summary", "")
			summary := decode[services.Snapshot](t, w)
			assert.Len(t, summary.Deployments, 3)
			assert.Equal(t, models.NewDraft(), summary.Draft)
		})
	}
}

func csrfToken(t *testing.T, s *testServer) (token string, cookies []*http.Cookie) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	cookies = w.Result().Cookies()
	for _, c := range cookies {
		if c.Name == middleware.CSRFCookieKey {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)
	return token, cookies
}

func postForm(s *testServer, path string, form url.Values, cookies []*http.Cookie, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestPanel_Page(t *testing.T) {
	s := newTestServer(t, nil)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Deployment Tracker")
	assert.Contains(t, body, "v1.0.0")
	assert.Contains(t, body, "Deployments by Environment")
}

func TestPanel_SubmitForm(t *testing.T) {
	s := newTestServer(t, nil)
	token, cookies := csrfToken(t, s)

	form := url.Values{
		middleware.CSRFFormKey: {token},
		"name":                 {"release-7"},
		"environment":          {"development"},
		"status":               {"success"},
	}
	w := postForm(s, "/deployments", form, cookies, false)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	s.router.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), "release-7")
	assert.Contains(t, w.Body.String(), "2024-07-04")
}

func TestPanel_SubmitRequiresCSRF(t *testing.T) {
	s := newTestServer(t, nil)
	_, cookies := csrfToken(t, s)

	w := postForm(s, "/deployments", url.Values{"name": {"x"}}, cookies, false)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPanel_SubmitRejectsBadEnvironment(t *testing.T) {
	s := newTestServer(t, nil)
	token, cookies := csrfToken(t, s)

	form := url.Values{middleware.CSRFFormKey: {token}, "environment": {"qa"}}
	w := postForm(s, "/deployments", form, cookies, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPanel_UpdateDraftHTMX(t *testing.T) {
	s := newTestServer(t, nil)
	token, cookies := csrfToken(t, s)

	form := url.Values{middleware.CSRFFormKey: {token}, "field": {"status"}, "value": {"failed"}}
	w := postForm(s, "/draft", form, cookies, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<option value="failed" selected>Failed</option>`)

	form = url.Values{middleware.CSRFFormKey: {token}}
	w = postForm(s, "/deployments", form, cookies, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/", w.Header().Get("HX-Redirect"))
}

func sessionFromCookies(t *testing.T, cookies []*http.Cookie) string {
	t.Helper()
	for _, c := range cookies {
		if c.Name == services.SessionCookieKey {
			return c.Value
		}
	}
	t.Fatal("no session cookie issued")
	return ""
}

// htmx posts the whole enclosing form plus hx-vals, so the edited value
// arrives under the control's own name rather than as "value".
func TestPanel_UpdateDraftFromHTMXForm(t *testing.T) {
	s := newTestServer(t, nil)
	token, cookies := csrfToken(t, s)
	id := sessionFromCookies(t, cookies)

	tests := []struct {
		field string
		form  url.Values
		want  models.Draft
	}{
		{
			field: "environment",
			form:  url.Values{"name": {""}, "environment": {"staging"}, "status": {"pending"}},
			want:  models.Draft{Name: "", Environment: models.EnvironmentStaging, Status: models.DeploymentStatusPending},
		},
		{
			field: "name",
			form:  url.Values{"name": {"v9"}, "environment": {"staging"}, "status": {"pending"}},
			want:  models.Draft{Name: "v9", Environment: models.EnvironmentStaging, Status: models.DeploymentStatusPending},
		},
		{
			field: "status",
			form:  url.Values{"name": {"v9"}, "environment": {"staging"}, "status": {"failed"}},
			want:  models.Draft{Name: "v9", Environment: models.EnvironmentStaging, Status: models.DeploymentStatusFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			form := tt.form
			form.Set(middleware.CSRFFormKey, token)
			form.Set("field", tt.field)

			w := postForm(s, "/draft", form, cookies, true)
			require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

			w = s.api(t, id, http.MethodGet, "/api/v1/draft", "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, decode[models.Draft](t, w))
		})
	}
}

func TestPanel_UpdateDraftUnknownField(t *testing.T) {
	s := newTestServer(t, nil)
	token, cookies := csrfToken(t, s)

	form := url.Values{middleware.CSRFFormKey: {token}, "field": {"id"}, "value": {"9"}}
	w := postForm(s, "/draft", form, cookies, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	s.api(t, s.sessions.NewSessionID(), http.MethodGet, "/api/v1/deployments", "")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":1}`, w.Body.String())

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "deploytracker_sessions_active 1")
}

func TestAllowedIPs(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Security.AllowedIPs = []string{"10.0.0.0/8"}
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/deployments", nil)
	req.RemoteAddr = "192.168.1.5:4000"
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/deployments", nil)
	req.RemoteAddr = "10.1.2.3:4000"
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorResponse_JSON(t *testing.T) {
	data, err := json.Marshal(errorResponse{Error: "something went wrong"})
	require.NoError(t, err)
	assert.Equal(t, `{"error":"something went wrong"}`, string(bytes.TrimSpace(data)))
}
