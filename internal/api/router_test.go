package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/bim4d-backend-go/internal/config"
	"github.com/jengzang/bim4d-backend-go/internal/database"
	"github.com/jengzang/bim4d-backend-go/internal/middleware"
	"github.com/jengzang/bim4d-backend-go/internal/repository"
	"github.com/jengzang/bim4d-backend-go/internal/service"
)

const secret = "router-test-secret"

const document = `{
  "products": [{"global_id": "col", "name": "Column"}, {"global_id": "shed", "name": "Shed"}],
  "schedules": [{"name": "Site", "tasks": [
    {"name": "Pour column", "predefined_type": "CONSTRUCTION",
     "times": {"SCHEDULE": {"start": "2024-03-01T00:00:00Z", "finish": "2024-03-11T00:00:00Z"}},
     "outputs": ["col"]},
    {"name": "Remove shed", "predefined_type": "DEMOLITION",
     "times": {"SCHEDULE": {"start": "2024-03-05T00:00:00Z", "finish": "2024-03-08T00:00:00Z"}},
     "inputs": ["shed"]}
  ]}]
}`

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "api.db")
	db, err := database.Open(database.Config{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrationManager(db).RunMigrations())

	cfg := &config.Config{JWTSecret: secret}
	svc := service.NewSequenceService(
		repository.NewScheduleRepository(db, path),
		repository.NewKVRepository(db),
		service.Options{FPS: 24, StartFrame: 1},
		nil,
	)
	token, err := middleware.IssueToken(secret, "tester", "editor", time.Hour)
	require.NoError(t, err)
	return &testServer{t: t, router: SetupRouter(cfg, svc, nil), token: token}
}

func (s *testServer) do(method, path, body string, authed bool) (int, envelope) {
	s.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func TestRouter_ImportRequiresAuth(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(http.MethodPost, "/api/v1/documents", document, false)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := s.do(http.MethodPost, "/api/v1/documents", `{"schedules": 3}`, true)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, http.StatusBadRequest, env.Code)

	code, _ = s.do(http.MethodPost, "/api/v1/documents", document, true)
	assert.Equal(t, http.StatusOK, code)
}

func TestRouter_ClassifyAndSnapshot(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(http.MethodPost, "/api/v1/documents", document, true)
	require.Equal(t, http.StatusOK, code)

	code, env := s.do(http.MethodGet, "/api/v1/schedules/1/classify?date=2024-03-06T00:00:00Z", "", false)
	require.Equal(t, http.StatusOK, code)
	var cls struct {
		Buckets map[string][]int64 `json:"buckets"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cls))
	assert.Equal(t, []int64{1}, cls.Buckets["IN_CONSTRUCTION"])
	assert.Equal(t, []int64{2}, cls.Buckets["IN_DEMOLITION"])

	code, _ = s.do(http.MethodGet, "/api/v1/schedules/1/classify", "", false)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(http.MethodGet, "/api/v1/schedules/9/classify?date=2024-03-06T00:00:00Z", "", false)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.do(http.MethodPost, "/api/v1/schedules/1/snapshot", `{"date": "2024-03-20T00:00:00Z", "apply": true}`, false)
	require.Equal(t, http.StatusOK, code)
	var snap struct {
		Looks map[string]struct {
			Visible bool `json:"visible"`
		} `json:"looks"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.True(t, snap.Looks["1"].Visible)
	assert.False(t, snap.Looks["2"].Visible)
}

func TestRouter_BakeAndLive(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(http.MethodPost, "/api/v1/documents", document, true)
	require.Equal(t, http.StatusOK, code)

	speed := `{"speed": {"type": "FRAME_SPEED", "animation_frames": 24, "real_duration": "P1D"}}`
	code, env := s.do(http.MethodPost, "/api/v1/schedules/1/settings", speed, false)
	require.Equal(t, http.StatusOK, code)
	var settings struct {
		EndFrame int `json:"end_frame"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &settings))
	assert.Equal(t, 240, settings.EndFrame)

	code, _ = s.do(http.MethodPost, "/api/v1/schedules/1/settings", `{"speed": {"type": "FRAME_SPEED", "animation_frames": 24}}`, false)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodPost, "/api/v1/schedules/1/bake", speed, false)
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodGet, "/api/v1/scene/objects/1", "", false)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodPost, "/api/v1/schedules/1/live", speed, false)
	require.Equal(t, http.StatusOK, code)
	code, env = s.do(http.MethodPut, "/api/v1/live/frame", `{"frame": 200}`, false)
	require.Equal(t, http.StatusOK, code)
	var status service.LiveStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.True(t, status.Running)
	assert.Equal(t, 200, status.Frame)

	code, env = s.do(http.MethodDelete, "/api/v1/live", "", false)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.False(t, status.Running)
}

func TestRouter_Profiles(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(http.MethodGet, "/api/v1/profiles/groups", "", false)
	require.Equal(t, http.StatusOK, code)

	group := `[{"name": "CONSTRUCTION", "in_progress_color": [0, 0, 1]}]`
	code, _ = s.do(http.MethodPut, "/api/v1/profiles/groups/Blue", group, false)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = s.do(http.MethodPut, "/api/v1/profiles/groups/Blue", group, true)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodPut, "/api/v1/profiles/groups/Bad", `[{"name": "X", "start_color": [2, 0, 0]}]`, true)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodPut, "/api/v1/profiles/stack", `[{"group": "Blue", "enabled": true}]`, true)
	require.Equal(t, http.StatusOK, code)

	code, env := s.do(http.MethodGet, "/api/v1/profiles/resolve?task_id=1&type=CONSTRUCTION", "", false)
	require.Equal(t, http.StatusOK, code)
	var res service.Resolution
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "Blue", res.Group)

	code, _ = s.do(http.MethodDelete, "/api/v1/profiles/groups/DEFAULT", "", true)
	assert.Equal(t, http.StatusConflict, code)
}

func TestRouter_CacheAndHealth(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodGet, "/api/v1/cache/stats", "", false)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodDelete, "/api/v1/cache", "", false)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = s.do(http.MethodDelete, "/api/v1/cache", "", true)
	assert.Equal(t, http.StatusOK, code)
}
