package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/model"
	"vigil/internal/service"
)

// stubStore is a canned-response InstanceStore for HTTP-level tests
type stubStore struct {
	createErr    error
	heartbeatErr error
	crashErr     error
	stopErr      error
	listResult   []*model.Instance
	listErr      error

	gotCreate      *model.Instance
	gotHeartbeatID string
	gotCrashID     string
	gotCrashDetail string
	gotStopID      string
}

func (s *stubStore) CreateOrReactivate(ctx context.Context, inst *model.Instance) error {
	s.gotCreate = inst
	return s.createErr
}

func (s *stubStore) UpdateHeartbeat(ctx context.Context, instanceID string, at time.Time) error {
	s.gotHeartbeatID = instanceID
	return s.heartbeatErr
}

func (s *stubStore) MarkCrashed(ctx context.Context, instanceID, errorDetail string, at time.Time) error {
	s.gotCrashID = instanceID
	s.gotCrashDetail = errorDetail
	return s.crashErr
}

func (s *stubStore) MarkStopped(ctx context.Context, instanceID string, at time.Time) error {
	s.gotStopID = instanceID
	return s.stopErr
}

func (s *stubStore) ListAll(ctx context.Context) ([]*model.Instance, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if s.listResult == nil {
		return []*model.Instance{}, nil
	}
	return s.listResult, nil
}

func (s *stubStore) FindStale(ctx context.Context, cutoff time.Time, maxNotifications int) ([]*model.Instance, error) {
	return nil, nil
}

func (s *stubStore) IncrementNotificationCount(ctx context.Context, instanceID string) error {
	return nil
}

func setupHandler(store *stubStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewInstanceHandler(service.NewRegistryService(store, nil))

	engine := gin.New()
	engine.POST("/instance/start", h.Start)
	engine.POST("/instance/alive", h.Alive)
	engine.POST("/instance/crash", h.Crash)
	engine.POST("/instance/stop", h.Stop)
	engine.GET("/instances", h.List)
	engine.GET("/", h.Dashboard)
	return engine
}

func performRequest(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestInstanceHandler_Start_Success(t *testing.T) {
	store := &stubStore{}
	engine := setupHandler(store)

	w := performRequest(engine, http.MethodPost, "/instance/start",
		`{"logical_key": "job-a", "host_label": "host-1"}`)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "Instance registered successfully", resp["message"])
	assert.Equal(t, "job-a", resp["logical_key"])
	instanceID, _ := resp["instance_id"].(string)
	assert.True(t, strings.HasPrefix(instanceID, "host-1_job-a_"))

	require.NotNil(t, store.gotCreate)
	assert.Equal(t, model.StateRunning, store.gotCreate.State)
}

func TestInstanceHandler_Start_MissingLogicalKey(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"no body", ""},
		{"only host label", `{"host_label": "host-1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := setupHandler(&stubStore{})

			w := performRequest(engine, http.MethodPost, "/instance/start", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeBody(t, w)
			assert.Equal(t, "error", resp["status"])
			assert.Equal(t, "logical_key is required", resp["message"])
		})
	}
}

func TestInstanceHandler_Start_DefaultsHostLabel(t *testing.T) {
	store := &stubStore{}
	engine := setupHandler(store)

	w := performRequest(engine, http.MethodPost, "/instance/start", `{"logical_key": "job-a"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, store.gotCreate)
	if hostname, err := os.Hostname(); err == nil {
		assert.Equal(t, hostname, store.gotCreate.HostLabel)
	}
	assert.NotEmpty(t, store.gotCreate.HostLabel)
}

func TestInstanceHandler_Start_Conflict(t *testing.T) {
	store := &stubStore{createErr: model.ErrAlreadyRunning}
	engine := setupHandler(store)

	w := performRequest(engine, http.MethodPost, "/instance/start", `{"logical_key": "job-a"}`)

	require.Equal(t, http.StatusConflict, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, "Failed to register instance - logical key may already be running", resp["message"])
}

func TestInstanceHandler_Start_StoreError(t *testing.T) {
	store := &stubStore{createErr: errors.New("connection refused")}
	engine := setupHandler(store)

	w := performRequest(engine, http.MethodPost, "/instance/start", `{"logical_key": "job-a"}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "error", resp["status"])
}

func TestInstanceHandler_Alive_Success(t *testing.T) {
	store := &stubStore{}
	engine := setupHandler(store)

	w := performRequest(engine, http.MethodPost, "/instance/alive",
		`{"instance_id": "host-1_job-a_deadbeef"}`)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "Heartbeat updated successfully", resp["message"])
	assert.Equal(t, "host-1_job-a_deadbeef", store.gotHeartbeatID)
}

func TestInstanceHandler_Alive_Validation(t *testing.T) {
	engine := setupHandler(&stubStore{})

	t.Run("no body", func(t *testing.T) {
		w := performRequest(engine, http.MethodPost, "/instance/alive", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No data provided", decodeBody(t, w)["message"])
	})

	t.Run("missing instance_id", func(t *testing.T) {
		w := performRequest(engine, http.MethodPost, "/instance/alive", `{}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "instance_id is required", decodeBody(t, w)["message"])
	})
}

func TestInstanceHandler_Alive_UnknownInstance(t *testing.T) {
	store := &stubStore{heartbeatErr: model.ErrNotFound}
	engine := setupHandler(store)

	w := performRequest(engine, http.MethodPost, "/instance/alive",
		`{"instance_id": "host-1_job-a_deadbeef"}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, "Failed to update heartbeat", resp["message"])
}

func TestInstanceHandler_Crash_Success(t *testing.T) {
	store := &stubStore{}
	engine := setupHandler(store)

	w := performRequest(engine, http.MethodPost, "/instance/crash",
		`{"instance_id": "host-1_job-a_deadbeef", "error_detail": "out of memory"}`)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "Crash reported successfully", resp["message"])
	assert.Equal(t, "host-1_job-a_deadbeef", store.gotCrashID)
	assert.Equal(t, "out of memory", store.gotCrashDetail)
}

func TestInstanceHandler_Crash_DefaultsErrorDetail(t *testing.T) {
	store := &stubStore{}
	engine := setupHandler(store)

	w := performRequest(engine, http.MethodPost, "/instance/crash",
		`{"instance_id": "host-1_job-a_deadbeef"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "unknown", store.gotCrashDetail)
}

func TestInstanceHandler_Crash_UnknownInstance(t *testing.T) {
	store := &stubStore{crashErr: model.ErrNotFound}
	engine := setupHandler(store)

	w := performRequest(engine, http.MethodPost, "/instance/crash",
		`{"instance_id": "host-1_job-a_deadbeef", "error_detail": "boom"}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, "Failed to update instance status", resp["message"])
}

func TestInstanceHandler_Stop_Success(t *testing.T) {
	store := &stubStore{}
	engine := setupHandler(store)

	w := performRequest(engine, http.MethodPost, "/instance/stop",
		`{"instance_id": "host-1_job-a_deadbeef"}`)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "Stop reported successfully", resp["message"])
	assert.Equal(t, "host-1_job-a_deadbeef", store.gotStopID)
}

func TestInstanceHandler_Stop_UnknownInstance(t *testing.T) {
	store := &stubStore{stopErr: model.ErrNotFound}
	engine := setupHandler(store)

	w := performRequest(engine, http.MethodPost, "/instance/stop",
		`{"instance_id": "host-1_job-a_deadbeef"}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "Failed to update instance status", resp["message"])
}

func TestInstanceHandler_List_Success(t *testing.T) {
	now := time.Now().UTC()
	detail := "boom"
	store := &stubStore{
		listResult: []*model.Instance{
			{
				InstanceID:    "host-1_job-b_cafebabe",
				LogicalKey:    "job-b",
				HostLabel:     "host-1",
				State:         model.StateRunning,
				CreatedAt:     now,
				LastHeartbeat: &now,
			},
			{
				InstanceID:        "host-1_job-a_deadbeef",
				LogicalKey:        "job-a",
				HostLabel:         "host-1",
				State:             model.StateCrashed,
				CreatedAt:         now.Add(-time.Hour),
				LastHeartbeat:     &now,
				ErrorDetail:       &detail,
				NotificationCount: 2,
			},
		},
	}
	engine := setupHandler(store)

	w := performRequest(engine, http.MethodGet, "/instances", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, float64(2), resp["count"])

	instances, ok := resp["instances"].([]interface{})
	require.True(t, ok)
	require.Len(t, instances, 2)

	first, ok := instances[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "host-1_job-b_cafebabe", first["instance_id"])
	assert.Equal(t, "running", first["state"])

	second, ok := instances[1].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "boom", second["error_detail"])
	assert.Equal(t, float64(2), second["notification_count"])
}

func TestInstanceHandler_List_EmptyIsArray(t *testing.T) {
	engine := setupHandler(&stubStore{})

	w := performRequest(engine, http.MethodGet, "/instances", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, float64(0), resp["count"])

	instances, ok := resp["instances"].([]interface{})
	require.True(t, ok, "instances must serialize as an array even when empty")
	assert.Empty(t, instances)
}

func TestInstanceHandler_Dashboard(t *testing.T) {
	engine := setupHandler(&stubStore{})

	w := performRequest(engine, http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Instance Monitor")
	assert.Contains(t, w.Body.String(), "/instances")
}
