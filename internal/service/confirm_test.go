package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hygiene-client/internal/api"
	"hygiene-client/internal/config"
	"hygiene-client/internal/directory"
	"hygiene-client/internal/models"
	"hygiene-client/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfirm(t *testing.T, handler http.Handler) (*ConfirmService, *storage.ConfirmationStore) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := api.NewClient(&config.ClientConfig{
		APIBase:            srv.URL,
		HTTPTimeoutSeconds: 5,
	})
	store := storage.NewConfirmationStore(newTestSnap(t))
	return NewConfirmService(client, directory.New(client), store), store
}

func TestSetConfirmedLocalOnly(t *testing.T) {
	svc, store := newTestConfirm(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}))

	row := models.MergedRow{ID: "2025-08-01-100002"}
	res := svc.SetConfirmed(context.Background(), row, true, "MGR001")
	assert.True(t, res.OK)
	assert.True(t, res.Confirmed)

	confirmed, ok := store.GetConfirmed(row.ID)
	assert.True(t, ok)
	assert.True(t, confirmed)
}

func TestSetConfirmedPushesToBackend(t *testing.T) {
	var gotMethod, gotPath string
	svc, store := newTestConfirm(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"supervisor_confirmed": true})
	}))

	remoteID := int64(55)
	row := models.MergedRow{ID: "2025-08-01-100002", RemoteID: &remoteID}

	res := svc.SetConfirmed(context.Background(), row, true, "MGR001")
	require.True(t, res.OK)
	assert.True(t, res.Confirmed)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/records/55/supervisor_confirm/", gotPath)

	confirmed, ok := store.GetConfirmed(row.ID)
	assert.True(t, ok)
	assert.True(t, confirmed)
}

func TestSetConfirmedKeepsLocalDecisionWhenPushFails(t *testing.T) {
	svc, store := newTestConfirm(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	remoteID := int64(55)
	row := models.MergedRow{ID: "2025-08-01-100002", RemoteID: &remoteID}

	res := svc.SetConfirmed(context.Background(), row, true, "")
	assert.True(t, res.OK)
	assert.True(t, res.Confirmed)

	confirmed, ok := store.GetConfirmed(row.ID)
	assert.True(t, ok)
	assert.True(t, confirmed)
}

func TestUnconfirmSendsDelete(t *testing.T) {
	var gotMethod string
	svc, store := newTestConfirm(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))

	remoteID := int64(55)
	row := models.MergedRow{ID: "2025-08-01-100002", RemoteID: &remoteID}

	require.True(t, svc.SetConfirmed(context.Background(), row, true, "").OK)
	res := svc.SetConfirmed(context.Background(), row, false, "")
	assert.True(t, res.OK)
	assert.False(t, res.Confirmed)
	assert.Equal(t, http.MethodDelete, gotMethod)

	confirmed, ok := store.GetConfirmed(row.ID)
	assert.True(t, ok)
	assert.False(t, confirmed)
}

func TestCanConfirmRowStatusGate(t *testing.T) {
	svc, _ := newTestConfirm(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	ctx := context.Background()

	base := models.MergedRow{ID: "2025-08-01-100002", OfficeName: "横浜営業所"}

	for _, status := range []models.Status{models.StatusNotSubmitted, models.StatusArrived} {
		row := base
		row.Status = status
		assert.False(t, svc.CanConfirmRow(ctx, models.RoleHQAdmin, row, "", ""), "status=%s", status)
	}
	for _, status := range []models.Status{models.StatusDeparted, models.StatusDayOff} {
		row := base
		row.Status = status
		assert.True(t, svc.CanConfirmRow(ctx, models.RoleHQAdmin, row, "", ""), "status=%s", status)
	}

	// a row with no identity can never be confirmed
	assert.False(t, svc.CanConfirmRow(ctx, models.RoleHQAdmin, models.MergedRow{Status: models.StatusDeparted}, "", ""))
}

func TestCanConfirmRowByRole(t *testing.T) {
	svc, _ := newTestConfirm(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	ctx := context.Background()

	row := models.MergedRow{
		ID:         "2025-08-01-100002",
		OfficeName: "横浜営業所",
		Status:     models.StatusDeparted,
	}

	assert.True(t, svc.CanConfirmRow(ctx, models.RoleHQAdmin, row, "鎌倉営業所", ""))
	assert.True(t, svc.CanConfirmRow(ctx, models.RoleBranchManager, row, "横浜　営業所", ""))
	assert.False(t, svc.CanConfirmRow(ctx, models.RoleBranchManager, row, "鎌倉営業所", ""))
	assert.False(t, svc.CanConfirmRow(ctx, models.RoleEmployee, row, "横浜営業所", ""))
}

func TestCanConfirmRowOfficeFallback(t *testing.T) {
	svc, _ := newTestConfirm(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	ctx := context.Background()

	row := models.MergedRow{ID: "2025-08-01-100002", Status: models.StatusDeparted}

	// row carries no office, the caller's current selection stands in
	assert.True(t, svc.CanConfirmRow(ctx, models.RoleBranchManager, row, "横浜営業所", "横浜営業所"))
	assert.False(t, svc.CanConfirmRow(ctx, models.RoleBranchManager, row, "横浜営業所", ""))
}
