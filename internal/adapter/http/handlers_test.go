package adapthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	adapthttp "bodycomp/internal/adapter/http"
	"bodycomp/internal/adapter/memory"
	"bodycomp/internal/app"
	"bodycomp/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock repositories (function-fields pattern over the in-memory store)
// ---------------------------------------------------------------------------

type mockWeightRepo struct {
	*memory.DB
	latestFn func(ctx context.Context, userID int64, localDay string) (*domain.WeightRecord, error)
	listFn   func(ctx context.Context, userID int64, limit int) ([]domain.WeightRecord, error)
	undoFn   func(ctx context.Context, userID int64) (bool, error)
}

func (m *mockWeightRepo) LatestWeightForLocalDay(ctx context.Context, userID int64, localDay string) (*domain.WeightRecord, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx, userID, localDay)
	}
	return m.DB.LatestWeightForLocalDay(ctx, userID, localDay)
}

func (m *mockWeightRepo) ListRecentWeightEvents(ctx context.Context, userID int64, limit int) ([]domain.WeightRecord, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, limit)
	}
	return m.DB.ListRecentWeightEvents(ctx, userID, limit)
}

func (m *mockWeightRepo) DeleteLatestWeightEvent(ctx context.Context, userID int64) (bool, error) {
	if m.undoFn != nil {
		return m.undoFn(ctx, userID)
	}
	return m.DB.DeleteLatestWeightEvent(ctx, userID)
}

// ---------------------------------------------------------------------------
// Test-server helper
// ---------------------------------------------------------------------------

type testEnv struct {
	ts     *httptest.Server
	db     *memory.DB
	client *http.Client
}

func newTestServer(t *testing.T, wr *mockWeightRepo, withAuth bool) *testEnv {
	t.Helper()

	db := memory.New()
	if wr == nil {
		wr = &mockWeightRepo{}
	}
	if wr.DB == nil {
		wr.DB = db
	}

	records := app.NewRecordsService(db, wr, db, 50)
	t.Cleanup(records.Close)
	hist := app.NewHistoryService(records)
	t.Cleanup(hist.Close)

	srv := adapthttp.New(adapthttp.Services{
		Auth:      app.NewAuthService(db, db.NewSessionRepo()),
		Weight:    app.NewWeightService(wr, records),
		Profile:   app.NewProfileService(db),
		Workflows: app.NewWorkflowService(records, time.Hour),
		History:   hist,
		Records:   records,
	}, adapthttp.OIDCConfig{})
	if !withAuth {
		srv = srv.WithoutAuth()
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, db: db, client: ts.Client()}
}

func (e *testEnv) do(t *testing.T, method, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	var m map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&m)
	return resp, m
}

// eventually polls fn until it returns true or the deadline passes. The
// history timeline follows writes asynchronously.
func eventually(t *testing.T, what string, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func state(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	st, ok := body["state"].(map[string]any)
	if !ok {
		t.Fatalf("response missing 'state': %v", body)
	}
	return st
}

func historyItems(t *testing.T, e *testEnv, unit string) []any {
	t.Helper()
	resp, body := e.do(t, http.MethodGet, "/api/history?unit="+unit, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history: expected 200, got %d: %v", resp.StatusCode, body)
	}
	items, _ := body["items"].([]any)
	return items
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	e := newTestServer(t, nil, false)

	resp, body := e.do(t, http.MethodGet, "/api/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok=true, got %v", body["ok"])
	}
	if got := resp.Header.Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestConfigAndSSODisabled(t *testing.T) {
	e := newTestServer(t, nil, true)

	resp, body := e.do(t, http.MethodGet, "/api/config", nil)
	if resp.StatusCode != http.StatusOK || body["sso_enabled"] != false {
		t.Fatalf("config = %d %v", resp.StatusCode, body)
	}
	resp, _ = e.do(t, http.MethodGet, "/api/sso/login", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for disabled sso, got %d", resp.StatusCode)
	}
}

func TestAuthFlow(t *testing.T) {
	e := newTestServer(t, nil, true)

	resp, _ := e.do(t, http.MethodGet, "/api/profile", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", resp.StatusCode)
	}

	resp, _ = e.do(t, http.MethodPost, "/api/setup", map[string]string{"username": "admin", "password": "short"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", resp.StatusCode)
	}
	resp, _ = e.do(t, http.MethodPost, "/api/setup", map[string]string{"username": "admin", "password": "password123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("setup: expected 200, got %d", resp.StatusCode)
	}

	resp, _ = e.do(t, http.MethodPost, "/api/login", map[string]string{"username": "admin", "password": "wrong-password"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", resp.StatusCode)
	}

	resp, _ = e.do(t, http.MethodPost, "/api/login", map[string]string{"username": "admin", "password": "password123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "session" {
			session = c
		}
	}
	if session == nil || session.Value == "" {
		t.Fatal("login did not set a session cookie")
	}

	req, _ := http.NewRequest(http.MethodGet, e.ts.URL+"/api/profile", nil)
	req.AddCookie(session)
	r2, err := e.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = r2.Body.Close()
	if r2.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with session, got %d", r2.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, e.ts.URL+"/api/profile", nil)
	req.AddCookie(session)
	req.Header.Set("User-Agent", "another-browser")
	r3, err := e.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = r3.Body.Close()
	if r3.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a different user agent, got %d", r3.StatusCode)
	}
}

func TestForwardAuthHeader(t *testing.T) {
	e := newTestServer(t, nil, true)

	req, _ := http.NewRequest(http.MethodGet, e.ts.URL+"/api/weight/recent", nil)
	req.Header.Set("Remote-User", "alice")
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if u, _ := e.db.GetByUsername(context.Background(), "alice"); u == nil {
		t.Fatal("forward-auth user was not provisioned")
	}
}

func TestProfileEndpoint(t *testing.T) {
	e := newTestServer(t, nil, false)

	resp, body := e.do(t, http.MethodGet, "/api/profile", nil)
	if resp.StatusCode != http.StatusOK || body["profile"] != nil {
		t.Fatalf("expected empty profile, got %d %v", resp.StatusCode, body)
	}

	tests := []struct {
		name       string
		payload    map[string]any
		wantStatus int
	}{
		{"valid", map[string]any{"age": 30, "sex": "female"}, http.StatusOK},
		{"zero age", map[string]any{"age": 0, "sex": "male"}, http.StatusBadRequest},
		{"bad sex", map[string]any{"age": 30, "sex": "x"}, http.StatusBadRequest},
		{"unknown field", map[string]any{"age": 30, "sex": "male", "height": 180}, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := e.do(t, http.MethodPut, "/api/profile", tc.payload)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("expected %d, got %d; body: %v", tc.wantStatus, resp.StatusCode, body)
			}
		})
	}

	_, body = e.do(t, http.MethodGet, "/api/profile", nil)
	p, _ := body["profile"].(map[string]any)
	if p == nil || p["age"] != float64(30) || p["sex"] != "female" {
		t.Fatalf("unexpected stored profile %v", body)
	}
}

func TestWeightTodayPut(t *testing.T) {
	tests := []struct {
		name       string
		payload    map[string]any
		wantStatus int
	}{
		{"valid kg", map[string]any{"value": 85.5, "unit": "kg"}, http.StatusOK},
		{"valid lb with note", map[string]any{"value": 190.0, "unit": "lb", "note": "after run"}, http.StatusOK},
		{"value zero", map[string]any{"value": 0, "unit": "kg"}, http.StatusBadRequest},
		{"value negative", map[string]any{"value": -5.0, "unit": "kg"}, http.StatusBadRequest},
		{"invalid unit", map[string]any{"value": 80.0, "unit": "stone"}, http.StatusBadRequest},
	}

	e := newTestServer(t, nil, false)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := e.do(t, http.MethodPut, "/api/weight/today", tc.payload)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("expected %d, got %d; body: %v", tc.wantStatus, resp.StatusCode, body)
			}
			if tc.wantStatus == http.StatusOK {
				if _, ok := body["entry"].(map[string]any); !ok {
					t.Fatalf("response missing 'entry': %v", body)
				}
			}
		})
	}

	resp, body := e.do(t, http.MethodGet, "/api/weight/today", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	entry, _ := body["entry"].(map[string]any)
	if entry == nil || entry["value"] != 190.0 || entry["note"] != "after run" {
		t.Fatalf("unexpected today entry %v", body)
	}
}

func TestWeightRecentAndUndo(t *testing.T) {
	items := []domain.WeightRecord{
		{ID: 1, Day: "2026-02-08", Magnitude: 80.0, Unit: domain.UnitKG, CreatedAt: time.Now()},
		{ID: 2, Day: "2026-02-07", Magnitude: 81.0, Unit: domain.UnitKG, CreatedAt: time.Now()},
	}
	e := newTestServer(t, &mockWeightRepo{
		listFn: func(_ context.Context, _ int64, limit int) ([]domain.WeightRecord, error) {
			if limit < len(items) {
				return items[:limit], nil
			}
			return items, nil
		},
		undoFn: func(context.Context, int64) (bool, error) { return true, nil },
	}, false)

	resp, body := e.do(t, http.MethodGet, "/api/weight/recent?limit=5", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if arr, _ := body["items"].([]any); len(arr) != 2 {
		t.Fatalf("expected 2 items, got %v", body["items"])
	}

	resp, body = e.do(t, http.MethodPost, "/api/weight/undo-last", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["ok"] != true || body["deleted"] != true {
		t.Fatalf("unexpected undo body %v", body)
	}
}

func TestWeightRepoFailure(t *testing.T) {
	e := newTestServer(t, &mockWeightRepo{
		latestFn: func(context.Context, int64, string) (*domain.WeightRecord, error) {
			return nil, errors.New("db down")
		},
	}, false)

	resp, body := e.do(t, http.MethodGet, "/api/weight/today", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if body["error"] != "db down" {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestWorkflowThreeSiteSavesToHistory(t *testing.T) {
	e := newTestServer(t, nil, false)

	if resp, _ := e.do(t, http.MethodPut, "/api/profile", map[string]any{"age": 25, "sex": "male"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("profile: %d", resp.StatusCode)
	}

	resp, body := e.do(t, http.MethodPost, "/api/workflows", map[string]any{"protocol": "three_site"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d: %v", resp.StatusCode, body)
	}
	id, _ := body["id"].(string)
	st := state(t, body)
	if st["ageText"] != "25" || st["sex"] != "male" || st["phase"] != "editing" {
		t.Fatalf("profile not pre-filled: %v", st)
	}
	base := "/api/workflows/" + id

	resp, body = e.do(t, http.MethodPost, base+"/calculate", nil)
	if resp.StatusCode != http.StatusUnprocessableEntity || body["error"] != "fields incomplete" {
		t.Fatalf("calculate on incomplete: %d %v", resp.StatusCode, body)
	}

	for i, v := range []string{"10", "12", "1a4"} {
		resp, body = e.do(t, http.MethodPost, base+"/site", map[string]any{"index": i, "text": v})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("site %d: %d %v", i, resp.StatusCode, body)
		}
	}
	st = state(t, body)
	if st["phase"] != "complete" || st["complete"] != true {
		t.Fatalf("expected complete phase, got %v", st)
	}

	resp, body = e.do(t, http.MethodPost, base+"/note", map[string]any{"note": "morning"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("note: %d", resp.StatusCode)
	}

	resp, body = e.do(t, http.MethodPost, base+"/calculate", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("calculate: %d %v", resp.StatusCode, body)
	}
	st = state(t, body)
	result, _ := st["result"].(map[string]any)
	if st["phase"] != "result" || result == nil {
		t.Fatalf("expected result, got %v", st)
	}
	if pct, _ := result["percentage"].(float64); math.Abs(pct-10.3549) > 1e-3 {
		t.Fatalf("percentage = %v, want about 10.3549", pct)
	}

	var compID float64
	eventually(t, "composition in history", func() bool {
		items := historyItems(t, e, "kg")
		if len(items) != 1 {
			return false
		}
		it := items[0].(map[string]any)
		compID, _ = it["id"].(float64)
		return it["kind"] == "composition" && it["note"] == "morning"
	})

	resp, body = e.do(t, http.MethodPost, base+"/close-result", nil)
	if st = state(t, body); st["phase"] != "closed" || st["resultVisible"] != false || st["result"] == nil {
		t.Fatalf("close-result: %v", st)
	}

	resp, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/history/composition/%d", int64(compID)), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}
	eventually(t, "empty history", func() bool { return len(historyItems(t, e, "kg")) == 0 })

	resp, body = e.do(t, http.MethodPost, base+"/reset", nil)
	if st = state(t, body); st["phase"] != "editing" || st["sex"] != "male" || st["result"] != nil {
		t.Fatalf("reset: %v", st)
	}

	resp, _ = e.do(t, http.MethodDelete, base, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("close workflow: %d", resp.StatusCode)
	}
	resp, _ = e.do(t, http.MethodGet, base, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after close, got %d", resp.StatusCode)
	}
}

func TestWorkflowGuestDoesNotSave(t *testing.T) {
	e := newTestServer(t, nil, false)

	_, body := e.do(t, http.MethodPost, "/api/workflows", map[string]any{"protocol": "three_site", "guest": true})
	id, _ := body["id"].(string)
	if st := state(t, body); st["allowPersist"] != false {
		t.Fatalf("guest workflow allows persist: %v", st)
	}
	base := "/api/workflows/" + id

	e.do(t, http.MethodPost, base+"/sex", map[string]any{"sex": "female"})
	e.do(t, http.MethodPost, base+"/age", map[string]any{"text": "30"})
	for i := 0; i < 3; i++ {
		e.do(t, http.MethodPost, base+"/site", map[string]any{"index": i, "text": "20"})
	}
	resp, body := e.do(t, http.MethodPost, base+"/calculate", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("calculate: %d %v", resp.StatusCode, body)
	}
	result, _ := state(t, body)["result"].(map[string]any)
	if pct, _ := result["percentage"].(float64); math.Abs(pct-24.1279) > 1e-3 {
		t.Fatalf("percentage = %v, want about 24.1279", pct)
	}

	_, body = e.do(t, http.MethodGet, "/api/compositions/recent", nil)
	if arr, _ := body["items"].([]any); len(arr) != 0 {
		t.Fatalf("guest result was saved: %v", arr)
	}
}

func TestWorkflowCalculationFailure(t *testing.T) {
	e := newTestServer(t, nil, false)

	_, body := e.do(t, http.MethodPost, "/api/workflows", map[string]any{"protocol": "seven_site"})
	id, _ := body["id"].(string)
	base := "/api/workflows/" + id

	e.do(t, http.MethodPost, base+"/age", map[string]any{"text": "5000"})
	for i := 0; i < 7; i++ {
		e.do(t, http.MethodPost, base+"/site", map[string]any{"index": i, "text": "10"})
	}
	resp, body := e.do(t, http.MethodPost, base+"/calculate", nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	st := state(t, body)
	if st["phase"] != "failed" || st["errorMessage"] != "calculation failed" || st["result"] != nil {
		t.Fatalf("unexpected failed state %v", st)
	}

	_, body = e.do(t, http.MethodPost, base+"/clear-error", nil)
	if st := state(t, body); st["errorMessage"] != "" {
		t.Fatalf("clear-error left %v", st["errorMessage"])
	}
}

func TestWorkflowErrors(t *testing.T) {
	e := newTestServer(t, nil, false)

	resp, _ := e.do(t, http.MethodPost, "/api/workflows", map[string]any{"protocol": "four_site"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad protocol: expected 400, got %d", resp.StatusCode)
	}

	_, body := e.do(t, http.MethodPost, "/api/workflows", map[string]any{"protocol": "three_site"})
	base := "/api/workflows/" + body["id"].(string)

	tests := []struct {
		name       string
		method     string
		path       string
		payload    any
		wantStatus int
	}{
		{"unknown workflow", http.MethodGet, "/api/workflows/nope", nil, http.StatusNotFound},
		{"unknown workflow action", http.MethodPost, "/api/workflows/nope/reset", nil, http.StatusNotFound},
		{"site out of range", http.MethodPost, base + "/site", map[string]any{"index": 3, "text": "1"}, http.StatusBadRequest},
		{"bad sex", http.MethodPost, base + "/sex", map[string]any{"sex": "other"}, http.StatusBadRequest},
		{"unknown action", http.MethodPost, base + "/explode", nil, http.StatusNotFound},
		{"GET on action", http.MethodGet, base + "/calculate", nil, http.StatusMethodNotAllowed},
		{"GET workflows", http.MethodGet, "/api/workflows", nil, http.StatusMethodNotAllowed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := e.do(t, tc.method, tc.path, tc.payload)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("expected %d, got %d; body: %v", tc.wantStatus, resp.StatusCode, body)
			}
		})
	}
}

func TestHistoryMergesWeightsInRequestedUnit(t *testing.T) {
	e := newTestServer(t, nil, false)

	if resp, _ := e.do(t, http.MethodPut, "/api/weight/today", map[string]any{"value": 80, "unit": "kg"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("record weight: %d", resp.StatusCode)
	}

	eventually(t, "weight in history", func() bool {
		items := historyItems(t, e, "lb")
		if len(items) != 1 {
			return false
		}
		it := items[0].(map[string]any)
		w, _ := it["weight"].(map[string]any)
		if it["kind"] != "weight" || w == nil {
			return false
		}
		v, _ := w["value"].(float64)
		return w["unit"] == "lb" && math.Abs(v-176.3698) < 1e-3
	})

	resp, _ := e.do(t, http.MethodGet, "/api/history?unit=stone", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad unit: expected 400, got %d", resp.StatusCode)
	}

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/api/history/weight/999", http.StatusNotFound},
		{"/api/history/water/1", http.StatusBadRequest},
		{"/api/history/weight/abc", http.StatusBadRequest},
	}
	for _, tc := range tests {
		resp, _ := e.do(t, http.MethodDelete, tc.path, nil)
		if resp.StatusCode != tc.wantStatus {
			t.Errorf("DELETE %s: expected %d, got %d", tc.path, tc.wantStatus, resp.StatusCode)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	e := newTestServer(t, nil, false)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"DELETE weight/today", http.MethodDelete, "/api/weight/today"},
		{"POST weight/recent", http.MethodPost, "/api/weight/recent"},
		{"GET weight/undo-last", http.MethodGet, "/api/weight/undo-last"},
		{"POST profile", http.MethodPost, "/api/profile"},
		{"POST history", http.MethodPost, "/api/history"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := e.do(t, tc.method, tc.path, nil)
			if resp.StatusCode != http.StatusMethodNotAllowed {
				t.Fatalf("expected 405, got %d", resp.StatusCode)
			}
		})
	}
}
