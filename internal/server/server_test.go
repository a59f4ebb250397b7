package server

import (
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/lazypower/lexloop/internal/priority"
	"github.com/lazypower/lexloop/internal/store"
)

func testServer(t *testing.T) (*Server, Options) {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dir := t.TempDir()
	opts := Options{
		StatePath: filepath.Join(dir, "weights.json"),
		CardPath:  filepath.Join(dir, "card.png"),
		Version:   "test-version",
	}
	return New(db, opts), opts
}

func get(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var body map[string]any
	if w.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
	}
	return w, body
}

func TestHealthEndpoint(t *testing.T) {
	srv, opts := testServer(t)

	w, body := get(t, srv, "/api/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test-version" {
		t.Errorf("version = %v, want test-version", body["version"])
	}
	if body["db"] != true {
		t.Errorf("db = %v, want true", body["db"])
	}
	if body["state_path"] != opts.StatePath {
		t.Errorf("state_path = %v", body["state_path"])
	}
}

func TestProgressWithoutState(t *testing.T) {
	srv, _ := testServer(t)
	w, body := get(t, srv, "/api/progress")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if body["error"] == "" {
		t.Error("expected error message")
	}
}

func TestProgressCorruptState(t *testing.T) {
	srv, opts := testServer(t)
	if err := os.WriteFile(opts.StatePath, []byte("garbage"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	w, _ := get(t, srv, "/api/progress")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestProgress(t *testing.T) {
	srv, opts := testServer(t)
	table := priority.Table{"gehen": 8, "laufen": 2, "sehen": 0}
	if err := priority.Persist(table, opts.StatePath); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	w, body := get(t, srv, "/api/progress?limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	if body["total_remaining"] != float64(10) {
		t.Errorf("total_remaining = %v, want 10", body["total_remaining"])
	}
	if body["mastered"] != float64(1) || body["pending"] != float64(2) {
		t.Errorf("mastered/pending = %v/%v", body["mastered"], body["pending"])
	}
	top, ok := body["top"].([]any)
	if !ok || len(top) != 2 {
		t.Fatalf("top = %v", body["top"])
	}
	first := top[0].(map[string]any)
	if first["item"] != "gehen" || first["weight"] != float64(8) {
		t.Errorf("top[0] = %v", first)
	}
}

func TestItemEndpoint(t *testing.T) {
	srv, opts := testServer(t)
	if err := priority.Persist(priority.Table{"die Möglichkeit": 4}, opts.StatePath); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	run, err := srv.db.StartRun(1)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if _, err := srv.db.RecordExposure(store.Exposure{
		RunID: run, Item: "die Möglichkeit", WeightBefore: 8, WeightAfter: 4, Status: store.ExposureShown,
	}); err != nil {
		t.Fatalf("RecordExposure: %v", err)
	}

	w, body := get(t, srv, "/api/items/die%20M%C3%B6glichkeit")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	if body["item"] != "die Möglichkeit" || body["weight"] != float64(4) || body["shown"] != float64(1) {
		t.Errorf("body = %v", body)
	}
	if body["mastered"] != false {
		t.Errorf("mastered = %v, want false", body["mastered"])
	}

	w, _ = get(t, srv, "/api/items/unbekannt")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown item status = %d, want 404", w.Code)
	}
}

func TestExposuresAndRuns(t *testing.T) {
	srv, _ := testServer(t)
	run, err := srv.db.StartRun(2)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := srv.db.RecordExposure(store.Exposure{
			RunID: run, Item: "gehen", WeightBefore: 8, WeightAfter: 4, Status: store.ExposureShown,
		}); err != nil {
			t.Fatalf("RecordExposure: %v", err)
		}
	}

	w, body := get(t, srv, "/api/exposures?limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if exps := body["exposures"].([]any); len(exps) != 2 {
		t.Errorf("exposures = %d, want 2", len(exps))
	}

	w, body = get(t, srv, "/api/runs")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	runs := body["runs"].([]any)
	if len(runs) != 1 || runs[0].(map[string]any)["id"] != run {
		t.Errorf("runs = %v", runs)
	}
}

func TestCardEndpoint(t *testing.T) {
	srv, opts := testServer(t)

	w, _ := get(t, srv, "/api/card")
	if w.Code != http.StatusNotFound {
		t.Errorf("status before render = %d, want 404", w.Code)
	}

	f, err := os.Create(opts.CardPath)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	w, _ = get(t, srv, "/api/card")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
}

func TestLimitParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=5", 5},
		{"limit=0", 20},
		{"limit=abc", 20},
		{"limit=100000", maxListLimit},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/api/runs?"+tt.query, nil)
		if got := limitParam(r, 20); got != tt.want {
			t.Errorf("limitParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
