package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/domain"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/infrastructure/storage"
)

type fakeRepo struct {
	active []domain.Promotion
	byID   map[int64]domain.Promotion
	err    error
	gotNow time.Time
}

func (f *fakeRepo) Upsert(context.Context, domain.Promotion) (int64, error) { return 0, nil }

func (f *fakeRepo) ListActive(_ context.Context, now time.Time) ([]domain.Promotion, error) {
	f.gotNow = now
	return f.active, f.err
}

func (f *fakeRepo) Get(_ context.Context, id int64) (domain.Promotion, error) {
	if f.err != nil {
		return domain.Promotion{}, f.err
	}
	promo, ok := f.byID[id]
	if !ok {
		return domain.Promotion{}, storage.ErrNotFound
	}
	return promo, nil
}

func newTestServer(repo *fakeRepo) *httptest.Server {
	s := NewServer(repo, Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return httptest.NewServer(s.Handler())
}

func getJSON(t *testing.T, url string, into interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if into != nil {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestRoot(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeRepo{})
	defer srv.Close()

	var body map[string]string
	if code := getJSON(t, srv.URL+"/", &body); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if body["message"] != "Fly Wise API rodando" {
		t.Fatalf("unexpected body %v", body)
	}

	if code := getJSON(t, srv.URL+"/nope", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown path, got %d", code)
	}
}

func TestActivePromotions(t *testing.T) {
	t.Parallel()

	until := time.Date(2025, 9, 14, 23, 59, 59, 0, time.UTC)
	repo := &fakeRepo{active: []domain.Promotion{{ID: 1, URL: "https://x/a", Title: "A", ValidUntil: &until}}}
	srv := newTestServer(repo)
	defer srv.Close()

	var body []map[string]interface{}
	if code := getJSON(t, srv.URL+"/api/v1/promotions/today", &body); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if len(body) != 1 || body[0]["title"] != "A" || body[0]["valid_until"] != "2025-09-14T23:59:59Z" {
		t.Fatalf("unexpected body %v", body)
	}
	if repo.gotNow.IsZero() {
		t.Fatal("ListActive called without a reference time")
	}

	empty := newTestServer(&fakeRepo{})
	defer empty.Close()
	var none []interface{}
	getJSON(t, empty.URL+"/api/v1/promotions/today", &none)
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty JSON array, got %v", none)
	}
}

func TestGetPromotion(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeRepo{byID: map[int64]domain.Promotion{7: {ID: 7, Title: "Sete"}}})
	defer srv.Close()

	tests := []struct {
		path   string
		status int
		key    string
		want   interface{}
	}{
		{"/api/v1/promotions/7", http.StatusOK, "title", "Sete"},
		{"/api/v1/promotions/8", http.StatusNotFound, "detail", "Promoção não encontrada"},
		{"/api/v1/promotions/abc", http.StatusBadRequest, "detail", "id inválido"},
		{"/api/v1/promotions/-1", http.StatusBadRequest, "detail", "id inválido"},
	}
	for _, tt := range tests {
		var body map[string]interface{}
		if code := getJSON(t, srv.URL+tt.path, &body); code != tt.status {
			t.Fatalf("%s: status %d, want %d", tt.path, code, tt.status)
		}
		if body[tt.key] != tt.want {
			t.Fatalf("%s: %s=%v, want %v", tt.path, tt.key, body[tt.key], tt.want)
		}
	}
}

func TestRepositoryErrorsAre500(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeRepo{err: errors.New("db down")})
	defer srv.Close()

	for _, path := range []string{"/api/v1/promotions/today", "/api/v1/promotions/1"} {
		if code := getJSON(t, srv.URL+path, nil); code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", path, code)
		}
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer(&fakeRepo{}, Options{ShutdownTimeout: time.Second}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	var body map[string]string
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err == nil {
			_ = json.NewDecoder(resp.Body).Decode(&body)
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never answered: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
