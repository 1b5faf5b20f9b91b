package app

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/config"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/infrastructure/extract"
)

func testApp(cfg config.Config) *Application {
	return &Application{cfg: cfg, logger: slog.New(slog.NewTextHandler(io.Discard, nil)), now: time.Now}
}

func TestRegistryAssignsSiteStrategies(t *testing.T) {
	t.Parallel()

	a := testApp(config.Config{Sites: []config.SiteConfig{
		{Name: "pp", Extractor: extract.SelectorsName},
		{Name: "blog", Extractor: extract.ReadabilityName},
		{Name: "custom", Selectors: []string{"div.materia"}},
		{Name: "plain"},
		{Name: "typo", Extractor: "xpath"},
	}})
	registry := a.registry()

	tests := map[string]string{
		"pp":     extract.SelectorsName,
		"blog":   extract.ReadabilityName,
		"custom": "selectors:custom",
		"plain":  extract.SelectorsName,
	}
	for site, want := range tests {
		got, err := registry.ExtractorFor(site)
		if err != nil {
			t.Fatalf("%s: %v", site, err)
		}
		if name := got.(interface{ Name() string }).Name(); name != want {
			t.Fatalf("%s: strategy %s, want %s", site, name, want)
		}
	}

	if _, err := registry.ExtractorFor("typo"); err == nil || !strings.Contains(err.Error(), "xpath") {
		t.Fatalf("expected unknown strategy error, got %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(t.Context(), config.Config{}, nil)
	if !errors.Is(err, config.ErrMissingDSN) {
		t.Fatalf("expected ErrMissingDSN, got %v", err)
	}
}

func TestNewDetectorUsesConfiguredWindow(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	cfg := config.Config{Validity: config.ValidityConfig{LookAheadDays: 10}}
	detector := NewDetector(cfg)

	anchor := time.Date(2025, 9, 10, 9, 0, 0, 0, loc)
	if _, ok := detector.Infer("Promoção válida até 30/09.", anchor); ok {
		t.Fatal("date beyond the configured window should be rejected")
	}
	got, ok := detector.Infer("Promoção válida até 15/09.", anchor)
	if !ok || got.Day() != 15 {
		t.Fatalf("unexpected result %s %v", got, ok)
	}
}
