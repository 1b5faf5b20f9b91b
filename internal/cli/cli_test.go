package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/mattn/go-runewidth"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/domain"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/validity"
)

func TestWriteExpiredTableAlignsWideTitles(t *testing.T) {
	t.Parallel()

	expired := []domain.ExpiredPromotion{
		{ID: 7, URL: "https://x/a", Title: "Promoção Smiles: até 80% de bônus", ValidUntil: time.Date(2025, 9, 14, 23, 59, 0, 0, time.UTC)},
		{ID: 1234, URL: "https://x/b", Title: "航空会社 セール", ValidUntil: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)},
		{ID: 9, URL: "https://x/c", Title: strings.Repeat("longo ", 20), ValidUntil: time.Date(2025, 8, 30, 0, 0, 0, 0, time.UTC)},
	}

	var buf bytes.Buffer
	writeExpiredTable(&buf, expired, time.UTC)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header, 3 rows and a footer, got %q", lines)
	}

	column := func(line, marker string) int {
		idx := strings.Index(line, marker)
		if idx < 0 {
			t.Fatalf("%q not found in %q", marker, line)
		}
		return runewidth.StringWidth(line[:idx])
	}
	want := column(lines[0], "URL")
	for _, line := range lines[1:4] {
		if got := column(line, "https://"); got != want {
			t.Fatalf("URL column at %d, want %d:\n%s", got, want, buf.String())
		}
	}
	if !strings.Contains(lines[3], "…") {
		t.Fatalf("long title not truncated: %q", lines[3])
	}
	if lines[4] != "3 promotions would be archived" {
		t.Fatalf("unexpected footer %q", lines[4])
	}

	buf.Reset()
	writeExpiredTable(&buf, nil, time.UTC)
	if buf.String() != "nothing to archive\n" {
		t.Fatalf("unexpected empty output %q", buf.String())
	}
}

func TestWriteReport(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("BRT", -3*3600)
	at := time.Date(2025, 9, 14, 23, 59, 59, 0, loc)
	report := validity.Report{
		Anchor:     time.Date(2025, 9, 10, 9, 0, 0, 0, loc),
		Candidates: []string{"Oferta válida até domingo (14)."},
		Hits:       []validity.Hit{{Snippet: "Oferta válida até domingo (14).", Matcher: validity.MatchWeekday, At: at, InWindow: true}},
		ValidUntil: at,
		Found:      true,
	}

	var buf bytes.Buffer
	writeReport(&buf, report)
	out := buf.String()
	for _, want := range []string{
		"published:   2025-09-10 09:00:00 -03:00",
		"candidates:  1",
		"[1] weekday    2025-09-14 23:59:59 -03:00 (in window)",
		"valid until: 2025-09-14 23:59:59 -03:00",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	writeReport(&buf, validity.Report{})
	if !strings.Contains(buf.String(), "valid until: not found") {
		t.Fatalf("unexpected output %s", buf.String())
	}
}

func TestDetectCommand(t *testing.T) {
	t.Setenv("FLYWISE_CONFIG", "")
	t.Setenv("FLYWISE_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "artigo.txt")
	article := "Smiles abre promoção de transferência.\n\nOferta válida até domingo (14).\n\nConfira as regras."
	if err := os.WriteFile(path, []byte(article), 0o600); err != nil {
		t.Fatalf("write article: %v", err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"detect", path, "--published", "2025-09-10T09:00:00-03:00"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		published = ""
	})

	if err := Execute(); err != nil {
		t.Fatalf("detect: %v", err)
	}
	if !strings.Contains(out.String(), "valid until: 2025-09-14 23:59:59 -03:00") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}
