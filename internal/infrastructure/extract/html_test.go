package extract

import (
	"context"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/domain"
)

const promoPage = `<!doctype html>
<html>
<head>
  <meta property="og:title" content="OG title">
  <meta property="article:published_time" content="2025-09-10T08:30:00-03:00">
  <script type="application/ld+json">{"@type":"NewsArticle","headline":"Smiles"}</script>
  <script type="application/ld+json">{broken</script>
</head>
<body>
  <h1> Smiles com <em>80%</em> de bônus </h1>
  <span class="author">Equipe PP</span>
  <div class="td-post-content">
    <script>var tracking = 1;</script>
    <p>Transfira pontos e ganhe até 80% de bônus.</p>
    <p>Transfira pontos e ganhe até 80% de bônus.</p>
    <p><strong>Oferta válida</strong> até domingo (14).</p>
    <ul><li>Regra um</li><li>Regra dois</li></ul>
    <img data-src="/img/banner.png" alt="banner" title="Banner">
    <img src="https://cdn.example.net/x.jpg">
    <a href="/regulamento">Regulamento</a>
    <a href="https://www.smiles.com.br/promo">Smiles</a>
  </div>
</body>
</html>`

func TestSelectorExtractor(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	entry := domain.FeedEntry{Link: "https://www.passageirodeprimeira.com/smiles/", FeedTitle: "Feed title"}
	promo, err := NewSelectorExtractor(nil, loc).Extract(context.Background(), entry, []byte(promoPage))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if promo.Title != "Smiles com 80% de bônus" {
		t.Fatalf("unexpected title: %q", promo.Title)
	}
	if promo.Author != "Equipe PP" {
		t.Fatalf("unexpected author: %q", promo.Author)
	}

	wantPublished := time.Date(2025, time.September, 10, 8, 30, 0, 0, loc)
	if !promo.PublishedAt.Equal(wantPublished) {
		t.Fatalf("unexpected published time: %v", promo.PublishedAt)
	}
	if promo.DatePublished == nil || promo.DatePublished.Day() != 10 {
		t.Fatalf("unexpected date published: %v", promo.DatePublished)
	}

	wantText := strings.Join([]string{
		"Transfira pontos e ganhe até 80% de bônus.",
		"Oferta válida até domingo (14).",
		"Regra um",
		"Regra dois",
	}, "\n\n")
	if promo.ContentText != wantText {
		t.Fatalf("unexpected content text:\n%q\nwant\n%q", promo.ContentText, wantText)
	}
	if strings.Contains(promo.ContentHTML, "tracking") {
		t.Fatalf("scripts must be stripped from content html")
	}

	if len(promo.Images) != 2 || promo.Images[0].Src != "https://www.passageirodeprimeira.com/img/banner.png" || promo.Images[0].Alt != "banner" {
		t.Fatalf("unexpected images: %+v", promo.Images)
	}

	if len(promo.Links) != 2 {
		t.Fatalf("unexpected links: %+v", promo.Links)
	}
	if !promo.Links[0].Internal || promo.Links[0].Href != "https://www.passageirodeprimeira.com/regulamento" {
		t.Fatalf("unexpected internal link: %+v", promo.Links[0])
	}
	if promo.Links[1].Internal {
		t.Fatalf("external link flagged internal: %+v", promo.Links[1])
	}

	if len(promo.JSONLD) != 1 {
		t.Fatalf("expected one valid json-ld block, got %d", len(promo.JSONLD))
	}
}

func TestSelectorExtractorPrefersFeedPublishedAndTitles(t *testing.T) {
	t.Parallel()

	page := `<html><head><meta property="og:title" content="  OG title "></head>
<body><main><p>Texto qualquer</p></main></body></html>`

	published := time.Date(2025, time.September, 9, 22, 0, 0, 0, time.UTC)
	entry := domain.FeedEntry{Link: "https://example.org/a", Published: published}

	promo, err := NewSelectorExtractor(nil, time.UTC).Extract(context.Background(), entry, []byte(page))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if promo.Title != "OG title" {
		t.Fatalf("expected og title, got %q", promo.Title)
	}
	if !promo.PublishedAt.Equal(published) {
		t.Fatalf("feed publication time must win, got %v", promo.PublishedAt)
	}
	if promo.ContentText != "Texto qualquer" {
		t.Fatalf("unexpected text: %q", promo.ContentText)
	}

	bare := `<html><body><main><p>x</p></main></body></html>`
	promo, err = NewSelectorExtractor(nil, time.UTC).Extract(context.Background(), domain.FeedEntry{Link: "https://example.org/b"}, []byte(bare))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if promo.Title != untitled {
		t.Fatalf("expected placeholder title, got %q", promo.Title)
	}
	if promo.DatePublished != nil {
		t.Fatalf("no publication date expected, got %v", promo.DatePublished)
	}
}

func TestReadabilityExtractor(t *testing.T) {
	t.Parallel()

	paragraph := "A companhia aérea anunciou uma nova campanha de pontos com bônus para transferências feitas pelo aplicativo, " +
		"e os clientes cadastrados podem aproveitar descontos em passagens nacionais e internacionais durante o período. "
	page := `<html><head><title>Campanha de pontos</title></head><body>
<nav><a href="/">Home</a></nav>
<div id="story">
<p>` + strings.Repeat(paragraph, 3) + `</p>
<p>Oferta válida até 20/09. ` + strings.Repeat(paragraph, 2) + `</p>
</div>
<footer>Rodapé</footer>
</body></html>`

	entry := domain.FeedEntry{Link: "https://example.org/campanha"}
	promo, err := NewReadabilityExtractor(time.UTC).Extract(context.Background(), entry, []byte(page))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if !strings.Contains(promo.ContentText, "Oferta válida até 20/09.") {
		t.Fatalf("readable text lost the validity sentence: %q", promo.ContentText)
	}
	if promo.URL != entry.Link {
		t.Fatalf("unexpected url: %q", promo.URL)
	}
}

func TestSiteSelectorExtractor(t *testing.T) {
	t.Parallel()

	page := `<html><body><div class="materia"><p>Válida até 20/09.</p></div><main><p>rodapé</p></main></body></html>`
	x := SiteSelectorExtractor("milhas", []string{"div.materia"}, time.UTC)
	if x.Name() != "selectors:milhas" {
		t.Fatalf("unexpected name %s", x.Name())
	}

	promo, err := x.Extract(context.Background(), domain.FeedEntry{Link: "https://milhas.example/p"}, []byte(page))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if promo.ContentText != "Válida até 20/09." {
		t.Fatalf("unexpected text %q", promo.ContentText)
	}
}
