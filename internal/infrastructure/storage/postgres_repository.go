package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/domain"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/ports"
)

const (
	promotionsTable = "promocoes"
	backupTable     = "promocoes_backup"
)

// ErrNotFound is returned when a promotion does not exist.
var ErrNotFound = errors.New("storage: promotion not found")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var promotionColumns = []string{
	"url", "title", "date_published", "author", "content_text", "content_html",
	"images_json", "links_json", "scraped_at", "valid_until",
}

// PostgresRepository persists promotions into Postgres.
type PostgresRepository struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ ports.PromotionRepository = (*PostgresRepository)(nil)
	_ ports.RetentionStore      = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

// Upsert inserts the promotion or replaces the row with the same URL and
// returns its id.
func (r *PostgresRepository) Upsert(ctx context.Context, promo domain.Promotion) (int64, error) {
	if r.db == nil {
		return 0, nil
	}

	scrapedAt := promo.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = r.now()
	}

	query, args, err := upsertQuery(promo, scrapedAt)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert promotion %s: %w", promo.URL, err)
	}
	return id, nil
}

// ListActive returns promotions without an expiry or expiring at or after now,
// newest publication first.
func (r *PostgresRepository) ListActive(ctx context.Context, now time.Time) ([]domain.Promotion, error) {
	if r.db == nil {
		return nil, nil
	}

	query, args, err := activeQuery(now).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query active: %w", err)
	}
	defer rows.Close()

	promos := []domain.Promotion{}
	for rows.Next() {
		promo, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		promos = append(promos, promo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return promos, nil
}

// Get returns the promotion with id or ErrNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (domain.Promotion, error) {
	if r.db == nil {
		return domain.Promotion{}, ErrNotFound
	}

	query, args, err := selectPromotions().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.Promotion{}, fmt.Errorf("build get query: %w", err)
	}

	promo, err := scanPromotion(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Promotion{}, ErrNotFound
	}
	if err != nil {
		return domain.Promotion{}, err
	}
	return promo, nil
}

func upsertQuery(promo domain.Promotion, scrapedAt time.Time) (string, []interface{}, error) {
	images, err := json.Marshal(nonNilImages(promo.Images))
	if err != nil {
		return "", nil, fmt.Errorf("encode images: %w", err)
	}
	links, err := json.Marshal(nonNilLinks(promo.Links))
	if err != nil {
		return "", nil, fmt.Errorf("encode links: %w", err)
	}

	query, args, err := psql.Insert(promotionsTable).
		Columns(promotionColumns...).
		Values(
			promo.URL,
			promo.Title,
			nullableTime(promo.DatePublished),
			nullableString(promo.Author),
			promo.ContentText,
			promo.ContentHTML,
			string(images),
			string(links),
			scrapedAt,
			nullableTime(promo.ValidUntil),
		).
		Suffix(`ON CONFLICT (url) DO UPDATE SET
              title = EXCLUDED.title,
              date_published = EXCLUDED.date_published,
              author = EXCLUDED.author,
              content_text = EXCLUDED.content_text,
              content_html = EXCLUDED.content_html,
              images_json = EXCLUDED.images_json,
              links_json = EXCLUDED.links_json,
              scraped_at = EXCLUDED.scraped_at,
              valid_until = EXCLUDED.valid_until
              RETURNING id`).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build upsert: %w", err)
	}
	return query, args, nil
}

func selectPromotions() sq.SelectBuilder {
	return psql.Select(append([]string{"id"}, promotionColumns...)...).From(promotionsTable)
}

func activeQuery(now time.Time) sq.SelectBuilder {
	return selectPromotions().
		Where(sq.Or{sq.Eq{"valid_until": nil}, sq.GtOrEq{"valid_until": now}}).
		OrderBy("date_published DESC", "id DESC")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPromotion(row rowScanner) (domain.Promotion, error) {
	var (
		promo                 domain.Promotion
		title, author         sql.NullString
		contentText, content  sql.NullString
		published, scraped    sql.NullTime
		validUntil            sql.NullTime
		imagesJSON, linksJSON []byte
	)

	err := row.Scan(
		&promo.ID, &promo.URL, &title, &published, &author, &contentText, &content,
		&imagesJSON, &linksJSON, &scraped, &validUntil,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return promo, err
		}
		return promo, fmt.Errorf("scan promotion: %w", err)
	}

	promo.Title = title.String
	promo.Author = author.String
	promo.ContentText = contentText.String
	promo.ContentHTML = content.String
	if published.Valid {
		promo.DatePublished = &published.Time
	}
	if scraped.Valid {
		promo.ScrapedAt = scraped.Time
	}
	if validUntil.Valid {
		promo.ValidUntil = &validUntil.Time
	}

	promo.Images = []domain.Image{}
	if len(imagesJSON) > 0 {
		if err := json.Unmarshal(imagesJSON, &promo.Images); err != nil {
			return promo, fmt.Errorf("decode images of %d: %w", promo.ID, err)
		}
	}
	promo.Links = []domain.Link{}
	if len(linksJSON) > 0 {
		if err := json.Unmarshal(linksJSON, &promo.Links); err != nil {
			return promo, fmt.Errorf("decode links of %d: %w", promo.ID, err)
		}
	}
	return promo, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nonNilImages(images []domain.Image) []domain.Image {
	if images == nil {
		return []domain.Image{}
	}
	return images
}

func nonNilLinks(links []domain.Link) []domain.Link {
	if links == nil {
		return []domain.Link{}
	}
	return links
}
