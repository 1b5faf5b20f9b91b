package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/config"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/domain"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/httpapi"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/infrastructure/extract"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/infrastructure/feed"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/infrastructure/fetch"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/infrastructure/scheduler"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/infrastructure/storage"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/infrastructure/telegram"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/logging"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/ports"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/strategy"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/usecase"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/validity"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	repo      *storage.PostgresRepository
	ingest    *usecase.Ingest
	retention *usecase.Retention
	now       func() time.Time
}

// New connects to the database and builds every use case.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := storage.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	repo := storage.NewPostgresRepository(db)

	a := &Application{cfg: cfg, logger: baseLogger, db: db, repo: repo, now: time.Now}
	a.ingest = usecase.NewIngest(usecase.IngestDeps{
		Source:      a.feedSource(),
		Fetcher:     a.fetcher(),
		Resolver:    a.registry(),
		Detector:    NewDetector(cfg),
		Repository:  repo,
		Notifier:    a.notifier(),
		Logger:      baseLogger.With("component", "ingest"),
		Location:    cfg.Scheduler.Location(),
		Concurrency: cfg.Fetch.Concurrency,
	})
	a.retention = usecase.NewRetention(repo, cfg.Retention.BackupDays, cfg.Retention.DryRunLimit,
		baseLogger.With("component", "retention"))
	return a, nil
}

// NewDetector builds the validity engine from the configuration alone.
func NewDetector(cfg config.Config) *validity.Engine {
	return validity.New(cfg.ValidityOptions())
}

func (a *Application) registry() *strategy.Registry {
	loc := a.cfg.Scheduler.Location()
	registry := strategy.NewRegistry(extract.SelectorsName)
	registry.Register(extract.NewSelectorExtractor(nil, loc))
	registry.Register(extract.NewReadabilityExtractor(loc))

	for _, site := range a.cfg.Sites {
		name := site.Extractor
		if len(site.Selectors) > 0 {
			custom := extract.SiteSelectorExtractor(site.Name, site.Selectors, loc)
			registry.Register(custom)
			name = custom.Name()
		}
		if name != "" {
			registry.Assign(site.Name, name)
		}
	}
	return registry
}

func (a *Application) fetcher() *fetch.Client {
	return fetch.NewClient(nil, fetch.Options{
		UserAgent:    a.cfg.Fetch.UserAgent,
		Referer:      "https://www.google.com/",
		Timeout:      a.cfg.Fetch.Timeout,
		RateInterval: a.cfg.Fetch.RateInterval,
		CacheTTL:     a.cfg.Fetch.CacheTTL,
		IgnoreRobots: a.cfg.Fetch.IgnoreRobots,
	}, a.logger.With("component", "fetch"))
}

func (a *Application) feedSource() *feed.SiteSource {
	reader := feed.NewReader(&http.Client{Timeout: a.cfg.Fetch.Timeout}, a.cfg.Fetch.UserAgent, a.cfg.Scheduler.Location())
	return feed.NewSiteSource(reader, a.cfg.Sites, a.logger.With("component", "feed"))
}

func (a *Application) notifier() ports.Notifier {
	tg := a.cfg.Notifications.Telegram
	if !tg.Enabled() {
		return nil
	}
	return telegram.NewNotifier(tg.BotToken, tg.ChatID)
}

// Scrape runs one ingest for the current local day.
func (a *Application) Scrape(ctx context.Context) (domain.IngestReport, error) {
	return a.ingest.Run(ctx, a.localNow())
}

// Retention archives expired promotions and purges old backups.
func (a *Application) Retention(ctx context.Context) (domain.RetentionReport, error) {
	return a.retention.Run(ctx, a.localNow())
}

// RetentionDryRun lists what Retention would archive.
func (a *Application) RetentionDryRun(ctx context.Context, limit int) ([]domain.ExpiredPromotion, error) {
	return a.retention.DryRun(ctx, a.localNow(), limit)
}

// Migrate creates or upgrades the schema.
func (a *Application) Migrate(ctx context.Context) ([]string, error) {
	return a.repo.Migrate(ctx)
}

// Serve runs the read API until ctx is cancelled, plus the ingest and
// retention scheduler when withScheduler is set.
func (a *Application) Serve(ctx context.Context, withScheduler bool) error {
	api := httpapi.NewServer(a.repo, httpapi.Options{
		Addr:            a.cfg.HTTP.Addr,
		ReadTimeout:     a.cfg.HTTP.ReadTimeout,
		WriteTimeout:    a.cfg.HTTP.WriteTimeout,
		ShutdownTimeout: a.cfg.HTTP.ShutdownTimeout,
	}, a.logger.With("component", "httpapi"))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return api.ListenAndServe(ctx) })

	if withScheduler {
		jobs := usecase.NewScheduler(
			scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, a.logger.With("component", "scheduler")),
			a.ingest, a.retention, a.cfg.Scheduler.Location(), a.logger.With("component", "scheduler"))
		if err := jobs.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		g.Go(func() error {
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
			defer cancel()
			return jobs.Stop(stopCtx)
		})
	}

	return g.Wait()
}

// Close releases the database connection.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Location is the fixed zone promotions are reported in.
func (a *Application) Location() *time.Location {
	return a.cfg.Scheduler.Location()
}

func (a *Application) localNow() time.Time {
	return a.now().In(a.cfg.Scheduler.Location())
}
