package engine

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"tourline/internal/config"
	"tourline/internal/events"
	"tourline/internal/importer"
	"tourline/internal/repo"
)

const defaultActor = "local-user"

var tracer = otel.Tracer("tourline/internal/engine")

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
	Logger *slog.Logger

	// mu serializes imports; the registries are shared by every caller.
	mu *sync.Mutex
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
		mu:     &sync.Mutex{},
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowString() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) logger() *slog.Logger {
	l := e.Logger
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", "engine")
}

func (e Engine) lock() func() {
	if e.mu == nil {
		return func() {}
	}
	e.mu.Lock()
	return e.mu.Unlock
}

// importerFor builds an importer whose registries run inside tx.
func (e Engine) importerFor(tx *sql.Tx) *importer.Importer {
	im := importer.New(txRegistries{repo: e.Repo, tx: tx, now: e.nowString}.registries())
	if e.Config != nil {
		if e.Config.Import.SourceSuffix != "" {
			im.SourceSuffix = e.Config.Import.SourceSuffix
		}
		if e.Config.Import.SignatureWindow > 0 {
			im.SignatureWindow = e.Config.Import.SignatureWindow
		}
	}
	im.Logger = e.Logger
	return im
}

func actorOrDefault(actorID string) string {
	if actorID == "" {
		return defaultActor
	}
	return actorID
}
