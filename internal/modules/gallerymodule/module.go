// Package gallerymodule wires the gallery components from configuration
package gallerymodule

import (
	"context"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/mantonx/gallery/internal/config"
	"github.com/mantonx/gallery/internal/database"
	"github.com/mantonx/gallery/internal/logger"
	"github.com/mantonx/gallery/internal/metrics"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/api"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/core/access"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/core/engine"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/core/feed"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/store/sqlstore"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/types"
)

const (
	ModuleID      = "system.gallery"
	ModuleName    = "Gallery"
	ModuleVersion = "1.0.0"
)

// Module owns the gallery components
type Module struct {
	id      string
	name    string
	version string

	cfg      config.Config
	db       *gorm.DB
	registry prometheus.Registerer
	logger   hclog.Logger

	mu          sync.RWMutex
	initialized bool
	gate        types.AccessGate
	engine      *engine.Engine
	repository  *feed.Repository
	indexer     *sqlstore.Indexer
	handler     *api.Handler
}

// Option configures a Module
type Option func(*Module)

// WithGate replaces the config-derived access gate, e.g. with a
// PlatformGate backed by a host permission API
func WithGate(g types.AccessGate) Option {
	return func(m *Module) { m.gate = g }
}

// WithRegistry registers the module's metrics with reg
func WithRegistry(reg prometheus.Registerer) Option {
	return func(m *Module) { m.registry = reg }
}

// WithLogger sets the module logger
func WithLogger(l hclog.Logger) Option {
	return func(m *Module) { m.logger = l }
}

// NewModule creates an uninitialized module over db
func NewModule(cfg config.Config, db *gorm.DB, opts ...Option) *Module {
	m := &Module{
		id:      ModuleID,
		name:    ModuleName,
		version: ModuleVersion,
		cfg:     cfg,
		db:      db,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logger.OrNull(m.logger).Named("gallery")
	return m
}

// ID returns the module ID
func (m *Module) ID() string {
	return m.id
}

// Name returns the module name
func (m *Module) Name() string {
	return m.name
}

// GetVersion returns the module version
func (m *Module) GetVersion() string {
	return m.version
}

// IsInitialized returns whether Init has completed
func (m *Module) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// Migrate creates the media tables
func (m *Module) Migrate(db *gorm.DB) error {
	m.logger.Info("migrating gallery schema")
	return database.Migrate(db)
}

// Init builds the engine, repository, indexer and HTTP handler
func (m *Module) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}
	if m.db == nil {
		return fmt.Errorf("gallery module requires a database")
	}

	gc := m.cfg.Gallery
	if m.gate == nil {
		m.gate = access.NewStaticGate(access.ParseLevel(gc.Access))
	}

	images, videos := sqlstore.NewStores(m.db)

	opts := []engine.Option{
		engine.WithOffsetPolicy(engine.ParseOffsetPolicy(gc.OffsetPolicy)),
		engine.WithObserver(metrics.NewCollector(m.registry)),
		engine.WithLogger(m.logger),
	}
	if !gc.ProbeFiles {
		opts = append(opts, engine.WithProber(nil))
	}

	m.engine = engine.New(m.gate, images, videos, opts...)
	m.repository = feed.NewRepository(m.engine, gc.PageSize, m.logger)
	m.indexer = sqlstore.NewIndexer(m.db, m.cfg.Library.Workers, m.cfg.Library.IgnorePatterns, m.logger)
	m.handler = api.NewHandler(m.engine, m.gate, m.repository.PageSize(), m.logger)
	m.initialized = true

	m.logger.Info("gallery module initialized",
		"page_size", m.repository.PageSize(),
		"offset_policy", gc.OffsetPolicy,
		"access", m.gate.CheckAccess().String())
	return nil
}

// IndexLibrary indexes the configured library roots
func (m *Module) IndexLibrary(ctx context.Context) (*sqlstore.IndexResult, error) {
	if !m.IsInitialized() {
		return nil, fmt.Errorf("gallery module not initialized")
	}
	if len(m.cfg.Library.Roots) == 0 {
		m.logger.Warn("no library roots configured")
		return &sqlstore.IndexResult{}, nil
	}
	return m.indexer.Index(ctx, m.cfg.Library.Roots...)
}

// RegisterRoutes registers the HTTP routes
func (m *Module) RegisterRoutes(router gin.IRouter) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.handler != nil {
		m.handler.RegisterRoutes(router)
	}
}

// Engine returns the query engine
func (m *Module) Engine() *engine.Engine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engine
}

// Repository returns the feed repository
func (m *Module) Repository() *feed.Repository {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.repository
}

// Gate returns the access gate
func (m *Module) Gate() types.AccessGate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gate
}
