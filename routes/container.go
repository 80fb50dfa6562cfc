package routes

import (
	"github.com/kevinpineda22/backend-inventario-sub000/controllers"
	"github.com/kevinpineda22/backend-inventario-sub000/repositories"
	"github.com/kevinpineda22/backend-inventario-sub000/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Options struct {
	SimilarityThreshold float64
	Thresholds          services.Thresholds
	SyncBatchSize       int
	Retry               services.RetryPolicy
	Notifier            services.Notifier
}

// Engine holds the services built over one database handle.
type Engine struct {
	Resolver       *services.ProductResolver
	Session        *services.CountingSession
	Runs           *services.InventoryRunService
	Reconciliation *services.ReconciliationEngine
	Catalog        *services.CatalogSynchronizer
	SyncLogs       *repositories.SyncLogRepository
	Adjustments    *repositories.AdjustmentRepository
}

func NewEngine(db *gorm.DB, opts Options, log *zap.Logger) *Engine {
	catalog := repositories.NewCatalogRepository(db)
	runs := repositories.NewInventoryRunRepository(db)
	zones := repositories.NewZoneRepository(db)
	adjustments := repositories.NewAdjustmentRepository(db)
	syncLogs := repositories.NewSyncLogRepository(db)

	resolver := services.NewProductResolver(catalog, opts.SimilarityThreshold, log.Named("resolver"))
	return &Engine{
		Resolver:       resolver,
		Session:        services.NewCountingSession(zones, runs, zones, resolver, opts.Notifier, log.Named("session")),
		Runs:           services.NewInventoryRunService(runs, opts.Retry, log.Named("runs")),
		Reconciliation: services.NewReconciliationEngine(runs, catalog, services.NewAggregator(zones), adjustments, opts.Thresholds, log.Named("reconciliation")),
		Catalog:        services.NewCatalogSynchronizer(catalog, syncLogs, opts.SyncBatchSize, log.Named("catalog")),
		SyncLogs:       syncLogs,
		Adjustments:    adjustments,
	}
}

func (e *Engine) Controllers() Controllers {
	return Controllers{
		Zones:          controllers.NewZoneController(e.Session),
		Products:       controllers.NewProductController(e.Resolver),
		Runs:           controllers.NewInventoryRunController(e.Runs),
		Reconciliation: controllers.NewReconciliationController(e.Reconciliation, e.Adjustments),
		Catalog:        controllers.NewCatalogController(e.Catalog, e.SyncLogs),
	}
}
