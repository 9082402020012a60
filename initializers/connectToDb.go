package initializers

import (
	"context"
	"fmt"
	"os"

	"github.com/Kariqs/franchise-api/models"
	"github.com/Kariqs/franchise-api/store"
	"github.com/Kariqs/franchise-api/store/gormstore"
	"github.com/Kariqs/franchise-api/store/memstore"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConnectToDB opens the configured store. The memory driver keeps everything
// in process and is meant for local runs.
func ConnectToDB(cfg Config, logger *zap.Logger) (store.Store, error) {
	if cfg.DBDriver == "memory" {
		logger.Warn("using in-memory store; data is lost on restart")
		return memstore.New(), nil
	}

	db, err := gormstore.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := SyncDatabase(db, logger); err != nil {
		return nil, err
	}
	logger.Info("connected to database", zap.String("driver", cfg.DBDriver))
	return gormstore.New(db), nil
}

func SyncDatabase(db *gorm.DB, logger *zap.Logger) error {
	if err := gormstore.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("database synced successfully")
	return nil
}

// SeedCatalog loads sample inventory into an empty catalog when
// SEED_CATALOG is set.
func SeedCatalog(ctx context.Context, st store.CatalogRepository, logger *zap.Logger) error {
	if os.Getenv("SEED_CATALOG") == "" {
		return nil
	}
	_, existing, err := st.ListItems(ctx, store.CatalogFilter{Limit: 1})
	if err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	for _, item := range sampleCatalog() {
		if err := st.SaveItem(ctx, &item); err != nil {
			return fmt.Errorf("seed catalog item %s: %w", item.ID, err)
		}
	}
	logger.Info("seeded sample catalog", zap.Int("items", len(sampleCatalog())))
	return nil
}

func sampleCatalog() []models.CatalogItem {
	rate := decimal.RequireFromString
	return []models.CatalogItem{
		{ID: "basmati-rice-25kg", Name: "Basmati Rice", Price: decimal.NewFromInt(500), Unit: "25kg bag", GSTRate: rate("0.18"), Category: "grains", Available: true},
		{ID: "cooking-oil-20l", Name: "Cooking Oil", Price: decimal.NewFromInt(350), Unit: "20l jerrycan", GSTRate: rate("0.05"), Category: "oils", Available: true},
		{ID: "wheat-flour-10kg", Name: "Wheat Flour", Price: decimal.NewFromInt(280), Unit: "10kg bag", GSTRate: rate("0.05"), Category: "grains", Available: true},
		{ID: "black-tea-1kg", Name: "Black Tea", Price: decimal.NewFromInt(120), Unit: "1kg pack", GSTRate: rate("0.12"), Category: "beverages", Available: true},
		{ID: "paper-bags-500", Name: "Paper Bags", Price: decimal.NewFromInt(900), Unit: "pack of 500", GSTRate: rate("0.18"), Category: "packaging", Available: false},
	}
}
