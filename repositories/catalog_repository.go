package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// maxBindParams keeps one statement under SQL Server's 2100 bind parameters.
const maxBindParams = 2000

var schemaCache sync.Map

var (
	itemConflict = clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "item_group", "active", "updated_at"}),
	}
	barcodeConflict = clause.OnConflict{
		Columns:   []clause.Column{{Name: "barcode"}},
		DoUpdates: clause.AssignmentColumns([]string{"item_id", "unit_of_measure", "active", "updated_at"}),
	}
)

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) FindActiveBarcode(ctx context.Context, barcode string) (*models.BarcodeUnit, error) {
	var unit models.BarcodeUnit
	err := r.db.WithContext(ctx).Where("barcode = ? AND active = ?", barcode, true).Take(&unit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *CatalogRepository) FindActiveItem(ctx context.Context, itemID string) (*models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).Where("item_id = ? AND active = ?", itemID, true).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *CatalogRepository) ActiveUnits(ctx context.Context, itemID string) ([]models.BarcodeUnit, error) {
	var units []models.BarcodeUnit
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND active = ?", itemID, true).
		Order("barcode ASC").
		Find(&units).Error
	return units, err
}

func (r *CatalogRepository) BarcodesByLength(ctx context.Context, minLen, maxLen int) ([]models.BarcodeUnit, error) {
	var units []models.BarcodeUnit
	length := lengthFunc(r.db)
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where(fmt.Sprintf("%s(barcode) BETWEEN ? AND ?", length), minLen, maxLen).
		Find(&units).Error
	return units, err
}

func (r *CatalogRepository) ItemsByIDs(ctx context.Context, itemIDs []string) ([]models.Item, error) {
	var items []models.Item
	if len(itemIDs) == 0 {
		return items, nil
	}
	// stay under the SQL Server parameter limit
	const chunk = 1000
	for lo := 0; lo < len(itemIDs); lo += chunk {
		hi := lo + chunk
		if hi > len(itemIDs) {
			hi = len(itemIDs)
		}
		var part []models.Item
		if err := r.db.WithContext(ctx).Where("item_id IN ?", itemIDs[lo:hi]).Find(&part).Error; err != nil {
			return nil, err
		}
		items = append(items, part...)
	}
	return items, nil
}

func (r *CatalogRepository) LoadCatalog(ctx context.Context) ([]models.Item, []models.BarcodeUnit, error) {
	var items []models.Item
	if err := r.db.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, nil, err
	}
	var barcodes []models.BarcodeUnit
	if err := r.db.WithContext(ctx).Find(&barcodes).Error; err != nil {
		return nil, nil, err
	}
	return items, barcodes, nil
}

func (r *CatalogRepository) UpsertItems(ctx context.Context, items []models.Item) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertInChunks(tx, items, itemConflict)
	})
}

func (r *CatalogRepository) UpsertBarcodes(ctx context.Context, barcodes []models.BarcodeUnit) error {
	if len(barcodes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertInChunks(tx, barcodes, barcodeConflict, "Item")
	})
}

func (r *CatalogRepository) DeactivateItems(ctx context.Context, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return inChunks(itemIDs, func(part []string) error {
			return tx.Model(&models.Item{}).Where("item_id IN ?", part).Update("active", false).Error
		})
	})
}

func (r *CatalogRepository) DeactivateBarcodes(ctx context.Context, barcodes []string) error {
	if len(barcodes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return inChunks(barcodes, func(part []string) error {
			return tx.Model(&models.BarcodeUnit{}).Where("barcode IN ?", part).Update("active", false).Error
		})
	})
}

// insertBatchSize is how many rows of T one multi-row insert can carry.
func insertBatchSize[T any](db *gorm.DB) (int, error) {
	s, err := schema.Parse(new(T), &schemaCache, db.NamingStrategy)
	if err != nil {
		return 0, err
	}
	cols := 0
	for _, f := range s.Fields {
		if f.DBName != "" && f.Creatable {
			cols++
		}
	}
	if cols == 0 {
		return 0, fmt.Errorf("%s has no insertable columns", s.Name)
	}
	return max(1, maxBindParams/cols), nil
}

// upsertInChunks splits rows so every statement stays under maxBindParams.
// The caller owns the transaction.
func upsertInChunks[T any](tx *gorm.DB, rows []T, conflict clause.OnConflict, omit ...string) error {
	size, err := insertBatchSize[T](tx)
	if err != nil {
		return err
	}
	for lo := 0; lo < len(rows); lo += size {
		part := rows[lo:min(lo+size, len(rows))]
		q := tx
		if len(omit) > 0 {
			q = q.Omit(omit...)
		}
		if err := q.Clauses(conflict).Create(&part).Error; err != nil {
			return err
		}
	}
	return nil
}

func inChunks(keys []string, fn func(part []string) error) error {
	for lo := 0; lo < len(keys); lo += maxBindParams {
		if err := fn(keys[lo:min(lo+maxBindParams, len(keys))]); err != nil {
			return err
		}
	}
	return nil
}
