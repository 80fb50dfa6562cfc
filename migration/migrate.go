package migration

import (
	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}
