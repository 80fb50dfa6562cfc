package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kevinpineda22/backend-inventario-sub000/database"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DSN builds the connection string for the configured driver.
func DSN() string {
	switch strings.ToLower(DBDriver) {
	case "postgres", "postgresql":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			DBHost, DBPort, DBUser, DBPassword, DBName)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			DBUser, DBPassword, DBHost, DBPort, DBName)
	case "sqlite":
		return DBPath
	default:
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(DBUser, DBPassword),
			Host:     DBHost + ":" + DBPort,
			RawQuery: "database=" + url.QueryEscape(DBName),
		}
		return u.String()
	}
}

// ConnectDB membuat koneksi ke database menggunakan Gorm
func ConnectDB(log *zap.Logger) (*gorm.DB, error) {
	db, err := database.Open(DBDriver, DSN(), log)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", DBDriver, err)
	}
	log.Info("connected to database", zap.String("driver", DBDriver), zap.String("name", DBName))
	return db, nil
}
