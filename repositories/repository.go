package repositories

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// errNoTransition aborts a transaction whose conditioned update matched no row.
var errNoTransition = errors.New("row not in expected state")

// isDuplicate backs up gorm's TranslateError for drivers that do not translate.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{
		"UNIQUE constraint failed",
		"duplicate key",
		"Duplicate entry",
		"Cannot insert duplicate key",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func normalizeDuplicate(err error) error {
	if err != nil && isDuplicate(err) && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return gorm.ErrDuplicatedKey
	}
	return err
}

// lengthFunc names the character length function of the connected dialect.
func lengthFunc(db *gorm.DB) string {
	switch db.Dialector.Name() {
	case "sqlserver":
		return "LEN"
	case "mysql":
		return "CHAR_LENGTH"
	default:
		return "LENGTH"
	}
}
