package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// GormRepo is the durable store behind the auth service: user records,
// seeded roles and the refresh-token table. The *gorm.DB must be opened
// with TranslateError so unique-index violations surface as
// gorm.ErrDuplicatedKey regardless of driver.
type GormRepo struct {
	DB *gorm.DB
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
