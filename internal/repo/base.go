package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base holds the GORM handle the domain repositories embed. Repositories that
// need a transactional copy rebuild a Base around the tx handle.
type Base struct {
	db *gorm.DB
}

// NewBase wraps the given connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection with the request context attached.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}
