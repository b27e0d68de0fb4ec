package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"catalog-chat/pkg/database"
	catalog_errors "catalog-chat/pkg/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// storeError wraps a driver error onto ErrStorageUnavailable or ErrPersistence.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %v", op, catalog_errors.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %v", op, catalog_errors.ErrPersistence, err)
}

func isUnavailable(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}

// ensureSchema pings the engine, then migrates models. Safe to call repeatedly.
func ensureSchema(ctx context.Context, db *gorm.DB, table string, models ...interface{}) error {
	if err := database.Ping(ctx, db); err != nil {
		return fmt.Errorf("%s schema: %w: %v", table, catalog_errors.ErrStorageUnavailable, err)
	}
	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return storeError(table+" schema", err)
	}
	return nil
}
