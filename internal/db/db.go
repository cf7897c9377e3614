// Package db opens the GORM connection and applies schema migrations.
package db

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/diewo77/invoicebook/internal/config"
	"github.com/diewo77/invoicebook/internal/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

var passwordRegex = regexp.MustCompile(`(password=)([^\s]+)`)

// Open connects to the configured database, retrying while the server starts up.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	lcfg := logger.DefaultGormLoggerConfig()
	if cfg.SlowQuery > 0 {
		lcfg.SlowThreshold = cfg.SlowQuery
	}
	gcfg := &gorm.Config{
		Logger:  logger.NewGormLogger(log, lcfg),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	var conn *gorm.DB
	for i := 1; i <= connectAttempts; i++ {
		conn, err = gorm.Open(dialector, gcfg)
		if err == nil {
			err = ping(ctx, conn)
		}
		if err == nil {
			break
		}
		log.Warn("database connection failed", zap.Int("attempt", i), zap.Error(err))
		if i == connectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect database after %d attempts: %w", connectAttempts, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.IsSQLite() {
		// sqlite serialises writers; one connection avoids "database is locked".
		sqlDB.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	log.Info("database connected", zap.String("type", cfg.Type), zap.String("dsn", MaskDSN(cfg.DSN())))
	return conn, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Type {
	case "sqlite":
		return sqlite.Open(cfg.DSN()), nil
	case "postgres", "":
		return postgres.Open(NormalizeDSN(cfg.DSN())), nil
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q", cfg.Type)
	}
}

func ping(ctx context.Context, conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Ping checks the connection, used by the health endpoint.
func Ping(ctx context.Context, conn *gorm.DB) error {
	return conn.WithContext(ctx).Exec("SELECT 1").Error
}

// MaskDSN hides the password of a key=value or URL DSN.
func MaskDSN(dsn string) string {
	if strings.Contains(dsn, "password=") {
		return passwordRegex.ReplaceAllString(dsn, `${1}***`)
	}
	if i := strings.Index(dsn, "://"); i >= 0 {
		if at := strings.LastIndex(dsn, "@"); at > i {
			creds := dsn[i+3 : at]
			if user, _, ok := strings.Cut(creds, ":"); ok {
				return dsn[:i+3] + user + ":***" + dsn[at:]
			}
		}
	}
	return dsn
}
