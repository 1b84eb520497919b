package db

import (
	"context"
	"time"

	"github.com/novabiz/paydesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Open connects to the configured database and applies pool settings.
func Open(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialect, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialect, &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}

	maxIdle := cfg.DBMaxIdleConn
	if maxIdle <= 0 {
		maxIdle = 5
	}
	maxOpen := cfg.DBMaxOpenConn
	if maxOpen <= 0 {
		maxOpen = 25
	}
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTime) * time.Second)

	log.Info("database connected",
		zap.String("type", cfg.DBType),
		zap.String("name", cfg.DBName),
	)

	return conn, nil
}

func registerHooks(lc fx.Lifecycle, conn *gorm.DB, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = ctx
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			log.Info("closing database connection")
			return sqlDB.Close()
		},
	})
}

var Module = fx.Module("db",
	fx.Provide(Open),
	fx.Invoke(registerHooks),
)
