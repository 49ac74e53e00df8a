package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/meech-ward/qr-full-stack/internal/config"
	"github.com/meech-ward/qr-full-stack/internal/models"
	"go.uber.org/zap"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 10 * time.Minute
)

// NewLogger routes GORM output through zap. Only slow queries and errors are
// reported.
func NewLogger(logger *zap.Logger) gormlogger.Interface {
	return gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// Open connects to postgres or mysql as described by cfg. MySQL without a
// URL authenticates against RDS with IAM tokens.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: NewLogger(logger)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	logger.Info("database connected", zap.String("driver", cfg.Driver), zap.Bool("iam", cfg.UsesIAM()))
	return db, nil
}

func dialectorFor(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres":
		if cfg.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
		return postgres.Open(cfg.URL), nil

	case "mysql":
		if cfg.UsesIAM() {
			tokens, err := NewIAMTokenProvider(ctx, cfg.Endpoint, cfg.Port, cfg.Region, cfg.User)
			if err != nil {
				return nil, err
			}
			mcfg := IAMConfig(cfg, tokens, logger)
			connector, err := mysql.NewConnector(mcfg)
			if err != nil {
				return nil, fmt.Errorf("failed to build mysql connector: %w", err)
			}
			return gormmysql.New(gormmysql.Config{Conn: sql.OpenDB(connector)}), nil
		}
		dsn, err := MySQLDSN(cfg.URL)
		if err != nil {
			return nil, err
		}
		return gormmysql.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// IAMConfig builds a driver config that asks tokens for a fresh password
// before every new connection. RDS requires TLS and the cleartext plugin.
func IAMConfig(cfg config.DatabaseConfig, tokens *IAMTokenProvider, logger *zap.Logger) *mysql.Config {
	mcfg := mysql.NewConfig()
	mcfg.User = cfg.User
	mcfg.Net = "tcp"
	mcfg.Addr = fmt.Sprintf("%s:%d", cfg.Endpoint, cfg.Port)
	mcfg.DBName = cfg.Name
	mcfg.ParseTime = true
	mcfg.AllowCleartextPasswords = true
	mcfg.TLSConfig = "true"
	_ = mcfg.Apply(mysql.BeforeConnect(func(ctx context.Context, c *mysql.Config) error {
		token, err := tokens.Token(ctx)
		if err != nil {
			logger.Error("rds auth token unavailable", zap.Error(err))
			return err
		}
		c.Passwd = token
		return nil
	}))
	return mcfg
}

// MySQLDSN accepts either a driver DSN or a mysql:// URL and returns a DSN
// with parseTime enabled.
func MySQLDSN(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("DATABASE_URL is not set")
	}
	if !strings.HasPrefix(raw, "mysql://") {
		mcfg, err := mysql.ParseDSN(raw)
		if err != nil {
			return "", fmt.Errorf("invalid mysql DSN: %w", err)
		}
		mcfg.ParseTime = true
		return mcfg.FormatDSN(), nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid mysql URL: %w", err)
	}
	mcfg := mysql.NewConfig()
	mcfg.Net = "tcp"
	mcfg.Addr = u.Host
	if u.Port() == "" {
		mcfg.Addr = u.Host + ":3306"
	}
	mcfg.User = u.User.Username()
	mcfg.Passwd, _ = u.User.Password()
	mcfg.DBName = strings.TrimPrefix(u.Path, "/")
	mcfg.ParseTime = true
	if len(u.Query()) > 0 {
		mcfg.Params = map[string]string{}
		for k := range u.Query() {
			mcfg.Params[k] = u.Query().Get(k)
		}
	}
	return mcfg.FormatDSN(), nil
}

func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.QRCode{},
		&models.QRImage{},
		&models.QRUse{},
	)
}
