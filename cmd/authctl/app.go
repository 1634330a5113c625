package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	auth "github.com/goliatone/go-membership"
	"github.com/goliatone/go-membership/activitymap"
	"github.com/goliatone/go-membership/config"
	"github.com/goliatone/go-membership/ledger"
)

type globalFlags struct {
	configPath string
	envPath    string
	verbose    bool
}

func (g *globalFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.configPath, "config", os.Getenv("MEMBERSHIP_CONFIG"), "YAML config file")
	fs.StringVar(&g.envPath, "env", ".env", "dotenv file loaded before reading MEMBERSHIP_* variables")
	fs.BoolVar(&g.verbose, "v", false, "verbose logging")
}

type app struct {
	settings *config.Settings
	cfg      *auth.Config
	logger   *glog.BaseLogger
	db       *bun.DB
	repo     auth.RepositoryManager
	service  *auth.Service
	roles    *auth.RoleService
	gate     *auth.Gate
	closers  []func() error
}

func newApp(ctx context.Context, g globalFlags) (*app, error) {
	if err := config.LoadEnvFile(g.envPath); err != nil {
		return nil, err
	}

	settings, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}

	a := &app{settings: settings, logger: newLogger(settings, g.verbose)}

	a.cfg, err = settings.AuthConfig()
	if err != nil {
		return nil, err
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, settings.Database.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open database")
	}
	sqldb.SetMaxOpenConns(1)

	a.db = bun.NewDB(sqldb, sqlitedialect.New())
	if settings.Database.Debug || g.verbose {
		a.db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	a.closers = append(a.closers, a.db.Close)

	a.repo = auth.NewRepositoryManager(a.db, auth.WithUsersClock(a.cfg.Clock()))
	if err := a.repo.Validate(); err != nil {
		a.Close()
		return nil, err
	}

	activityLog := a.logger.GetLogger("activity")
	sink := activitymap.NewSink(func(_ context.Context, record activitymap.Normalized) error {
		activityLog.Info(record.Verb,
			"actor", record.ActorID,
			"object", record.ObjectID,
			"metadata", record.Metadata,
		)
		return nil
	}, activitymap.WithClock(a.cfg.Clock().Now), activitymap.WithRedactedKeys("token_id"))

	tokens := auth.NewTokenService(a.cfg, a.logger.GetLogger("tokens"))
	resets := auth.NewResetTokenService(a.cfg, a.logger.GetLogger("resets"))

	a.service = auth.NewService(a.cfg, a.repo.Users()).
		WithLogger(a.logger.GetLogger("service")).
		WithActivitySink(sink).
		WithTokenService(tokens).
		WithResetTokenService(resets).
		WithResetDelivery(auth.ResetDeliveryFunc(func(_ context.Context, email string, cred *auth.Credential) error {
			fmt.Fprintf(os.Stderr, "reset credential for %s (expires %s):\n%s\n", email, cred.ExpiresAt.Format(time.RFC3339), cred.Token)
			return nil
		}))

	if l, err := a.resetLedger(ctx); err != nil {
		a.Close()
		return nil, err
	} else if l != nil {
		a.service.WithResetLedger(l)
	}

	a.roles = auth.NewRoleService(a.repo.Users()).
		WithLogger(a.logger.GetLogger("roles")).
		WithActivitySink(sink).
		WithClock(a.cfg.Clock())

	a.gate = auth.NewGate(tokens, a.repo.Users()).
		WithLogger(a.logger.GetLogger("gate"))

	return a, nil
}

func (a *app) resetLedger(ctx context.Context) (auth.ResetLedger, error) {
	switch a.settings.Ledger.Driver {
	case config.LedgerMemory:
		return ledger.NewMemory(ledger.MemoryConfig{Now: a.cfg.Clock().Now}), nil
	case config.LedgerRedis:
		rs := a.settings.Ledger.Redis
		l, err := ledger.NewRedis(ledger.RedisConfig{
			Addr:      rs.Addr,
			Password:  rs.Password,
			DB:        rs.DB,
			KeyPrefix: rs.KeyPrefix,
			Now:       a.cfg.Clock().Now,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, l.Close)
		if err := l.Ping(ctx); err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, nil
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.GetLogger("app").Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

func newLogger(settings *config.Settings, verbose bool) *glog.BaseLogger {
	if verbose || settings.Logging.Level == "trace" || settings.Logging.Level == "debug" {
		return glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(glog.Trace),
			glog.WithName("authctl"),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(errors.ToSlogAttributes),
		)
	}

	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithName("authctl"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
}
