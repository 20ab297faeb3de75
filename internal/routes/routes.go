package routes

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/atlas-bank/atlas_core/internal/account"
	"github.com/atlas-bank/atlas_core/internal/config"
	"github.com/atlas-bank/atlas_core/internal/customer"
	"github.com/atlas-bank/atlas_core/internal/interest"
	"github.com/atlas-bank/atlas_core/internal/ledger"
	"github.com/atlas-bank/atlas_core/internal/middleware"
	"github.com/atlas-bank/atlas_core/internal/notification"
	"github.com/atlas-bank/atlas_core/internal/payment"
	"github.com/atlas-bank/atlas_core/internal/scheduler"
	"github.com/atlas-bank/atlas_core/internal/transfer"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Core exposes the long-running services built during route wiring so the
// caller can hand them to the cron runner.
type Core struct {
	Interest   *interest.Service
	Dispatcher *scheduler.Dispatcher
}

// Setup configures middlewares and all application routes, and returns the
// services that back background jobs.
func Setup(app *fiber.App, d Deps) (*Core, error) {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var store ledger.Store
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
	} else {
		store = ledger.NewMemoryStore()
	}

	var customerRepo customer.Repository
	if d.DB != nil {
		customerRepo = customer.NewPostgresRepository(d.DB)
	} else {
		customerRepo = customer.NewMemoryRepository()
	}

	notifier := notification.NewLoggerNotifier(d.Logger)

	customerSvc := customer.NewService(customerRepo)
	accountSvc := account.NewService(store, customerRepo)
	transferSvc := transfer.NewService(store, notifier)
	paymentSvc := payment.NewService(store)
	interestSvc := interest.NewService(store, d.Cfg.InterestRate, notifier, d.Logger)
	dispatcher := scheduler.NewDispatcher(store, transferSvc, d.Logger)

	api := app.Group("/api/v1")

	RegisterCustomerRoutes(api, customer.NewHandler(customerSvc))
	RegisterAccountRoutes(api, account.NewHandler(accountSvc))
	RegisterTransactionRoutes(api, store)
	RegisterTransferRoutes(api, transfer.NewHandler(transferSvc))
	RegisterPaymentRoutes(api, payment.NewHandler(paymentSvc))
	RegisterInterestRoutes(api, interest.NewHandler(interestSvc))
	RegisterScheduleRoutes(api, scheduler.NewHandler(dispatcher))

	return &Core{Interest: interestSvc, Dispatcher: dispatcher}, nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
