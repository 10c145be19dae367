package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/arriviste0/personal-finance-sub000/internal/allocation"
	"github.com/arriviste0/personal-finance-sub000/internal/config"
	"github.com/arriviste0/personal-finance-sub000/internal/events"
	"github.com/arriviste0/personal-finance-sub000/internal/goals"
	"github.com/arriviste0/personal-finance-sub000/internal/ledger"
	"github.com/arriviste0/personal-finance-sub000/internal/middleware"
	"github.com/arriviste0/personal-finance-sub000/internal/user"
	"github.com/arriviste0/personal-finance-sub000/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes. DB, Cache and
// Publisher are optional in development; memory backends fill the gaps.
type Deps struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Cache     *redis.Client
	Publisher events.Publisher
	Logger    *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Dev mode may run entirely on memory backends; anywhere else the durable
	// stores are mandatory.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var (
		walletStore     wallet.Store
		allocationStore allocation.Store
		ledgerLog       ledger.Log
		userRepo        user.Repository
	)
	if d.DB != nil {
		walletStore = wallet.NewPostgresStore(d.DB)
		allocationStore = allocation.NewPostgresStore(d.DB)
		ledgerLog = ledger.NewPostgresLog(d.DB)
		userRepo = user.NewPostgresRepository(d.DB)
	} else {
		walletStore = wallet.NewMemoryStore()
		allocationStore = allocation.NewMemoryStore()
		ledgerLog = ledger.NewMemoryLog()
		userRepo = user.NewMemoryRepository()
	}

	publisher := d.Publisher
	if publisher == nil {
		publisher = events.NewLogPublisher(d.Logger)
	}

	engine := ledger.NewEngine(walletStore, allocationStore, ledgerLog, publisher)
	userSvc := user.NewService(userRepo, walletStore)
	goalSvc := goals.NewService(allocationStore, engine)

	userHandler := user.NewHandler(userSvc)
	goalHandler := goals.NewHandler(goalSvc)
	ledgerHandler := ledger.NewHandler(engine)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterUserRoutes(api, userHandler)
	RegisterGoalRoutes(api, goalHandler)
	RegisterLedgerRoutes(api, ledgerHandler)

	return nil
}
