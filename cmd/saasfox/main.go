package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/SaaSFox/app/controllers"
	"github.com/ManuelReschke/SaaSFox/app/repository"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/apperrors"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/billing"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/cache"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/database"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/env"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/metrics"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/roles"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/router"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/session"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/statistics"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// Define possible base paths
	basePaths := []string{
		"./",     // Current directory
		"../../", // From cmd/saasfox to project root
	}

	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}
	if basePath == "" {
		panic("Could not find project root directory")
	}

	db := database.GetDB()
	billingService, err := billing.NewServiceFromDB(billing.ConfigFromEnv(), db)
	if err != nil {
		log.Fatalf("billing: %v", err)
	}
	repos := repository.NewFactory(db).GetRepositories()

	// init fiber app
	// c.IP() only honours PROXY_HEADER when the peer is a trusted proxy
	app := fiber.New(fiber.Config{
		ErrorHandler:            apperrors.ErrorHandler,
		BodyLimit:               1 << 20,
		ProxyHeader:             env.GetEnv("PROXY_HEADER", ""),
		EnableTrustedProxyCheck: true,
		TrustedProxies:          trustedProxies(),
	})

	// ignore favicon requests until the assets ship one
	app.Use(favicon.New(favicon.Config{
		URL:          "/favicon.ico",
		CacheControl: "public, max-age=604800",
	}))

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// operator endpoints
	operators := basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "change-me"),
		},
	})
	app.Get("/metrics", operators, metrics.Handler())
	app.Get("/monitor", operators, monitor.New(monitor.Config{Title: "SaaSFox Monitor"}))

	// static files
	app.Static("/", basePath+"public/assets", fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Repos:          repos,
		Sessions:       session.NewManager(session.NewStore(cache.NewStorage(cache.DBSessions)), repos.User),
		Billing:        billingService,
		Roles:          roles.NewManager(repos.User),
		Statistics:     statistics.NewService(db, cache.NewStorage(cache.DBStats)),
		OAuthStorage:   cache.NewStorage(cache.DBOAuth),
		LimiterStorage: cache.NewStorage(cache.DBLimiter),
		HealthChecks: map[string]controllers.HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"cache": cache.Ping,
		},
	})

	return app
}

// trustedProxies reads the comma separated TRUSTED_PROXIES list of IPs or CIDR ranges.
func trustedProxies() []string {
	var out []string
	for _, p := range strings.Split(env.GetEnv("TRUSTED_PROXIES", ""), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
