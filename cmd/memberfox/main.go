package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"

	"github.com/MemberFox/MemberFox/app/models"
	"github.com/MemberFox/MemberFox/app/repository"
	"github.com/MemberFox/MemberFox/internal/pkg/cache"
	"github.com/MemberFox/MemberFox/internal/pkg/database"
	"github.com/MemberFox/MemberFox/internal/pkg/env"
	"github.com/MemberFox/MemberFox/internal/pkg/jobqueue"
	"github.com/MemberFox/MemberFox/internal/pkg/router"
)

func main() {
	app := NewApplication()
	go handleSignals(app)

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Fatal(err)
	}
}

// handleSignals stops the workers and the server on SIGINT/SIGTERM.
func handleSignals(app *fiber.App) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	jobqueue.GetManager().Stop()
	_ = app.Shutdown()
}

func NewApplication() *fiber.App {
	bootstrap()

	base := projectRoot()
	app := fiber.New(fiber.Config{
		Views:     html.New(base+"views", ".html"),
		BodyLimit: 20971520, // 20 MiB, avatar uploads are capped well below this
	})

	app.Use(favicon.New(favicon.Config{
		File:         base + "public/assets/icons/favicon.ico",
		URL:          "/favicon.ico",
		CacheControl: "public, max-age=604800",
	}))
	app.Use(recover.New(), logger.New())

	// metrics endpoint is basic-auth guarded in deployments
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	app.Static("/", base+"public/assets", fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})
	app.Static("/uploads", base+"uploads", fiber.Static{
		CacheDuration: 10 * time.Second,
		MaxAge:        604800, // 7 days
	})

	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: base + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	router.InstallRouter(app)
	return app
}

// bootstrap prepares every process-wide dependency the routes rely on.
func bootstrap() {
	env.SetupEnvFile()
	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())
	if err := models.LoadSettings(database.GetDB()); err != nil {
		log.Printf("Failed to load settings: %v", err)
	}
	cache.SetupCache()

	// mail + export jobs, counter flush, statistics refresh
	jobqueue.GetManager().Start()
}

// projectRoot locates the directory holding views/ so the binary works from
// the repo root and from cmd/memberfox.
func projectRoot() string {
	for _, base := range []string{"./", "../../", "../../../"} {
		if _, err := os.Stat(base + "views"); err == nil {
			return base
		}
	}
	panic("Could not find project root directory")
}
