package main

import (
	"fmt"
	"log"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
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

// Dev entrypoint, run from the project root. The deployable binary with base
// path discovery and graceful shutdown lives in cmd/memberfox.
func main() {
	app := NewApplication()
	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	log.Fatal(app.Listen(addr))
}

func NewApplication() *fiber.App {
	bootstrap()

	app := fiber.New(fiber.Config{
		Views:     html.New("./views", ".html"),
		BodyLimit: 20971520, // 20 MiB, avatar uploads are capped well below this
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())
	app.Static("/", "./public/assets")
	app.Static("/uploads", "./uploads")

	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
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
