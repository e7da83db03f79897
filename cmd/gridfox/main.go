package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/GridFox/app/controllers"
	"github.com/ManuelReschke/GridFox/app/repository"
	"github.com/ManuelReschke/GridFox/internal/pkg/billing"
	"github.com/ManuelReschke/GridFox/internal/pkg/cache"
	"github.com/ManuelReschke/GridFox/internal/pkg/database"
	"github.com/ManuelReschke/GridFox/internal/pkg/env"
	"github.com/ManuelReschke/GridFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/GridFox/internal/pkg/mail"
	"github.com/ManuelReschke/GridFox/internal/pkg/metrics"
	"github.com/ManuelReschke/GridFox/internal/pkg/router"
	"github.com/redis/go-redis/v9"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()

	db, err := database.Open(database.ConfigFromEnv())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	repos := repository.NewRepositories(db)
	m := metrics.New()

	cacheCfg := cache.ConfigFromEnv()
	redisClient := cache.NewClient(cacheCfg)
	cacheUp := cache.Ping(context.Background(), redisClient) == nil

	gateway := billing.NewStripeGateway(billing.StripeConfig{
		SecretKey:     env.GetEnv("STRIPE_SECRET_KEY", ""),
		WebhookSecret: env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
	})
	if env.GetEnv("STRIPE_SECRET_KEY", "") == "" {
		log.Println("STRIPE_SECRET_KEY is not set; checkout calls will fail")
	}

	checkout := billing.NewCheckoutService(gateway, repos.Grid, billing.CheckoutConfig{
		BasePriceCents:   int64(env.GetEnvInt("GRID_BASE_PRICE_CENTS", 10000)),
		Currency:         env.GetEnv("GRID_CURRENCY", "usd"),
		DefaultReturnURL: strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000"), "/") + "/",
	})
	access := billing.NewAccessService(repos.Subscription, repos.User)
	content := billing.NewContentService(access, repos.Grid)
	reconciler := billing.NewReconciler(gateway, repos, newNotifier(redisClient, cacheUp), env.GetEnvInt("GRID_COLUMNS", billing.DefaultGridColumns))

	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	docsPath := findProjectFile("public/docs/v1/openapi.yml")
	if _, err := router.LoadAPISpec(docsPath); err != nil {
		log.Fatalf("openapi: %v", err)
	}

	api := router.ApiRouter{
		Checkout: controllers.NewCheckoutController(checkout, m),
		Grids:    controllers.NewGridController(access, content, repos.Grid, m),
		Webhooks: controllers.NewWebhookController(gateway, billing.NewEventLog(repos.WebhookEvent), reconciler, m),
		Metrics:  m,
	}
	if cacheUp {
		api.IdempotencyStorage = cache.NewIdempotencyStorage(cacheCfg)
	}

	// ROUTER
	router.InstallRouter(app, router.DocsRouter{FilePath: docsPath}, api)

	return app
}

// newNotifier queues confirmation mails when the cache is reachable and
// MAIL_QUEUE_ENABLED is set, otherwise sends them inline.
func newNotifier(client *redis.Client, cacheUp bool) billing.Notifier {
	if env.GetEnvBool("MAIL_QUEUE_ENABLED", true) && cacheUp {
		log.Println("Purchase confirmations are queued for cmd/worker")
		return jobqueue.NewMailNotifier(jobqueue.NewQueue(client, 1))
	}

	mailer, err := mail.NewSMTPMailer(mail.ConfigFromEnv())
	if err != nil {
		log.Printf("Mail disabled: %v", err)
		return nil
	}
	log.Println("Purchase confirmations are sent inline")
	return mailer
}

// findProjectFile resolves rel from the working directory or the repo root
// when started from cmd/gridfox.
func findProjectFile(rel string) string {
	for _, base := range []string{"./", "../../", "../../../"} {
		if _, err := os.Stat(base + rel); err == nil {
			return base + rel
		}
	}
	return rel
}
