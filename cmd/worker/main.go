package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuelReschke/GridFox/internal/pkg/cache"
	"github.com/ManuelReschke/GridFox/internal/pkg/env"
	"github.com/ManuelReschke/GridFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/GridFox/internal/pkg/mail"
	"github.com/ManuelReschke/GridFox/internal/pkg/metrics"
	"github.com/gofiber/fiber/v2"
)

// The worker drains the purchase-confirmation queue. It exposes its own
// /metrics on WORKER_METRICS_ADDR.
func main() {
	env.SetupEnvFile()

	client := cache.NewClient(cache.ConfigFromEnv())
	if err := cache.Ping(context.Background(), client); err != nil {
		log.Fatalf("cache unreachable: %v", err)
	}

	mailer, err := mail.NewSMTPMailer(mail.ConfigFromEnv())
	if err != nil {
		log.Fatalf("mailer: %v", err)
	}

	m := metrics.New()
	queue := jobqueue.NewQueue(client, env.GetEnvInt("MAIL_WORKERS", 2))
	queue.Register(jobqueue.JobTypePurchaseConfirmation, jobqueue.PurchaseConfirmationHandler(mailer))

	manager := jobqueue.NewManager(queue, m, 15*time.Second)
	manager.Start()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/metrics", m.Handler())
	go func() {
		if err := app.Listen(env.GetEnv("WORKER_METRICS_ADDR", "127.0.0.1:4001")); err != nil {
			log.Printf("metrics listener stopped: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down worker...")
	manager.Stop()
	_ = app.Shutdown()
	_ = client.Close()
}
