package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meinhoongagan/hospital-booking/config"
	"github.com/meinhoongagan/hospital-booking/cron"
	"github.com/meinhoongagan/hospital-booking/db"
	"github.com/meinhoongagan/hospital-booking/media"
	"github.com/meinhoongagan/hospital-booking/middleware"
	"github.com/meinhoongagan/hospital-booking/notify"
	"github.com/meinhoongagan/hospital-booking/redis"
	"github.com/meinhoongagan/hospital-booking/routes"
	"github.com/meinhoongagan/hospital-booking/services"
	"github.com/meinhoongagan/hospital-booking/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer st.Close()

	queue, closeQueue, err := openQueue(ctx, cfg)
	if err != nil {
		log.Fatalf("queue: %v", err)
	}
	defer closeQueue()

	var uploader services.ImageUploader
	if cfg.CloudinaryEnabled() {
		cld, err := media.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		if err != nil {
			log.Fatalf("cloudinary: %v", err)
		}
		uploader = cld
	} else {
		log.Println("Cloudinary not configured, image uploads disabled")
	}

	appointments := services.NewAppointmentService(st, queue)
	users := services.NewUserService(st, cfg.JWTSecret, cfg.TokenTTL, uploader)

	if cfg.SeedDefaults {
		if err := users.Seed(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			log.Fatalf("seed: %v", err)
		}
	}

	worker := notify.NewWorker(queue, st, newMailer(cfg), newTexter(cfg), notify.WorkerConfig{
		Hospital:    cfg.EmailFromName,
		AdminEmail:  cfg.AdminEmail,
		MaxAttempts: cfg.NotifyMaxAttempts,
	})
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(ctx)
	}()

	scheduler := cron.NewScheduler(queue, appointments, queue)
	if err := scheduler.Start(cfg.ReminderSpec); err != nil {
		log.Fatalf("cron: %v", err)
	}

	app := routes.NewApp(routes.Deps{
		Appointments: appointments,
		Users:        users,
		Health:       st,
		Limiter:      middleware.NewRateLimiter(ctx, 5, 10),
		JWTSecret:    cfg.JWTSecret,
		CORSOrigins:  cfg.CORSOrigins,
	})

	go func() {
		<-ctx.Done()
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("Server starting on %s (%s, store=%s)", addr, cfg.AppEnv, cfg.StoreDriver)
	if err := app.Listen(addr); err != nil {
		log.Printf("listen: %v", err)
	}

	stop()
	scheduler.Stop()
	<-workerDone
	log.Println("Server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		gdb, err := db.Open(cfg.DatabaseURL, cfg.AppEnv == "development")
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(gdb); err != nil {
			return nil, err
		}
		return store.NewPostgres(gdb), nil
	case "mongo":
		cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		return store.OpenMongo(cctx, cfg.MongoURI, cfg.MongoDB)
	case "memory":
		log.Println("Using in-memory store, data is lost on restart")
		return store.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// openQueue returns the notification queue and a func that releases it.
func openQueue(ctx context.Context, cfg *config.Config) (notify.Queue, func(), error) {
	if cfg.RedisAddr == "" {
		log.Println("REDIS_ADDR not set, notifications use an in-process queue")
		q := notify.NewLocalQueue(1024)
		return q, func() { q.Close() }, nil
	}
	client, err := redis.Connect(ctx, cfg.RedisAddr, cfg.RedisPass)
	if err != nil {
		return nil, nil, err
	}
	q := notify.NewRedisQueue(client, "hospital:notify")
	n, err := q.Recover(ctx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("recover in-flight notifications: %w", err)
	}
	if n > 0 {
		log.Printf("Requeued %d notifications left in flight by the last run", n)
	}
	return q, func() {
		q.Close()
		client.Close()
	}, nil
}

func newMailer(cfg *config.Config) notify.Mailer {
	if !cfg.EmailEnabled() {
		log.Println("SMTP not configured, emails are logged only")
		return notify.LogMailer{}
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.EmailUser,
		Password: cfg.EmailPass,
		FromName: cfg.EmailFromName,
	})
}

func newTexter(cfg *config.Config) notify.Texter {
	if !cfg.SMSEnabled() {
		return nil
	}
	return notify.NewTwilioTexter(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom)
}
