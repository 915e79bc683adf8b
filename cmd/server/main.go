package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"foodDeliveryPlatform/internal/config"
	"foodDeliveryPlatform/internal/db"
	"foodDeliveryPlatform/internal/dispatch"
	"foodDeliveryPlatform/internal/events"
	"foodDeliveryPlatform/internal/httpapi"
	"foodDeliveryPlatform/internal/live"
	"foodDeliveryPlatform/internal/notify"
	"foodDeliveryPlatform/internal/orderflow"
	"foodDeliveryPlatform/internal/pickup"
	"foodDeliveryPlatform/repository"
)

const serviceName = "order-core"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Printf("configuration loaded: %v", cfg)

	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer d.Close()

	users := repository.NewUserRepository(d)
	products := repository.NewProductRepository(d)
	orders := repository.NewOrderRepository(d)
	agents := repository.NewAgentRepository(d)
	notifs := repository.NewNotificationRepository(d)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional channels degrade to nil when unconfigured; the fanout treats
	// nil channels as disabled.
	var liveDir *live.RedisDirectory
	if cfg.Redis.Addr != "" {
		liveDir = live.NewRedisDirectory(live.NewClient(cfg.Redis.Addr))
	}
	email := notify.NewEmailService(cfg.Email.SendGridKey, cfg.Email.FromName, cfg.Email.FromAddress)

	var producer *events.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, 256)
		producer.Start(ctx)
	}

	// Typed-nil pointers must not leak into the interfaces; nil interface
	// values are what disables a channel downstream.
	var liveChan notify.LiveChannel
	var liveAPI live.Directory
	if liveDir != nil {
		liveChan = liveDir
		liveAPI = liveDir
	}
	var stream events.Publisher
	if producer != nil {
		stream = producer
	}
	fanout := notify.NewFanout(notifs, users, liveChan, email, stream, serviceName)

	orderSvc := orderflow.NewService(orders, products, agents, fanout)
	dispatchSvc := dispatch.NewService(orders, agents, products, users, fanout)
	pickupSvc := pickup.NewService(orders, products, users, fanout)

	router := httpapi.NewRouter(cfg.Auth.JWTSecret,
		&httpapi.OrdersHandler{Orders: orderSvc},
		&httpapi.DispatchHandler{Dispatch: dispatchSvc},
		&httpapi.PickupHandler{Pickup: pickupSvc},
		&httpapi.NotificationsHandler{Notifs: notifs, LiveDir: liveAPI},
	)

	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("http server listening on %s", cfg.HTTP.Address)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Printf("received %v, shutting down", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}

	if producer != nil {
		producer.Close()
		producer.WaitClosed()
	}
	log.Println("shutdown complete")
}
