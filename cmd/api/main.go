package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/chachabrian/carbid-backend/internal/app"
	"github.com/chachabrian/carbid-backend/internal/config"
	"github.com/chachabrian/carbid-backend/internal/handlers"
	"github.com/chachabrian/carbid-backend/internal/logging"
	"github.com/chachabrian/carbid-backend/internal/middleware"
	"github.com/chachabrian/carbid-backend/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	// A missing .env is fine outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := services.NewHub(log.WithField("component", "websocket"))
	a, err := app.New(ctx, cfg, log, hub)
	if err != nil {
		log.WithError(err).Fatal("failed to start")
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.WithError(err).Warn("shutdown cleanup failed")
		}
	}()

	bids := a.BidService()
	bookings := a.BookingService()

	go hub.Run(ctx)
	go a.Worker.Run(ctx)
	if cfg.BidConsumerEnabled {
		go a.Consumer().Run(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, log, hub, bids, bookings),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
}

func newRouter(cfg config.Config, log *logrus.Logger, hub *services.Hub, bids handlers.BidService, bookings handlers.BookingService) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", "X-Request-ID"}
	r.Use(cors.New(corsConfig))

	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.AuthMiddleware(cfg.JWTSecret)
	api := r.Group("/api")
	{
		api.GET("/ws", auth, handlers.WebSocketHandler(hub))

		// Public listings
		api.GET("/bids/vehicle/:vehicleId", handlers.GetVehicleBids(bids))
		api.GET("/bids/highest/:vehicleId", handlers.GetHighestBid(bids))

		protected := api.Group("/")
		protected.Use(auth)
		{
			b := protected.Group("/bids")
			{
				b.POST("", handlers.SubmitBid(bids))
				b.GET("/seller", handlers.GetSellerBids(bids))
				b.GET("/mine", handlers.GetMyBids(bids))
				b.GET("/:bidId", handlers.GetBid(bids))
				b.POST("/:bidId/respond", handlers.RespondToBid(bids))
				b.POST("/:bidId/cancel", handlers.CancelBid(bids))
			}

			k := protected.Group("/bookings")
			{
				k.POST("/convert-bid/:bidId", handlers.ConvertBid(bookings))
				k.GET("/seller", handlers.GetSellerBookings(bookings))
				k.GET("/renter", handlers.GetRenterBookings(bookings))
				k.GET("/:bookingId", handlers.GetBooking(bookings))
				k.PATCH("/:bookingId/status", handlers.UpdateBookingStatus(bookings))
				k.POST("/:bookingId/cancel", handlers.CancelBooking(bookings))
				k.POST("/:bookingId/complete", handlers.CompleteBooking(bookings))
			}
		}
	}
	return r
}
