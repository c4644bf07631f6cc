package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hotelengine/internal/config"
	"hotelengine/internal/database"
	"hotelengine/internal/jobs"
	"hotelengine/internal/middleware"
	"hotelengine/internal/modules/availability"
	"hotelengine/internal/modules/booking"
	"hotelengine/internal/modules/discount"
	"hotelengine/internal/modules/incident"
	"hotelengine/internal/modules/refund"
	"hotelengine/internal/modules/roomfeed"
	"hotelengine/internal/modules/roomstate"
	"hotelengine/internal/pkg/clock"
	jwtsvc "hotelengine/internal/pkg/jwt"
	"hotelengine/internal/pkg/mailer"
	"hotelengine/internal/pkg/response"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.SetLevel(cfg.LogLevel)
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	venue, err := cfg.Venue()
	if err != nil {
		log.WithError(err).Fatal("invalid venue")
	}

	db, err := database.Connect(cfg.DatabaseURL, database.Options{SlowThreshold: cfg.SlowQueryThreshold, Log: log})
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	checkIn := cfg.ClockPolicy()
	if checkIn != clock.Strict {
		log.WithField("policy", checkIn.Name()).Warn("check-in cutoff bypass is enabled")
	}

	clk := clock.System{}
	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	mail := mailer.NewLogMailer(log)

	hub := roomfeed.NewHub(log)
	guard := roomstate.NewGuard(clk, hub, log)
	finder := availability.NewFinder(db)
	discountService := discount.NewService(db, clk, venue, log)
	refundService := refund.NewService(db, clk, mail, log)

	bookingService := booking.NewService(db, booking.Deps{
		Rooms:     finder,
		Discounts: discountService,
		Refunds:   refund.NewCalculator(venue),
		Guard:     guard,
		Mailer:    mail,
		Clock:     clk,
		CheckIn:   checkIn,
		Venue:     venue,
		Policy: booking.Policy{
			MinNights:                   cfg.Stay.MinNights,
			MaxNights:                   cfg.Stay.MaxNights,
			MaxAdvanceDays:              cfg.Stay.MaxAdvanceDays,
			SameDayBookingCutoffHour:    cfg.Stay.SameDayBookingCutoffHour,
			AdminCancelKeepsMaintenance: cfg.AdminCancelRoomPolicy == config.AdminCancelPreserveMaintenance,
		},
		Log: log,
	})
	incidentService := incident.NewService(db, guard, clk, log)

	scheduler := jobs.NewScheduler(jobs.Config{
		NoShowSpec:         cfg.NoShowSweepSpec,
		DiscountExpirySpec: cfg.DiscountExpirySpec,
		Location:           venue.Location,
	}, bookingService, discountService, log)
	if err := scheduler.Start(); err != nil {
		log.WithError(err).Fatal("scheduler start failed")
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorLogger(log), middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	roomfeed.NewHandler(hub, j, cfg.CORSAllowedOrigins, log).RegisterRoutes(r)

	bookingHandler := booking.NewHandler(bookingService)
	discountHandler := discount.NewHandler(discountService)

	v1 := r.Group("/api/v1")
	{
		public := v1.Group("", middleware.OptionalJWTAuth(j))
		availability.NewHandler(finder).RegisterRoutes(public)
		bookingHandler.RegisterPublicRoutes(public)
		discountHandler.RegisterPublicRoutes(public)

		protected := v1.Group("", middleware.JWTAuth(j))
		bookingHandler.RegisterRoutes(protected)
		discountHandler.RegisterRoutes(protected)
		incident.NewHandler(incidentService).RegisterRoutes(protected)
		refund.NewHandler(refundService).RegisterRoutes(protected)
		roomstate.NewHandler(guard, db).RegisterRoutes(protected)

		protected.GET("/admin/jobs", middleware.ManagerOnly(), func(c *gin.Context) {
			response.Success(c, http.StatusOK, scheduler.Status())
		})
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	scheduler.Stop()
	hub.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
