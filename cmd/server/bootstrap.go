package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dmfesta/tradeacademy/internal/api"
	"github.com/dmfesta/tradeacademy/internal/app"
	"github.com/dmfesta/tradeacademy/internal/app/maintenance"
	iauth "github.com/dmfesta/tradeacademy/internal/auth"
	"github.com/dmfesta/tradeacademy/internal/auth/mfa"
	"github.com/dmfesta/tradeacademy/internal/realtime"
	"github.com/dmfesta/tradeacademy/internal/services"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Hub     *realtime.Hub
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine

	hubStop context.CancelFunc
}

// bootstrapRuntime initialises the database, services, background jobs and
// the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			_ = stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         cfg.Auth.JWT.Secret,
		Issuer:         cfg.Auth.JWT.Issuer,
		AccessTokenTTL: cfg.Auth.JWT.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	tokenSvc, err := services.NewTokenService(stack.DB,
		services.WithTokenHardExpiry(cfg.Access.TokenHardExpiry),
		services.WithDefaultDuration(cfg.Access.DefaultDurationMonths))
	if err != nil {
		return nil, fmt.Errorf("initialise token service: %w", err)
	}

	accountSvc, err := services.NewAccountService(stack.DB, tokenSvc,
		services.WithStartingBalance(cfg.Market.StartingBalance))
	if err != nil {
		return nil, fmt.Errorf("initialise account service: %w", err)
	}

	adminSvc, err := services.NewAdminService(stack.DB, mfa.New(mfa.WithIssuer(cfg.Auth.JWT.Issuer)))
	if err != nil {
		return nil, fmt.Errorf("initialise admin service: %w", err)
	}

	courseSvc, err := services.NewCourseService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise course service: %w", err)
	}

	videoSvc, err := services.NewVideoService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise video service: %w", err)
	}

	tradeSvc, err := services.NewTradeService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise trade service: %w", err)
	}

	stack.Cleaner = maintenance.NewCleaner(tokenSvc,
		maintenance.WithTokenSchedule(cfg.Access.SweepInterval))
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Hub = realtime.NewHub(tradeSvc, cfg.Market.TickInterval)
	hubCtx, hubStop := context.WithCancel(ctx)
	stack.hubStop = hubStop
	go stack.Hub.Run(hubCtx)

	stack.Router, err = api.NewRouter(api.Services{
		Accounts: accountSvc,
		Admins:   adminSvc,
		Tokens:   tokenSvc,
		Courses:  courseSvc,
		Videos:   videoSvc,
		Trades:   tradeSvc,
	}, jwtSvc, stack.Hub, cfg)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) error {
	if s == nil {
		return nil
	}

	var errs error

	if s.hubStop != nil {
		s.hubStop()
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}

	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Warn("failed to close database", zap.Error(err))
				errs = multierr.Append(errs, err)
			}
		}
	}

	return errs
}
