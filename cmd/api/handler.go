package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	scheduleDelivery "actionitems-backend/internal/schedule/delivery"
	scheduleUsecase "actionitems-backend/internal/schedule/usecase"
	"actionitems-backend/pkg/config"
	"actionitems-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Handler struct {
	scheduleHandler *scheduleDelivery.ScheduleHandler
	config          *config.Config
	logger          zerolog.Logger
}

func NewHandler(scheduleUc scheduleUsecase.ScheduleUsecase, cfg *config.Config, log zerolog.Logger) *Handler {
	return &Handler{
		scheduleHandler: scheduleDelivery.NewScheduleHandler(scheduleUc, log),
		config:          cfg,
		logger:          log.With().Str("component", "api").Logger(),
	}
}

// Router builds the gin engine with middleware and routes.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(logger.GinMiddleware(h.logger), gin.Recovery())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.scheduleHandler)
	return r
}

// Start serves on addr until ctx is cancelled, then drains in-flight requests
// for at most the configured shutdown timeout.
func (h *Handler) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info().Str("addr", addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := 10 * time.Second
	if h.config != nil && h.config.ShutdownTimeout > 0 {
		timeout = h.config.ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	h.logger.Info().Dur("timeout", timeout).Msg("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
