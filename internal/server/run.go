package server

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/setavenger/blindbit-tweaks/internal/metrics"
)

func NewRouter(api *ApiHandler, logger zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.SetHTMLTemplate(template.Must(template.New(blockStatsTemplateName).Parse(blockStatsHTML)))
	router.Use(gin.Recovery(), RequestLogger(logger))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: true,
	}))

	router.GET("/info", api.GetInfo)
	router.GET("/status", api.GetStatus)
	router.GET("/block_stats", api.GetBlockStats)
	router.GET("/tweaks/:blockhash", BlockHashMiddleware, api.GetTweaksByBlockHash)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return router
}

// RunServer serves until ctx is cancelled.
func RunServer(ctx context.Context, host string, api *ApiHandler, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:              host,
		Handler:           NewRouter(api, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info().Str("host", host).Msg("serving api")
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Err(err).Msg("could not run server")
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
