package http

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"supportlens/internal/bootstrap"
	"supportlens/internal/platform/gormdb"
	"supportlens/internal/transport/http/handler"
	"supportlens/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(
		middleware.RequestLogger(app.Logger),
		gin.Recovery(),
		middleware.CORS(app.Config.App.CORSOrigins),
	)

	healthHandler := handler.NewHealthHandler(app.Config.App.Env, app.StartedAt, healthChecks(app))
	router.GET("/healthz", healthHandler.Check)

	documentHandler := handler.NewDocumentHandler(app.Ingest)
	searchHandler := handler.NewSearchHandler(app.Search, app.Config.Retrieval.DefaultTopK)
	queryHandler := handler.NewQueryHandler(app.Query)
	analyticsHandler := handler.NewAnalyticsHandler(app.Analytics)

	v1 := router.Group("/api/v1")
	if app.Config.Auth.Enabled {
		v1.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	}
	v1.POST("/documents", documentHandler.Upload)
	v1.POST("/search", searchHandler.Search)
	v1.POST("/query", queryHandler.Query)
	v1.POST("/query/stream", queryHandler.Stream)

	analyticsGroup := v1.Group("/analytics")
	analyticsGroup.GET("/volume", analyticsHandler.Volume)
	analyticsGroup.POST("/top-documents", analyticsHandler.TopDocuments)
	analyticsGroup.POST("/metrics", analyticsHandler.Metrics)
	analyticsGroup.POST("/query-logs", analyticsHandler.QueryLogs)

	return router
}

// healthChecks lists the dependencies this process actually opened.
func healthChecks(app *bootstrap.App) map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"postgres": func(ctx context.Context) error { return gormdb.Ping(ctx, app.Postgres) },
	}
	if app.LogDB != nil && app.LogDB != app.Postgres {
		checks["logstore"] = func(ctx context.Context) error { return gormdb.Ping(ctx, app.LogDB) }
	}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return app.Redis.Ping(ctx).Err() }
	}
	if app.MQConn != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if app.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	return checks
}
