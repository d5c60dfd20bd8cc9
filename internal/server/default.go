package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/mapmystandards/a3e/modules/standards/domain/standard"
	"github.com/mapmystandards/a3e/modules/standards/infrastructure/persistence"
	standardscontrollers "github.com/mapmystandards/a3e/modules/standards/presentation/controllers"
	"github.com/mapmystandards/a3e/modules/standards/services"
	"github.com/mapmystandards/a3e/pkg/configuration"
	"github.com/mapmystandards/a3e/pkg/constants"
	"github.com/mapmystandards/a3e/pkg/eventbus"
	"github.com/mapmystandards/a3e/pkg/httpapi"
	"github.com/mapmystandards/a3e/pkg/metrics"
	"github.com/mapmystandards/a3e/pkg/middleware"
	"github.com/mapmystandards/a3e/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Pool          *pgxpool.Pool
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	conf := options.Configuration

	corsHandler := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type", conf.RequestIDHeader},
	})

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, middleware.DefaultLoggerOptions()),
		middleware.Provide(constants.PoolKey, options.Pool),
		corsHandler.Handler,
	}

	if conf.RateLimit.Enabled {
		middlewares = append(middlewares, middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerPeriod: conf.RateLimit.GlobalRPS,
			Store:             middleware.NewMemoryStore(),
		}))
	}

	standardsService := services.NewStandardsService(
		persistence.NewStandardsRepository(),
		services.ImportLimits{
			MaxDepth: conf.Import.MaxDepth,
			MaxNodes: conf.Import.MaxNodes,
		},
	)

	bus := eventbus.NewEventPublisher(options.Logger)
	bus.Subscribe(func(e *standard.ImportedEvent) {
		options.Logger.WithFields(logrus.Fields{
			"standard-id": e.StandardID,
			"key":         e.Key,
			"count":       e.Count,
		}).Info("standard imported")
	})
	standardsService.SetEventPublisher(bus)

	controllers := []server.Controller{
		newHealthController(options.Pool),
		standardscontrollers.NewStandardsAPIController(standardsService),
	}
	if conf.Prometheus.Enabled {
		controllers = append(controllers, metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusNotFound, "STD_ROUTE_NOT_FOUND", "no such route", nil)
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "STD_METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	return server.NewHTTPServer(controllers, middlewares, notFound, methodNotAllowed), nil
}
