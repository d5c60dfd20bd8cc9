package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mapmystandards/a3e/pkg/httpapi"
	"github.com/mapmystandards/a3e/pkg/server"
)

type healthController struct {
	pool *pgxpool.Pool
}

func newHealthController(pool *pgxpool.Pool) server.Controller {
	return &healthController{pool: pool}
}

func (c *healthController) Key() string {
	return "/health"
}

func (c *healthController) Register(r *mux.Router) {
	r.HandleFunc("/health", c.Health).Methods(http.MethodGet)
}

func (c *healthController) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := c.pool.Ping(ctx); err != nil {
		_ = httpapi.WriteError(w, http.StatusServiceUnavailable, "STD_DB_UNAVAILABLE", "database is not reachable", nil)
		return
	}
	_ = httpapi.WriteData(w, http.StatusOK, map[string]string{"status": "ok"})
}
