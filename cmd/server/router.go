package main

import (
	"net/http"

	"github.com/phrazzld/podscribe/internal/api"
)

// setupRouter creates the API handlers from the application's components
// and mounts them.
func (app *application) setupRouter() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Queue:     api.NewQueueHandler(app.queue, app.jobFunc, app.logger),
		History:   api.NewHistoryHandler(app.store, app.logger),
		Stream:    api.NewStreamHandler(app.status, app.sessions, app.logger),
		Logger:    app.logger,
		StartedAt: app.startedAt,

		AllowedOrigins: app.config.Server.AllowedOrigins,
		Metrics:        app.metrics.Handler(),
	})
}
