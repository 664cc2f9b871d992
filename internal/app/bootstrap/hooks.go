// internal/app/bootstrap/hooks.go
package bootstrap

import (
	"github.com/dalemusser/waffle/app"
)

// Hooks wires this app into the WAFFLE lifecycle. app.Run calls them in
// order, from configuration loading through graceful shutdown.
var Hooks = app.Hooks[AppConfig, DBDeps]{
	Name:           "stratastore",  // used only for logging/diagnostics
	LoadConfig:     LoadConfig,     // load core + app config
	ValidateConfig: ValidateConfig, // Mongo URI, keys, storage and mail settings
	ConnectDB:      ConnectDB,      // Mongo, Redis, storage, mailer, gateway
	EnsureSchema:   EnsureSchema,   // validators, indexes, seed data
	Startup:        Startup,        // timeouts and background jobs
	BuildHandler:   BuildHandler,   // router + middleware stack
	Shutdown:       Shutdown,       // stop jobs, close connections
}
