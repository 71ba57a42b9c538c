// Package app wires the demand dashboard together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, config.yaml and DEMAND_* variables
//	2. Initialize logging and OpenTelemetry
//	3. Generate the immutable dataset
//	4. Build the dashboard service, WebSocket hub and health service
//	5. Set up the chi router and its middleware
//	6. Create the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run stops on SIGINT or SIGTERM. The HTTP server and the hub share one
// errgroup: in-flight requests complete within the shutdown timeout, hub
// clients are closed and telemetry is flushed.
//
// Initialization errors are returned to the caller; the package never
// calls os.Exit.
package app
