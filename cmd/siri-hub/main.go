package main

import (
	"context"
	"flag"
	"os"

	hub "github.com/theoremus-urban-solutions/siri-hub"
	"github.com/theoremus-urban-solutions/siri-hub/config"
	"github.com/theoremus-urban-solutions/siri-hub/subscription"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml")
	logFormat := flag.String("log-format", "pretty", "pretty|json")
	logLevel := flag.String("log-level", "info", "debug|info|warn|error")
	flag.Parse()

	log := hub.InitLogging(*logFormat, *logLevel)

	cfg, err := config.LoadAppConfig(*configPath)
	if err != nil {
		log.Error("loading configuration failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := hub.New(ctx, cfg, log)
	if err != nil {
		log.Error("assembling hub failed", "error", err)
		os.Exit(1)
	}

	// Re-establishing an unhealthy feed is transport work that lives
	// outside the hub; here we surface the decision and re-arm the
	// subscription so the next delivery is accepted again.
	reconnector := subscription.ReconnectorFunc(func(ctx context.Context, setup subscription.Setup) {
		log.Info("re-establishing subscription", "subscription", setup.ID, "mode", setup.Mode)
		app.Registry.ActivatePending(ctx, setup.ID)
	})

	go app.RunHousekeeping(ctx)
	go app.RunHealthMonitor(ctx, reconnector)

	app.StartServer()
	app.HandleGracefulShutdown()
}
