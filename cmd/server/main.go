// Command server boots the optional online-serving mode: it builds a
// dispatcher from one data file and answers ad-hoc batch queries over
// HTTP until signaled to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sigmod24/hybridann/internal/dispatcher"
	"github.com/sigmod24/hybridann/internal/fileio"
	"github.com/sigmod24/hybridann/pkg/config"
	"github.com/sigmod24/hybridann/pkg/obs"
	"github.com/sigmod24/hybridann/pkg/restapi"
	"github.com/sigmod24/hybridann/pkg/restapi/middleware"
)

var version = "1.0.0"

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version and exit")
		showHelp    = flag.Bool("help", false, "show help and exit")
		dataFile    = flag.String("data", "", "path to the data file to build the index from (required)")
		host        = flag.String("host", "", "server host (overrides config/env)")
		port        = flag.Int("port", 0, "server port (overrides config/env)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("hybridann server v%s\n", version)
		os.Exit(0)
	}
	if *showHelp {
		showUsage()
		os.Exit(0)
	}
	if *dataFile == "" {
		fmt.Fprintln(os.Stderr, "missing required -data flag")
		showUsage()
		os.Exit(1)
	}

	obs.Init()
	metrics := obs.NewMetrics()

	cfg := config.LoadFromEnv()
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	printBanner(cfg, *dataFile)

	obs.Infof("loading data file %s", *dataFile)
	ds, err := fileio.ReadDataFile(*dataFile)
	if err != nil {
		log.Fatalf("failed to read data file: %v", err)
	}

	obs.Infof("building dispatcher over %d points", ds.Points.Size())
	d, err := dispatcher.Build(ds.Points, ds.Labels, ds.Timestamps, cfg.ToDispatcherParams())
	if err != nil {
		log.Fatalf("failed to build dispatcher: %v", err)
	}

	server := restapi.NewServer(buildRestConfig(cfg), d, metrics)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	obs.Infof("server ready on %s", cfg.Server.Address())
	select {
	case sig := <-sigChan:
		obs.Infof("received signal: %v", sig)
	case err := <-errChan:
		obs.Errorf("server error: %v", err)
	}

	obs.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		obs.Errorf("error stopping server: %v", err)
	}

	obs.Info("server stopped")
}

// buildRestConfig derives the REST server's config from the engine
// config: auth is enabled only when an HMAC secret is configured.
func buildRestConfig(cfg *config.Config) restapi.Config {
	return restapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
		Auth: middleware.AuthConfig{
			Enabled:   cfg.Server.JWTSecret != "",
			JWTSecret: cfg.Server.JWTSecret,
			PublicPaths: []string{
				"/healthz",
				"/metrics",
			},
		},
		RateLimit: middleware.RateLimitConfig{
			Enabled: true,
			RPS:     cfg.Server.RateLimitRPS,
			Burst:   cfg.Server.RateLimitBurst,
		},
	}
}

func printBanner(cfg *config.Config, dataFile string) {
	fmt.Println("hybridann server")
	fmt.Printf("  data file:   %s\n", dataFile)
	fmt.Printf("  address:     %s\n", cfg.Server.Address())
	fmt.Printf("  auth:        %v\n", cfg.Server.JWTSecret != "")
	fmt.Printf("  rate limit:  %.1f req/s (burst %d)\n", cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	fmt.Println()
}

func showUsage() {
	fmt.Println("hybridann server - online serving mode for the hybrid ANN engine")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  server -data <data_file> [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -help             Show this help message")
	fmt.Println("  -version          Show version information")
	fmt.Println("  -data PATH        Path to the data file to build the index from (required)")
	fmt.Println("  -host HOST        Server host (default: 0.0.0.0)")
	fmt.Println("  -port PORT        Server port (default: 8443)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  HYBRIDANN_SERVER_HOST             Server host")
	fmt.Println("  HYBRIDANN_SERVER_PORT             Server port")
	fmt.Println("  HYBRIDANN_SERVER_JWT_SECRET       Bearer token signing key (enables auth)")
	fmt.Println("  HYBRIDANN_SERVER_RATE_LIMIT_RPS   Per-client requests/sec")
	fmt.Println("  HYBRIDANN_SERVER_RATE_LIMIT_BURST Per-client burst size")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  server -data vectors.bin")
	fmt.Println("  server -data vectors.bin -port 9443")
	fmt.Println()
}
