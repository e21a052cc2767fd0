package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/clickprio/internal/clicksim"
	"github.com/okian/clickprio/pkg/logger"
)

const (
	defaultItems      = 20
	defaultClicks     = 5000
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 10 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		items      = flag.Int("items", defaultItems, "Number of items to create")
		clicks     = flag.Int("clicks", defaultClicks, "Number of clicks to submit")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent click senders")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		duplicates = flag.Float64("duplicates", 0.05, "Share of clicks resent with the same click id")
		limit      = flag.Int("limit", 11, "Ranking limit configured on the service")
		viewers    = flag.String("viewers", "alice=Admin,User;bob=User;carol=Sales", "Viewers as name=group[,group];... matching the service directory")
		verbose    = flag.Bool("verbose", false, "Log every failed click")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	viewerMap, err := clicksim.ParseViewers(*viewers)
	if err != nil {
		os.Stderr.WriteString("invalid -viewers: " + err.Error() + "\n")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	if _, err := clicksim.Run(ctx, &clicksim.Config{
		BaseURL:       *baseURL,
		Items:         *items,
		Clicks:        *clicks,
		Workers:       *workers,
		Timeout:       *timeout,
		DuplicateRate: *duplicates,
		Limit:         *limit,
		Viewers:       viewerMap,
		Verbose:       *verbose,
	}); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
