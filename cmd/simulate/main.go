package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/huddle/internal/simulate"
	"github.com/okian/huddle/pkg/logger"
)

const runTimeout = 5 * time.Minute

func main() {
	var (
		addr    = flag.String("addr", simulate.DefaultAddr, "Listen address for the embedded instance")
		secret  = flag.String("secret", "simulate-secret", "HMAC secret used to mint test tokens")
		issuer  = flag.String("issuer", "huddle", "Issuer claim for test tokens")
		issues  = flag.Int("issues", simulate.DefaultIssues, "Number of open issues to seed and contest")
		helpers = flag.Int("helpers", simulate.DefaultHelpers, "Number of helper identities to connect")
		timeout = flag.Duration("timeout", simulate.DefaultTimeout, "HTTP request timeout")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg := &simulate.Config{
		Addr:    *addr,
		Secret:  *secret,
		Issuer:  *issuer,
		Issues:  *issues,
		Helpers: *helpers,
		Timeout: *timeout,
		Verbose: *verbose,
	}

	if err := simulate.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
