package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"finclient/internal/backend"
	"finclient/internal/cli"
	"finclient/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))

	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	switch os.Args[1] {
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return
	}

	cfg := cli.LoadAndValidateConfig(logger)
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 2*cfg.APITimeout)
	res, err := backend.NewFactory(logger).Create(startCtx, bcfg)
	cancel()
	if err != nil {
		logger.Error("Failed to initialize client", log.FieldError, err)
		os.Exit(1)
	}

	a := &app{
		core:    res,
		out:     os.Stdout,
		now:     time.Now,
		period:  cfg.DashboardPeriod,
		timeout: 2 * cfg.APITimeout,
	}
	a.readPassword = func(prompt string) (string, error) {
		return cli.ReadPassword(os.Stdin, os.Stderr, prompt)
	}

	err = a.run(context.Background(), os.Args[1:])
	if cerr := res.Cleanup(); cerr != nil {
		logger.Warn("Cleanup failed", log.FieldError, cerr)
	}
	if err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
