// Package main provides the stata-install CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/awnumar/memguard"

	adapters "github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain-adapters/gateways"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
)

// Exit codes
const (
	exitOK            = 0
	exitFailure       = 1
	exitConfiguration = 2
	exitExternalTool  = 3
	exitLicense       = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd(os.Stdout, adapters.OSEnvironment{}).ExecuteContext(ctx)
	stop()
	// secrets are wiped on every exit path; os.Exit skips deferred calls
	memguard.Purge()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps an error to the process exit status
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var cfgErr *entities.ConfigurationError
	var toolErr *entities.ExternalToolFailure
	var licenseErr *entities.DeferredLicenseError
	switch {
	case errors.As(err, &cfgErr):
		return exitConfiguration
	case errors.As(err, &toolErr):
		return exitExternalTool
	case errors.As(err, &licenseErr):
		return exitLicense
	default:
		return exitFailure
	}
}
