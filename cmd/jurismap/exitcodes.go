package main

import (
	"errors"

	"github.com/alucardeht/jurismap/internal/daemon"
	"github.com/alucardeht/jurismap/internal/descriptor"
	"github.com/alucardeht/jurismap/internal/importer"
	"github.com/alucardeht/jurismap/internal/rpc"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitConfig    = 3
	exitStore     = 4
	exitManifest  = 5
	exitPartial   = 6
	exitLockHeld  = 7
	exitNoDaemon  = 8
	exitNotLoaded = 9
	exitNotFound  = 10
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	switch {
	case errors.Is(err, descriptor.ErrManifest):
		return exitManifest
	case errors.Is(err, daemon.ErrLockHeld):
		return exitLockHeld
	case errors.Is(err, importer.ErrNotLoaded):
		return exitNotLoaded
	case errors.Is(err, rpc.ErrNotFound):
		return exitNotFound
	}
	return exitFailure
}
