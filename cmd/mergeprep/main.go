// Command mergeprep prepares encounter merges for duplicate individuals.
//
//	mergeprep segments   keep/merge review file -> pair CSV
//	mergeprep query      pair CSV -> reviewable SQL script (ends in ROLLBACK)
//	mergeprep counts     pair CSV -> live verification counts
//
// main stays tiny: it loads .env, installs a signal-aware context and hands
// over to the cobra root built from real Deps.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(defaultDeps(), os.Getenv).ExecuteContext(ctx)
	stop()
	if err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}
