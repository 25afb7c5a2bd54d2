package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/chatline/internal/daemon"
	"github.com/matheus3301/chatline/internal/lock"
	"github.com/matheus3301/chatline/internal/paths"
	"go.uber.org/fx"
)

func main() {
	homeFlag := flag.String("home", paths.DefaultRoot(), "data directory (config, database, socket, logs)")
	flag.Parse()

	app := fx.New(
		daemon.Module(daemon.Params{Root: *homeFlag}),
		fx.NopLogger,
	)
	if err := app.Err(); err != nil {
		var held *lock.HeldError
		if errors.As(err, &held) {
			fmt.Fprintf(os.Stderr, "error: chatlined already running for %s: %v\n", *homeFlag, held)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app.Run()
}
