package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/eventhub/internal/adminctl"
	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/config"
)

func main() {
	args := os.Args[1:]

	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.NewJSONLogger(os.Stderr, "warn")
	app := adminctl.NewApp(cfg, os.Stdin, os.Stdout, logger)

	if err := app.Run(context.Background(), args); err != nil {
		// A bare ErrUsage means the usage text was already printed.
		if err != adminctl.ErrUsage {
			fmt.Fprintln(os.Stderr, err)
		}
		if errors.Is(err, adminctl.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
