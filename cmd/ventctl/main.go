// Command ventctl is a terminal client for the confession board.
//
// Usage:
//
//	ventctl feed [-pages N]
//	ventctl post [-name NAME] TEXT
//	ventctl replies [-more N] POST_ID
//	ventctl reply [-name NAME] POST_ID TEXT
//	ventctl undo
//	ventctl state
//	ventctl whoami
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rylogix/VentBoard/internal/bootstrap"
	"github.com/Rylogix/VentBoard/internal/config"
	"github.com/Rylogix/VentBoard/internal/models"
	"github.com/Rylogix/VentBoard/internal/observability"
)

// sessionNamespace keeps the terminal session apart from other clients sharing a cache.
const sessionNamespace = "ventctl"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "ventctl:", models.UserMessage(err, err.Error()))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err := observability.SetLevel(cfg.LogLevel); err != nil {
		return err
	}

	client, err := bootstrap.InitClient(ctx, cfg, bootstrap.Options{SessionNamespace: sessionNamespace})
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	c := &cli{client: client, out: out, now: time.Now}
	return c.execute(ctx, args)
}
