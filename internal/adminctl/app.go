// Package adminctl implements the eventhub-admin maintenance tool. It talks
// to the store directly, so it runs next to the server with the same
// configuration.
package adminctl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/netx"
	"github.com/dmitrijs2005/eventhub/internal/server"
	"github.com/dmitrijs2005/eventhub/internal/server/config"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
)

// ErrUsage is returned for an unknown command or wrong arguments.
var ErrUsage = errors.New("usage")

const usage = `Usage: eventhub-admin [flags] <command> [args]

Commands:
  create-admin <username> [full name]   create an administrator (password is prompted)
  seed                                  load the configured admin and demo data
  users                                 list accounts
  set-active <username> <true|false>    enable or disable an account
  upload-image <event-id> <file>        upload an event image to object storage

Flags are the server's: -s driver, -d dsn, -c config.json, -env file, ...
`

type App struct {
	config    *config.Config
	in        *bufio.Reader
	out       io.Writer
	logger    logging.Logger
	openStore func(ctx context.Context, cfg *config.Config) (repomanager.Store, error)
	upload    func(ctx context.Context, url, contentType string, body []byte) error
}

func NewApp(cfg *config.Config, in io.Reader, out io.Writer, logger logging.Logger) *App {
	if logger == nil {
		logger = logging.Nop()
	}
	return &App{
		config:    cfg,
		in:        bufio.NewReader(in),
		out:       out,
		logger:    logger.With("module", "adminctl"),
		openStore: server.OpenStore,
		upload:    netx.UploadToPresignedURL,
	}
}

// Run executes one command line (without the program name). Server flags
// anywhere in args are skipped.
func (a *App) Run(ctx context.Context, args []string) error {
	pos := positional(args)
	if len(pos) == 0 {
		fmt.Fprint(a.out, usage)
		return ErrUsage
	}

	cmd, rest := pos[0], pos[1:]
	var run func(ctx context.Context, store repomanager.Store, args []string) error
	switch cmd {
	case "create-admin":
		run = a.createAdmin
	case "seed":
		run = a.seed
	case "users":
		run = a.listUsers
	case "set-active":
		run = a.setActive
	case "upload-image":
		run = a.uploadImage
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}

	store, err := a.openStore(ctx, a.config)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	return run(ctx, store, rest)
}

// positional drops "-flag value" and "-flag=value" pairs. Every server flag
// takes a value.
func positional(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return append(out, args[i+1:]...)
		}
		if arg == "-h" || arg == "--help" {
			out = append(out, arg)
			continue
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			out = append(out, arg)
			continue
		}
		if !strings.Contains(arg, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
		}
	}
	return out
}
