package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"impact-registration/internal/backend"
	"impact-registration/internal/config"
	"impact-registration/internal/logger"
	"impact-registration/internal/pass"
	"impact-registration/internal/service"
	"impact-registration/internal/session"
	"impact-registration/internal/validation"
)

const usage = `usage: festctl [-config file] <command> [flags]

commands:
  events        list festival events
  signup        create a participant account
  signin        sign in as a participant
  admin-signin  sign in as an admin
  check         check whether the stored credential is still valid
  logout        forget the stored credential
  register      submit a solo or team registration
  profile       show your registrations
  pass          write the entry pass of a verified registration
  dashboard     list every registration (admin)
  verify        toggle the verified flag of a registration (admin)
  watch         announce verification changes on a schedule
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "festctl:", err)
		}
		os.Exit(1)
	}
}

// app holds everything a command needs
type app struct {
	cfg      *config.Config
	client   *backend.Client
	store    session.Store
	notifier service.Notifier
	schema   *validation.Schema
	passes   *pass.Generator
	out      io.Writer
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"events":       cmdEvents,
	"signup":       cmdSignUp,
	"signin":       cmdSignIn,
	"admin-signin": cmdAdminSignIn,
	"check":        cmdCheck,
	"logout":       cmdLogout,
	"register":     cmdRegister,
	"profile":      cmdProfile,
	"pass":         cmdPass,
	"dashboard":    cmdDashboard,
	"verify":       cmdVerify,
	"watch":        cmdWatch,
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("festctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fs.Usage()
		return fmt.Errorf("unknown command %q", name)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.InitializeWriter(stderr, cfg.Log.Level, cfg.Log.Format)
	logger.Debug("Configuration loaded", "backend", cfg.Backend.BaseURL, "session_driver", cfg.Session.Driver)

	store, closeStore, err := openStore(ctx, cfg.Session)
	if err != nil {
		return err
	}
	defer closeStore()

	a := &app{
		cfg:      cfg,
		client:   backend.NewFromConfig(cfg),
		store:    store,
		notifier: service.NewWriterNotifier(stdout),
		schema:   validation.New(),
		passes:   pass.NewGenerator(cfg.Pass),
		out:      stdout,
	}
	return cmd(ctx, a, fs.Args()[1:])
}

func openStore(ctx context.Context, cfg config.SessionConfig) (session.Store, func(), error) {
	switch cfg.Driver {
	case "memory":
		return session.NewMemoryStore(), func() {}, nil
	default:
		db, store, err := session.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session store: %w", err)
		}
		return store, func() { db.Close() }, nil
	}
}
