// Package cmd implements the sessionctl commands.
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/cmd/sessionctl/internal/config"
	"github.com/MrEthical07/goSession/store"
	"github.com/pterm/pterm"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

type options struct {
	configPath  string
	serverURL   string
	sessionFile string
	redisAddr   string
	verbose     bool

	// in is shared by every prompt of one invocation.
	in *bufio.Reader
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "sessionctl",
		Short: "Manage a goSession login from the terminal",
		Long: `sessionctl signs in against an auth backend, keeps the token pair in a
local session file (or Redis) and refreshes it transparently.

Configuration is read from ~/.gosession/sessionctl.yaml unless --config is
given. Flags override values from the file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.in = bufio.NewReader(cmd.InOrStdin())
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default ~/.gosession/sessionctl.yaml)")
	root.PersistentFlags().StringVar(&opts.serverURL, "server", "", "Auth backend base URL")
	root.PersistentFlags().StringVar(&opts.sessionFile, "session-file", "", "Session file (default ~/.gosession/session.json)")
	root.PersistentFlags().StringVar(&opts.redisAddr, "redis-addr", "", "Persist the session in Redis at this address instead of a file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log lifecycle events to stderr")

	root.AddCommand(newLoginCmd(opts))
	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newTokenCmd(opts))
	root.AddCommand(newLogoutCmd(opts))
	root.AddCommand(newCanCmd(opts))
	root.AddCommand(newDemoCmd(opts))
	return root
}

func (o *options) loadFile() (config.File, error) {
	path, optional := o.configPath, false
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return config.File{}, err
		}
		path, optional = p, true
	}
	f, err := config.Load(path, optional)
	if err != nil {
		return f, err
	}

	if o.serverURL != "" {
		f.BaseURL = o.serverURL
	}
	if o.sessionFile != "" {
		f.SessionFile = o.sessionFile
	}
	if o.redisAddr != "" {
		f.RedisAddr = o.redisAddr
	}
	if o.verbose {
		f.LogLevel = "debug"
	}
	return f, nil
}

// open builds a session from the config file and flags. The returned func
// releases the session and any Redis client.
func (o *options) open() (*goSession.Session, func(), error) {
	f, err := o.loadFile()
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(f.BaseURL) == "" {
		return nil, nil, errors.New("no server configured: set base_url or pass --server")
	}
	cfg, err := f.Session()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	b := goSession.New().WithConfig(cfg).WithLogger(newLogger(f.LogLevel))
	cleanup := func() {}

	if f.RedisAddr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{f.RedisAddr}})
		b.WithRedis(client)
		cleanup = func() { _ = client.Close() }
	} else {
		path := f.SessionFile
		if path == "" {
			if path, err = store.DefaultFilePath(); err != nil {
				return nil, nil, err
			}
		}
		fs, err := store.NewFileStore(path)
		if err != nil {
			return nil, nil, err
		}
		b.WithStore(fs)
	}

	s, err := b.Build()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return s, func() {
		s.Close()
		cleanup()
	}, nil
}

// restore opens a session and loads the persisted login.
func (o *options) restore(ctx context.Context) (*goSession.Session, func(), error) {
	s, done, err := o.open()
	if err != nil {
		return nil, nil, err
	}
	if err := s.Restore(ctx); err != nil {
		done()
		if errors.Is(err, goSession.ErrNoPersistedSession) {
			return nil, nil, errors.New("not logged in")
		}
		return nil, nil, describe(err)
	}
	return s, done, nil
}

func newLogger(level string) *slog.Logger {
	lvl := pterm.LogLevelWarn
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = pterm.LogLevelDebug
	case "info":
		lvl = pterm.LogLevelInfo
	case "error":
		lvl = pterm.LogLevelError
	}
	return slog.New(pterm.NewSlogHandler(pterm.DefaultLogger.WithLevel(lvl).WithWriter(os.Stderr)))
}

// describe turns a session error into a message for the terminal.
func describe(err error) error {
	if msg := goSession.ServerMessage(err); msg != "" {
		return fmt.Errorf("%s: %s", goSession.ErrorCode(err), msg)
	}
	switch goSession.ErrorCode(err) {
	case "TryAgain":
		return fmt.Errorf("backend unavailable, try again: %w", err)
	case "RefreshTokenError":
		return errors.New("session expired, please log in again")
	}
	return err
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
