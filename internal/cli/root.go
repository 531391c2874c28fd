package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vk/caniput/internal/app"
	"github.com/vk/caniput/internal/config"
)

// options holds the values bound to persistent flags.
type options struct {
	configPath   string
	username     string
	replica      string
	canister     string
	retryPause   time.Duration
	timeout      time.Duration
	fetchRootKey bool
	wholePath    bool

	traceLog  bool
	debugLog  bool
	infoLog   bool
	logLevel  string
	logFormat string
}

// NewRootCommand builds the caniput command tree. Command output goes to
// outW; logs and errors go to errW.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	o := &options{}
	defaults := app.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "caniput",
		Short: "Candid data transporter",
		Long: `caniput puts values into a canister.

A value is a Candid (or HCL) literal, a piece of text, or a local file or
directory. Files are classified by content: literal values, argument lists,
hex-encoded messages, raw binary or plain text.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetOut(outW)
	rootCmd.SetErr(errW)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("%v", err)
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "Configuration file (.hcl or .toml); defaults to the user config dir")
	pf.StringVarP(&o.username, "username", "u", defaults.Username, "Username")
	pf.StringVarP(&o.replica, "replica", "r", defaults.Replica, "Replica URL (http, https, ws or wss)")
	pf.StringVarP(&o.canister, "canister", "c", defaults.Canister, "Canister ID")
	pf.DurationVar(&o.retryPause, "retry-pause", defaults.RetryPause, "Pause between call attempts")
	pf.DurationVar(&o.timeout, "timeout", defaults.Timeout, "Overall call timeout")
	pf.BoolVar(&o.fetchRootKey, "fetch-root-key", defaults.FetchRootKey, "Fetch the gateway's root key and verify every reply against it")
	pf.BoolVar(&o.wholePath, "whole-path", defaults.WholePath, "Send PUT_PATH as a single segment instead of splitting it on '/'")
	pf.BoolVarP(&o.traceLog, "trace-log", "t", false, "Trace-level logging (most verbose)")
	pf.BoolVarP(&o.debugLog, "debug-log", "d", false, "Debug-level logging (medium verbose)")
	pf.BoolVarP(&o.infoLog, "log", "L", false, "Coarse logging information (not verbose)")
	pf.StringVar(&o.logLevel, "log-level", defaults.LogLevel, "Log level: trace, debug, info, warn or error")
	pf.StringVar(&o.logFormat, "log-format", "", "Log format: text or json (default text on a terminal, json otherwise)")

	rootCmd.AddCommand(
		newValueCommand(o),
		newTextCommand(o),
		newFileCommand(o),
		newInspectCommand(o),
	)
	return rootCmd
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, outW, errW io.Writer, args []string) error {
	cmd := NewRootCommand(outW, errW)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// resolveConfig layers defaults, the configuration file, CANIPUT_*
// environment variables and the flags the user actually set, in that order.
func (o *options) resolveConfig(cmd *cobra.Command) (*app.Config, error) {
	cfg := app.DefaultConfig()

	file, _, err := config.Load(o.configPath)
	if err != nil {
		return nil, usageError("%v", err)
	}
	config.ApplyEnv(file, os.LookupEnv)
	if err := cfg.ApplyFile(file); err != nil {
		return nil, usageError("%v", err)
	}

	flags := cmd.Flags()
	if flags.Changed("username") {
		cfg.Username = o.username
	}
	if flags.Changed("replica") {
		cfg.Replica = o.replica
	}
	if flags.Changed("canister") {
		cfg.Canister = o.canister
	}
	if flags.Changed("retry-pause") {
		cfg.RetryPause = o.retryPause
	}
	if flags.Changed("timeout") {
		cfg.Timeout = o.timeout
	}
	if flags.Changed("fetch-root-key") {
		cfg.FetchRootKey = o.fetchRootKey
	}
	if flags.Changed("whole-path") {
		cfg.WholePath = o.wholePath
	}
	switch {
	case flags.Changed("log-level"):
		cfg.LogLevel = o.logLevel
	case o.traceLog:
		cfg.LogLevel = "trace"
	case o.debugLog:
		cfg.LogLevel = "debug"
	case o.infoLog:
		cfg.LogLevel = "info"
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}

	validated, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError("%v", err)
	}
	return validated, nil
}

// runApp builds an App for cmd and hands it to fn.
func (o *options) runApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := o.resolveConfig(cmd)
	if err != nil {
		return err
	}
	a := app.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg)
	defer func() {
		if err := a.Close(); err != nil {
			a.Logger().Warn("Closing transport failed.", "error", err)
		}
	}()
	a.Logger().Debug("Evaluating command.", "command", cmd.Name())
	return fn(cmd.Context(), a)
}

// exactArgs is cobra.ExactArgs with a usage exit code.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageError("%s: accepts %d arg(s), received %d\n\n%s", cmd.CommandPath(), n, len(args), cmd.UseLine())
		}
		return nil
	}
}

func reportPut(cmd *cobra.Command, stored bool) error {
	if !stored {
		return &ExitError{Code: ExitLogicalFailure, Message: "Failure to put."}
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), "Put value successfully.")
	return err
}
