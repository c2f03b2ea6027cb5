// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cli provides the command line of an application built with
// package app:
//
//	blog server 8080     # serve on :8080
//	blog routes posts    # list the routes mentioning "posts"
//	blog routes --recognize "DELETE /posts/7"
//	blog version
//	blog config dump --format json
//
// Settings are read from --config and from environment variables with
// the --env-prefix prefix, in that order of precedence, over the defaults.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"rivaas.dev/mvc/app"
	"rivaas.dev/mvc/config"
	"rivaas.dev/mvc/routing"
)

// BuildFunc builds the application from the loaded settings. Options
// passed to it must be forwarded to [app.New].
type BuildFunc func(s *config.Settings, opts ...app.Option) (*app.App, error)

// Option configures the root command.
type Option func(*root)

// WithConfigFile sets the default of the --config flag.
func WithConfigFile(path string) Option {
	return func(r *root) {
		r.configFile = path
	}
}

// WithEnvPrefix sets the default of the --env-prefix flag.
func WithEnvPrefix(prefix string) Option {
	return func(r *root) {
		r.envPrefix = prefix
	}
}

// WithShort sets the one-line description shown in help.
func WithShort(s string) Option {
	return func(r *root) {
		r.short = s
	}
}

type root struct {
	name       string
	short      string
	build      BuildFunc
	configFile string
	envPrefix  string

	settings *config.Settings
	cfg      *config.Config
}

// New returns the root command named name.
func New(name string, build BuildFunc, opts ...Option) *cobra.Command {
	r := &root{
		name:       name,
		short:      name + " web application",
		build:      build,
		configFile: "config.yaml",
		envPrefix:  "APP",
	}
	for _, opt := range opts {
		opt(r)
	}

	cmd := &cobra.Command{
		Use:           name,
		Short:         r.short,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return r.load(cmd.Context())
		},
	}
	cmd.PersistentFlags().StringVarP(&r.configFile, "config", "c", r.configFile, "configuration file, ignored when missing")
	cmd.PersistentFlags().StringVar(&r.envPrefix, "env-prefix", r.envPrefix, "prefix of configuration environment variables")
	cmd.PersistentFlags().StringP("environment", "e", "", "override the environment (development, test, staging, production)")

	cmd.AddCommand(
		r.serverCmd(),
		r.routesCmd(),
		r.versionCmd(),
		r.configCmd(),
	)

	return cmd
}

// Execute runs the root command and exits with status 1 on error.
func Execute(cmd *cobra.Command) {
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd.Name(), err)
		os.Exit(1)
	}
}

func (r *root) load(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, c, err := config.LoadSettings(ctx, r.configFile, r.envPrefix)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	r.settings, r.cfg = s, c

	return nil
}

// applyEnvironment copies the --environment flag over the settings.
func (r *root) applyEnvironment(cmd *cobra.Command) error {
	env, err := cmd.Flags().GetString("environment")
	if err != nil {
		return err
	}
	if env != "" {
		r.settings.Environment = env
	}

	return r.settings.Validate()
}

func (r *root) serverCmd() *cobra.Command {
	var (
		h2c       bool
		hotReload bool
	)
	cmd := &cobra.Command{
		Use:     "server [port]",
		Aliases: []string{"s"},
		Short:   "Start the HTTP server",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				port, err := strconv.Atoi(args[0])
				if err != nil || port < 0 || port > 65535 {
					return fmt.Errorf("invalid port %q", args[0])
				}
				r.settings.Server.Address = ":" + args[0]
			}
			if cmd.Flags().Changed("h2c") {
				r.settings.Server.H2C = h2c
			}
			if cmd.Flags().Changed("hot-reload") {
				r.settings.HotReload = hotReload
			}
			if err := r.applyEnvironment(cmd); err != nil {
				return err
			}

			a, err := r.build(r.settings, app.WithOutput(cmd.OutOrStdout()))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.Start(ctx)
		},
	}
	cmd.Flags().BoolVar(&h2c, "h2c", false, "serve HTTP/2 over cleartext")
	cmd.Flags().BoolVar(&hotReload, "hot-reload", false, "reload routes and views on change")

	return cmd
}

func (r *root) routesCmd() *cobra.Command {
	var recognize string

	cmd := &cobra.Command{
		Use:   "routes [filter]",
		Short: "List the routes, optionally those matching filter",
		Long: "List the routes with their verb, path template, target and URL helper.\n" +
			"A filter keeps the routes whose path, target or helper contains it.\n" +
			"With --recognize, print the route that would serve a request instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.applyEnvironment(cmd); err != nil {
				return err
			}
			a, err := r.build(r.settings, app.WithBanner(false), app.WithOutput(cmd.OutOrStdout()))
			if err != nil {
				return err
			}

			if recognize != "" {
				return printRecognized(cmd.OutOrStdout(), a.Router(), recognize)
			}

			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}
			a.PrintRoutes(cmd.OutOrStdout(), filter)

			return nil
		},
	}
	cmd.Flags().StringVar(&recognize, "recognize", "", `request to match, as "METHOD /path" or "/path" for GET`)

	return cmd
}

// printRecognized writes the entry serving request and its bindings, or
// an error when no route matches.
func printRecognized(w io.Writer, router *routing.Router, request string) error {
	method, path := http.MethodGet, strings.TrimSpace(request)
	if verb, rest, ok := strings.Cut(path, " "); ok {
		method, path = strings.ToUpper(verb), strings.TrimSpace(rest)
	}

	e, params, ok := router.Recognize(method, path)
	if !ok {
		return fmt.Errorf("no route matches %s %s", method, path)
	}

	fmt.Fprintf(w, "%s %s => %s (%s %s)\n", method, path, e.Target(), e.Method, e.Template)
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s=%s\n", name, params[name])
	}

	return nil
}

func (r *root) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s %s/%s)\n",
				r.settings.Service.Name, r.settings.Service.Version,
				runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

func (r *root) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	var format string
	dump := &cobra.Command{
		Use:   "dump",
		Short: "Print the merged configuration sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := r.cfg.Dump(cmd.OutOrStdout(), config.Format(format))
			if errors.Is(err, config.ErrUnknownFormat) {
				return fmt.Errorf("unsupported format %q, use yaml, json or toml", format)
			}

			return err
		},
	}
	dump.Flags().StringVarP(&format, "format", "f", string(config.FormatYAML), "output format: yaml, json or toml")

	check := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := r.applyEnvironment(cmd); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")

			return nil
		},
	}

	cmd.AddCommand(dump, check)

	return cmd
}
