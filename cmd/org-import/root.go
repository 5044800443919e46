package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/org-import/pkg/composables"
	"github.com/iota-uz/org-import/pkg/configuration"
	"github.com/iota-uz/org-import/pkg/logging"
	"github.com/iota-uz/org-import/pkg/metrics"
)

// cliEnv is shared by all commands of one invocation.
type cliEnv struct {
	stdout io.Writer

	envFiles  []string
	logLevel  string
	logFormat string

	conf     *configuration.Configuration
	logger   *logrus.Logger
	gatherer prometheus.Gatherer
	cleanup  []func()
}

func newCLIEnv(stdout io.Writer) *cliEnv {
	return &cliEnv{stdout: stdout, gatherer: prometheus.DefaultGatherer}
}

func (e *cliEnv) setup(ctx context.Context) (context.Context, error) {
	conf, err := configuration.Load(e.envFiles)
	if err != nil {
		return ctx, withCode(exitUsage, fmt.Errorf("load configuration: %w", err))
	}
	e.conf = conf
	e.cleanup = append(e.cleanup, conf.Unload)

	if e.logLevel != "" {
		conf.LogLevel = strings.ToLower(strings.TrimSpace(e.logLevel))
	}
	switch e.logFormat {
	case "", "text":
		e.logger = conf.Logger()
		e.logger.SetLevel(conf.LogrusLogLevel())
	case "json":
		e.logger = logging.ConsoleLogger(conf.LogrusLogLevel(), true)
	default:
		return ctx, withCode(exitUsage, fmt.Errorf("invalid --log-format: %s (expected text|json)", e.logFormat))
	}

	if conf.OpenTelemetry.Enabled {
		shutdown, err := logging.SetupTracing(ctx, conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.TempoURL)
		if err != nil {
			e.logger.WithError(err).Warn("tracing disabled")
		} else {
			e.cleanup = append(e.cleanup, shutdown)
		}
	}

	return composables.WithLogger(ctx, e.logger.WithField("component", "org-import")), nil
}

// writeMetrics dumps the process metrics when PROMETHEUS_TEXTFILE_PATH is set.
func (e *cliEnv) writeMetrics() {
	if e.conf == nil || e.conf.Prometheus.TextfilePath == "" {
		return
	}
	if err := metrics.WriteTextfile(e.conf.Prometheus.TextfilePath, e.gatherer); err != nil {
		e.logger.WithError(err).Warn("write metrics textfile")
	}
}

func (e *cliEnv) close() {
	for i := len(e.cleanup) - 1; i >= 0; i-- {
		e.cleanup[i]()
	}
	e.cleanup = nil
}

func newRootCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "org-import",
		Short:         "Import departments, positions and employees from CSV or XLSX files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := env.setup(cmd.Context())
			if err != nil {
				return err
			}
			cmd.SetContext(ctx)
			return nil
		},
	}
	cmd.SetOut(env.stdout)

	cmd.PersistentFlags().StringSliceVar(&env.envFiles, "env-file", []string{".env", ".env.local"}, "Env files to load when present")
	cmd.PersistentFlags().StringVar(&env.logLevel, "log-level", "", "Log level: silent|error|warn|info|debug (default: LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&env.logFormat, "log-format", "text", "Log format: text|json")

	cmd.AddCommand(newImportCmd(env))
	cmd.AddCommand(newValidateCmd(env))
	cmd.AddCommand(newMigrateCmd(env))
	cmd.AddCommand(newTemplateCmd(env))
	return cmd
}

func Execute() {
	env := newCLIEnv(os.Stdout)
	err := newRootCmd(env).ExecuteContext(context.Background())
	env.close()
	if err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
