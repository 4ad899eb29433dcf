package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nbenliogludev/survey-agent/internal/config"
	"github.com/nbenliogludev/survey-agent/internal/observability"
)

// errRunFailed marks a run that ended without exhausting its page bound. The
// report has already been printed.
var errRunFailed = errors.New("run ended before the page limit")

type cli struct {
	v       *viper.Viper
	cfgFile string
	stdin   io.Reader
	stdout  io.Writer
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	c := &cli{v: viper.New(), stdin: stdin, stdout: stdout}

	rootCmd := &cobra.Command{
		Use:           "survey-agent",
		Short:         "Autonomous survey agent driving a logged-in browser session.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.initializeConfig(); err != nil {
				return err
			}
			cfg, err := config.Unmarshal(c.v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "survey-agent"})
				return err
			}
			observability.InitializeLogger(cfg.Logger)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSurvey(cmd.Context())
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")

	rootCmd.AddCommand(newRunCmd(c), newInspectCmd(c))
	return rootCmd
}

// initializeConfig reads the config file and environment into c.v.
func (c *cli) initializeConfig() error {
	config.SetDefaults(c.v)
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
	} else {
		c.v.AddConfigPath(".")
		c.v.SetConfigName("config")
		c.v.SetConfigType("yaml")
	}

	config.BindEnvironment(c.v)

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return &config.ConfigurationError{Field: "config", Err: fmt.Errorf("error reading config file: %w", err)}
		}
	}
	return nil
}

// execute runs the CLI and maps the outcome to a process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdin, stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	defer observability.Sync()
	if err == nil {
		return 0
	}
	if !errors.Is(err, errRunFailed) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		fmt.Fprintln(stderr, "Error:", err)
	}
	return 1
}
