package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/aretw0/configurator/internal/config"
	"github.com/aretw0/configurator/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	v       = config.New()
	cfg     config.Config
	logger  = zap.NewNop()
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:           "configurator",
	Short:         "Guided product variant configurator",
	Long:          `Configurator walks users through picking a base product and one value per attribute, then reuses or creates the exact variant.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid configuration").
				WithCause(err)
		}
		cfg = loaded
		logger = logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON, File: cfg.Log.File})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", errorMessage(err))
		os.Exit(exitCodeForError(err))
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file path (default ./configurator.yaml)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("gateway", "", "Gateway base URL; empty runs the built-in demo catalog")
	flags.String("created-by", "", "Only search templates created by this user")
	flags.String("redis", "", "Redis address for sessions and locks; empty keeps them in memory")

	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("gateway.url", flags.Lookup("gateway"))
	_ = v.BindPFlag("created_by", flags.Lookup("created-by"))
	_ = v.BindPFlag("redis.addr", flags.Lookup("redis"))
}

func exitCodeForError(err error) int {
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeInvalidArgument:
		return 2
	case errbuilder.CodeNotFound:
		return 3
	case errbuilder.CodeFailedPrecondition:
		return 4
	case errbuilder.CodeInternal:
		return 5
	default:
		return 1
	}
}

func errorMessage(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		if cause := errors.Unwrap(builder); cause != nil {
			return builder.Msg + ": " + cause.Error()
		}
		return builder.Msg
	}
	return err.Error()
}
