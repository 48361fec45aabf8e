package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/specialistvlad/svcgrid/internal/app"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every flag name to form its environment variable,
// e.g. SVCGRID_LOG_LEVEL for --log-level.
const EnvPrefix = "SVCGRID"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := pflag.NewFlagSet("svcgrid", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.SortFlags = false

	flagSet.Usage = func() {
		fmt.Fprint(output, `
svcgrid - Loads service descriptors and brings services up in dependency order.

Usage:
  svcgrid [options] [PATH...]

Arguments:
  PATH
    A .hcl, .yaml or .yml descriptor file, or a directory searched recursively.

Options:
`)
		flagSet.PrintDefaults()
		fmt.Fprintf(output, "\nEvery option can also be set as %s_<NAME>, e.g. %s_LOG_LEVEL=debug.\n", EnvPrefix, EnvPrefix)
	}

	flagSet.StringSliceP("services", "s", nil, "Descriptor file or directory. Repeatable.")
	flagSet.String("env-file", "", "Dotenv file loaded into the environment before anything else.")
	flagSet.Int("healthcheck-port", 0, "Port for the HTTP status server. 0 is disabled.")
	flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flagSet.Int("workers", 10, "Maximum number of service branches enabled concurrently.")
	flagSet.Bool("auto-resume", true, "Enable services whose persisted state is ENABLED.")
	flagSet.Duration("poll-interval", 100*time.Millisecond, "Fallback re-check interval while waiting for a service to finish enabling.")
	flagSet.Duration("wait-timeout", 0, "Give up waiting for a single service after this long. 0 waits forever.")
	flagSet.Duration("enable-timeout", 30*time.Second, "Upper bound for a single service's enable call.")
	flagSet.Bool("serve", false, "Keep running after activation until interrupted, then disable all services.")
	flagSet.String("bulletin-url", "", "socket.io server that receives bulletins.")
	flagSet.String("bulletin-namespace", "/", "socket.io namespace for bulletins.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}
	slog.Debug("Arguments parsed successfully.")

	if envFile, _ := flagSet.GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, false, usageError("failed to load env file %s: %v", envFile, err)
		}
		slog.Debug("Loaded env file.", "path", envFile)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flagSet); err != nil {
		return nil, false, usageError("failed to bind flags: %v", err)
	}

	paths := splitPaths(append(v.GetStringSlice("services"), flagSet.Args()...))
	slog.Debug("Service paths determined.", "paths", paths)
	if len(paths) == 0 {
		slog.Debug("No service paths provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(v.GetString("log-format"))
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(v.GetString("log-level"))
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ServicePaths:      paths,
		LogFormat:         logFormat,
		LogLevel:          logLevel,
		HealthcheckPort:   v.GetInt("healthcheck-port"),
		Workers:           v.GetInt("workers"),
		AutoResume:        v.GetBool("auto-resume"),
		PollInterval:      v.GetDuration("poll-interval"),
		WaitTimeout:       v.GetDuration("wait-timeout"),
		EnableTimeout:     v.GetDuration("enable-timeout"),
		Serve:             v.GetBool("serve"),
		BulletinURL:       v.GetString("bulletin-url"),
		BulletinNamespace: v.GetString("bulletin-namespace"),
	})
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// splitPaths accepts comma separated entries, which is how lists arrive from
// environment variables.
func splitPaths(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, p := range strings.Split(entry, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
