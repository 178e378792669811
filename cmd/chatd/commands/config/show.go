package config

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Andreysim/Chat/internal/cli/output"
	"github.com/Andreysim/Chat/pkg/config"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the configuration chatd would run with, after merging the
config file, CHAT_* environment variables, and built-in defaults.

Examples:
  # Show the effective config as a table
  chatd config show

  # Show as YAML (suitable for seeding a config file)
  chatd config show --output yaml

  # Show as JSON
  chatd config show --output json

  # Show a specific config file
  chatd config show --config /etc/chat/config.yaml`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "table", "Output format (table|yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	// Get config path from the root's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	// An explicit path must exist; without one, show the same defaults
	// chain the server runs with.
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.MustLoad(configPath)
	} else {
		cfg, err = config.Load("")
	}
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, cfg)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, cfg)
	default:
		return printConfigTable(os.Stdout, cfg)
	}
}

// printConfigTable renders the effective settings as key/value rows,
// keyed by their flattened config paths.
func printConfigTable(w io.Writer, cfg *config.Config) error {
	listen := cfg.Server.Listen
	if listen == "" {
		listen = "(all interfaces)"
	}

	return output.PrintKeyValue(w,
		"server.listen", listen,
		"server.port", strconv.Itoa(cfg.Server.Port),
		"server.shutdown_timeout", cfg.Server.ShutdownTimeout.String(),
		"client.server", cfg.Client.Server,
		"client.port", strconv.Itoa(cfg.Client.Port),
		"client.name", cfg.Client.Name,
		"client.dial_timeout", cfg.Client.DialTimeout.String(),
		"logging.level", cfg.Logging.Level,
		"logging.format", cfg.Logging.Format,
		"logging.output", cfg.Logging.Output,
		"logging.add_source", strconv.FormatBool(cfg.Logging.AddSource),
		"metrics.enabled", strconv.FormatBool(cfg.Metrics.Enabled),
		"metrics.port", strconv.Itoa(cfg.Metrics.Port),
		"telemetry.enabled", strconv.FormatBool(cfg.Telemetry.Enabled),
		"telemetry.endpoint", cfg.Telemetry.Endpoint,
		"telemetry.insecure", strconv.FormatBool(cfg.Telemetry.Insecure),
		"telemetry.sample_rate", strconv.FormatFloat(cfg.Telemetry.SampleRate, 'g', -1, 64),
		"telemetry.profiling.enabled", strconv.FormatBool(cfg.Telemetry.Profiling.Enabled),
		"telemetry.profiling.endpoint", cfg.Telemetry.Profiling.Endpoint,
		"telemetry.profiling.profile_types", strings.Join(cfg.Telemetry.Profiling.ProfileTypes, ","),
	)
}
