// Package commands implements the CLI for the interactive chat client.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/Andreysim/Chat/internal/cli/prompt"
	"github.com/Andreysim/Chat/internal/console"
	"github.com/Andreysim/Chat/internal/logger"
	"github.com/Andreysim/Chat/pkg/client"
	"github.com/Andreysim/Chat/pkg/config"
)

var (
	cfgFile    string
	chatServer string
	chatPort   int
	chatName   string
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat client",
	Long: `Connect to a chat server and talk.

Without flags or a config file the client asks for the server address,
port, and your display name. Type /help inside the session for the list
of commands, /exit to leave.

Examples:
  # Connect interactively
  chat

  # Connect without prompts
  chat --server 192.168.1.10 --port 6000 --name Alice

  # Use a config file
  chat --config /etc/chat/config.yaml`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.chat/config.yaml)")
	rootCmd.Flags().StringVarP(&chatServer, "server", "s", "", "Server address (overrides config)")
	rootCmd.Flags().IntVarP(&chatPort, "port", "p", 0, "Server TCP port (overrides config)")
	rootCmd.Flags().StringVarP(&chatName, "name", "n", "", "Display name (overrides config)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("server") {
		cfg.Client.Server = chatServer
	}
	if cmd.Flags().Changed("port") {
		cfg.Client.Port = chatPort
	}
	if cmd.Flags().Changed("name") {
		cfg.Client.Name = chatName
	}

	initClientLogger(cfg)

	fmt.Println("Welcome to the chat")

	// A config file or flags silence the prompts; a bare "chat" asks,
	// with the defaults prefilled.
	configured := cfgFile != "" || config.DefaultConfigExists()

	if !configured && !cmd.Flags().Changed("server") {
		server, err := prompt.InputWithValidation("Server address", cfg.Client.Server, validateServerAddress)
		if err != nil {
			return err
		}
		cfg.Client.Server = server
	}
	if !configured && !cmd.Flags().Changed("port") {
		port, err := prompt.InputPort("Server port", cfg.Client.Port)
		if err != nil {
			return err
		}
		cfg.Client.Port = port
	}
	if cfg.Client.Name == "" {
		name, err := prompt.InputWithValidation("Enter your name", "", validateName)
		if err != nil {
			return err
		}
		cfg.Client.Name = name
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	term := console.New()
	session := client.New(cfg.Client, term)

	done := make(chan error, 1)
	go func() {
		done <- session.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		cancel()
		return <-done
	case err := <-done:
		signal.Stop(sigChan)
		return err
	}
}

// loadConfig resolves the effective configuration. An explicit --config
// path must exist; without one, built-in defaults apply when no file is
// present at the default location.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.MustLoad(cfgFile)
	}
	return config.Load("")
}

// initClientLogger keeps log records off the interactive screen. File
// targets log normally; stdout and stderr would garble the session, so
// records are dropped instead.
func initClientLogger(cfg *config.Config) {
	if cfg.Logging.Output == "stdout" || cfg.Logging.Output == "stderr" {
		logger.InitWithWriter(io.Discard, cfg.Logging.Level, "text", false)
		return
	}
	if err := logger.Init(logger.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		AddSource: cfg.Logging.AddSource,
	}); err != nil {
		logger.InitWithWriter(io.Discard, cfg.Logging.Level, "text", false)
	}
}

// validateName mirrors the server's naming rule so collisions are the
// only rejection left at connect time.
func validateName(input string) error {
	if input == "" {
		return errors.New("name cannot be empty")
	}
	for _, r := range input {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return errors.New("Invalid name. Name can consist only of letters and numbers")
		}
	}
	return nil
}

// validateServerAddress accepts an IP address or a plausible hostname.
// Resolution failures surface at dial time.
func validateServerAddress(input string) error {
	if input == "" {
		return errors.New("server address cannot be empty")
	}
	if net.ParseIP(input) != nil {
		return nil
	}
	for _, r := range input {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '.' {
			return errors.New("must be an IP address or hostname")
		}
	}
	return nil
}
