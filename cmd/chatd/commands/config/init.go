package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Andreysim/Chat/internal/cli/prompt"
	"github.com/Andreysim/Chat/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample chat configuration file.

By default, the configuration file is created at ~/.chat/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  chatd config init

  # Initialize with custom path
  chatd config init --config /etc/chat/config.yaml

  # Overwrite an existing config without prompting
  chatd config init --force`,
	RunE: runConfigInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config file without prompting")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	// Get config path from the root's persistent flag
	configFile, _ := cmd.Flags().GetString("config")

	targetPath := configFile
	if targetPath == "" {
		targetPath = config.GetDefaultConfigPath()
	}

	// Replacing an existing file needs an explicit go-ahead
	if _, err := os.Stat(targetPath); err == nil {
		overwrite, err := prompt.ConfirmWithForce(
			fmt.Sprintf("Config file already exists at %s. Overwrite", targetPath), initForce)
		if err != nil {
			return err
		}
		if !overwrite {
			fmt.Println("Aborted.")
			return nil
		}
	}

	var configPath string
	var err error

	if configFile != "" {
		// Use custom path
		err = config.InitConfigToPath(configFile, true)
		configPath = configFile
	} else {
		// Use default path
		configPath, err = config.InitConfig(true)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the server with: chatd start")
	fmt.Printf("  3. Or specify custom config: chatd start --config %s\n", configPath)

	return nil
}
