package commands

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Andreysim/Chat/internal/cli/output"
	"github.com/Andreysim/Chat/internal/version"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the chat client version, build information, and system details.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionShort {
			fmt.Println(version.Version)
			return nil
		}

		fmt.Printf("chat %s\n", version.Version)
		return output.PrintKeyValue(os.Stdout,
			"Commit", version.Commit,
			"Built", version.BuildDate,
			"Go version", runtime.Version(),
			"OS/Arch", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show only version number")
}
