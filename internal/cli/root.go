package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/WaClaw/WaClaw/internal/cli.version=1.2.3"
	version = "1.0.0"
	logo    = "\n" +
		" __        __    ____ _\n" +
		" \\ \\      / /_ _/ ___| | __ ___      __\n" +
		"  \\ \\ /\\ / / _` | |   | |/ _` \\ \\ /\\ / /\n" +
		"   \\ V  V / (_| | |___| | (_| |\\ V  V /\n" +
		"    \\_/\\_/ \\__,_|\\____|_|\\__,_| \\_/\\_/\n"
)

var rootCmd = &cobra.Command{
	Use:   "waclaw",
	Short: "WaClaw - WhatsApp bot",
	Long:  color.CyanString(logo) + "\nA WhatsApp bot with pairing-code login, self-healing reconnection and permission-gated commands.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(logoutCmd)
}
