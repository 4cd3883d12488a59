package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/WaClaw/WaClaw/internal/config"
	"github.com/WaClaw/WaClaw/internal/journal"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ WaClaw Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show bot status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 WaClaw Status")
		fmt.Printf("Version: %s\n", version)

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Config:  ✗ Unable to load (%v)\n", err)
			return
		}

		if path, err := config.ConfigPath(); err == nil {
			if _, err := os.Stat(path); err == nil {
				fmt.Println("Config:  ✓ Found (" + path + ")")
			} else {
				fmt.Println("Config:  ✗ Not found (using defaults)")
			}
		}

		if cfg.Bot.Owner != "" {
			fmt.Println("Owner:   ✓ Configured")
		} else {
			fmt.Println("Owner:   ✗ Not set (QR login fallback)")
		}

		deviceDB := filepath.Join(cfg.Session.Dir, "device.db")
		if _, err := os.Stat(deviceDB); err == nil {
			fmt.Println("Link:    ✓ Device session found")
		} else {
			fmt.Println("Link:    ✗ No device session (pairing needed)")
		}

		jrnl, err := journal.New(filepath.Join(cfg.Session.Dir, "journal.db"))
		if err != nil {
			fmt.Printf("Journal: ✗ Unable to open (%v)\n", err)
			return
		}
		defer jrnl.Close()

		if state, err := jrnl.GetSetting("connection_state"); err == nil && state != "" {
			fmt.Printf("State:   %s\n", state)
		}

		entries, err := jrnl.Recent(statusRecent)
		if err != nil || len(entries) == 0 {
			return
		}
		fmt.Println("\nRecent activity:")
		for _, e := range entries {
			line := fmt.Sprintf("  %s  %-10s %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Kind, e.Detail)
			if e.Code != 0 {
				line += fmt.Sprintf(" (code %d)", e.Code)
			}
			fmt.Println(line)
		}
	},
}

var statusRecent int

func init() {
	statusCmd.Flags().IntVarP(&statusRecent, "recent", "n", 10, "Number of recent journal entries to show")
}
