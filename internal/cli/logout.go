package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/WaClaw/WaClaw/internal/bus"
	"github.com/WaClaw/WaClaw/internal/channels"
	"github.com/WaClaw/WaClaw/internal/config"
	"github.com/WaClaw/WaClaw/internal/session"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Unlink the device and wipe the stored session",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🔌 WaClaw Logout")

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Config error: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		wa := channels.NewWhatsAppChannel(channels.WhatsAppOptions{
			SessionDir: cfg.Session.Dir,
			LogLevel:   "WARN",
		}, bus.NewEventBus())
		if err := wa.Start(ctx); err != nil {
			fmt.Printf("Failed to open device store: %v\n", err)
			os.Exit(1)
		}
		defer wa.Stop()

		if wa.IsRegistered() {
			if err := wa.Logout(ctx); err != nil {
				fmt.Printf("⚠️ Device unlink failed: %v (wiping local session anyway)\n", err)
			} else {
				fmt.Println("✅ Device unlinked")
			}
		} else {
			fmt.Println("No linked device found")
		}

		store, err := session.NewStore(filepath.Join(cfg.Session.Dir, "session.db"))
		if err != nil {
			fmt.Printf("Failed to open session store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		if err := store.Wipe(); err != nil {
			fmt.Printf("Failed to wipe session record: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✅ Local session wiped. Run 'waclaw run' to pair again.")
	},
}
