package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/WaClaw/WaClaw/internal/bus"
	"github.com/WaClaw/WaClaw/internal/channels"
	"github.com/WaClaw/WaClaw/internal/commands"
	"github.com/WaClaw/WaClaw/internal/config"
	"github.com/WaClaw/WaClaw/internal/conn"
	"github.com/WaClaw/WaClaw/internal/journal"
	"github.com/WaClaw/WaClaw/internal/mirror"
	"github.com/WaClaw/WaClaw/internal/session"
	"github.com/WaClaw/WaClaw/internal/status"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot",
	Run:   runBot,
}

func runBot(cmd *cobra.Command, args []string) {
	printHeader("🤖 WaClaw")
	fmt.Println("Starting WaClaw...")

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.Session.Dir, 0o755); err != nil {
		fmt.Printf("Failed to create session dir: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup Journal
	jrnl, err := journal.New(filepath.Join(cfg.Session.Dir, "journal.db"))
	if err != nil {
		fmt.Printf("Failed to init journal: %v\n", err)
		os.Exit(1)
	}
	defer jrnl.Close()

	// 3. Setup Session Store
	store, err := session.NewStore(filepath.Join(cfg.Session.Dir, "session.db"))
	if err != nil {
		fmt.Printf("Failed to init session store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// 4. Setup Bus
	msgBus := bus.NewEventBus()

	// 5. Setup Kafka mirror (optional)
	recorder := &mirror.Recorder{Journal: jrnl}
	if cfg.Mirror.Enabled && len(cfg.Mirror.Brokers) > 0 {
		m := mirror.New(mirror.Options{Brokers: cfg.Mirror.Brokers, Topic: cfg.Mirror.Topic})
		defer m.Close()
		recorder.Mirror = m
		fmt.Printf("📡 Journal mirror enabled (topic %s)\n", cfg.Mirror.Topic)
	}

	// 6. Setup Status Surfaces
	surfaces := status.Multi{status.Console{}}
	if cfg.Notify.SlackWebhookURL != "" {
		surfaces = append(surfaces, status.SlackWebhook{URL: cfg.Notify.SlackWebhookURL})
		fmt.Println("🔔 Slack notifications enabled")
	}

	// 7. Setup WhatsApp Channel
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wa := channels.NewWhatsAppChannel(channels.WhatsAppOptions{
		SessionDir: cfg.Session.Dir,
		LogLevel:   cfg.Session.LogLevel,
	}, msgBus)
	if err := wa.Start(ctx); err != nil {
		fmt.Printf("Failed to start WhatsApp channel: %v\n", err)
		os.Exit(1)
	}
	defer wa.Stop()

	// 8. Setup Commands
	registry := commands.NewRegistry()
	commands.Setup(registry, commands.Deps{
		Provider:  wa,
		Prefix:    cfg.Bot.Prefix,
		StartedAt: time.Now(),
	})
	router := &commands.Router{
		Prefix:   cfg.Bot.Prefix,
		Channel:  wa.Name(),
		Registry: registry,
		Evaluator: &commands.Evaluator{
			Owner:  cfg.Bot.Owner,
			BotID:  wa.Identity,
			Roster: wa,
		},
		Bus:          msgBus,
		Journal:      recorder,
		UnknownReply: cfg.Bot.UnknownReply,
	}

	// 9. Setup Recovery Policy
	pol := conn.DefaultPolicy()
	if overrides, err := cfg.Recovery.PolicyOverrides(); err != nil {
		fmt.Printf("Recovery config error: %v\n", err)
		os.Exit(1)
	} else if overrides != nil {
		pol, err = pol.Override(overrides)
		if err != nil {
			fmt.Printf("Recovery config error: %v\n", err)
			os.Exit(1)
		}
	}

	manager := conn.NewManager(conn.Params{
		Provider: wa,
		Store:    store,
		Journal:  recorder,
		Bus:      msgBus,
		Surface:  surfaces,
		Router:   router,
		Owner:    cfg.Bot.Owner,
		Delay:    cfg.Recovery.ReconnectDelay,
		Policy:   pol,
	})

	// 10. Start Everything
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	go msgBus.DispatchOutbound(ctx)

	if cfg.Bot.Owner == "" {
		fmt.Println("⚠️  No owner number configured; falling back to QR login if unlinked")
		if !wa.IsRegistered() {
			if err := wa.PairViaQR(ctx); err != nil {
				fmt.Printf("QR login failed: %v\n", err)
				os.Exit(1)
			}
		}
	}

	fmt.Println("Bot running. Press Ctrl+C to stop.")
	if err := manager.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Printf("Bot stopped: %v\n", err)
		os.Exit(1)
	}
}
