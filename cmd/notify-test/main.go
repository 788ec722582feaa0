// Command notify-test sends a sample status change card through the configured
// Lark bot so credentials and the receiving chat can be checked in isolation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/procuro/internal/application/port"
	"github.com/garyjia/procuro/internal/config"
	"github.com/garyjia/procuro/internal/domain/workflow"
	"github.com/garyjia/procuro/internal/infrastructure/external/lark"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	receiveID := flag.String("to", "", "override lark.receive_id")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *receiveID != "" {
		cfg.Lark.ReceiveID = *receiveID
	}
	if cfg.Lark.AppID == "" || cfg.Lark.AppSecret == "" || cfg.Lark.ReceiveID == "" {
		fmt.Fprintln(os.Stderr, "lark.app_id, lark.app_secret and lark.receive_id must be configured")
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	client := lark.NewClient(lark.Config{AppID: cfg.Lark.AppID, AppSecret: cfg.Lark.AppSecret}, logger)
	notifier := lark.NewNotifier(client, cfg.Lark.ReceiveIDType, cfg.Lark.ReceiveID, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	change := port.StatusChange{
		RequestID: 0,
		Title:     "Notification test",
		Requestor: "notify-test",
		Transition: workflow.Transition{
			From:      workflow.StatusOpen,
			To:        workflow.StatusInProgress,
			ChangedAt: time.Now().UTC(),
			ChangedBy: workflow.SystemActor,
			Changed:   true,
		},
	}
	if err := notifier.NotifyStatusChange(ctx, change); err != nil {
		fmt.Fprintf(os.Stderr, "Notification failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Sent test card to %s %s\n", cfg.Lark.ReceiveIDType, cfg.Lark.ReceiveID)
}
