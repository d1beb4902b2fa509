package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/marquee/internal/db"
	"github.com/zulandar/marquee/internal/digest"
	"github.com/zulandar/marquee/internal/server"
	"github.com/zulandar/marquee/internal/telegram"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		migrate    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the digest scheduler",
		Long:  "Serves the access-log and inquiry endpoints and, when enabled, sends the operator digest on its cron schedule.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, migrate)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to marquee config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "auto-migrate tables before serving")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, migrate bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	if migrate {
		if err := db.AutoMigrate(gormDB); err != nil {
			return err
		}
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	sender := telegram.NewClient(cfg.Telegram.APIBase, time.Duration(cfg.Telegram.TimeoutSec)*time.Second)

	if cfg.Digest.Enabled {
		d, err := digest.New(digest.Opts{
			DB:     gormDB,
			Sender: sender,
			Token:  cfg.Digest.TelegramToken,
			ChatID: cfg.Digest.TelegramChatID,
			Cron:   cfg.Digest.Cron,
		})
		if err != nil {
			return err
		}
		go d.Run(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "Digest scheduled (%s)\n", cfg.Digest.Cron)
	}

	return server.Start(ctx, server.StartOpts{
		DB:             gormDB,
		Sender:         sender,
		Port:           port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AdminToken:     cfg.Server.AdminToken,
		AttemptTimeout: time.Duration(cfg.Telegram.TimeoutSec) * time.Second,
		Out:            cmd.OutOrStdout(),
	})
}
