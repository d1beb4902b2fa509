package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/marquee/internal/db"
	"github.com/zulandar/marquee/internal/digest"
	"github.com/zulandar/marquee/internal/telegram"
)

func newDigestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Operator digest commands",
	}

	cmd.AddCommand(newDigestSendCmd())
	return cmd
}

func newDigestSendCmd() *cobra.Command {
	var (
		configPath string
		window     time.Duration
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send the operator digest now",
		Long:  "Builds the view and inquiry digest for the trailing window and sends it to digest.telegram_chat_id. Nothing is sent when there was no activity.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			defer db.Close(gormDB)

			if cfg.Digest.TelegramToken == "" || cfg.Digest.TelegramChatID == "" {
				return fmt.Errorf("digest.telegram_token and digest.telegram_chat_id must be set")
			}
			d, err := digest.New(digest.Opts{
				DB:     gormDB,
				Sender: telegram.NewClient(cfg.Telegram.APIBase, time.Duration(cfg.Telegram.TimeoutSec)*time.Second),
				Token:  cfg.Digest.TelegramToken,
				ChatID: cfg.Digest.TelegramChatID,
				Window: window,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ctx := context.Background()
			if dryRun {
				report, err := d.BuildReport(ctx, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, digest.Format(report))
				return nil
			}

			sent, err := d.Send(ctx)
			if err != nil {
				return err
			}
			if !sent {
				fmt.Fprintln(out, "No activity in the window; digest skipped.")
				return nil
			}
			fmt.Fprintln(out, "Digest sent.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to marquee config file")
	cmd.Flags().DurationVar(&window, "window", digest.DefaultWindow, "how far back the digest looks")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the digest instead of sending it")
	return cmd
}
