package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/marquee/internal/db"
	"github.com/zulandar/marquee/internal/inquiry"
	"github.com/zulandar/marquee/internal/telegram"
)

func newInquiryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inquiry",
		Short: "Inquiry commands",
	}

	cmd.AddCommand(newInquirySendCmd())
	return cmd
}

func newInquirySendCmd() *cobra.Command {
	var (
		configPath   string
		actorID      string
		actorName    string
		senderName   string
		organization string
		message      string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Store an inquiry and relay it to the actor's staff",
		Long:  "Runs the same dispatch as the contact form and prints one line per notified staff member.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			defer db.Close(gormDB)

			timeout := time.Duration(cfg.Telegram.TimeoutSec) * time.Second
			d, err := inquiry.NewDispatcher(inquiry.DispatcherOpts{
				Store:   inquiry.NewStore(gormDB),
				Sender:  telegram.NewClient(cfg.Telegram.APIBase, timeout),
				Timeout: timeout,
			})
			if err != nil {
				return err
			}

			in := inquiry.Inquiry{
				ActorID:    actorID,
				ActorName:  actorName,
				SenderName: senderName,
				Body:       message,
			}
			if cmd.Flags().Changed("org") {
				in.Organization = &organization
			}

			res, err := d.Dispatch(context.Background(), in)
			if err != nil {
				return err
			}
			printResult(cmd, res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to marquee config file")
	cmd.Flags().StringVar(&actorID, "actor", "", "actor id")
	cmd.Flags().StringVar(&actorName, "actor-name", "", "actor display name used in the notification")
	cmd.Flags().StringVar(&senderName, "from", "", "sender name")
	cmd.Flags().StringVar(&organization, "org", "", "sender organization")
	cmd.Flags().StringVarP(&message, "message", "m", "", "inquiry text")
	return cmd
}

func printResult(cmd *cobra.Command, res *inquiry.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Stored inquiry %s\n", res.InquiryID)
	if len(res.Attempts) == 0 {
		fmt.Fprintln(out, "No staff assigned.")
		return
	}
	for _, a := range res.Attempts {
		line := fmt.Sprintf("  %s (%s): %s", a.StaffName, a.AssignmentType, a.Outcome)
		if a.Detail != "" {
			line += " " + a.Detail
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, res.Summary())
}
