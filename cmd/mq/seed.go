package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/marquee/internal/db"
)

func newSeedCmd() *cobra.Command {
	var (
		configPath string
		file       string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load actors, staff and assignments from a YAML file",
		Long: "Upserts actors and staff by id and name, then replaces each listed actor's\n" +
			"staff assignments with the set in the file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, configPath, file)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to marquee config file")
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed YAML file")
	cmd.MarkFlagRequired("file")
	return cmd
}

func runSeed(cmd *cobra.Command, configPath, file string) error {
	seed, err := db.LoadSeed(file)
	if err != nil {
		return err
	}

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	res, err := db.ApplySeed(context.Background(), gormDB, seed)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Actors: %d\n", res.Actors)
	fmt.Fprintf(out, "Staff: %d\n", res.Staff)
	fmt.Fprintf(out, "Assignments: %d\n", res.Assignments)
	return nil
}
