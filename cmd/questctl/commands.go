package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/app"
	"github.com/Ayuu1305/squad-quest-sub001/internal/config"
	"github.com/Ayuu1305/squad-quest-sub001/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

// withApp loads config, lets the command adjust it, builds the app and runs fn.
func withApp(cmd *cobra.Command, adjust func(*config.Config), fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if adjust != nil {
		adjust(cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}
	}
	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func archiveCmd() *cobra.Command {
	var (
		execute       bool
		thresholdDays int
		batchSize     int
	)
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Move old completed quests into the archive",
		Long: `Runs one archive pass. Without --execute the pass is a dry run that only
reports which quests would move.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			adjust := func(cfg *config.Config) {
				cfg.Archive.DryRun = !execute
				if cmd.Flags().Changed("threshold-days") {
					cfg.Archive.ThresholdDays = thresholdDays
				}
				if cmd.Flags().Changed("batch-size") {
					cfg.Archive.BatchSize = batchSize
				}
			}
			return withApp(cmd, adjust, func(ctx context.Context, a *app.App) error {
				report, err := a.Archiver.RunArchive(ctx)
				if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
					return perr
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&execute, "execute", false, "Write changes instead of a dry run")
	cmd.Flags().IntVar(&thresholdDays, "threshold-days", 7, "Archive quests completed more than this many days ago")
	cmd.Flags().IntVar(&batchSize, "batch-size", 450, "Quests moved per commit")
	return cmd
}

func resetWeeklyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-weekly",
		Short: "Zero every weekly XP counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(ctx context.Context, a *app.App) error {
				n, err := a.WeeklyReset.RunReset(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset %d documents\n", n)
				return nil
			})
		},
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [userId]",
		Short: "Repair public profiles from stats records",
		Long:  "Syncs a single user when an id is given, otherwise sweeps every user.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(ctx context.Context, a *app.App) error {
				if len(args) == 1 {
					resp, err := a.Rewards.SyncUser(ctx, args[0], "")
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), resp)
				}
				report, err := a.ProfileSync.RunSync(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		name string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <userId>",
		Short: "Sign a bearer token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			claims := jwt.MapClaims{}
			if name != "" {
				claims["name"] = name
			}
			if ttl > 0 {
				claims["exp"] = jwt.NewNumericDate(time.Now().Add(ttl))
			}
			token, err := utils.SignToken(cfg.JWTSecret, args[0], claims)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime, 0 for no expiry")
	return cmd
}
