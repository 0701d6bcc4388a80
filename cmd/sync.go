package main

import (
	"encoding/json"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile decisors with a fresh employee scrape",
}

var syncAccountCmd = &cobra.Command{
	Use:   "account",
	Short: "Sync the decisors of one account",
	Example: `  # Sync a single account
  glimora sync account --id 3f6c2a1e-...`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("sync"); err != nil {
			return err
		}
		id, _ := cmd.Flags().GetString("id")

		env, err := initSyncEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.SyncAccount(ctx, id)
		if err != nil {
			return err
		}
		zap.L().Info(res.Message,
			zap.String("account_id", res.AccountID),
			zap.Int("created", res.Created),
			zap.Int("updated", res.Updated),
			zap.Int("deleted", res.Deleted),
		)
		return writeResult(cmd.OutOrStdout(), res)
	},
}

var syncOrgCmd = &cobra.Command{
	Use:   "org",
	Short: "Sync every account of an organization that has a LinkedIn URL",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("sync"); err != nil {
			return err
		}
		id, _ := cmd.Flags().GetString("id")

		env, err := initSyncEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.SyncOrganization(ctx, id)
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), res)
	},
}

func writeResult(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "write result")
}

func init() {
	syncAccountCmd.Flags().String("id", "", "account ID")
	_ = syncAccountCmd.MarkFlagRequired("id")
	syncOrgCmd.Flags().String("id", "", "organization ID")
	_ = syncOrgCmd.MarkFlagRequired("id")

	syncCmd.AddCommand(syncAccountCmd, syncOrgCmd)
	rootCmd.AddCommand(syncCmd)
}
