package main

import (
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/theneilagencia/glimora-sub000/internal/decisor"
	"github.com/theneilagencia/glimora-sub000/internal/model"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage monitored accounts",
}

var accountAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register an account to monitor",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("account"); err != nil {
			return err
		}

		acct, err := accountFromFlags(cmd)
		if err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		created, err := st.CreateAccount(ctx, acct)
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), created)
	},
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the accounts of an organization that can be synced",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("account"); err != nil {
			return err
		}
		org, _ := cmd.Flags().GetString("org")

		st, err := initStore(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		accounts, err := st.ListAccountsWithLinkedInURL(ctx, decisor.AccountFilter{OrganizationID: org})
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), accounts)
	},
}

func accountFromFlags(cmd *cobra.Command) (model.Account, error) {
	id, _ := cmd.Flags().GetString("id")
	org, _ := cmd.Flags().GetString("org")
	name, _ := cmd.Flags().GetString("name")
	linkedin, _ := cmd.Flags().GetString("linkedin-url")

	if strings.TrimSpace(org) == "" {
		return model.Account{}, eris.New("--org is required")
	}
	if strings.TrimSpace(name) == "" {
		return model.Account{}, eris.New("--name is required")
	}
	if id == "" {
		id = uuid.NewString()
	}

	acct := model.Account{ID: id, OrganizationID: org, Name: name}
	if linkedin = strings.TrimSpace(linkedin); linkedin != "" {
		acct.LinkedInURL = &linkedin
	}
	return acct, nil
}

func init() {
	f := accountAddCmd.Flags()
	f.String("id", "", "account ID (default: random UUID)")
	f.String("org", "", "organization ID")
	f.String("name", "", "account name")
	f.String("linkedin-url", "", "LinkedIn company page URL")

	accountListCmd.Flags().String("org", "", "organization ID")
	_ = accountListCmd.MarkFlagRequired("org")

	accountCmd.AddCommand(accountAddCmd, accountListCmd)
	rootCmd.AddCommand(accountCmd)
}
