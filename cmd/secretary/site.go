package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aitarf0921/AI-Secretary/pkg/knowledge"
	"github.com/aitarf0921/AI-Secretary/pkg/otp"
)

func newSiteCmd() *cobra.Command {
	var configPath, envFile string

	cmd := &cobra.Command{
		Use:   "site",
		Short: "Manage site records in the knowledge store",
	}

	showCmd := &cobra.Command{
		Use:   "show <email>",
		Short: "Show the site owned by an email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, ok := otp.NormalizeEmail(args[0])
			if !ok {
				return fmt.Errorf("invalid email %q", args[0])
			}
			cfg, err := loadConfig(configPath, envFile)
			if err != nil {
				return err
			}
			store, err := knowledge.Open(cmd.Context(), cfg.Knowledge)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rec, err := store.ByEmail(cmd.Context(), email)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SITE ID\tEMAIL\tUPDATED\tKNOWLEDGE")
			fmt.Fprintf(w, "%s\t%s\t%s\t%d chars\n",
				rec.SiteID, rec.Email, rec.UpdatedAt.Format("2006-01-02T15:04:05"), len([]rune(rec.KnowledgeContext)))
			return w.Flush()
		},
	}

	var text string
	addCmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Provision a site for an email, optionally setting its knowledge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, ok := otp.NormalizeEmail(args[0])
			if !ok {
				return fmt.Errorf("invalid email %q", args[0])
			}
			cfg, err := loadConfig(configPath, envFile)
			if err != nil {
				return err
			}
			store, err := knowledge.Open(cmd.Context(), cfg.Knowledge)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rec, err := store.Provision(cmd.Context(), email)
			if err != nil {
				return err
			}
			if text != "" {
				normalized, err := knowledge.Normalize(text)
				if err != nil {
					return err
				}
				if rec, err = store.SetKnowledge(cmd.Context(), email, normalized); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), rec.SiteID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&text, "knowledge", "", "knowledge text or HTML for the site")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "secretary.yaml", "path to config file")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	cmd.AddCommand(showCmd, addCmd)
	return cmd
}
