package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/pysugar/connector-gate/internal/config"
	"github.com/pysugar/connector-gate/internal/credential"
	"github.com/pysugar/connector-gate/internal/db"
	"github.com/pysugar/connector-gate/internal/providers/catalog"
	"github.com/pysugar/connector-gate/internal/util"
	"github.com/spf13/cobra"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities <provider>",
	Short: "List configured identities for a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(config.CatalogPath())
		if err != nil {
			return fmt.Errorf("load provider catalog: %w", err)
		}
		info, err := cat.Get(args[0])
		if err != nil {
			return err
		}
		gormDB, err := db.InitDB(config.DBPath())
		if err != nil {
			return fmt.Errorf("open credential store: %w", err)
		}
		store := credential.NewGormStore(gormDB)

		keys, err := store.List(cmd.Context(), info.ID)
		if err != nil {
			return fmt.Errorf("list identities: %w", err)
		}
		if len(keys) == 0 {
			fmt.Printf("No identities configured for %s\n", info.ID)
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "IDENTITY\tKIND\tTOKEN\tEXPIRES")
		for _, key := range keys {
			rec, err := store.Load(cmd.Context(), info.ID, key)
			if err != nil {
				fmt.Fprintf(w, "%s\tcorrupt\t\t\n", key)
				continue
			}
			kind := "oauth"
			expires := "-"
			if rec.IsStatic() {
				kind = "static"
			} else {
				expires = rec.ExpiresAt.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", key, kind, util.MaskSecret(rec.AccessToken), expires)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(identitiesCmd)
}
