package main

import (
	"fmt"
	"time"

	"github.com/pysugar/connector-gate/internal/config"
	"github.com/pysugar/connector-gate/internal/credential"
	"github.com/pysugar/connector-gate/internal/db"
	"github.com/pysugar/connector-gate/internal/db/models"
	"github.com/pysugar/connector-gate/internal/providers/catalog"
	"github.com/spf13/cobra"
)

var (
	setToken        string
	setRefreshToken string
	setClientID     string
	setClientSecret string
	setExpiresIn    time.Duration
)

var setCmd = &cobra.Command{
	Use:   "set <provider> <identity>",
	Short: "Store or replace a credential",
	Long: `Stores a credential for one provider identity. Pass only --token for
static keys; add --refresh-token, --client-id and --client-secret for
OAuth accounts. --client-secret accepts an env:// reference so the
secret itself stays out of the database.`,
	Args: cobra.ExactArgs(2),
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

		rec := &models.SecretRecord{
			Provider:     info.ID,
			IdentityKey:  args[1],
			AccessToken:  setToken,
			RefreshToken: setRefreshToken,
			ClientID:     setClientID,
			ClientSecret: setClientSecret,
		}
		if setExpiresIn > 0 {
			rec.ExpiresAt = time.Now().Add(setExpiresIn)
		}
		if err := store.Save(cmd.Context(), rec); err != nil {
			return fmt.Errorf("save credential: %w", err)
		}
		fmt.Printf("✅ Stored %s identity %s\n", info.ID, args[1])
		return nil
	},
}

func init() {
	setCmd.Flags().StringVar(&setToken, "token", "", "access token or static API key")
	setCmd.Flags().StringVar(&setRefreshToken, "refresh-token", "", "OAuth refresh token")
	setCmd.Flags().StringVar(&setClientID, "client-id", "", "OAuth client id")
	setCmd.Flags().StringVar(&setClientSecret, "client-secret", "", "OAuth client secret, literal or env://VAR")
	setCmd.Flags().DurationVar(&setExpiresIn, "expires-in", 0, "access token lifetime from now, e.g. 1h (omit for static keys)")
	setCmd.MarkFlagRequired("token")
	rootCmd.AddCommand(setCmd)
}
