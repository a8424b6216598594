package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pysugar/connector-gate/internal/auth/login"
	"github.com/pysugar/connector-gate/internal/config"
	"github.com/pysugar/connector-gate/internal/credential"
	"github.com/pysugar/connector-gate/internal/db"
	"github.com/pysugar/connector-gate/internal/db/models"
	"github.com/pysugar/connector-gate/internal/providers/catalog"
	"github.com/spf13/cobra"
)

var (
	loginClientID     string
	loginClientSecret string
)

var loginCmd = &cobra.Command{
	Use:   "login <provider> <identity>",
	Short: "Authorize an OAuth identity interactively",
	Long: `Runs the provider's consent flow in your browser and stores the
resulting tokens under the given identity key. The client id and secret
default to GATE_<PROVIDER>_CLIENT_ID and GATE_<PROVIDER>_CLIENT_SECRET.`,
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

		envKey := strings.ToUpper(strings.ReplaceAll(info.ID, "-", "_"))
		clientID := loginClientID
		if clientID == "" {
			clientID = os.Getenv("GATE_" + envKey + "_CLIENT_ID")
		}
		clientSecret := loginClientSecret
		if clientSecret == "" {
			clientSecret = "env://GATE_" + envKey + "_CLIENT_SECRET"
		}

		flow := &login.Flow{Provider: info, ClientID: clientID, ClientSecret: clientSecret}
		result, err := flow.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		gormDB, err := db.InitDB(config.DBPath())
		if err != nil {
			return fmt.Errorf("open credential store: %w", err)
		}
		store := credential.NewGormStore(gormDB)
		rec := &models.SecretRecord{
			Provider:     info.ID,
			IdentityKey:  args[1],
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
			ClientID:     clientID,
			ClientSecret: clientSecret,
			ExpiresAt:    result.ExpiresAt,
		}
		if err := store.Save(cmd.Context(), rec); err != nil {
			return fmt.Errorf("save credential: %w", err)
		}

		fmt.Printf("✅ Authorized %s identity %s\n", info.ID, args[1])
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginClientID, "client-id", "", "OAuth client id (default: GATE_<PROVIDER>_CLIENT_ID)")
	loginCmd.Flags().StringVar(&loginClientSecret, "client-secret", "", "OAuth client secret, literal or env://VAR")
	rootCmd.AddCommand(loginCmd)
}
