package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/pysugar/connector-gate/internal/auth/refresh"
	"github.com/pysugar/connector-gate/internal/config"
	"github.com/pysugar/connector-gate/internal/credential"
	"github.com/pysugar/connector-gate/internal/db"
	"github.com/pysugar/connector-gate/internal/providers/catalog"
	"github.com/pysugar/connector-gate/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local admin API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(config.CatalogPath())
		if err != nil {
			return fmt.Errorf("load provider catalog: %w", err)
		}
		gormDB, err := db.InitDB(config.DBPath())
		if err != nil {
			return fmt.Errorf("open credential store: %w", err)
		}
		store := credential.NewGormStore(gormDB)
		router := server.NewRouter(store, cat, refresh.NewOAuthRefresher(cat))

		addr := config.ListenAddr()
		log.Printf("🚀 Admin API listening on http://%s", addr)
		return http.ListenAndServe(addr, router)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
