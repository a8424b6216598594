package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/pysugar/connector-gate/internal/config"
	"github.com/pysugar/connector-gate/internal/credential"
	"github.com/pysugar/connector-gate/internal/db"
	"github.com/pysugar/connector-gate/internal/executor"
	"github.com/pysugar/connector-gate/internal/providers/catalog"
	"github.com/spf13/cobra"
)

var (
	callIdentity string
	callContext  string
	callData     string
	callHeaders  []string
)

var callCmd = &cobra.Command{
	Use:   "call <provider> <method> <url>",
	Short: "Perform one provider API call",
	Long: `Performs a single call through the gateway: resolves the identity,
refreshes the credential if it is about to expire, waits for the
provider's rate window, and retries transient failures. The response
body is written to stdout.

A url starting with "/" is joined to the provider's base URL.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, method, rawURL := args[0], strings.ToUpper(args[1]), args[2]

		cat, err := catalog.Load(config.CatalogPath())
		if err != nil {
			return fmt.Errorf("load provider catalog: %w", err)
		}
		gormDB, err := db.InitDB(config.DBPath())
		if err != nil {
			return fmt.Errorf("open credential store: %w", err)
		}
		store := credential.NewGormStore(gormDB)
		exec := executor.New(store, cat)

		req := &executor.Request{Method: method, URL: rawURL}
		if callData != "" {
			req.Body = []byte(callData)
		}
		for _, h := range callHeaders {
			name, value, ok := strings.Cut(h, ":")
			if !ok {
				return fmt.Errorf("invalid header %q, expected Name: value", h)
			}
			if req.Header == nil {
				req.Header = http.Header{}
			}
			req.Header.Set(strings.TrimSpace(name), strings.TrimSpace(value))
		}

		resp, err := exec.Execute(cmd.Context(), provider, executor.Invocation{
			Identity:    callIdentity,
			ContextHint: callContext,
		}, req)
		if err != nil {
			if f, ok := executor.AsFailure(err); ok {
				log.Printf("❌ %s", f.Error())
				fmt.Fprintln(os.Stderr, f.Guidance())
				os.Exit(1)
			}
			if errors.Is(err, credential.ErrCorruptRecord) {
				log.Printf("❌ Stored credential is unreadable: %v", err)
			}
			return err
		}

		os.Stdout.Write(resp.Body)
		if len(resp.Body) > 0 && resp.Body[len(resp.Body)-1] != '\n' {
			fmt.Println()
		}
		return nil
	},
}

func init() {
	callCmd.Flags().StringVarP(&callIdentity, "identity", "i", "", "identity key to call as (account email or token label)")
	callCmd.Flags().StringVarP(&callContext, "context", "c", "", "context string for identity inference, e.g. a file path")
	callCmd.Flags().StringVarP(&callData, "data", "d", "", "request body")
	callCmd.Flags().StringArrayVarP(&callHeaders, "header", "H", nil, "extra request header, Name: value (repeatable)")
	rootCmd.AddCommand(callCmd)
}
