package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tally-cli",
		Short: "Tally CLI tool",
		Long:  `A command line interface for interacting with the Tally ledger API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the Tally API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Account operations",
	}
	accountCmd.AddCommand(accountGetCmd(), accountListCmd())

	rootCmd.AddCommand(accountCmd, auditCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func accountGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <account-id>",
		Short: "Fetch one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON("/api/v1/accounts/" + args[0])
		},
	}
}

func accountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON("/api/v1/accounts/")
		},
	}
}

func auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit <account-id>",
		Short: "Check that an account's balance matches the sum of its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := fetch("/api/v1/accounts/" + args[0] + "/audit")
			if err != nil {
				return err
			}

			var report struct {
				AccountID  string `json:"account_id"`
				Balance    string `json:"balance"`
				EntrySum   string `json:"entry_sum"`
				Consistent bool   `json:"consistent"`
			}
			if err := json.Unmarshal(body, &report); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if !report.Consistent {
				return fmt.Errorf("audit FAILED for %s: balance %s, entry sum %s",
					report.AccountID, report.Balance, report.EntrySum)
			}

			fmt.Printf("audit PASSED for %s: balance %s\n", report.AccountID, report.Balance)
			return nil
		},
	}
}

func fetch(path string) ([]byte, error) {
	client := &http.Client{Timeout: timeout}

	resp, err := client.Get(baseURL + path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func getJSON(path string) error {
	body, err := fetch(path)
	if err != nil {
		return err
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	printJSON(payload)
	return nil
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("failed to render output: %v\n", err)
		return
	}
	fmt.Println(string(out))
}
