// Package main implements the evidencectl CLI for manual operations against
// the evidenced HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the evidenced HTTP server
	serverURL string
	// token is the bearer token used for API calls
	token string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "evidencectl",
	Short: "CLI for evidenced HTTP server operations",
	Long: `evidencectl is a command-line interface for interacting with the evidenced
HTTP server. It provides commands for ingesting documents, asking questions,
and checking server health.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "evidenced server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("EVIDENCED_TOKEN"), "bearer token (or EVIDENCED_TOKEN)")
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(healthCmd)
}

// chatCmd asks a tenant-scoped question
var chatCmd = &cobra.Command{
	Use:   "chat <tenant-id> <question>",
	Short: "Ask a question against a tenant's documents",
	Long: `Ask a question against a tenant's ingested documents.

Examples:
  # Ask a question
  evidencectl chat acme "What is the vacation policy?"

  # Use a different server
  evidencectl chat --server http://localhost:9090 acme "What is the vacation policy?"`,
	Args: cobra.ExactArgs(2),
	RunE: runChat,
}

// ingestCmd ingests a document from a file or stdin
var ingestCmd = &cobra.Command{
	Use:   "ingest <tenant-id> <source> [file]",
	Short: "Ingest a document from a file or stdin",
	Long: `Ingest a document into a tenant's collection.

Examples:
  # Ingest a file
  evidencectl ingest acme wiki handbook.md

  # Ingest from stdin
  cat handbook.md | evidencectl ingest acme wiki -`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runIngest,
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check evidenced server health",
	RunE:  runHealth,
}

// ChatRequest matches internal/http/types.go ChatRequest
type ChatRequest struct {
	TenantID string `json:"tenant_id"`
	Question string `json:"question"`
}

// IngestRequest matches internal/http/types.go IngestRequest
type IngestRequest struct {
	TenantID string `json:"tenant_id"`
	Source   string `json:"source"`
	Text     string `json:"text"`
}

func runChat(cmd *cobra.Command, args []string) error {
	body, err := postJSON("/api/v1/chat", ChatRequest{TenantID: args[0], Question: args[1]})
	if err != nil {
		return err
	}
	return printJSON(body)
}

func runIngest(cmd *cobra.Command, args []string) error {
	var text []byte
	var err error
	if len(args) < 3 || args[2] == "-" {
		text, err = io.ReadAll(os.Stdin)
	} else {
		text, err = os.ReadFile(args[2])
	}
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}

	body, err := postJSON("/api/v1/ingest", IngestRequest{
		TenantID: args[0],
		Source:   args[1],
		Text:     string(text),
	})
	if err != nil {
		return err
	}
	return printJSON(body)
}

func runHealth(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: %s: %s", resp.Status, body)
	}
	return printJSON(body)
}

// postJSON sends an authenticated POST and returns the response body.
func postJSON(path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, serverURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, body)
	}
	return body, nil
}

// printJSON pretty-prints a JSON response body.
func printJSON(body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return nil
	}
	fmt.Println(buf.String())
	return nil
}
