package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/chatline/internal/paths"
	"github.com/matheus3301/chatline/internal/rpc"
	"github.com/spf13/cobra"
)

var (
	flagHome    string
	flagJSON    bool
	flagTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "chatlinectl",
	Short:         "Command-line client for the chatline daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagHome, "home", paths.DefaultRoot(), "daemon data directory")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 10*time.Second, "per-call timeout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// withClient dials the daemon and runs fn with a call-scoped context.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *rpc.Client) error) error {
	c, err := rpc.Dial(paths.New(flagHome).SocketPath())
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()
	return fn(ctx, c)
}

// render writes v as JSON with --json, and calls human otherwise.
func render(v any, human func()) {
	if flagJSON {
		outputJSON(v)
		return
	}
	human()
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}

func formatMs(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}
