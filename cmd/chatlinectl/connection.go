package main

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/chatline/internal/rpc"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(connectCmd, disconnectCmd, dropCmd, stateCmd, statusCmd)
}

type stateCall func(ctx context.Context, c *rpc.Client) (*rpc.StateResponse, error)

func stateCommand(use, short string, call stateCall) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, func(ctx context.Context, c *rpc.Client) error {
				resp, err := call(ctx, c)
				if err != nil {
					return err
				}
				render(resp, func() { fmt.Println(resp.State) })
				return nil
			})
		},
	}
}

var (
	connectCmd = stateCommand("connect", "Start connecting to the event server",
		func(ctx context.Context, c *rpc.Client) (*rpc.StateResponse, error) {
			return c.Connection.Connect(ctx, &rpc.Empty{})
		})
	disconnectCmd = stateCommand("disconnect", "Close the connection and cancel pending reconnects",
		func(ctx context.Context, c *rpc.Client) (*rpc.StateResponse, error) {
			return c.Connection.Disconnect(ctx, &rpc.Empty{})
		})
	stateCmd = stateCommand("state", "Print the connection state",
		func(ctx context.Context, c *rpc.Client) (*rpc.StateResponse, error) {
			return c.Connection.GetState(ctx, &rpc.Empty{})
		})
)

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Make the event server cut every session (client reconnects)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd, func(ctx context.Context, c *rpc.Client) error {
			resp, err := c.Connection.SimulateDrop(ctx, &rpc.Empty{})
			if err != nil {
				return err
			}
			render(resp, func() { fmt.Printf("Dropped %d session(s)\n", resp.Dropped) })
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd, func(ctx context.Context, c *rpc.Client) error {
			resp, err := c.Connection.GetStatus(ctx, &rpc.Empty{})
			if err != nil {
				return err
			}
			render(resp, func() {
				active := resp.ActiveChat
				if active == "" {
					active = "-"
				}
				fmt.Printf("State:      %s (since %s)\n", resp.State, formatMs(resp.StateSinceMs))
				if resp.Attempt > 0 {
					fmt.Printf("Attempt:    %d\n", resp.Attempt)
				}
				fmt.Printf("Chats:      %d\n", resp.ChatCount)
				fmt.Printf("Messages:   %d\n", resp.MessageCount)
				fmt.Printf("Sessions:   %d\n", resp.Sessions)
				fmt.Printf("Active:     %s\n", active)
				fmt.Printf("Uptime:     %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
			})
			return nil
		})
	},
}
