package main

import (
	"context"
	"fmt"

	"github.com/matheus3301/chatline/internal/rpc"
	"github.com/spf13/cobra"
)

func init() {
	chatsCmd.Flags().IntVar(&chatsLimit, "limit", 20, "page size")
	chatsCmd.Flags().IntVar(&chatsOffset, "offset", 0, "rows to skip")
	rootCmd.AddCommand(chatsCmd, readCmd, selectCmd, seedCmd)
}

var (
	chatsLimit  int
	chatsOffset int
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List chats, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd, func(ctx context.Context, c *rpc.Client) error {
			resp, err := c.Chat.GetChats(ctx, &rpc.GetChatsRequest{Limit: chatsLimit, Offset: chatsOffset})
			if err != nil {
				return err
			}
			render(resp, func() {
				if len(resp.Chats) == 0 {
					fmt.Println("No chats. Run `chatlinectl seed` to create some.")
					return
				}
				fmt.Printf("%-36s  %-28s  %6s  %s\n", "ID", "TITLE", "UNREAD", "LAST MESSAGE")
				for _, ch := range resp.Chats {
					fmt.Printf("%-36s  %-28s  %6d  %s\n", ch.ID, ch.Title, ch.UnreadCount, formatMs(ch.LastMessageAt))
				}
				if resp.HasMore {
					fmt.Printf("... more with --offset %d\n", chatsOffset+len(resp.Chats))
				}
			})
			return nil
		})
	},
}

var readCmd = &cobra.Command{
	Use:   "read <chat-id>",
	Short: "Reset a chat's unread counter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *rpc.Client) error {
			if _, err := c.Chat.MarkChatAsRead(ctx, &rpc.ChatRequest{ChatID: args[0]}); err != nil {
				return err
			}
			render(map[string]string{"chatId": args[0]}, func() {
				fmt.Printf("Marked %s as read\n", args[0])
			})
			return nil
		})
	},
}

var selectCmd = &cobra.Command{
	Use:   "select [chat-id]",
	Short: "Set the active chat; live messages for it are not counted as unread",
	Long:  "Set the daemon's active chat. Without an argument the selection is cleared.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		return withClient(cmd, func(ctx context.Context, c *rpc.Client) error {
			if _, err := c.Chat.SelectChat(ctx, &rpc.ChatRequest{ChatID: id}); err != nil {
				return err
			}
			render(map[string]string{"activeChat": id}, func() {
				if id == "" {
					fmt.Println("Active chat cleared")
				} else {
					fmt.Printf("Active chat: %s\n", id)
				}
			})
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill an empty database with synthetic chats and messages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd, func(ctx context.Context, c *rpc.Client) error {
			resp, err := c.Chat.SeedDatabase(ctx, &rpc.Empty{})
			if err != nil {
				return err
			}
			render(resp, func() {
				if resp.Skipped {
					fmt.Println("Database already has chats; nothing written.")
					return
				}
				fmt.Printf("Seeded %d chats and %d messages in %dms\n", resp.Chats, resp.Messages, resp.DurationMs)
			})
			return nil
		})
	},
}
