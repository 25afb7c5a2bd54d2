package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/matheus3301/chatline/internal/cipher"
	"github.com/matheus3301/chatline/internal/paths"
	"github.com/matheus3301/chatline/internal/rpc"
	"github.com/spf13/cobra"
)

var (
	messagesLimit  int
	messagesBefore int64
	messagesRaw    bool
	searchLimit    int
)

func init() {
	messagesCmd.Flags().IntVar(&messagesLimit, "limit", 20, "page size")
	messagesCmd.Flags().Int64Var(&messagesBefore, "before", -1, "only messages strictly older than this ms timestamp")
	messagesCmd.Flags().BoolVar(&messagesRaw, "raw", false, "print bodies as stored (encoded)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum results")
	searchCmd.Flags().BoolVar(&messagesRaw, "raw", false, "print bodies as stored (encoded)")
	rootCmd.AddCommand(messagesCmd, searchCmd, watchCmd)
}

var messagesCmd = &cobra.Command{
	Use:   "messages <chat-id>",
	Short: "Show a page of a chat's messages, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &rpc.GetMessagesRequest{ChatID: args[0], Limit: messagesLimit}
		if cmd.Flags().Changed("before") {
			req.BeforeTs = &messagesBefore
		}
		return withClient(cmd, func(ctx context.Context, c *rpc.Client) error {
			resp, err := c.Message.GetMessages(ctx, req)
			if err != nil {
				return err
			}
			printMessages(resp)
			if !flagJSON && resp.HasMore && len(resp.Messages) > 0 {
				fmt.Printf("... older with --before %d\n", resp.Messages[0].TS)
			}
			return nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <chat-id> <text>",
	Short: "Find messages in a chat containing text (case-sensitive), newest first",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *rpc.Client) error {
			resp, err := c.Message.SearchMessages(ctx, &rpc.SearchMessagesRequest{ChatID: args[0], Query: args[1], Limit: searchLimit})
			if err != nil {
				return err
			}
			printMessages(resp)
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live messages and connection state changes until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := rpc.Dial(paths.New(flagHome).SocketPath())
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		msgs, err := c.Message.WatchMessages(ctx, &rpc.Empty{})
		if err != nil {
			return err
		}
		states, err := c.Connection.WatchState(ctx, &rpc.Empty{})
		if err != nil {
			return err
		}

		var mu sync.Mutex
		emit := func(v any, human func()) {
			mu.Lock()
			defer mu.Unlock()
			render(v, human)
		}

		errc := make(chan error, 2)
		go func() {
			for {
				evt, err := states.Recv()
				if err != nil {
					errc <- err
					return
				}
				emit(evt, func() {
					from := evt.From
					if from == "" {
						from = "-"
					}
					fmt.Printf("%s  state  %s -> %s\n", formatMs(evt.AtMs), from, evt.To)
				})
			}
		}()
		go func() {
			for {
				m, err := msgs.Recv()
				if err != nil {
					errc <- err
					return
				}
				emit(m, func() {
					fmt.Printf("%s  %s  %s: %s\n", formatMs(m.TS), m.ChatID, m.Sender, m.Body)
				})
			}
		}()

		err = <-errc
		if ctx.Err() != nil || errors.Is(err, io.EOF) {
			return nil
		}
		return err
	},
}

func printMessages(resp *rpc.MessagesResponse) {
	if !messagesRaw {
		for i := range resp.Messages {
			resp.Messages[i].Body = cipher.Decode(resp.Messages[i].Body)
		}
	}
	render(resp, func() {
		if len(resp.Messages) == 0 {
			fmt.Println("No messages.")
			return
		}
		for _, m := range resp.Messages {
			fmt.Printf("%s  %-8s  %s\n", formatMs(m.TS), m.Sender, m.Body)
		}
	})
}
