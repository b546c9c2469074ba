package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/busgps/datastore"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Push to and pop from queues",
}

var queuePushCmd = &cobra.Command{
	Use:   "push <key> <value> [values...]",
	Short: "Append values to a queue",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runQueuePush,
}

var queuePopCmd = &cobra.Command{
	Use:   "pop <key>",
	Short: "Pop values from a queue",
	Long:  "Pop and print values until the queue is closed, empty for longer than --timeout, or --count values were read.",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueuePop,
}

var queueCloseCmd = &cobra.Command{
	Use:   "close <key>",
	Short: "Mark the end of a queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueClose,
}

func init() {
	queuePopCmd.Flags().Duration("timeout", 0, "wait this long for each value (0 waits forever)")
	queuePopCmd.Flags().IntP("count", "n", 1, "number of values to pop (0 pops until end of stream)")
	queueCloseCmd.Flags().Int("consumers", 1, "number of end-of-stream markers to push")

	queueCmd.AddCommand(queuePushCmd, queuePopCmd, queueCloseCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueuePush(cmd *cobra.Command, args []string) error {
	key := args[0]
	return withStore(cmd, func(ctx context.Context, s *datastore.Store) error {
		for _, v := range args[1:] {
			if err := s.Enqueue(ctx, key, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func runQueuePop(cmd *cobra.Command, args []string) error {
	key := args[0]
	timeout, _ := cmd.Flags().GetDuration("timeout")
	count, _ := cmd.Flags().GetInt("count")

	return withStore(cmd, func(ctx context.Context, s *datastore.Store) error {
		for i := 0; count == 0 || i < count; i++ {
			var v any
			err := s.Dequeue(ctx, key, timeout, &v)
			switch {
			case errors.Is(err, datastore.ErrEndOfStream):
				return nil
			case errors.Is(err, datastore.ErrNotFound):
				return fmt.Errorf("%s: no value", key)
			case err != nil:
				return err
			}
			fmt.Printf("%v\n", v)
		}
		return nil
	})
}

func runQueueClose(cmd *cobra.Command, args []string) error {
	key := args[0]
	consumers, _ := cmd.Flags().GetInt("consumers")

	return withStore(cmd, func(ctx context.Context, s *datastore.Store) error {
		for range consumers {
			if err := s.CloseQueue(ctx, key); err != nil {
				return err
			}
		}
		return nil
	})
}
