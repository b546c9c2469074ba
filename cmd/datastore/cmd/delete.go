package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/busgps/datastore"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <key> [keys...]",
	Short: "Delete keys",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDelete,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every key of the store",
	Long:  "Delete every key of the store together with its unique id counters.",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().Bool("yes", false, "confirm the reset")
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(resetCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, s *datastore.Store) error {
		for _, key := range args {
			if err := s.Delete(ctx, key); err != nil {
				return err
			}
		}
		return nil
	})
}

func runReset(cmd *cobra.Command, args []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return fmt.Errorf("reset deletes every key of the store; pass --yes to confirm")
	}

	return withStore(cmd, func(ctx context.Context, s *datastore.Store) error {
		fmt.Fprintf(os.Stderr, "Resetting %s...\n", s.Name())
		if err := s.Reset(ctx); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}
		fmt.Fprintln(os.Stderr, "Done.")
		return nil
	})
}
