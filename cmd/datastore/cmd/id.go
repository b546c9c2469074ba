package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/busgps/datastore"
)

var idCmd = &cobra.Command{
	Use:   "id <key>",
	Short: "Allocate a unique id",
	Long:  "Increment the counter of key and print the id, e.g. trips#42.",
	Args:  cobra.ExactArgs(1),
	RunE:  runID,
}

func init() {
	rootCmd.AddCommand(idCmd)
}

func runID(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, s *datastore.Store) error {
		id, err := s.UniqueID(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	})
}
