package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/busgps/datastore"
)

var keysCmd = &cobra.Command{
	Use:   "keys [pattern]",
	Short: "List keys",
	Long:  "List the live keys of the store, optionally filtered by a shell-style pattern.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runKeys,
}

func init() {
	keysCmd.Flags().BoolP("long", "l", false, "show kind, codec and size of each key")
	rootCmd.AddCommand(keysCmd)
}

func runKeys(cmd *cobra.Command, args []string) error {
	pattern := "*"
	if len(args) > 0 {
		pattern = args[0]
	}
	long, _ := cmd.Flags().GetBool("long")

	return withStore(cmd, func(ctx context.Context, s *datastore.Store) error {
		keys, err := s.Keys(ctx, pattern)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			fmt.Println("(no keys)")
			return nil
		}

		for _, key := range keys {
			if !long {
				fmt.Println(key)
				continue
			}
			rec, err := s.Stat(ctx, key)
			if err != nil {
				fmt.Printf("%s\t-\t-\t-\n", key)
				continue
			}
			fmt.Printf("%s\t%s\t%s\t%d\n", key, rec.Kind, rec.Codec, rec.Size)
		}
		return nil
	})
}
