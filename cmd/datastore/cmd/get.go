package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/busgps/datastore"
)

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value of a key",
	Long:  "Decode the value of a key with its recorded codec and print it. Reading a key refreshes its expiration.",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().Bool("raw", false, "write the encoded bytes to stdout without decoding")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	raw, _ := cmd.Flags().GetBool("raw")

	return withStore(cmd, func(ctx context.Context, s *datastore.Store) error {
		data, rec, err := s.GetBytes(ctx, key)
		if errors.Is(err, datastore.ErrNotFound) {
			return fmt.Errorf("%s: not found", key)
		}
		if err != nil {
			return err
		}

		if raw || rec.Codec == datastore.CodecIdentity {
			_, err := os.Stdout.Write(data)
			return err
		}

		var v any
		if err := s.Decode(rec, data, &v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		fmt.Printf("%v\n", v)
		return nil
	})
}
