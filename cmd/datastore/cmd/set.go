package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/busgps/datastore"
)

var setCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Store a value",
	Long:  "Store a string value, or the contents of a file with --file (\"-\" reads stdin).",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSet,
}

func init() {
	setCmd.Flags().String("codec", "compressed", "codec: identity, plain, compressed")
	setCmd.Flags().StringP("file", "f", "", "read the value from a file")
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	codecName, _ := cmd.Flags().GetString("codec")
	file, _ := cmd.Flags().GetString("file")

	c, err := datastore.ParseCodec(codecName)
	if err != nil {
		return err
	}

	var value any
	switch {
	case file != "":
		data, err := readInput(file)
		if err != nil {
			return err
		}
		value = data
	case len(args) == 2:
		value = args[1]
	default:
		return fmt.Errorf("set %s: a value or --file is required", key)
	}

	return withStore(cmd, func(ctx context.Context, s *datastore.Store) error {
		return s.Set(ctx, key, value, datastore.WithCodec(c))
	})
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
