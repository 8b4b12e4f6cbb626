package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/godhall/godhall/core"
)

func newDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode a wire-form expression and print it",
		Long: `Decode parses a CBOR-encoded expression and prints a readable
rendering of it. No resolution, type checking or normalization happens;
what you see is exactly what the file encodes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTerm(fileArg(args))
			if err != nil {
				return err
			}
			fmt.Println(core.Render(t))
			return nil
		},
	}
}

func fileArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "-"
}
