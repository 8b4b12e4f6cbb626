package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/godhall/godhall/binary"
	"github.com/godhall/godhall/core"
)

func newHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash [file]",
		Short: "Print the semantic hash of an expression",
		Long: `Hash resolves and type-checks the expression, then prints its
semantic hash: the SHA-256 multihash of the canonical encoding of its
alpha-beta-normal form. The output is the string to pin on an import
for integrity protection.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTerm(fileArg(args))
			if err != nil {
				return err
			}
			resolver, cleanup, err := newResolverFor(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			resolved, err := resolver.Resolve(cmd.Context(), t)
			if err != nil {
				return err
			}
			if _, err := core.TypeOf(resolved); err != nil {
				return err
			}
			hash, err := binary.SemanticHash(resolved)
			if err != nil {
				return err
			}
			fmt.Println(binary.FormatHash(hash))
			return nil
		},
	}
}
