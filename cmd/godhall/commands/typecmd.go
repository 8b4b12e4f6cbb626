package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/godhall/godhall/core"
)

func newTypeCommand() *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "type [file]",
		Short: "Infer the type of an expression",
		Long: `Type resolves the expression's imports, infers its type in an
empty context and prints the type. The expression itself is not
normalized.`,
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
			inferred, err := core.TypeOf(resolved)
			if err != nil {
				return err
			}
			if pretty {
				fmt.Println(core.Render(inferred))
				return nil
			}
			return writeTerm(core.Normalize(inferred), false)
		},
	}

	cmd.Flags().BoolVarP(&pretty, "pretty", "p", true, "print a readable rendering instead of CBOR")
	return cmd
}
