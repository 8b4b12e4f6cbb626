package commands

import (
	"github.com/spf13/cobra"
)

func newResolveCommand() *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "resolve [file]",
		Short: "Resolve imports without normalizing",
		Long: `Resolve replaces every import in the expression with its
resolved content and writes the result back out. The surrounding
expression is left exactly as written: no type checking or
normalization is applied to it, though each imported expression is
individually checked and normalized as part of resolution.`,
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
			return writeTerm(resolved, pretty)
		},
	}

	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "print a readable rendering instead of CBOR")
	return cmd
}
