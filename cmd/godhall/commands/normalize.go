package commands

import (
	"github.com/spf13/cobra"

	"github.com/godhall/godhall/core"
)

func newNormalizeCommand() *cobra.Command {
	var (
		pretty bool
		alpha  bool
	)

	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Resolve, type-check and normalize an expression",
		Long: `Normalize runs the full pipeline: imports are resolved, the
expression is type-checked in an empty context, and its normal form is
written to stdout in the wire form (or rendered with --pretty).
Ill-typed expressions are rejected before any evaluation.`,
		Example: `  # Normalize a file and re-encode the normal form
  godhall normalize config.dhallb > normal.dhallb

  # Print the normal form readably
  godhall normalize --pretty config.dhallb`,
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
			normal := core.Normalize(resolved)
			if alpha {
				normal = core.AlphaNormalize(normal)
			}
			return writeTerm(normal, pretty)
		},
	}

	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "print a readable rendering instead of CBOR")
	cmd.Flags().BoolVar(&alpha, "alpha", false, "alpha-normalize the result (rename all binders to _)")
	return cmd
}
