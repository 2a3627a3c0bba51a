package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// NewDictateCommand creates the dictate command.
func NewDictateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dictate <text>...",
		Short: "Add everything mentioned in free text",
		Long: `Add everything mentioned in free text, such as a transcribed voice note.
The assistant picks categories; without it the text is split on commas and
new lines.

Example:
  basket dictate "we need milk, two dozen eggs and half and half for pancakes"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				got, err := a.engine.Dictate(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				return a.emit(got, func(w io.Writer) {
					if got.DishName != "" {
						fmt.Fprintf(w, "For %s:\n", got.DishName)
					}
					for _, it := range got.Items {
						fmt.Fprintf(w, "  + %s\n", it.Name)
					}
				})
			})
		},
	}
}
