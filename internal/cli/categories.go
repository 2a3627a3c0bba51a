package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewCategoriesCommand creates the categories command and its subcommands.
func NewCategoriesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "List categories, most bought first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				categories, err := a.engine.Categories()
				if err != nil {
					return err
				}
				active := a.engine.ActiveCategories()
				return a.emit(categories, func(w io.Writer) {
					for _, c := range categories {
						mark := " "
						if active[c.ID] {
							mark = "*"
						}
						fmt.Fprintf(w, "%s %s %s\n", mark, c.Emoji, c.Name)
					}
				})
			})
		},
	}

	cmd.AddCommand(newCategoryAddCommand(rootOpts))
	cmd.AddCommand(newCategoryEditCommand(rootOpts))
	cmd.AddCommand(newCategoryDeleteCommand(rootOpts))

	return cmd
}

func newCategoryAddCommand(rootOpts *RootOptions) *cobra.Command {
	var emoji string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				c, ok, err := a.engine.SaveCategory("", args[0], emoji)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("category name is required")
				}
				fmt.Fprintf(a.out, "Created %s %s.\n", c.Emoji, c.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&emoji, "emoji", "", "category emoji")
	return cmd
}

func newCategoryEditCommand(rootOpts *RootOptions) *cobra.Command {
	var emoji string
	cmd := &cobra.Command{
		Use:   "edit <name> <new-name>",
		Short: "Rename a category or change its emoji",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				c, err := a.categoryByName(args[0], false)
				if err != nil {
					return err
				}
				c, ok, err := a.engine.SaveCategory(c.ID, args[1], emoji)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("category name is required")
				}
				fmt.Fprintf(a.out, "Saved %s %s.\n", c.Emoji, c.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&emoji, "emoji", "", "new emoji, unchanged when empty")
	return cmd
}

func newCategoryDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a category; its products move to Other",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				c, err := a.categoryByName(args[0], false)
				if err != nil {
					return err
				}
				if a.prefs.ConfirmDeleteCategory && !yes &&
					!confirm(cmd.InOrStdin(), a.out, fmt.Sprintf("Delete category %s?", c.Name)) {
					return nil
				}
				if err := a.engine.DeleteCategory(c.ID); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted %s.\n", c.Name)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
