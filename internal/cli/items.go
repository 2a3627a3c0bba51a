package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/shopping"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Category    string
	HistoryOnly bool
	Bulk        bool
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <name>...",
		Short: "Put a product on the list",
		Long: `Put a product on the list. Adding a product that is already known puts
it back on the list instead of creating a second one.

Without --category the assistant picks a category for new products.

Example:
  basket add oat milk
  basket add --category Bakery bagels
  basket add --bulk "eggs, bacon, toast"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts.RootOptions, func(a *app) error {
				return runAdd(cmd, a, opts, strings.Join(args, " "))
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Category, "category", "c", "", "category name, created when missing")
	cmd.Flags().BoolVar(&opts.HistoryOnly, "history", false, "remember the product without putting it on the list")
	cmd.Flags().BoolVar(&opts.Bulk, "bulk", false, "treat the text as a comma or newline separated list")

	return cmd
}

func runAdd(cmd *cobra.Command, a *app, opts *AddOptions, text string) error {
	onList := !opts.HistoryOnly
	if opts.Bulk {
		items, err := a.engine.AddBulk(text, onList)
		if err != nil {
			return err
		}
		return a.emit(items, func(w io.Writer) {
			fmt.Fprintf(w, "Added %d items.\n", len(items))
		})
	}

	categoryID := ""
	if opts.Category != "" {
		c, err := a.categoryByName(opts.Category, true)
		if err != nil {
			return err
		}
		categoryID = c.ID
	}
	it, err := a.engine.AddItem(cmd.Context(), text, categoryID, onList)
	if err != nil {
		return err
	}
	if it.ID == "" {
		return fmt.Errorf("item name is required")
	}
	return a.emit(it, func(w io.Writer) {
		fmt.Fprintf(w, "Added %s.\n", it.Name)
	})
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the buy list grouped by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				groups, err := a.engine.BuyList()
				if err != nil {
					return err
				}
				return a.emit(groups, func(w io.Writer) {
					printBuyList(w, groups)
				})
			})
		},
	}
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <name>...",
		Short: "Check a product off, or back on when it is already checked",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				it, err := a.itemByName(strings.Join(args, " "))
				if err != nil {
					return err
				}
				it, err = a.engine.Toggle(it.ID)
				if err != nil {
					return err
				}
				return a.emit(it, func(w io.Writer) {
					if it.Completed {
						fmt.Fprintf(w, "Checked off %s.\n", it.Name)
					} else {
						fmt.Fprintf(w, "%s is back on the list.\n", it.Name)
					}
				})
			})
		},
	}
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>...",
		Short: "Take a product off the list and keep it in history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				it, err := a.itemByName(strings.Join(args, " "))
				if err != nil {
					return err
				}
				if err := a.engine.RemoveFromList(it.ID); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Removed %s from the list.\n", it.Name)
				return nil
			})
		},
	}
}

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	Yes bool
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <name>...",
		Short: "Forget a product entirely",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts.RootOptions, func(a *app) error {
				it, err := a.itemByName(strings.Join(args, " "))
				if err != nil {
					return err
				}
				if a.prefs.ConfirmDeleteItem && !opts.Yes &&
					!confirm(cmd.InOrStdin(), a.out, fmt.Sprintf("Delete %s and its history?", it.Name)) {
					return nil
				}
				if err := a.engine.DeleteItem(it.ID); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted %s.\n", it.Name)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Grouped bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show every known product, most purchased first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts.RootOptions, func(a *app) error {
				snap, err := a.engine.Snapshot()
				if err != nil {
					return err
				}
				lang := a.engine.Language()
				if opts.Grouped {
					groups := shopping.GroupedByCategory(snap.Items, snap.Categories, lang)
					return a.emit(groups, func(w io.Writer) {
						for _, g := range groups {
							fmt.Fprintf(w, "%s %s (%d)\n", g.Category.Emoji, g.Category.Name, g.Total)
							printItems(w, g.Items, []model.Category{g.Category})
						}
					})
				}
				items := shopping.UniqueByName(snap.Items, lang)
				return a.emit(items, func(w io.Writer) {
					printItems(w, items, snap.Categories)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Grouped, "grouped", false, "group products by category")

	return cmd
}
