package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/shopping"
)

// NewSetsCommand creates the sets command and its subcommands.
func NewSetsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sets",
		Short: "List reusable sets of products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				snap, err := a.engine.Snapshot()
				if err != nil {
					return err
				}
				return a.emit(snap.Sets, func(w io.Writer) {
					if len(snap.Sets) == 0 {
						fmt.Fprintln(w, "No sets yet.")
					}
					for _, s := range snap.Sets {
						printSet(w, s)
					}
				})
			})
		},
	}

	cmd.AddCommand(newSetAddCommand(rootOpts))
	cmd.AddCommand(newSetCreateCommand(rootOpts))
	cmd.AddCommand(newSetSuggestCommand(rootOpts))
	cmd.AddCommand(newSetDeleteCommand(rootOpts))

	return cmd
}

func newSetAddCommand(rootOpts *RootOptions) *cobra.Command {
	var only []string
	cmd := &cobra.Command{
		Use:   "add <set>",
		Short: "Put the products of a set on the list",
		Long: `Put the products of a set on the list. Products already known keep
their category.

Example:
  basket sets add Breakfast
  basket sets add Breakfast --only eggs,toast`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				set, err := a.setByName(args[0])
				if err != nil {
					return err
				}
				subset := set.Items
				if len(only) > 0 {
					subset = pickSetItems(set.Items, only)
					if len(subset) == 0 {
						return fmt.Errorf("none of %v are in %s", only, set.Name)
					}
				}
				if err := a.engine.AddItemsFromSet(set.ID, subset); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Added %d items from %s %s.\n", len(subset), set.Emoji, set.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&only, "only", nil, "add only these products")
	return cmd
}

func pickSetItems(items []model.SetItem, names []string) []model.SetItem {
	var out []model.SetItem
	for _, it := range items {
		for _, n := range names {
			if shopping.SameName(it.Name, n) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// SetCreateOptions holds flags for sets create.
type SetCreateOptions struct {
	*RootOptions
	Emoji    string
	Items    string
	History  []string
	Generate bool
	Exclude  []string
}

func newSetCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SetCreateOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a set from text, from history or with the assistant",
		Long: `Create a set. Exactly one source is used:

  --items     newline or comma separated product names
  --history   names of products already in history
  --generate  let the assistant propose the products (--exclude drops some)

Example:
  basket sets create Pancakes --items "flour, milk, eggs"
  basket sets create Tacos --generate --exclude cilantro`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts.RootOptions, func(a *app) error {
				return runSetCreate(cmd, a, opts, args[0])
			})
		},
	}
	cmd.Flags().StringVar(&opts.Emoji, "emoji", "", "set emoji")
	cmd.Flags().StringVar(&opts.Items, "items", "", "product names")
	cmd.Flags().StringSliceVar(&opts.History, "history", nil, "products from history")
	cmd.Flags().BoolVar(&opts.Generate, "generate", false, "ask the assistant")
	cmd.Flags().StringSliceVar(&opts.Exclude, "exclude", nil, "generated products to leave out")
	cmd.MarkFlagsMutuallyExclusive("items", "history", "generate")
	cmd.MarkFlagsOneRequired("items", "history", "generate")
	return cmd
}

func runSetCreate(cmd *cobra.Command, a *app, opts *SetCreateOptions, name string) error {
	var (
		set model.Set
		ok  bool
		err error
	)
	switch {
	case opts.Generate:
		draft, gerr := a.engine.GenerateSet(cmd.Context(), name)
		if gerr != nil {
			a.printNotices()
			return gerr
		}
		if opts.Emoji != "" {
			draft.Emoji = opts.Emoji
		}
		for i := range draft.Items {
			for _, ex := range opts.Exclude {
				if shopping.SameName(draft.Items[i].Name, ex) {
					draft.Items[i].Included = false
				}
			}
		}
		if a.format == "text" {
			printDraft(a.out, draft)
		}
		set, ok, err = a.engine.CreateSetFromDraft(draft)
	case len(opts.History) > 0:
		var ids []string
		for _, n := range opts.History {
			it, lerr := a.itemByName(n)
			if lerr != nil {
				return lerr
			}
			ids = append(ids, it.ID)
		}
		set, ok, err = a.engine.CreateSetFromHistory(name, opts.Emoji, ids)
	default:
		text := strings.ReplaceAll(opts.Items, ",", "\n")
		set, ok, err = a.engine.CreateSetFromText(name, opts.Emoji, text)
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("a set needs a name and at least one product")
	}
	return a.emit(set, func(w io.Writer) {
		printSet(w, set)
	})
}

func newSetSuggestCommand(rootOpts *RootOptions) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Propose sets from products that are bought together",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				drafts, err := a.engine.SuggestSets(cmd.Context())
				if err != nil {
					a.printNotices()
					return err
				}
				if err := a.emit(drafts, func(w io.Writer) {
					if len(drafts) == 0 {
						fmt.Fprintln(w, "Nothing to suggest yet.")
					}
					for _, d := range drafts {
						printDraft(w, d)
					}
				}); err != nil {
					return err
				}
				if !save {
					return nil
				}
				for _, d := range drafts {
					if _, _, err := a.engine.CreateSetFromDraft(d); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "save every suggestion as a set")
	return cmd
}

func newSetDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <set>",
		Short: "Delete a set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				set, err := a.setByName(args[0])
				if err != nil {
					return err
				}
				if a.prefs.ConfirmDeleteSet && !yes &&
					!confirm(cmd.InOrStdin(), a.out, fmt.Sprintf("Delete set %s?", set.Name)) {
					return nil
				}
				if _, err := a.engine.DeleteSet(set.ID); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted %s.\n", set.Name)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
