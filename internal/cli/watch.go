package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

const watchHelp = `commands: add <name> | check <name> | undo | rm <name> | del <name> | set <set> | list | quit`

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the list open and show changes from the family as they happen",
		Long: `Keep the list open and show changes from the family as they happen.
Lines typed on stdin are run as commands; undo works for a few seconds after
checking off or deleting a product.

` + watchHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				return runWatch(cmd.Context(), a, cmd.InOrStdin())
			})
		},
	}
}

func runWatch(ctx context.Context, a *app, in io.Reader) error {
	done := make(chan struct{})
	defer close(done)
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
	}()

	a.render()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-a.engine.Notices():
			fmt.Fprintf(a.errOut, "! %s\n", n.Message)
		case <-a.engine.Updates():
			a.render()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := a.runLine(ctx, line)
			if err != nil {
				fmt.Fprintf(a.errOut, "error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func (a *app) render() {
	groups, err := a.engine.BuyList()
	if err != nil {
		return
	}
	fmt.Fprintln(a.out, "----")
	printBuyList(a.out, groups)

	active := a.engine.ActiveCategories()
	if len(active) == 0 {
		return
	}
	categories, err := a.engine.Categories()
	if err != nil {
		return
	}
	var chips []string
	for _, c := range categories {
		if active[c.ID] {
			chips = append(chips, c.Emoji+" "+c.Name)
		}
	}
	fmt.Fprintf(a.out, "to buy in: %s\n", strings.Join(chips, " | "))
}

// runLine runs one watch command. It reports whether the session should end.
func (a *app) runLine(ctx context.Context, line string) (bool, error) {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "":
		return false, nil
	case "q", "quit", "exit":
		return true, nil
	case "list", "ls":
		a.render()
	case "add", "a":
		_, err := a.engine.AddItem(ctx, rest, "", true)
		return false, err
	case "check", "x":
		it, err := a.itemByName(rest)
		if err != nil {
			return false, err
		}
		_, err = a.engine.Toggle(it.ID)
		return false, err
	case "undo", "u":
		it, ok, err := a.engine.UndoComplete()
		if err != nil || ok {
			return false, err
		}
		if it, ok, err = a.engine.UndoDelete(); err != nil {
			return false, err
		}
		if !ok {
			fmt.Fprintln(a.out, "nothing to undo")
			return false, nil
		}
		fmt.Fprintf(a.out, "restored %s\n", it.Name)
	case "rm":
		it, err := a.itemByName(rest)
		if err != nil {
			return false, err
		}
		return false, a.engine.RemoveFromList(it.ID)
	case "del":
		it, err := a.itemByName(rest)
		if err != nil {
			return false, err
		}
		return false, a.engine.DeleteItem(it.ID)
	case "set":
		set, err := a.setByName(rest)
		if err != nil {
			return false, err
		}
		return false, a.engine.AddSet(set.ID)
	default:
		fmt.Fprintln(a.out, watchHelp)
	}
	return false, nil
}
