package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/shopping"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emit writes v as JSON, or calls text for the text format.
func (a *app) emit(v any, text func(w io.Writer)) error {
	if a.format == "json" {
		return writeJSON(a.out, v)
	}
	text(a.out)
	return nil
}

func printBuyList(w io.Writer, groups []shopping.CategoryGroup) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "The list is empty.")
		return
	}
	for _, g := range groups {
		fmt.Fprintf(w, "%s %s\n", g.Category.Emoji, g.Category.Name)
		for _, it := range g.Items {
			mark := "[ ]"
			if it.Completed {
				mark = "[x]"
			}
			fmt.Fprintf(w, "  %s %s\n", mark, it.Name)
		}
	}
}

func printItems(w io.Writer, items []model.Item, categories []model.Category) {
	byID := make(map[string]model.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	for _, it := range items {
		c, ok := byID[it.CategoryOrNone()]
		if !ok {
			c = model.NoneCategory()
		}
		onList := ""
		if it.OnList {
			onList = " (on list)"
		}
		fmt.Fprintf(w, "%4d  %s %s%s\n", it.PurchaseCount, c.Emoji, it.Name, onList)
	}
}

func printSet(w io.Writer, set model.Set) {
	fmt.Fprintf(w, "%s %s (used %d times)\n", set.Emoji, set.Name, set.UsageCount)
	for _, it := range set.Items {
		fmt.Fprintf(w, "    %s %s  [%s]\n", it.Emoji, it.Name, it.CategoryName)
	}
}

func printDraft(w io.Writer, d model.SetDraft) {
	fmt.Fprintf(w, "%s %s\n", d.Emoji, d.Name)
	for _, it := range d.Items {
		mark := "+"
		if !it.Included {
			mark = "-"
		}
		fmt.Fprintf(w, "  %s %s  [%s]\n", mark, it.Name, it.CategoryName)
	}
}

func printFamily(w io.Writer, f model.Family) {
	fmt.Fprintf(w, "Family %s  invite code: %s\n", f.ID, f.InviteCode)
	for _, m := range f.Members {
		role := ""
		if m.IsOwner {
			role = " (owner)"
		}
		fmt.Fprintf(w, "  %s <%s>%s  id=%s\n", m.Name, m.Email, role, m.UserID)
	}
}

// confirm asks a yes/no question on in. Anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
