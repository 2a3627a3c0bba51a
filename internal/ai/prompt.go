package ai

import (
	"fmt"
	"strings"

	"github.com/dukerupert/basket/internal/model"
)

const categorizeSystem = `You sort grocery products into store categories.
Reply with JSON only: {"category_name": string, "emoji": string, "is_new": boolean}.
Prefer one of the existing categories. Only invent a new category when none fits,
and then pick a short name and a single emoji for it.`

const parseSystem = `You turn a spoken or typed shopping list into items.
Reply with JSON only: {"items": [{"name": string, "category_name": string, "emoji": string}], "dish_name": string}.
Use singular product names without quantities. Prefer the existing categories.
If the text describes ingredients for one dish, set dish_name to that dish; otherwise leave it empty.`

const generateSystem = `You propose the shopping list for a named set, such as a recipe or an occasion.
Reply with JSON only: {"set_emoji": string, "items": [{"name": string, "category_name": string, "emoji": string}]}.
List between 3 and 20 products. Prefer the existing categories.`

const analyzeSystem = `You look at a household's purchase history and find products that are usually bought together.
Reply with JSON only: {"bundles": [{"name": string, "emoji": string, "items": [{"name": string, "category_name": string, "emoji": string}]}]}.
Suggest at most 5 bundles of 2 or more products each. Use the product names as they appear in the history.`

func knownList(known []model.Category) string {
	if len(known) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, c := range known {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", c.Emoji, c.Name)
	}
	return b.String()
}

func categorizePrompt(name string, known []model.Category) string {
	return fmt.Sprintf("Existing categories: %s\nProduct: %s", knownList(known), name)
}

func parsePrompt(text string, known []model.Category) string {
	return fmt.Sprintf("Existing categories: %s\nText:\n%s", knownList(known), text)
}

func generatePrompt(setName string, known []model.Category) string {
	return fmt.Sprintf("Existing categories: %s\nSet: %s", knownList(known), setName)
}

func analyzePrompt(logs []model.PurchaseLog, known []model.Category) string {
	names := make(map[string]string, len(known))
	for _, c := range known {
		names[c.ID] = c.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Existing categories: %s\nHistory:\n", knownList(known))
	for _, log := range logs {
		if len(log.Items) == 0 {
			continue
		}
		b.WriteString(log.Date.Format("2006-01-02"))
		b.WriteString(":")
		for i, it := range log.Items {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(" ")
			b.WriteString(it.Name)
			if n, ok := names[it.CategoryID]; ok {
				fmt.Fprintf(&b, " (%s)", n)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
