// Package ai suggests categories, parses dictated text and proposes sets.
// Callers only see success or a terminal error; retries and model fallback
// happen inside the gateway.
package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/dukerupert/basket/internal/model"
)

var (
	// ErrNotConfigured means no provider credential is available.
	ErrNotConfigured = errors.New("ai: no API key configured")
	// ErrUnsupported means the gateway cannot serve this kind of request.
	ErrUnsupported = errors.New("ai: not supported by this gateway")
)

// Suggestion is a category proposed for one product. IsNew is set when the
// name matches none of the known categories.
type Suggestion struct {
	CategoryName string `json:"category_name"`
	Emoji        string `json:"emoji"`
	IsNew        bool   `json:"is_new"`
}

// Parsed is the result of reading free text such as a dictated list.
type Parsed struct {
	Items    []model.SetItem `json:"items"`
	DishName string          `json:"dish_name,omitempty"`
}

// GeneratedSet is a proposed item list for a named set.
type GeneratedSet struct {
	Emoji string          `json:"set_emoji"`
	Items []model.SetItem `json:"items"`
}

// Bundle is a group of products that tend to be bought together.
type Bundle struct {
	Name  string          `json:"name"`
	Emoji string          `json:"emoji"`
	Items []model.SetItem `json:"items"`
}

type Gateway interface {
	Categorize(ctx context.Context, productName string, known []model.Category) (Suggestion, error)
	ParseFreeText(ctx context.Context, text string, known []model.Category) (Parsed, error)
	GenerateSetItems(ctx context.Context, setName string, known []model.Category) (GeneratedSet, error)
	AnalyzeHistory(ctx context.Context, logs []model.PurchaseLog, known []model.Category) ([]Bundle, error)
}

// Failure is the user-facing class of an AI error.
type Failure int

const (
	FailureGeneric Failure = iota
	// FailureBusy covers rate limits and overloaded providers.
	FailureBusy
	// FailureUnavailable covers missing credentials and exhausted quota.
	FailureUnavailable
)

func (f Failure) Message() string {
	switch f {
	case FailureBusy:
		return "The assistant is busy right now. Try again in a moment."
	case FailureUnavailable:
		return "The assistant is not available. Check the API key and quota."
	}
	return "The assistant could not handle that request."
}

// Classify sorts err into one of the three failure kinds, looking at the
// status code when there is one and at the message otherwise.
func Classify(err error) Failure {
	if err == nil {
		return FailureGeneric
	}
	if errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrUnsupported) {
		return FailureUnavailable
	}

	var he *HTTPError
	if errors.As(err, &he) {
		switch he.StatusCode {
		case 429:
			if strings.Contains(strings.ToLower(he.Body), "quota") {
				return FailureUnavailable
			}
			return FailureBusy
		case 503, 529:
			return FailureBusy
		case 401, 402, 403:
			return FailureUnavailable
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"),
		strings.Contains(msg, "api key"),
		strings.Contains(msg, "api_key"),
		strings.Contains(msg, "credential"),
		strings.Contains(msg, "billing"):
		return FailureUnavailable
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "rate_limit"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "overloaded"),
		strings.Contains(msg, "resource_exhausted"):
		return FailureBusy
	}
	return FailureGeneric
}

// categoryNames lists the names of known, for prompts and matching.
func categoryNames(known []model.Category) []string {
	names := make([]string, 0, len(known))
	for _, c := range known {
		names = append(names, c.Name)
	}
	return names
}

func findCategory(known []model.Category, name string) (model.Category, bool) {
	name = strings.TrimSpace(name)
	for _, c := range known {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return model.Category{}, false
}
