// Package actions edits a product's ordered list of scraper actions.
// Every operation returns a new slice and leaves its input untouched.
package actions

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/kjannette/priceboard-backend/internal/models"
)

var ErrIndex = errors.New("action index out of range")

// New returns a fresh action of the given type with a random id.
func New(kind string) models.ScraperAction {
	if kind == "" {
		kind = models.ActionClick
	}
	return models.ScraperAction{
		ID:       uuid.NewString(),
		Selector: "xpath",
		Type:     kind,
	}
}

// Default is the single click action new products start with.
func Default() []models.ScraperAction {
	return []models.ScraperAction{New(models.ActionClick)}
}

func Add(list []models.ScraperAction, a models.ScraperAction) []models.ScraperAction {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	out := make([]models.ScraperAction, 0, len(list)+1)
	out = append(out, list...)
	return append(out, a)
}

func Remove(list []models.ScraperAction, i int) ([]models.ScraperAction, error) {
	if i < 0 || i >= len(list) {
		return nil, fmt.Errorf("remove %d of %d: %w", i, len(list), ErrIndex)
	}
	out := make([]models.ScraperAction, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...), nil
}

// Update sets one field of action i. field uses the JSON names the editor
// sends (selector, xpath, type, optionText, duration).
func Update(list []models.ScraperAction, i int, field, value string) ([]models.ScraperAction, error) {
	if i < 0 || i >= len(list) {
		return nil, fmt.Errorf("update %d of %d: %w", i, len(list), ErrIndex)
	}
	out := append([]models.ScraperAction(nil), list...)
	a := &out[i]
	switch field {
	case "selector":
		a.Selector = value
	case "xpath":
		a.XPath = value
	case "type":
		a.Type = value
	case "optionText":
		a.OptionText = value
	case "duration":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("duration %q: %w", value, err)
		}
		a.Duration = n
	default:
		return nil, fmt.Errorf("unknown action field %q", field)
	}
	return out, nil
}

// Move takes the action at from and reinserts it at to, shifting the
// actions in between.
func Move(list []models.ScraperAction, from, to int) ([]models.ScraperAction, error) {
	if from < 0 || from >= len(list) || to < 0 || to >= len(list) {
		return nil, fmt.Errorf("move %d -> %d of %d: %w", from, to, len(list), ErrIndex)
	}
	out := append([]models.ScraperAction(nil), list...)
	a := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = a
	return out, nil
}

// Validate checks every action and reports the first broken one by index.
func Validate(list []models.ScraperAction) error {
	if len(list) == 0 {
		return errors.New("at least one scraper action is required")
	}
	for i, a := range list {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}
