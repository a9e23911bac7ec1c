package models

import (
	"errors"
	"fmt"
)

const (
	ActionClick        = "click"
	ActionSelect       = "select"
	ActionWait         = "wait"
	ActionSelectOption = "selectOption"
)

// ScraperAction is one step the scraping backend replays on a product page.
type ScraperAction struct {
	ID         string `json:"id"`
	Selector   string `json:"selector"`
	XPath      string `json:"xpath"`
	Type       string `json:"type"`
	OptionText string `json:"optionText,omitempty"`
	Duration   int    `json:"duration,omitempty"`
}

func (a ScraperAction) Validate() error {
	switch a.Type {
	case ActionClick, ActionSelect:
		if a.XPath == "" {
			return fmt.Errorf("%s action needs an xpath", a.Type)
		}
	case ActionSelectOption:
		if a.XPath == "" {
			return errors.New("selectOption action needs an xpath")
		}
		if a.OptionText == "" {
			return errors.New("selectOption action needs optionText")
		}
	case ActionWait:
		if a.Duration <= 0 {
			return errors.New("wait action needs a positive duration")
		}
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}
