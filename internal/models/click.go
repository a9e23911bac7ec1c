package models

import "time"

// Click is one outbound click on a product card. Top10 marks clicks coming
// from the top-10 widget, RogierChoice those from the curated favorites list.
type Click struct {
	ID           int64     `json:"id"`
	ProductID    string    `json:"productId"`
	Timestamp    time.Time `json:"date"`
	RogierChoice bool      `json:"rogier_choice"`
	Top10        bool      `json:"top10"`
}
