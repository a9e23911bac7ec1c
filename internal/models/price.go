package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// PricePoint is one scraped price observation for one product.
type PricePoint struct {
	Value     float64
	Timestamp time.Time
}

// firestoreTime is the seconds/nanoseconds pair the scraping backend writes.
type firestoreTime struct {
	Seconds     int64 `json:"seconds"`
	Nanoseconds int64 `json:"nanoseconds"`
}

type pricePointJSON struct {
	ScrapedData float64         `json:"scrapedData"`
	Date        json.RawMessage `json:"date"`
}

func (p PricePoint) MarshalJSON() ([]byte, error) {
	ts := p.Timestamp.UTC()
	date, err := json.Marshal(firestoreTime{Seconds: ts.Unix(), Nanoseconds: int64(ts.Nanosecond())})
	if err != nil {
		return nil, err
	}
	return json.Marshal(pricePointJSON{ScrapedData: p.Value, Date: date})
}

// UnmarshalJSON accepts the date either as {seconds, nanoseconds} or as an
// RFC 3339 string (older history entries).
func (p *PricePoint) UnmarshalJSON(b []byte) error {
	var raw pricePointJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.Value = raw.ScrapedData

	if len(raw.Date) == 0 || string(raw.Date) == "null" {
		p.Timestamp = time.Time{}
		return nil
	}

	if raw.Date[0] == '"' {
		var s string
		if err := json.Unmarshal(raw.Date, &s); err != nil {
			return err
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("price point date %q: %w", s, err)
		}
		p.Timestamp = ts.UTC()
		return nil
	}

	var ft firestoreTime
	if err := json.Unmarshal(raw.Date, &ft); err != nil {
		return fmt.Errorf("price point date: %w", err)
	}
	p.Timestamp = time.Unix(ft.Seconds, ft.Nanoseconds).UTC()
	return nil
}

// DailyAggregatePoint is the average price of one category on one calendar day.
type DailyAggregatePoint struct {
	Date         string  `json:"date"`
	AveragePrice float64 `json:"averagePrice"`
	SampleCount  int     `json:"dataPoints"`
}
