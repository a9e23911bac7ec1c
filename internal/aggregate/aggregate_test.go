package aggregate

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/priceboard-backend/internal/models"
)

var t0 = time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)

func history(start time.Time, values ...float64) []models.PricePoint {
	out := make([]models.PricePoint, len(values))
	for i, v := range values {
		out[i] = models.PricePoint{Value: v, Timestamp: start.AddDate(0, 0, i)}
	}
	return out
}

// ---------- CategoryLabels ----------

func TestCategoryLabels_TypeAndSubtypes(t *testing.T) {
	got := CategoryLabels("creatine", []string{"monohydrate", "hcl"}, LabelOptions{})
	assert.ElementsMatch(t, []string{
		"creatine", "monohydrate", "hcl", "creatine_monohydrate", "creatine_hcl",
	}, got)
}

func TestCategoryLabels_NoSubtypes(t *testing.T) {
	assert.Equal(t, []string{"vitamins"}, CategoryLabels("vitamins", nil, LabelOptions{}))
}

func TestCategoryLabels_Dedup(t *testing.T) {
	got := CategoryLabels("proteine", []string{"whey_isolate", "whey_isolate", ""}, LabelOptions{})
	assert.Equal(t, []string{"proteine", "whey_isolate", "proteine_whey_isolate"}, got)
}

func TestCategoryLabels_SubtypePairs(t *testing.T) {
	got := CategoryLabels("creatine", []string{"monohydrate", "hcl"}, LabelOptions{SubtypePairs: true})
	assert.Len(t, got, 6)
	assert.Contains(t, got, "monohydrate_hcl")
}

// ---------- Process ----------

func TestProcess_SameDayAverage(t *testing.T) {
	products := []models.Product{
		{ID: "a", Type: "creatine", PriceHistory: []models.PricePoint{{Value: 10, Timestamp: t0}}},
		{ID: "b", Type: "creatine", PriceHistory: []models.PricePoint{{Value: 12, Timestamp: t0.Add(3 * time.Hour)}}},
	}
	s := Process(products, DefaultOptions())

	require.Contains(t, s, "creatine")
	require.Len(t, s["creatine"], 1)
	assert.Equal(t, models.DailyAggregatePoint{Date: "2024-05-10", AveragePrice: 11, SampleCount: 2}, s["creatine"][0])
}

func TestProcess_SortedUniqueDates(t *testing.T) {
	products := []models.Product{
		{ID: "a", Type: "proteine", Subtypes: []string{"whey_isolate"},
			PriceHistory: []models.PricePoint{
				{Value: 30, Timestamp: t0.AddDate(0, 0, 2)},
				{Value: 29, Timestamp: t0},
				{Value: 31, Timestamp: t0.AddDate(0, 0, 1)},
			}},
		{ID: "b", Type: "proteine", PriceHistory: history(t0.AddDate(0, 0, 1), 40, 41, 40)},
	}
	s := Process(products, DefaultOptions())

	assert.ElementsMatch(t, []string{"proteine", "whey_isolate", "proteine_whey_isolate"}, s.Categories())
	for category, points := range s {
		for i := 1; i < len(points); i++ {
			assert.Less(t, points[i-1].Date, points[i].Date, "category %s not strictly ascending", category)
		}
	}

	protein := s["proteine"]
	require.Len(t, protein, 4)
	assert.Equal(t, "2024-05-10", protein[0].Date)
	assert.Equal(t, 29.0, protein[0].AveragePrice)
	assert.Equal(t, (31.0+40.0)/2, protein[1].AveragePrice)
	assert.Equal(t, 2, protein[1].SampleCount)
	assert.Equal(t, "2024-05-13", protein[3].Date)

	assert.Len(t, s["whey_isolate"], 3)
}

func TestProcess_AppliesAnomalyFilter(t *testing.T) {
	products := []models.Product{
		{ID: "a", Type: "creatine", PriceHistory: history(t0, 10, 10, 10, 10, 1000)},
	}
	s := Process(products, DefaultOptions())
	require.Len(t, s["creatine"], 4)
	for _, p := range s["creatine"] {
		assert.Equal(t, 10.0, p.AveragePrice)
	}
}

func TestProcess_OmitsEmptyCategories(t *testing.T) {
	products := []models.Product{
		{ID: "a", Type: "vitamins", Subtypes: []string{"vitamin_d"}, PriceHistory: history(t0, 0, -1, 0)},
		{ID: "b", Type: "other"},
	}
	s := Process(products, DefaultOptions())
	assert.Empty(t, s)
}

func TestProcess_DayInLocation(t *testing.T) {
	late := time.Date(2024, 5, 10, 23, 30, 0, 0, time.UTC)
	products := []models.Product{
		{ID: "a", Type: "creatine", PriceHistory: []models.PricePoint{{Value: 10, Timestamp: late}}},
	}

	assert.Equal(t, "2024-05-10", Process(products, DefaultOptions())["creatine"][0].Date)

	ams, err := time.LoadLocation("Europe/Amsterdam")
	require.NoError(t, err)
	opts := DefaultOptions()
	opts.Location = ams
	assert.Equal(t, "2024-05-11", Process(products, opts)["creatine"][0].Date)
}

func TestProcess_ZeroFilterUsesDefault(t *testing.T) {
	products := []models.Product{
		{ID: "a", Type: "creatine", PriceHistory: history(t0, 10, 10, 10, 10, 1000)},
	}
	assert.Equal(t, Process(products, DefaultOptions()), Process(products, Options{}))
}

func TestProcess_Empty(t *testing.T) {
	s := Process(nil, DefaultOptions())
	assert.NotNil(t, s)
	assert.Empty(t, s)
}

// ---------- Summarize ----------

func TestSummarize(t *testing.T) {
	s := Series{
		"creatine": {
			{Date: "2024-05-10", AveragePrice: 10, SampleCount: 1},
			{Date: "2024-05-11", AveragePrice: 14, SampleCount: 2},
		},
		"proteine": {
			{Date: "2024-05-10", AveragePrice: 30, SampleCount: 1},
			{Date: "2024-05-11", AveragePrice: 32, SampleCount: 1},
			{Date: "2024-05-12", AveragePrice: 31, SampleCount: 1},
		},
	}
	sum := Summarize(s)

	assert.Equal(t, 2, sum.TotalCategories)
	assert.Equal(t, 5, sum.TotalDataPoints)
	assert.Equal(t, 3, sum.AvgDataPointsPerCategory) // 2.5 rounds up
	require.Len(t, sum.Categories, 2)
	assert.Equal(t, "proteine", sum.Categories[0].Category)
	assert.Equal(t, 30.0, sum.Categories[0].MinPrice)
	assert.Equal(t, 32.0, sum.Categories[0].MaxPrice)
	assert.Equal(t, 2.0, sum.Categories[0].PriceRange)
	assert.Equal(t, 12.0, sum.Categories[1].AvgPrice)
}

func TestSummarize_Empty(t *testing.T) {
	sum := Summarize(Series{})
	assert.Equal(t, 0, sum.TotalCategories)
	assert.Equal(t, 0, sum.AvgDataPointsPerCategory)
	assert.Empty(t, sum.Categories)
}

// ---------- Query ----------

func TestApply(t *testing.T) {
	s := Series{
		"creatine": {
			{Date: "2024-05-10", AveragePrice: 10, SampleCount: 1},
			{Date: "2024-05-11", AveragePrice: 11, SampleCount: 1},
			{Date: "2024-05-12", AveragePrice: 12, SampleCount: 1},
		},
		"creatine_hcl": {{Date: "2024-05-10", AveragePrice: 20, SampleCount: 1}},
		"proteine":     {{Date: "2024-05-12", AveragePrice: 30, SampleCount: 1}},
	}

	assert.Equal(t, s, Apply(s, Query{}))

	got := Apply(s, Query{Search: "CREAT"})
	assert.ElementsMatch(t, []string{"creatine", "creatine_hcl"}, got.Categories())

	got = Apply(s, Query{Category: "creatine", From: "2024-05-11", To: "2024-05-11"})
	require.Len(t, got["creatine"], 1)
	assert.Equal(t, 11.0, got["creatine"][0].AveragePrice)

	got = Apply(s, Query{From: "2024-05-11"})
	assert.ElementsMatch(t, []string{"creatine", "proteine"}, got.Categories())
	assert.Len(t, s["creatine"], 3, "input must not be modified")
}
