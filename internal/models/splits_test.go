package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestExtractSplitEvents_SkipsNonEvents(t *testing.T) {
	rows := []PriceRow{
		{Date: day("2024-01-02"), SplitFactor: 0},
		{Date: day("2024-01-03"), SplitFactor: 1},
		{Date: day("2024-01-04"), SplitFactor: 8},
	}

	events := ExtractSplitEvents(rows, 0)
	require.Len(t, events, 1)
	assert.Equal(t, 8.0, events[0].Factor)
	assert.Equal(t, day("2024-01-04"), events[0].Date)
}

func TestExtractSplitEvents_NearDuplicateSuppression(t *testing.T) {
	rows := []PriceRow{
		{Date: day("2024-01-02"), SplitFactor: 2},
		{Date: day("2024-01-05"), SplitFactor: 2},  // within window, suppressed
		{Date: day("2024-03-01"), SplitFactor: 2},  // beyond window, kept
		{Date: day("2024-01-10"), SplitFactor: 10}, // different factor, kept
	}

	events := ExtractSplitEvents(rows, 14)
	require.Len(t, events, 3)
	assert.Equal(t, day("2024-01-02"), events[0].Date)
	assert.Equal(t, 10.0, events[1].Factor)
	assert.Equal(t, day("2024-03-01"), events[2].Date)
}

func TestExtractSplitEvents_SortedByDate(t *testing.T) {
	rows := []PriceRow{
		{Date: day("2024-06-01"), SplitFactor: 4},
		{Date: day("2024-01-01"), SplitFactor: 2},
	}

	events := ExtractSplitEvents(rows, 14)
	require.Len(t, events, 2)
	assert.True(t, events[0].Date.Before(events[1].Date))
}

func TestNormalizeRows_DedupesAndSorts(t *testing.T) {
	rows := []PriceRow{
		{Date: day("2024-01-03"), Close: 10},
		{Date: day("2024-01-02"), Close: 9},
		{Date: day("2024-01-03"), Close: 11}, // same date, last wins
	}

	out := NormalizeRows(rows)
	require.Len(t, out, 2)
	assert.Equal(t, day("2024-01-02"), out[0].Date)
	assert.Equal(t, 11.0, out[1].Close)
}
