package domain

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestAggregateDays(t *testing.T) {
	t.Run("totals per date in input order", func(t *testing.T) {
		readings := []Reading{
			wet(day(2024, 1, 1, 8, 0), "1.5"),
			dry(day(2024, 1, 1, 8, 30)),
			wet(day(2024, 1, 1, 9, 0), "2.5"),
			dry(day(2024, 1, 1, 23, 0)),
			wet(day(2024, 1, 2, 6, 0), "3.0"),
		}

		out := AggregateDays(readings)
		require.Len(t, out, 3)

		assert.Equal(t, day(2024, 1, 1, 0, 0), out[0].Date)
		assert.Equal(t, day(2024, 1, 1, 0, 0), out[1].Date)
		assert.Equal(t, day(2024, 1, 2, 0, 0), out[2].Date)

		assert.True(t, dec("4.0").Equal(out[0].DayTotal), "got %s", out[0].DayTotal)
		assert.True(t, dec("4.0").Equal(out[1].DayTotal), "got %s", out[1].DayTotal)
		assert.True(t, dec("3.0").Equal(out[2].DayTotal), "got %s", out[2].DayTotal)

		assert.Equal(t, day(2024, 1, 1, 8, 0), out[0].Time)
		assert.Equal(t, day(2024, 1, 1, 9, 0), out[1].Time)
		assert.True(t, dec("2.5").Equal(out[1].Amount30))
	})

	t.Run("all dry", func(t *testing.T) {
		out := AggregateDays([]Reading{dry(at(0, 0)), dry(at(1, 0))})
		assert.Empty(t, out)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, AggregateDays(nil))
	})

	t.Run("I15 alone is not rain", func(t *testing.T) {
		r := dry(at(0, 0))
		r.Amount15 = dec("0.4")
		assert.Empty(t, AggregateDays([]Reading{r}))
	})

	t.Run("date follows reading location", func(t *testing.T) {
		cst := time.FixedZone("CST", 8*3600)
		readings := []Reading{
			wet(time.Date(2024, 7, 1, 23, 30, 0, 0, cst), "1.0"),
			wet(time.Date(2024, 7, 2, 0, 30, 0, 0, cst), "2.0"),
		}

		out := AggregateDays(readings)
		require.Len(t, out, 2)
		assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, cst), out[0].Date)
		assert.Equal(t, time.Date(2024, 7, 2, 0, 0, 0, 0, cst), out[1].Date)
		assert.True(t, dec("1.0").Equal(out[0].DayTotal))
		assert.True(t, dec("2.0").Equal(out[1].DayTotal))
	})
}

func TestAggregateDays_Consistency(t *testing.T) {
	readings := randomSeries(rand.New(rand.NewPCG(3, 5)), 5000)
	out := AggregateDays(readings)

	sums := map[time.Time]string{}
	for _, row := range out {
		sums[row.Date] = ""
	}
	for date := range sums {
		total := dec("0")
		var carried []string
		for _, row := range out {
			if row.Date.Equal(date) {
				total = total.Add(row.Amount30)
				carried = append(carried, row.DayTotal.String())
			}
		}
		for _, c := range carried {
			assert.Equal(t, total.String(), c, "day total for %s", date.Format(DateLayout))
		}
	}

	for i := 1; i < len(out); i++ {
		assert.False(t, out[i].Date.Before(out[i-1].Date), "dates out of first-seen order at row %d", i)
	}
}

func TestProcess(t *testing.T) {
	t.Run("both outputs from the same input", func(t *testing.T) {
		readings := []Reading{
			wet(day(2024, 1, 1, 8, 0), "2.0"),
			dry(day(2024, 1, 1, 8, 30)),
			wet(day(2024, 1, 1, 15, 0), "1.0"),
		}

		result, err := Process(readings, DefaultRules())
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, eventNumbers(result.Events))
		require.Len(t, result.Days, 2)
		assert.True(t, dec("3.0").Equal(result.Days[0].DayTotal))
	})

	t.Run("out of order fails fast", func(t *testing.T) {
		readings := []Reading{wet(at(2, 0), "1"), wet(at(1, 0), "1")}
		_, err := Process(readings, DefaultRules())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrOutOfOrder))
	})

	t.Run("deterministic", func(t *testing.T) {
		readings := randomSeries(rand.New(rand.NewPCG(1, 2)), 500)
		first, err := Process(readings, DefaultRules())
		require.NoError(t, err)
		second, err := Process(readings, DefaultRules())
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestReport_Counts(t *testing.T) {
	result, err := Process([]Reading{
		wet(at(0, 0), "0.5"),
		wet(at(0, 30), "0.5"),
		dry(at(1, 0)),
		wet(at(8, 0), "0.5"),
	}, DefaultRules())
	require.NoError(t, err)

	report := NewReport("54511", result, 2)
	assert.Equal(t, "54511", report.StationID)
	assert.Equal(t, 2, report.EventCount())
	assert.Equal(t, 6, report.RowCount())
	assert.Equal(t, 2, report.Skipped)
}
