package generic_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdf/welfare-engine/generic"
	"github.com/mcdf/welfare-engine/generic/store"
)

func TestAgeOn(t *testing.T) {
	birth := generic.NewDate(2008, time.June, 15)

	assert.Equal(t, 15, generic.AgeOn(birth, generic.NewDate(2024, time.June, 14)))
	assert.Equal(t, 16, generic.AgeOn(birth, generic.NewDate(2024, time.June, 15)))
	assert.Equal(t, 0, generic.AgeOn(birth, birth))
}

func TestDaysBetween_AcrossLeapDay(t *testing.T) {
	reg := generic.NewDate(2024, time.January, 1)
	assert.Equal(t, 60, generic.DaysBetween(reg, generic.NewDate(2024, time.March, 1)))
	assert.Equal(t, -1, generic.DaysBetween(reg, generic.NewDate(2023, time.December, 31)))
}

func TestAddMonths_ClampsToMonthEnd(t *testing.T) {
	cases := []struct {
		from time.Time
		n    int
		want time.Time
	}{
		{generic.NewDate(2024, time.July, 31), -5, generic.NewDate(2024, time.February, 29)},
		{generic.NewDate(2023, time.July, 31), -5, generic.NewDate(2023, time.February, 28)},
		{generic.NewDate(2024, time.January, 31), 1, generic.NewDate(2024, time.February, 29)},
		{generic.NewDate(2024, time.March, 31), 12, generic.NewDate(2025, time.March, 31)},
		{generic.NewDate(2024, time.May, 20), -13, generic.NewDate(2023, time.April, 20)},
	}
	for _, tc := range cases {
		t.Run(generic.FormatDate(tc.from), func(t *testing.T) {
			assert.Equal(t, tc.want, generic.AddMonths(tc.from, tc.n))
		})
	}
}

func TestFrequency_PeriodFor(t *testing.T) {
	wed := generic.NewDate(2024, time.February, 14) // Wednesday

	cases := []struct {
		freq       generic.Frequency
		start, end time.Time
	}{
		{generic.FrequencyDaily, wed, wed},
		{generic.FrequencyWeekly, generic.NewDate(2024, time.February, 12), generic.NewDate(2024, time.February, 18)},
		{generic.FrequencyMonthly, generic.NewDate(2024, time.February, 1), generic.NewDate(2024, time.February, 29)},
		{generic.FrequencyQuarterly, generic.NewDate(2024, time.January, 1), generic.NewDate(2024, time.March, 31)},
		{generic.FrequencyAnnual, generic.NewDate(2024, time.January, 1), generic.NewDate(2024, time.December, 31)},
	}
	for _, tc := range cases {
		p := tc.freq.PeriodFor(wed)
		assert.Equal(t, tc.start, p.Start, tc.freq)
		assert.Equal(t, tc.end, p.End, tc.freq)
		assert.True(t, p.Contains(wed), tc.freq)
	}

	next := generic.FrequencyQuarterly.NextPeriod(generic.FrequencyQuarterly.PeriodFor(wed))
	assert.Equal(t, generic.NewDate(2024, time.April, 1), next.Start)
	assert.Equal(t, generic.NewDate(2024, time.June, 30), next.End)
}

func TestPercent_SplitsExactly(t *testing.T) {
	billed := money(20000)
	covered := generic.Percent(billed, money(90))
	assert.True(t, covered.Equal(money(18000)))
	assert.True(t, billed.Sub(covered).Equal(money(2000)))
}

func TestNextMonthlyNumber_StrictlyIncreasing(t *testing.T) {
	seq := store.NewMemory()
	ctx := context.Background()
	feb := generic.NewDate(2024, time.February, 10)
	key := generic.MonthlyKey("RCP", feb)

	// Suffixes are fixed width, so string order is numeric order.
	var last string
	seen := make(map[string]bool)
	for i := 0; i < 25; i++ {
		n, err := generic.NextMonthlyNumber(ctx, seq, "RCP", feb)
		require.NoError(t, err)
		assert.False(t, seen[n], "duplicate %s", n)
		seen[n] = true

		require.True(t, strings.HasPrefix(n, key), n)
		assert.Len(t, n, len(key)+4)
		assert.Greater(t, n, last)
		last = n
	}
	assert.True(t, seen["RCP2024020001"])

	// A new month restarts at 1
	mar, err := generic.NextMonthlyNumber(ctx, seq, "RCP", generic.NewDate(2024, time.March, 1))
	require.NoError(t, err)
	assert.Equal(t, "RCP2024030001", mar)
}
