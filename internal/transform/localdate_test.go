package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedParser(t *testing.T, lang string) *DateParser {
	t.Helper()
	dp, err := NewDateParser(lang)
	require.NoError(t, err)
	dp.now = func() time.Time { return time.Date(2024, 10, 20, 12, 0, 0, 0, time.UTC) }
	return dp
}

func TestDateParserRU(t *testing.T) {
	dp := fixedParser(t, "ru")

	tests := []struct {
		input    string
		expected time.Time
	}{
		{"18 октября 2024", time.Date(2024, 10, 18, 0, 0, 0, 0, time.UTC)},
		{"Пт, 18 октября", time.Date(2024, 10, 18, 0, 0, 0, 0, time.UTC)},
		{"18.10.2024, 14:30", time.Date(2024, 10, 18, 14, 30, 0, 0, time.UTC)},
		{"05.03", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"Сегодня, 09:15", time.Date(2024, 10, 20, 9, 15, 0, 0, time.UTC)},
		{"вчера", time.Date(2024, 10, 19, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := dp.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDateParserKY(t *testing.T) {
	dp := fixedParser(t, "ky")

	got, err := dp.Parse("18 октябрь 2024")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 10, 18, 0, 0, 0, 0, time.UTC), got)

	got, err = dp.Parse("бүгүн 08:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 10, 20, 8, 0, 0, 0, time.UTC), got)

	_, err = dp.Parse("18 октября 2024")
	assert.Error(t, err, "russian month names are not kyrgyz")
}

func TestDateParserErrors(t *testing.T) {
	dp := fixedParser(t, "ru")

	for _, input := range []string{"", "31.02.2024", "18 brumaire 2024", "no date here", "18.10.2024 25:00"} {
		_, err := dp.Parse(input)
		assert.Error(t, err, input)
	}

	_, err := NewDateParser("en")
	assert.Error(t, err)

	_, err = LocalDate("de")
	assert.Error(t, err)
}
