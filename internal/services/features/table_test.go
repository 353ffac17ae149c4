package features

import (
	"math"
	"testing"

	"PriceLens/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, models.ColAdjClose, NormalizeHeader(" Adj Close "))
	assert.Equal(t, models.ColAdjClose, NormalizeHeader("adj_close"))
	assert.Equal(t, models.ColDate, NormalizeHeader("\ufeffDate"))
	assert.Equal(t, models.ColVolume, NormalizeHeader("VOLUME"))
	assert.Equal(t, "Sector", NormalizeHeader(" Sector"))
}

func TestBuildTable(t *testing.T) {
	raw := &models.RawPrices{
		Header: []string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume", "Sector"},
		Rows: [][]string{
			{"2024-01-01", "10", "11", "9", "10.5", "10.4", "1,234", "tech"},
			{"not a date", "10", "11", "9", "10.5", "10.4", "99", "tech"},
			{"2024-01-02", "10.5", "12", "10", "", "11.4", "", "tech"},
			{"01/03/2024", "11", "12", "10", "11.5", "11.4", "5,678", ""},
		},
	}

	table, stats, err := BuildTable(raw, "csv")
	require.NoError(t, err)
	require.Len(t, table.Records, 3)
	assert.Equal(t, 1, stats.SkippedRows)
	assert.Equal(t, 1, table.SkippedRows)
	assert.Equal(t, 1, table.ImputedVolumes)
	assert.Equal(t, []float64{1234, 3456, 5678},
		[]float64{table.Records[0].Volume, table.Records[1].Volume, table.Records[2].Volume})

	r0 := table.Records[0]
	assert.Equal(t, 2024, r0.Year)
	assert.Equal(t, 1, r0.Month)
	assert.Equal(t, 1, r0.Day)
	assert.Equal(t, 0, r0.DayOfWeek) // Monday
	assert.Equal(t, 10.4, r0.AdjClose)
	assert.Equal(t, "tech", r0.Extra["Sector"])
	assert.True(t, math.IsNaN(table.Records[1].Close))
	assert.Equal(t, 3, table.Records[2].Day)

	assert.True(t, table.HasColumn(models.ColAdjClose))
	assert.True(t, table.HasColumn(models.ColDayOfWeek))
	assert.False(t, table.HasColumn("Dividends"))
}

func TestBuildTable_Errors(t *testing.T) {
	_, _, err := BuildTable(&models.RawPrices{}, "csv")
	assert.ErrorIs(t, err, models.ErrDataNotFound)

	_, _, err = BuildTable(&models.RawPrices{Header: []string{"Open", "Close"}}, "csv")
	assert.Error(t, err)

	_, _, err = BuildTable(&models.RawPrices{Header: []string{"Date", "Close", "close"}}, "csv")
	assert.Error(t, err)
}
