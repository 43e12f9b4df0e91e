package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/internal/technical"
)

func TestWriteMACDFile(t *testing.T) {
	var bars []contracts.Bar
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 40 {
		price := 10 + float64(i%7)
		bars = append(bars, contracts.Bar{Date: day.AddDate(0, 0, i), Open: price, High: price + 1, Low: price - 1, Close: price, Volume: int64(1000 + i)})
	}
	points := technical.ComputeMACD(bars)

	path := filepath.Join(t.TempDir(), "nested", "600519_macd.parquet")
	require.NoError(t, WriteMACDFile(path, points))

	got, err := ReadMACDFile(path)
	require.NoError(t, err)
	require.Len(t, got, len(points))
	for i := range points {
		assert.True(t, points[i].Date.Equal(got[i].Date), "row %d date", i)
		assert.InDelta(t, points[i].DIF, got[i].DIF, 1e-12)
		assert.InDelta(t, points[i].MACD, got[i].MACD, 1e-12)
		assert.Equal(t, points[i].Volume, got[i].Volume)
	}
}

func TestWriteMACDFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteMACDFile(path, nil))

	got, err := ReadMACDFile(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}
