package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHistory(t *testing.T, items map[string]int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("itemcode,year,month,stockonhand\n")
	for item, n := range items {
		for i := 0; i < n; i++ {
			fmt.Fprintf(&b, "%s,%d,%d,%d\n", item, 2021+i/12, i%12+1, 100+2*i)
		}
	}
	path := filepath.Join(t.TempDir(), "history.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func TestRunForecastJSON(t *testing.T) {
	path := writeHistory(t, map[string]int{"ASPIRIN": 36, "GAUZE": 4})

	var out, errOut bytes.Buffer
	err := runForecast(context.Background(), &out, &errOut, forecastFlags{
		file: path, item: "aspirin", months: 4, workers: 2, asJSON: true,
	})
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	assert.Equal(t, "aspirin", body["item_code"])
	assert.EqualValues(t, 36, body["rows_used"])
	preds, ok := body["predictions"].([]any)
	require.True(t, ok)
	assert.Len(t, preds, 4)
	assert.Equal(t, "2024-01-01", preds[0].(map[string]any)["date"])
	assert.Empty(t, errOut.String())
}

func TestRunForecastTable(t *testing.T) {
	path := writeHistory(t, map[string]int{"ASPIRIN": 36})

	var out bytes.Buffer
	err := runForecast(context.Background(), &out, &bytes.Buffer{}, forecastFlags{
		file: path, item: "ASPIRIN", months: 2, workers: 1,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Item:     ASPIRIN (36 rows)")
	assert.Contains(t, out.String(), "2024-01-01")
	assert.Contains(t, out.String(), "2024-02-01")
}

func TestRunForecastNotEnoughData(t *testing.T) {
	path := writeHistory(t, map[string]int{"GAUZE": 4})

	err := runForecast(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, forecastFlags{
		file: path, item: "GAUZE", months: 3, workers: 1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need at least 6 months, found 4")
}

func TestRunForecastMissingFile(t *testing.T) {
	err := runForecast(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, forecastFlags{
		file: filepath.Join(t.TempDir(), "absent.csv"), months: 3, workers: 1,
	})
	require.Error(t, err)
}
