package timeseries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// CSVOptions holds options for loading monthly stock history.
//
// A row is dated either by separate year and month columns (the
// monthly-summary export layout) or by a single date column.
type CSVOptions struct {
	YearColumn  string // Column name for the year (default: "year")
	MonthColumn string // Column name for the month number (default: "month")
	DateColumn  string // Column name for a full date, used when year/month are absent
	ValueColumn string // Column name for values (default: "stockonhand")
	ItemColumn  string // Column name for the item code (optional, for filtering)
	ItemFilter  string // Case-insensitive item code to keep
	DateFormat  string // Date format (default: "2006-01-02")
	Delimiter   rune   // Field delimiter (default: ',')
}

// DefaultCSVOptions returns default options for CSV loading.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		YearColumn:  "year",
		MonthColumn: "month",
		DateColumn:  "date",
		ValueColumn: "stockonhand",
		ItemColumn:  "itemcode",
		DateFormat:  "2006-01-02",
		Delimiter:   ',',
	}
}

// LoadCSV loads observations from a CSV file.
func LoadCSV(filename string, opts *CSVOptions) ([]Observation, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadCSVFromReader(file, opts)
}

type csvColumns struct {
	year, month, date, value, item int
}

func findColumns(header []string, opts *CSVOptions) (csvColumns, error) {
	cols := csvColumns{-1, -1, -1, -1, -1}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.Trim(h, "\"")))
		switch h {
		case strings.ToLower(opts.YearColumn):
			cols.year = i
		case strings.ToLower(opts.MonthColumn):
			cols.month = i
		case strings.ToLower(opts.DateColumn), "ds":
			if cols.date == -1 {
				cols.date = i
			}
		case strings.ToLower(opts.ValueColumn), "value", "y":
			if cols.value == -1 {
				cols.value = i
			}
		case strings.ToLower(opts.ItemColumn):
			cols.item = i
		}
	}

	if cols.value == -1 {
		return cols, fmt.Errorf("value column %q not found", opts.ValueColumn)
	}
	if (cols.year == -1 || cols.month == -1) && cols.date == -1 {
		return cols, errors.New("CSV needs either year and month columns or a date column")
	}
	return cols, nil
}

// LoadCSVFromReader loads observations from an io.Reader. The input must have
// a header row. Rows with an empty or unparseable value are skipped.
func LoadCSVFromReader(r io.Reader, opts *CSVOptions) ([]Observation, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}

	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := findColumns(header, opts)
	if err != nil {
		return nil, err
	}

	var obs []Observation
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if opts.ItemFilter != "" && cols.item >= 0 && cols.item < len(record) {
			item := strings.TrimSpace(strings.Trim(record[cols.item], "\""))
			if !strings.EqualFold(item, strings.TrimSpace(opts.ItemFilter)) {
				continue
			}
		}

		val, ok := parseField(record, cols.value)
		if !ok {
			continue
		}

		date, ok := rowDate(record, cols, opts.DateFormat)
		if !ok {
			continue
		}
		obs = append(obs, Observation{Date: date, Value: val})
	}

	if len(obs) == 0 {
		return nil, errors.New("no valid data found in CSV")
	}
	return obs, nil
}

func parseField(record []string, idx int) (float64, bool) {
	if idx < 0 || idx >= len(record) {
		return 0, false
	}
	s := strings.TrimSpace(strings.Trim(record[idx], "\""))
	if s == "" || s == "NA" || s == "NaN" || s == "null" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func rowDate(record []string, cols csvColumns, layout string) (time.Time, bool) {
	if cols.year >= 0 && cols.month >= 0 {
		y, okY := parseField(record, cols.year)
		m, okM := parseField(record, cols.month)
		if okY && okM && m >= 1 && m <= 12 {
			return time.Date(int(y), time.Month(int(m)), 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	if cols.date < 0 || cols.date >= len(record) {
		return time.Time{}, false
	}
	s := strings.TrimSpace(strings.Trim(record[cols.date], "\""))
	formats := []string{
		layout,
		"2006-01-02",
		"2006-01-02T15:04:05",
		"2006-01",
		"2006/01/02",
		"01/02/2006",
	}
	for _, f := range formats {
		if f == "" {
			continue
		}
		if ts, err := time.Parse(f, s); err == nil {
			return MonthStart(ts), true
		}
	}
	return time.Time{}, false
}
