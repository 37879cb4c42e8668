package calculation

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// HistoricalDataPoint represents a single year's historical data
type HistoricalDataPoint struct {
	Year int             `json:"year"`
	Data decimal.Decimal `json:"data"`
}

// HistoricalDataSet represents a complete dataset with metadata
type HistoricalDataSet struct {
	Name       string                `json:"name"`
	Source     string                `json:"source"`
	DataPoints []HistoricalDataPoint `json:"data_points"`
	MinYear    int                   `json:"min_year"`
	MaxYear    int                   `json:"max_year"`
	Statistics HistoricalStatistics  `json:"statistics"`
}

// HistoricalStatistics provides statistical summary of the dataset
type HistoricalStatistics struct {
	Mean         decimal.Decimal `json:"mean"`
	Median       decimal.Decimal `json:"median"`
	StdDev       decimal.Decimal `json:"std_dev"`
	Min          decimal.Decimal `json:"min"`
	Max          decimal.Decimal `json:"max"`
	Count        int             `json:"count"`
	MissingYears []int           `json:"missing_years"`
}

// HistoricalDataManager holds the annual market returns used by the
// bootstrap return source.
type HistoricalDataManager struct {
	Returns  *HistoricalDataSet `json:"returns"`
	DataPath string             `json:"data_path"`
	IsLoaded bool               `json:"is_loaded"`
}

// NewHistoricalDataManager creates a manager for a "Year,Return" CSV file.
// Returns are fractions (0.07 for 7%); a trailing % marks a percentage.
func NewHistoricalDataManager(dataPath string) *HistoricalDataManager {
	return &HistoricalDataManager{DataPath: dataPath}
}

// LoadAllData loads the returns dataset
func (hdm *HistoricalDataManager) LoadAllData() error {
	if hdm.IsLoaded {
		return nil
	}
	name := strings.TrimSuffix(filepath.Base(hdm.DataPath), filepath.Ext(hdm.DataPath))
	dataset, err := hdm.loadCSVData(hdm.DataPath, name, hdm.DataPath)
	if err != nil {
		return fmt.Errorf("failed to load historical returns: %w", err)
	}
	hdm.Returns = dataset
	hdm.IsLoaded = true
	return nil
}

// loadCSVData loads data from a CSV file and creates a HistoricalDataSet
func (hdm *HistoricalDataManager) loadCSVData(filePath, name, source string) (*HistoricalDataSet, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("invalid CSV format: expected at least 2 columns")
	}

	var dataPoints []HistoricalDataPoint
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read data row: %w", err)
		}
		if len(record) < 2 {
			continue // Skip malformed rows
		}

		year, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			continue
		}
		value, err := parseRate(record[1])
		if err != nil {
			continue
		}
		dataPoints = append(dataPoints, HistoricalDataPoint{Year: year, Data: value})
	}

	if len(dataPoints) == 0 {
		return nil, fmt.Errorf("no valid data points found in %s", filePath)
	}
	sort.Slice(dataPoints, func(i, j int) bool { return dataPoints[i].Year < dataPoints[j].Year })

	return &HistoricalDataSet{
		Name:       name,
		Source:     source,
		DataPoints: dataPoints,
		MinYear:    dataPoints[0].Year,
		MaxYear:    dataPoints[len(dataPoints)-1].Year,
		Statistics: calculateStatistics(dataPoints),
	}, nil
}

func parseRate(raw string) (decimal.Decimal, error) {
	v := strings.TrimSpace(raw)
	if strings.HasSuffix(v, "%") {
		d, err := decimal.NewFromString(strings.TrimSpace(strings.TrimSuffix(v, "%")))
		if err != nil {
			return decimal.Zero, err
		}
		return d.Div(decimal.NewFromInt(100)), nil
	}
	return decimal.NewFromString(v)
}

// calculateStatistics expects dataPoints sorted by year.
func calculateStatistics(dataPoints []HistoricalDataPoint) HistoricalStatistics {
	if len(dataPoints) == 0 {
		return HistoricalStatistics{}
	}
	values := make([]decimal.Decimal, len(dataPoints))
	for i, dp := range dataPoints {
		values[i] = dp.Data
	}

	var sum decimal.Decimal
	for _, v := range values {
		sum = sum.Add(v)
	}
	n := decimal.NewFromInt(int64(len(values)))
	mean := sum.Div(n)

	var varianceSum decimal.Decimal
	for _, v := range values {
		diff := v.Sub(mean)
		varianceSum = varianceSum.Add(diff.Mul(diff))
	}
	varianceFloat, _ := varianceSum.Div(n).Float64()
	stdDev := decimal.NewFromFloat(math.Sqrt(varianceFloat))

	sorted := append([]decimal.Decimal(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = sorted[len(sorted)/2-1].Add(sorted[len(sorted)/2]).Div(decimal.NewFromInt(2))
	}

	var missingYears []int
	for i := 1; i < len(dataPoints); i++ {
		for y := dataPoints[i-1].Year + 1; y < dataPoints[i].Year; y++ {
			missingYears = append(missingYears, y)
		}
	}

	return HistoricalStatistics{
		Mean:         mean,
		Median:       median,
		StdDev:       stdDev,
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Count:        len(values),
		MissingYears: missingYears,
	}
}

// AnnualReturns returns the loaded returns as floats in year order.
func (hdm *HistoricalDataManager) AnnualReturns() []float64 {
	if !hdm.IsLoaded || hdm.Returns == nil {
		return nil
	}
	out := make([]float64, len(hdm.Returns.DataPoints))
	for i, dp := range hdm.Returns.DataPoints {
		out[i] = dp.Data.InexactFloat64()
	}
	return out
}

// ValidateDataQuality performs quality checks on the loaded data
func (hdm *HistoricalDataManager) ValidateDataQuality() ([]string, error) {
	if !hdm.IsLoaded || hdm.Returns == nil {
		return nil, fmt.Errorf("historical data not loaded")
	}

	var issues []string
	if missing := hdm.Returns.Statistics.MissingYears; len(missing) > 0 {
		issues = append(issues, fmt.Sprintf("Missing years in %s: %v", hdm.Returns.Name, missing))
	}
	for _, dp := range hdm.Returns.DataPoints {
		if dp.Data.GreaterThan(decimal.NewFromInt(1)) {
			issues = append(issues, fmt.Sprintf("Extreme positive return for year %d: %s", dp.Year, dp.Data.String()))
		}
		if dp.Data.LessThan(decimal.NewFromFloat(-0.5)) {
			issues = append(issues, fmt.Sprintf("Extreme negative return for year %d: %s", dp.Year, dp.Data.String()))
		}
	}
	return issues, nil
}
