package fetch

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

// FredClient downloads macroeconomic series from FRED's public CSV endpoint.
// Basic access needs no API key.
type FredClient struct {
	client  *http.Client
	baseURL string
}

// NewFredClient creates a FRED client.
func NewFredClient() *FredClient {
	return &FredClient{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://fred.stlouisfed.org",
	}
}

// NewFredClientWithBaseURL is used by tests to point at a local server.
func NewFredClientWithBaseURL(baseURL string) *FredClient {
	c := NewFredClient()
	c.baseURL = baseURL
	return c
}

// FetchSeries downloads all observations of a FRED series such as "UNRATE"
// or "FEDFUNDS". Rows carrying "." (FRED's missing value marker) or
// unparseable fields are skipped.
func (f *FredClient) FetchSeries(ctx context.Context, series string) ([]MacroPoint, error) {
	url := fmt.Sprintf("%s/graph/fredgraph.csv?id=%s", f.baseURL, series)

	log.Printf("FetchSeries | Fetching %s from FRED", series)

	body, err := getWithRetry(ctx, f.client, url, defaultMaxRetries, defaultBaseDelay, defaultMaxDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", series, err)
	}

	points, err := parseFredCSV(series, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV for %s: %w", series, err)
	}

	log.Printf("FetchSeries | Fetched %d observations for %s", len(points), series)
	return points, nil
}

func parseFredCSV(series string, data []byte) ([]MacroPoint, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	// header row
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	var points []MacroPoint
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 {
			continue
		}

		dateStr, valueStr := record[0], record[1]
		if valueStr == "." || valueStr == "" {
			continue
		}

		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		value, err := strconv.ParseFloat(valueStr, 64)
		if err != nil {
			continue
		}

		points = append(points, MacroPoint{
			Indicator: series,
			Date:      date.UTC(),
			Value:     value,
			Source:    "FRED",
		})
	}
	return points, nil
}
