package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 2 * time.Second
	defaultMaxDelay   = 30 * time.Second

	backoffFactor = 2.0
	jitterRange   = 0.1 // ±10% jitter
)

// getWithRetry performs a GET with exponential backoff on network errors and
// retryable HTTP statuses, returning the response body on success.
func getWithRetry(ctx context.Context, client *http.Client, url string, maxRetries int, baseDelay, maxDelay time.Duration) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return nil, fmt.Errorf("error creating request: %w", err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36")
		req.Header.Set("Accept", "application/json, text/csv")

		resp, err := client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("network error on attempt %d: %w", attempt+1, err)
			log.Printf("getWithRetry | %v", lastErr)
			if attempt < maxRetries-1 {
				if err := waitRetry(ctx, attempt, baseDelay, maxDelay); err != nil {
					return nil, err
				}
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			lastErr = fmt.Errorf("API error (status %d) on attempt %d: %s", resp.StatusCode, attempt+1, string(body))
			log.Printf("getWithRetry | %v", lastErr)

			if isRetryableHTTPStatus(resp.StatusCode) && attempt < maxRetries-1 {
				if err := waitRetry(ctx, attempt, baseDelay, maxDelay); err != nil {
					return nil, err
				}
			}
			continue
		}

		bodyBytes, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("error reading response body on attempt %d: %w", attempt+1, err)
			log.Printf("getWithRetry | %v", lastErr)
			if attempt < maxRetries-1 {
				if err := waitRetry(ctx, attempt, baseDelay, maxDelay); err != nil {
					return nil, err
				}
			}
			continue
		}

		return bodyBytes, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts, last error: %w", maxRetries, lastErr)
}

func waitRetry(ctx context.Context, attempt int, baseDelay, maxDelay time.Duration) error {
	delay := calculateRetryDelay(attempt, baseDelay, maxDelay, backoffFactor, jitterRange)
	log.Printf("getWithRetry | Retrying in %v...", delay)
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
	case <-time.After(delay):
		return nil
	}
}

// calculateRetryDelay calculates the delay for the next retry attempt with exponential backoff and jitter
func calculateRetryDelay(attempt int, baseDelay, maxDelay time.Duration, backoffFactor, jitterRange float64) time.Duration {
	delay := float64(baseDelay) * math.Pow(backoffFactor, float64(attempt))

	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}

	// Jitter avoids the thundering herd problem
	jitter := delay * jitterRange * (2*rand.Float64() - 1)
	delay += jitter

	if delay < 0 {
		delay = float64(baseDelay)
	}

	return time.Duration(delay)
}

// isRetryableHTTPStatus determines if an HTTP status code indicates a retryable error
func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
