// Package notifier
package notifier

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/finpipe/finpipe/internal/alert"
	"github.com/finpipe/finpipe/internal/signal"
	"github.com/finpipe/finpipe/internal/utils"
)

// Notifier interface for sending notifications (e.g., Telegram, email).
type Notifier interface {
	Send(msg string) error
	SendWithRetry(msg string) error
}

// Retrier wraps a Notifier with a fixed retry policy.
type Retrier struct {
	N       Notifier
	Retries int
	Delay   time.Duration
}

func (r *Retrier) Send(msg string) error { return r.N.Send(msg) }

func (r *Retrier) SendWithRetry(msg string) error {
	var lastErr error
	for i := 0; i < r.Retries; i++ {
		if err := r.N.Send(msg); err != nil {
			lastErr = err
			log.Printf("SendWithRetry | attempt %d/%d failed: %v", i+1, r.Retries, err)
			time.Sleep(r.Delay)
			continue
		}
		return nil
	}
	utils.GetLogger().Printf("Notifier | dropped message after %d attempts: %v", r.Retries, lastErr)
	return fmt.Errorf("notification failed after %d attempts: %w", r.Retries, lastErr)
}

// FormatSignal renders one signal as a human readable notification line.
func FormatSignal(s signal.Signal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%s) on %s", s.Symbol, s.Type, s.Direction, s.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "\nstrength %.2f, price %.2f", s.Strength, s.PriceAtSignal)
	if s.TriggeredBy != "" {
		fmt.Fprintf(&b, "\ntriggered by %s = %.2f", s.TriggeredBy, s.TriggerValue)
	}
	return b.String()
}

// FormatPriceAlert renders a fired price alert.
func FormatPriceAlert(a alert.PriceAlert, latestClose float64) string {
	return fmt.Sprintf("%s crossed %s %.2f (last close %.2f)",
		a.Symbol, a.Condition, a.TargetPrice, latestClose)
}

// FormatIndicatorAlert renders a fired indicator alert.
func FormatIndicatorAlert(a alert.IndicatorAlert, value float64) string {
	if a.Message != "" {
		return fmt.Sprintf("%s: %s (%s = %.2f)", a.Symbol, a.Message, a.IndicatorName, value)
	}
	return fmt.Sprintf("%s: %s %s fired (%s = %.2f)",
		a.Symbol, a.AlertType, a.Condition, a.IndicatorName, value)
}
