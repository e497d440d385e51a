package backtest

import "math"

// calculateMetrics derives performance statistics from the trade list and
// equity curve. Runs once per backtest; nothing is recomputed incrementally.
func (e *Engine) calculateMetrics(trades []Trade, equityCurve []float64) Metrics {
	initial := e.cfg.InitialCapital
	finalEquity := initial
	if len(equityCurve) > 0 {
		finalEquity = equityCurve[len(equityCurve)-1]
	}

	totalReturnDollars := finalEquity - initial
	totalReturn := totalReturnDollars / initial * 100.0

	// Max drawdown with a running peak, in percent of peak.
	var maxDrawdown float64
	peak := initial
	for _, equity := range equityCurve {
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak * 100.0; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}

	var winners, losers int
	var winPctSum, lossPctSum float64
	var grossProfit, grossLoss float64
	for _, t := range trades {
		switch {
		case t.ProfitLoss > 0:
			winners++
			winPctSum += t.ProfitLossPercent
			grossProfit += t.ProfitLoss
		case t.ProfitLoss < 0:
			losers++
			lossPctSum += math.Abs(t.ProfitLossPercent)
			grossLoss += math.Abs(t.ProfitLoss)
		}
	}

	var winRate float64
	if len(trades) > 0 {
		winRate = float64(winners) / float64(len(trades)) * 100.0
	}

	var avgWin, avgLoss float64
	if winners > 0 {
		avgWin = winPctSum / float64(winners)
	}
	if losers > 0 {
		avgLoss = lossPctSum / float64(losers)
	}

	var profitFactor float64
	switch {
	case grossLoss > 0:
		profitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		profitFactor = math.Inf(1)
	}

	var avgDuration float64
	if len(trades) > 0 {
		var daysSum float64
		var closed int
		for _, t := range trades {
			if !t.ExitDate.IsZero() {
				daysSum += t.ExitDate.Sub(t.EntryDate).Hours() / 24.0
				closed++
			}
		}
		if closed > 0 {
			avgDuration = daysSum / float64(closed)
		}
	}

	// Annualized Sharpe over per-day equity percentage changes, population
	// variance, 252-day convention.
	var sharpe float64
	if len(equityCurve) >= 2 {
		returns := make([]float64, 0, len(equityCurve)-1)
		for i := 1; i < len(equityCurve); i++ {
			returns = append(returns, (equityCurve[i]-equityCurve[i-1])/equityCurve[i-1])
		}

		var mean float64
		for _, r := range returns {
			mean += r
		}
		mean /= float64(len(returns))

		var variance float64
		if len(returns) > 1 {
			for _, r := range returns {
				variance += (r - mean) * (r - mean)
			}
			variance /= float64(len(returns))
		}
		stdDev := math.Sqrt(variance)

		if stdDev > 0 {
			sharpe = mean / stdDev * math.Sqrt(252.0)
		}
	}

	return Metrics{
		TotalReturn:          totalReturn,
		TotalReturnDollars:   totalReturnDollars,
		MaxDrawdown:          maxDrawdown,
		SharpeRatio:          sharpe,
		WinRate:              winRate,
		TotalTrades:          len(trades),
		WinningTrades:        winners,
		LosingTrades:         losers,
		AvgWinPercent:        avgWin,
		AvgLossPercent:       avgLoss,
		ProfitFactor:         profitFactor,
		AvgTradeDurationDays: avgDuration,
	}
}
