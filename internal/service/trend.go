package service

import (
	"time"

	"github.com/sakif/fitlog/internal/model"
)

// calorieTrend fits a least-squares line through the daily totals and
// returns its slope in calories per day. Each day in history is one sample
// at (seconds since start, total), with a null total counted as 0. Two
// samples or fewer give no trend.
func calorieTrend(history []model.DailyCalories, start time.Time) *float64 {
	if len(history) <= 2 {
		return nil
	}

	xs := make([]float64, 0, len(history))
	ys := make([]float64, 0, len(history))
	for _, d := range history {
		day, err := time.Parse(model.DateLayout, d.Date)
		if err != nil {
			continue
		}
		xs = append(xs, day.Sub(start).Seconds())
		y := 0.0
		if d.Calories != nil {
			y = *d.Calories
		}
		ys = append(ys, y)
	}
	if len(xs) <= 2 {
		return nil
	}

	slope, ok := leastSquaresSlope(xs, ys)
	if !ok {
		return nil
	}
	perDay := slope * (24 * time.Hour).Seconds()
	return &perDay
}

// leastSquaresSlope returns the slope of the degree-1 fit. ok is false
// when every x is the same.
func leastSquaresSlope(xs, ys []float64) (slope float64, ok bool) {
	n := float64(len(xs))
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= n
	my /= n

	var sxy, sxx float64
	for i := range xs {
		dx := xs[i] - mx
		sxy += dx * (ys[i] - my)
		sxx += dx * dx
	}
	if sxx == 0 {
		return 0, false
	}
	return sxy / sxx, true
}
