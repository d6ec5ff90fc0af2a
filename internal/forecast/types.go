package forecast

import "time"

// PeriodForecast is the aggregate prediction for one daily time bucket.
// Bounds are optional; the pipeline omits them for sparse buckets.
type PeriodForecast struct {
	PredictedFreePercent float64  `json:"predicted_freespace_percentage" firestore:"predicted_freespace_percentage"`
	LowerBound           *float64 `json:"lower_bound,omitempty" firestore:"lower_bound"`
	UpperBound           *float64 `json:"upper_bound,omitempty" firestore:"upper_bound"`
}

// PredictionPoint is one fine-grained (sub-hourly) prediction, used for
// detail views.
type PredictionPoint struct {
	Timestamp            time.Time `json:"timestamp" firestore:"timestamp"`
	PredictedFreePercent float64   `json:"predicted_freespace_percentage" firestore:"predicted_freespace_percentage"`
	LowerBound           float64   `json:"lower_bound" firestore:"lower_bound"`
	UpperBound           float64   `json:"upper_bound" firestore:"upper_bound"`
}

// DayForecast is one remote document, keyed by its YYYY-MM-DD date. Periods
// maps bucket names (early_morning .. evening) to aggregate predictions.
// Replaced wholesale on refresh, never mutated in place.
type DayForecast struct {
	LastUpdated time.Time                 `json:"last_updated" firestore:"last_updated"`
	Periods     map[string]PeriodForecast `json:"periods" firestore:"periods"`
	Predictions []PredictionPoint         `json:"predictions" firestore:"predictions"`
}
