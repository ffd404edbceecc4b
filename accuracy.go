package forecastprep

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Columns of a results table that never hold model forecasts
var reservedColumns = map[string]bool{
	ColUniqueID: true,
	ColDS:       true,
	ColY:        true,
	ColCutoff:   true,
}

// ModelAccuracy scores every model column of a results table against y.
// Scores keep the table's column order. Metric errors are returned as is.
func ModelAccuracy(results *Frame, metric Metric) (Accuracy, error) {
	if metric == nil {
		metric = R2Score
	}
	actual, err := results.Floats(ColY)
	if err != nil {
		return nil, err
	}
	var acc Accuracy
	for _, col := range results.Columns() {
		if reservedColumns[col] {
			continue
		}
		predicted, err := results.Floats(col)
		if err != nil {
			return nil, err
		}
		score, err := metric(actual, predicted)
		if err != nil {
			return nil, fmt.Errorf("score %q: %w", col, err)
		}
		acc = append(acc, ModelScore{Model: col, Score: score})
	}
	return acc, nil
}

// BestModel returns the model with the highest score. Scores start from a
// baseline of 0 and must be strictly greater to win, so the first of tied
// models is kept and "" is returned when no score is above 0. Error-style
// metrics (lower is better) therefore pick the worst model.
func BestModel(results *Frame, metric Metric) (string, error) {
	acc, err := ModelAccuracy(results, metric)
	if err != nil {
		return "", err
	}
	best, current := "", 0.0
	for _, s := range acc {
		if s.Score > current {
			best, current = s.Model, s.Score
		}
	}
	return best, nil
}

func checkLengths(actual, predicted []float64) error {
	if len(actual) != len(predicted) {
		return fmt.Errorf("%d actual vs %d predicted values: %w", len(actual), len(predicted), ErrLengthMismatch)
	}
	if len(actual) == 0 {
		return fmt.Errorf("no values to score")
	}
	return nil
}

// R2Score is the coefficient of determination, 1 - SSres/SStot. A constant
// actual series scores 1 for an exact prediction and 0 otherwise.
func R2Score(actual, predicted []float64) (float64, error) {
	if err := checkLengths(actual, predicted); err != nil {
		return 0, err
	}
	if floats.Min(actual) == floats.Max(actual) {
		if floats.Equal(actual, predicted) {
			return 1, nil
		}
		return 0, nil
	}
	return stat.RSquaredFrom(predicted, actual, nil), nil
}

// MAE is the mean absolute error.
func MAE(actual, predicted []float64) (float64, error) {
	if err := checkLengths(actual, predicted); err != nil {
		return 0, err
	}
	diff := make([]float64, len(actual))
	floats.SubTo(diff, actual, predicted)
	for i, d := range diff {
		diff[i] = math.Abs(d)
	}
	return stat.Mean(diff, nil), nil
}

// RMSE is the root mean squared error.
func RMSE(actual, predicted []float64) (float64, error) {
	if err := checkLengths(actual, predicted); err != nil {
		return 0, err
	}
	diff := make([]float64, len(actual))
	floats.SubTo(diff, actual, predicted)
	return math.Sqrt(floats.Dot(diff, diff) / float64(len(diff))), nil
}

// MAPE is the mean absolute percentage error, skipping zero actuals.
func MAPE(actual, predicted []float64) (float64, error) {
	if err := checkLengths(actual, predicted); err != nil {
		return 0, err
	}
	var sum float64
	var n int
	for i, a := range actual {
		if a == 0 {
			continue
		}
		sum += math.Abs((a - predicted[i]) / a)
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n) * 100, nil
}

// MetricByName resolves the metric names accepted on the command line.
func MetricByName(name string) (Metric, error) {
	switch name {
	case "", "r2":
		return R2Score, nil
	case "mae":
		return MAE, nil
	case "rmse":
		return RMSE, nil
	case "mape":
		return MAPE, nil
	}
	return nil, fmt.Errorf("unknown metric %q", name)
}
