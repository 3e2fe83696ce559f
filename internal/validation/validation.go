// Package validation implements the detection metrics harness: confusion
// matrix and precision/recall/F1/accuracy computation against ground-truth
// labels, target gating for CI, a precision-recall curve with AUC, and
// qualitative false-positive/false-negative breakdowns.
package validation

import (
	"fmt"
	"math"
	"sort"
)

const (
	LabelMalicious  = "malicious"
	LabelLegitimate = "legitimate"
)

// Default validation targets. A run below any target is reported, never
// thrown; CI gating happens through the process exit code.
const (
	TargetPrecision = 0.85
	TargetRecall    = 0.90
	TargetF1        = 0.87
)

// Prediction is one detector verdict for an automation.
type Prediction struct {
	AutomationID string  `json:"automation_id"`
	Predicted    string  `json:"predicted"`
	Confidence   float64 `json:"confidence"`
	DetectorName string  `json:"detector_name"`
}

// GroundTruthLabel is the labeled truth for one automation. Platform and
// AttackType feed the error breakdowns; AttackType is empty for legitimate
// automations.
type GroundTruthLabel struct {
	AutomationID string `json:"automation_id"`
	Actual       string `json:"actual"`
	Platform     string `json:"platform,omitempty"`
	AttackType   string `json:"attack_type,omitempty"`
}

// ConfusionMatrix counts prediction outcomes. A positive is a malicious
// prediction.
type ConfusionMatrix struct {
	TruePositives  int `json:"true_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`
}

// Total returns the number of counted label outcomes.
func (m ConfusionMatrix) Total() int {
	return m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
}

// Metrics is the derived metric set for one confusion matrix. Ratios are 0
// when their denominator is 0.
type Metrics struct {
	Precision float64         `json:"precision"`
	Recall    float64         `json:"recall"`
	F1        float64         `json:"f1"`
	Accuracy  float64         `json:"accuracy"`
	Matrix    ConfusionMatrix `json:"confusion_matrix"`
}

// ErrorCase is one misclassified automation, used by the FP/FN tracker.
type ErrorCase struct {
	AutomationID string `json:"automation_id"`
	Kind         string `json:"kind"` // false_positive or false_negative
	DetectorName string `json:"detector_name,omitempty"`
	Platform     string `json:"platform,omitempty"`
	AttackType   string `json:"attack_type,omitempty"`
}

const (
	ErrorFalsePositive = "false_positive"
	ErrorFalseNegative = "false_negative"
)

// Confusion scores predictions against labels.
//
// A label with no matching prediction counts as a false negative only when
// the automation is actually malicious; an unpredicted legitimate automation
// is not counted. Predictions for unlabeled automations are ignored.
func Confusion(predictions []Prediction, labels []GroundTruthLabel) (ConfusionMatrix, []ErrorCase) {
	byID := make(map[string]Prediction, len(predictions))
	for _, p := range predictions {
		byID[p.AutomationID] = p
	}

	var matrix ConfusionMatrix
	var errs []ErrorCase
	for _, label := range labels {
		actualMalicious := label.Actual == LabelMalicious

		pred, ok := byID[label.AutomationID]
		if !ok {
			if actualMalicious {
				matrix.FalseNegatives++
				errs = append(errs, ErrorCase{
					AutomationID: label.AutomationID,
					Kind:         ErrorFalseNegative,
					Platform:     label.Platform,
					AttackType:   label.AttackType,
				})
			}
			continue
		}

		predictedMalicious := pred.Predicted == LabelMalicious
		switch {
		case predictedMalicious && actualMalicious:
			matrix.TruePositives++
		case !predictedMalicious && !actualMalicious:
			matrix.TrueNegatives++
		case predictedMalicious && !actualMalicious:
			matrix.FalsePositives++
			errs = append(errs, ErrorCase{
				AutomationID: label.AutomationID,
				Kind:         ErrorFalsePositive,
				DetectorName: pred.DetectorName,
				Platform:     label.Platform,
			})
		default:
			matrix.FalseNegatives++
			errs = append(errs, ErrorCase{
				AutomationID: label.AutomationID,
				Kind:         ErrorFalseNegative,
				DetectorName: pred.DetectorName,
				Platform:     label.Platform,
				AttackType:   label.AttackType,
			})
		}
	}
	sort.Slice(errs, func(i, j int) bool {
		if errs[i].Kind != errs[j].Kind {
			return errs[i].Kind < errs[j].Kind
		}
		return errs[i].AutomationID < errs[j].AutomationID
	})
	return matrix, errs
}

// ComputeMetrics derives the ratio metrics from a confusion matrix.
func ComputeMetrics(m ConfusionMatrix) Metrics {
	metrics := Metrics{Matrix: m}
	if denom := m.TruePositives + m.FalsePositives; denom > 0 {
		metrics.Precision = float64(m.TruePositives) / float64(denom)
	}
	if denom := m.TruePositives + m.FalseNegatives; denom > 0 {
		metrics.Recall = float64(m.TruePositives) / float64(denom)
	}
	if metrics.Precision+metrics.Recall > 0 {
		metrics.F1 = 2 * metrics.Precision * metrics.Recall / (metrics.Precision + metrics.Recall)
	}
	if total := m.Total(); total > 0 {
		metrics.Accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}
	return metrics
}

// Evaluate is the one-shot path: confusion matrix plus derived metrics.
func Evaluate(predictions []Prediction, labels []GroundTruthLabel) Metrics {
	matrix, _ := Confusion(predictions, labels)
	return ComputeMetrics(matrix)
}

// TargetResult reports one target comparison.
type TargetResult struct {
	Name   string  `json:"name"`
	Target float64 `json:"target"`
	Actual float64 `json:"actual"`
	Passed bool    `json:"passed"`
}

// CheckTargets compares metrics against the fixed CI targets. Misses are
// reported, never raised as errors; the caller maps Passed to an exit code.
func CheckTargets(metrics Metrics) []TargetResult {
	results := []TargetResult{
		{Name: "precision", Target: TargetPrecision, Actual: metrics.Precision},
		{Name: "recall", Target: TargetRecall, Actual: metrics.Recall},
		{Name: "f1", Target: TargetF1, Actual: metrics.F1},
	}
	for i := range results {
		results[i].Passed = results[i].Actual >= results[i].Target
	}
	return results
}

// AllPassed reports whether every target was met.
func AllPassed(results []TargetResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// CurvePoint is one threshold sample on the precision-recall curve.
type CurvePoint struct {
	Threshold float64 `json:"threshold"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

const curveStep = 0.05

// Curve sweeps the classification threshold from 0 to 1 in 0.05 steps. At
// each threshold a prediction counts as positive only when the detector
// called it malicious with confidence at or above the threshold.
func Curve(predictions []Prediction, labels []GroundTruthLabel) []CurvePoint {
	var points []CurvePoint
	for step := 0; ; step++ {
		threshold := float64(step) * curveStep
		if threshold > 1+1e-9 {
			break
		}
		thresholded := make([]Prediction, 0, len(predictions))
		for _, p := range predictions {
			adjusted := p
			if p.Predicted == LabelMalicious && p.Confidence < threshold {
				adjusted.Predicted = LabelLegitimate
			}
			thresholded = append(thresholded, adjusted)
		}
		m := Evaluate(thresholded, labels)
		points = append(points, CurvePoint{
			Threshold: math.Round(threshold*100) / 100,
			Precision: m.Precision,
			Recall:    m.Recall,
			F1:        m.F1,
		})
	}
	return points
}

// AUC integrates the precision-recall curve over recall using the trapezoid
// rule.
func AUC(points []CurvePoint) float64 {
	if len(points) < 2 {
		return 0
	}
	sorted := append([]CurvePoint(nil), points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Recall < sorted[j].Recall })

	var auc float64
	for i := 1; i < len(sorted); i++ {
		dr := sorted[i].Recall - sorted[i-1].Recall
		auc += dr * (sorted[i].Precision + sorted[i-1].Precision) / 2
	}
	return auc
}

// OptimalThreshold returns the sweep threshold maximizing F1. Ties resolve
// to the lowest threshold.
func OptimalThreshold(points []CurvePoint) float64 {
	best := CurvePoint{Threshold: 0, F1: -1}
	for _, p := range points {
		if p.F1 > best.F1 {
			best = p
		}
	}
	return best.Threshold
}

// ValidatePredictions checks structural validity of a prediction set.
func ValidatePredictions(predictions []Prediction) error {
	seen := map[string]struct{}{}
	for i, p := range predictions {
		if p.AutomationID == "" {
			return fmt.Errorf("prediction %d: missing automation_id", i)
		}
		if _, dup := seen[p.AutomationID]; dup {
			return fmt.Errorf("prediction %d: duplicate automation_id %q", i, p.AutomationID)
		}
		seen[p.AutomationID] = struct{}{}
		if p.Predicted != LabelMalicious && p.Predicted != LabelLegitimate {
			return fmt.Errorf("prediction %q: predicted must be %q or %q, got %q", p.AutomationID, LabelMalicious, LabelLegitimate, p.Predicted)
		}
		if p.Confidence < 0 || p.Confidence > 1 {
			return fmt.Errorf("prediction %q: confidence %v out of range [0,1]", p.AutomationID, p.Confidence)
		}
	}
	return nil
}

// ValidateLabels checks structural validity of a ground-truth set.
func ValidateLabels(labels []GroundTruthLabel) error {
	seen := map[string]struct{}{}
	for i, label := range labels {
		if label.AutomationID == "" {
			return fmt.Errorf("label %d: missing automation_id", i)
		}
		if _, dup := seen[label.AutomationID]; dup {
			return fmt.Errorf("label %d: duplicate automation_id %q", i, label.AutomationID)
		}
		seen[label.AutomationID] = struct{}{}
		if label.Actual != LabelMalicious && label.Actual != LabelLegitimate {
			return fmt.Errorf("label %q: actual must be %q or %q, got %q", label.AutomationID, LabelMalicious, LabelLegitimate, label.Actual)
		}
	}
	return nil
}
