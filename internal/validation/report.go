package validation

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Breakdown groups error cases of one kind by detector, platform, and attack
// type.
type Breakdown struct {
	Total      int            `json:"total"`
	ByDetector map[string]int `json:"by_detector,omitempty"`
	ByPlatform map[string]int `json:"by_platform,omitempty"`
	ByAttack   map[string]int `json:"by_attack_type,omitempty"`
	Cases      []ErrorCase    `json:"cases,omitempty"`
}

// Report is the full harness output, serialized to JSON and rendered to
// markdown for humans.
type Report struct {
	GeneratedAt      time.Time      `json:"generated_at"`
	Labels           int            `json:"labels"`
	Predictions      int            `json:"predictions"`
	Metrics          Metrics        `json:"metrics"`
	Targets          []TargetResult `json:"targets"`
	Passed           bool           `json:"passed"`
	Curve            []CurvePoint   `json:"pr_curve"`
	AUC              float64        `json:"auc"`
	OptimalThreshold float64        `json:"optimal_threshold"`
	FalsePositives   Breakdown      `json:"false_positives"`
	FalseNegatives   Breakdown      `json:"false_negatives"`
	Recommendations  []string       `json:"recommendations"`
}

// BuildReport runs the full harness over one prediction set.
func BuildReport(predictions []Prediction, labels []GroundTruthLabel, now time.Time) Report {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	matrix, errCases := Confusion(predictions, labels)
	metrics := ComputeMetrics(matrix)
	targets := CheckTargets(metrics)
	curve := Curve(predictions, labels)

	report := Report{
		GeneratedAt:      now.UTC(),
		Labels:           len(labels),
		Predictions:      len(predictions),
		Metrics:          metrics,
		Targets:          targets,
		Passed:           AllPassed(targets),
		Curve:            curve,
		AUC:              AUC(curve),
		OptimalThreshold: OptimalThreshold(curve),
		FalsePositives:   breakdown(errCases, ErrorFalsePositive),
		FalseNegatives:   breakdown(errCases, ErrorFalseNegative),
	}
	report.Recommendations = recommendations(report)
	return report
}

func breakdown(cases []ErrorCase, kind string) Breakdown {
	out := Breakdown{
		ByDetector: map[string]int{},
		ByPlatform: map[string]int{},
		ByAttack:   map[string]int{},
	}
	for _, c := range cases {
		if c.Kind != kind {
			continue
		}
		out.Total++
		out.Cases = append(out.Cases, c)
		if c.DetectorName != "" {
			out.ByDetector[c.DetectorName]++
		}
		if c.Platform != "" {
			out.ByPlatform[c.Platform]++
		}
		if c.AttackType != "" {
			out.ByAttack[c.AttackType]++
		}
	}
	return out
}

// recommendations emits qualitative guidance from the error breakdowns and
// target misses.
func recommendations(r Report) []string {
	var out []string

	for _, t := range r.Targets {
		if t.Passed {
			continue
		}
		out = append(out, fmt.Sprintf("Target miss: %s %.1f%% is below the %.0f%% target.", t.Name, 100*t.Actual, 100*t.Target))
	}
	if name, count := topKey(r.FalseNegatives.ByAttack); name != "" {
		out = append(out, fmt.Sprintf("Improve recall: review the %d false negative(s) for attack type %q.", count, name))
	}
	if name, count := topKey(r.FalsePositives.ByDetector); name != "" {
		out = append(out, fmt.Sprintf("Improve precision: review the %d false positive(s) emitted by detector %q.", count, name))
	}
	if name, count := topKey(r.FalseNegatives.ByPlatform); name != "" {
		out = append(out, fmt.Sprintf("Check platform coverage: %d missed detection(s) on %q.", count, name))
	}
	if r.OptimalThreshold > 0 {
		if best := curveAt(r.Curve, r.OptimalThreshold); best.F1 > r.Metrics.F1 {
			out = append(out, fmt.Sprintf("Raising the classification threshold to %.2f would lift F1 to %.1f%%.", r.OptimalThreshold, 100*best.F1))
		}
	}
	if len(out) == 0 {
		out = append(out, "All targets met; no error clusters to review.")
	}
	return out
}

// topKey returns the most frequent key, ties resolved alphabetically.
func topKey(counts map[string]int) (string, int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var best string
	var bestCount int
	for _, k := range keys {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best, bestCount
}

func curveAt(points []CurvePoint, threshold float64) CurvePoint {
	for _, p := range points {
		if p.Threshold == threshold {
			return p
		}
	}
	return CurvePoint{}
}

// WriteJSON writes the report as indented JSON to the given path.
func (r Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("validation: marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("validation: write report: %w", err)
	}
	return nil
}

// WriteMarkdown renders the human-readable report to the given path.
func (r Report) WriteMarkdown(path string) error {
	if err := os.WriteFile(path, []byte(r.Markdown()), 0o644); err != nil {
		return fmt.Errorf("validation: write report: %w", err)
	}
	return nil
}

// Markdown renders the report body.
func (r Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Detection Validation Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Labels: %d, predictions: %d\n\n", r.Labels, r.Predictions)

	fmt.Fprintf(&b, "## Metrics\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Precision | %.1f%% |\n", 100*r.Metrics.Precision)
	fmt.Fprintf(&b, "| Recall | %.1f%% |\n", 100*r.Metrics.Recall)
	fmt.Fprintf(&b, "| F1 | %.1f%% |\n", 100*r.Metrics.F1)
	fmt.Fprintf(&b, "| Accuracy | %.1f%% |\n", 100*r.Metrics.Accuracy)
	fmt.Fprintf(&b, "| AUC (PR) | %.3f |\n", r.AUC)
	fmt.Fprintf(&b, "| Optimal threshold | %.2f |\n\n", r.OptimalThreshold)

	m := r.Metrics.Matrix
	fmt.Fprintf(&b, "## Confusion Matrix\n\n")
	fmt.Fprintf(&b, "| | Predicted malicious | Predicted legitimate |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| Actual malicious | %d | %d |\n", m.TruePositives, m.FalseNegatives)
	fmt.Fprintf(&b, "| Actual legitimate | %d | %d |\n\n", m.FalsePositives, m.TrueNegatives)

	fmt.Fprintf(&b, "## Targets\n\n")
	for _, t := range r.Targets {
		status := "PASS"
		if !t.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "- %s: %.1f%% (target %.0f%%) %s\n", t.Name, 100*t.Actual, 100*t.Target, status)
	}
	fmt.Fprintf(&b, "\n")

	writeBreakdown(&b, "False Positives", r.FalsePositives)
	writeBreakdown(&b, "False Negatives", r.FalseNegatives)

	fmt.Fprintf(&b, "## Recommendations\n\n")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "- %s\n", rec)
	}
	return b.String()
}

func writeBreakdown(b *strings.Builder, title string, bd Breakdown) {
	fmt.Fprintf(b, "## %s (%d)\n\n", title, bd.Total)
	if bd.Total == 0 {
		fmt.Fprintf(b, "None.\n\n")
		return
	}
	writeCounts(b, "By detector", bd.ByDetector)
	writeCounts(b, "By platform", bd.ByPlatform)
	writeCounts(b, "By attack type", bd.ByAttack)
	fmt.Fprintf(b, "\n")
}

func writeCounts(b *strings.Builder, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	fmt.Fprintf(b, "- %s: %s\n", label, strings.Join(parts, ", "))
}

// LoadPredictions reads and validates a prediction set from a JSON file.
func LoadPredictions(path string) ([]Prediction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("validation: read predictions: %w", err)
	}
	var predictions []Prediction
	if err := json.Unmarshal(data, &predictions); err != nil {
		return nil, fmt.Errorf("validation: parse predictions %s: %w", path, err)
	}
	if err := ValidatePredictions(predictions); err != nil {
		return nil, fmt.Errorf("validation: %s: %w", path, err)
	}
	return predictions, nil
}

// LoadLabels reads and validates a ground-truth set from a JSON file.
func LoadLabels(path string) ([]GroundTruthLabel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("validation: read labels: %w", err)
	}
	var labels []GroundTruthLabel
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("validation: parse labels %s: %w", path, err)
	}
	if err := ValidateLabels(labels); err != nil {
		return nil, fmt.Errorf("validation: %s: %w", path, err)
	}
	return labels, nil
}
