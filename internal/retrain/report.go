package retrain

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
)

// Metrics are precision, recall and F1 for one label or an average.
type Metrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// LabelMetrics are the metrics of one label.
type LabelMetrics struct {
	Label string `json:"label"`
	Metrics
}

// Report summarises held-out evaluation. It is diagnostic output.
type Report struct {
	Labels      []LabelMetrics `json:"labels"`
	Accuracy    float64        `json:"accuracy"`
	MacroAvg    Metrics        `json:"macro_avg"`
	WeightedAvg Metrics        `json:"weighted_avg"`
	Support     int            `json:"support"`
}

// Evaluate compares expected and predicted labels. Labels appearing in either
// slice are reported, sorted; undefined ratios count as zero.
func Evaluate(expected, predicted []string) *Report {
	labels := make(map[string]struct{})
	for _, l := range expected {
		labels[l] = struct{}{}
	}
	for _, l := range predicted {
		labels[l] = struct{}{}
	}
	names := make([]string, 0, len(labels))
	for l := range labels {
		names = append(names, l)
	}
	sort.Strings(names)

	tp := make(map[string]int)
	predCount := make(map[string]int)
	support := make(map[string]int)
	correct := 0
	for i := range expected {
		support[expected[i]]++
		predCount[predicted[i]]++
		if expected[i] == predicted[i] {
			tp[expected[i]]++
			correct++
		}
	}

	r := &Report{Support: len(expected)}
	if len(expected) > 0 {
		r.Accuracy = float64(correct) / float64(len(expected))
	}

	for _, l := range names {
		m := Metrics{
			Precision: ratio(tp[l], predCount[l]),
			Recall:    ratio(tp[l], support[l]),
			Support:   support[l],
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.Labels = append(r.Labels, LabelMetrics{Label: l, Metrics: m})

		r.MacroAvg.Precision += m.Precision
		r.MacroAvg.Recall += m.Recall
		r.MacroAvg.F1 += m.F1
		w := float64(m.Support)
		r.WeightedAvg.Precision += w * m.Precision
		r.WeightedAvg.Recall += w * m.Recall
		r.WeightedAvg.F1 += w * m.F1
	}

	if n := float64(len(names)); n > 0 {
		r.MacroAvg.Precision /= n
		r.MacroAvg.Recall /= n
		r.MacroAvg.F1 /= n
	}
	if total := float64(r.Support); total > 0 {
		r.WeightedAvg.Precision /= total
		r.WeightedAvg.Recall /= total
		r.WeightedAvg.F1 /= total
	}
	r.MacroAvg.Support = r.Support
	r.WeightedAvg.Support = r.Support
	return r
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// String renders the report as an aligned table.
func (r *Report) String() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "\tprecision\trecall\tf1-score\tsupport\t")
	for _, l := range r.Labels {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%d\t\n", l.Label, l.Precision, l.Recall, l.F1, l.Support)
	}
	fmt.Fprintln(w, "\t\t\t\t\t")
	fmt.Fprintf(w, "accuracy\t\t\t%.2f\t%d\t\n", r.Accuracy, r.Support)
	fmt.Fprintf(w, "macro avg\t%.2f\t%.2f\t%.2f\t%d\t\n", r.MacroAvg.Precision, r.MacroAvg.Recall, r.MacroAvg.F1, r.Support)
	fmt.Fprintf(w, "weighted avg\t%.2f\t%.2f\t%.2f\t%d\t\n", r.WeightedAvg.Precision, r.WeightedAvg.Recall, r.WeightedAvg.F1, r.Support)
	_ = w.Flush()
	return b.String()
}
