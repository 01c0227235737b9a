package engine

import "github.com/sells-group/datacleaner-cli/internal/model"

// Aggregate combines per-value confidences into a job confidence by taking
// the minimum: a single weak value forces review rather than being averaged
// away. Zero scored values means nothing cast doubt, so fully confident.
func Aggregate(confidences []float64) float64 {
	if len(confidences) == 0 {
		return 1.0
	}
	minConf := confidences[0]
	for _, c := range confidences[1:] {
		if c < minConf {
			minConf = c
		}
	}
	return minConf
}

// Decide maps an aggregate confidence to the job's terminal status.
func Decide(confidence, threshold float64) model.JobStatus {
	if confidence < threshold {
		return model.JobStatusNeedsReview
	}
	return model.JobStatusComplete
}
