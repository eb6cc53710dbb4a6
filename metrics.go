package ragged

// EvaluationMetrics aggregates ranking quality over the gold labels of one
// (strategy, embedding-model) pair. Computed fresh per evaluation run and
// never mutated afterward.
//
// TotalQuestions counts questions that were actually evaluated. Questions
// whose embedding or search call failed are reported in Failures and are
// excluded from the recall/MRR denominator: counting them as "not found"
// would corrupt both rates.
type EvaluationMetrics struct {
	Strategy           Strategy        `json:"strategy"`
	Model              string          `json:"model"`
	TopK               int             `json:"top_k"`
	TotalQuestions     int             `json:"total_questions"`
	Failures           int             `json:"failures"`
	FoundInTopK        int             `json:"found_in_top_k"`
	RankDistribution   map[int]int     `json:"rank_distribution"`
	RecallAtK          float64         `json:"recall_at_k"`
	MeanReciprocalRank float64         `json:"mean_reciprocal_rank"`
	TotalLatencyMS     float64         `json:"total_latency_ms"`
	TotalCost          float64         `json:"total_cost"`
}

// Finalize computes RecallAtK and turns the accumulated reciprocal-rank sum
// in MeanReciprocalRank into the mean. Call exactly once, after all labels
// have been processed. With zero evaluated questions both rates are 0.
func (m *EvaluationMetrics) Finalize() {
	if m.TotalQuestions == 0 {
		m.RecallAtK = 0
		m.MeanReciprocalRank = 0
		return
	}
	m.RecallAtK = float64(m.FoundInTopK) / float64(m.TotalQuestions)
	m.MeanReciprocalRank /= float64(m.TotalQuestions)
}

// MergeMetrics combines finalized partial metrics from independent runs
// (e.g. one per document) into a single finalized result. Counts are summed
// and the rates recomputed from the merged counts; rates are never averaged
// directly across partials.
func MergeMetrics(parts ...EvaluationMetrics) EvaluationMetrics {
	out := EvaluationMetrics{RankDistribution: make(map[int]int)}
	var mrrSum float64
	for _, p := range parts {
		if out.Strategy == "" {
			out.Strategy = p.Strategy
		}
		if out.Model == "" {
			out.Model = p.Model
		}
		if out.TopK == 0 {
			out.TopK = p.TopK
		}
		out.TotalQuestions += p.TotalQuestions
		out.Failures += p.Failures
		out.FoundInTopK += p.FoundInTopK
		out.TotalLatencyMS += p.TotalLatencyMS
		out.TotalCost += p.TotalCost
		mrrSum += p.MeanReciprocalRank * float64(p.TotalQuestions)
		for rank, count := range p.RankDistribution {
			out.RankDistribution[rank] += count
		}
	}
	out.MeanReciprocalRank = mrrSum
	out.Finalize()
	return out
}
