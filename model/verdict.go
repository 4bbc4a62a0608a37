package model

// Judge dimension weights. They sum to 1.0 so the overall score stays in [0,1].
const (
	WeightFaithfulness = 0.30
	WeightRelevance    = 0.25
	WeightCompleteness = 0.20
	WeightCoherence    = 0.15
	WeightConciseness  = 0.10
)

// JudgeVerdict is the result of one answer-quality evaluation.
type JudgeVerdict struct {
	Faithfulness   float64 `json:"faithfulness"`
	Relevance      float64 `json:"relevance"`
	Completeness   float64 `json:"completeness"`
	Coherence      float64 `json:"coherence"`
	Conciseness    float64 `json:"conciseness"`
	Overall        float64 `json:"overall"`
	Verdict        string  `json:"verdict"`
	Feedback       string  `json:"feedback"`
	WasRegenerated bool    `json:"was_regenerated"`
}

// NeutralVerdict returns an all-ones pass verdict. It is the fail-soft
// default when the evaluation call itself fails: a broken judge must never
// block answer delivery.
func NeutralVerdict() JudgeVerdict {
	return JudgeVerdict{
		Faithfulness: 1.0,
		Relevance:    1.0,
		Completeness: 1.0,
		Coherence:    1.0,
		Conciseness:  1.0,
		Overall:      1.0,
		Verdict:      VerdictPass,
	}
}

const (
	VerdictPass = "pass"
	VerdictFail = "fail"
)

// ComputeOverall derives the weighted overall score from the dimension scores.
func (v JudgeVerdict) ComputeOverall() float64 {
	return WeightFaithfulness*v.Faithfulness +
		WeightRelevance*v.Relevance +
		WeightCompleteness*v.Completeness +
		WeightCoherence*v.Coherence +
		WeightConciseness*v.Conciseness
}

// Passed reports whether the verdict is a pass.
func (v JudgeVerdict) Passed() bool {
	return v.Verdict == VerdictPass
}
