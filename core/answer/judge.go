package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docchat/docchat/model"
)

const judgePrompt = `You are a strict evaluator of document Q&A answers.
Score the answer on these dimensions, each between 0.0 and 1.0:
- "faithfulness": every claim is supported by the context, nothing invented.
- "relevance": the answer addresses the question that was asked.
- "completeness": the answer covers the parts of the question the context can answer.
- "coherence": the answer is well structured and readable.
- "conciseness": the answer is free of filler and repetition.

Return only a JSON object with the five dimension keys and a "feedback" key
containing one or two sentences naming the most important improvements.`

// Judge scores a generated answer against its query and context.
type Judge struct {
	completer Completer
	threshold float64
	log       *slog.Logger
}

// NewJudge creates an answer judge that passes answers scoring at least
// threshold overall.
func NewJudge(completer Completer, threshold float64, logger *slog.Logger) *Judge {
	return &Judge{completer: completer, threshold: threshold, log: logger}
}

// Evaluate scores the answer and returns a verdict. The overall score is
// the fixed weighted average of the five dimensions and the verdict passes
// iff it reaches the threshold. Any evaluation failure yields a neutral
// pass: a broken judge must never block answer delivery.
func (j *Judge) Evaluate(ctx context.Context, query string, contexts []string, answer string) model.JudgeVerdict {
	instruction := fmt.Sprintf(
		"Question:\n%s\n\nContext:\n%s\n\nAnswer:\n%s",
		query, strings.Join(contexts, "\n\n"), answer)

	response, err := j.completer.Complete(ctx, judgePrompt, []model.ChatMessage{
		{Role: model.RoleUser, Content: instruction},
	})
	if err != nil {
		j.log.Warn("Answer evaluation failed, returning neutral pass", slog.String("error", err.Error()))
		return model.NeutralVerdict()
	}

	// Dimensions the evaluator leaves out default to 1.0, not 0.0: an
	// unscored dimension must not fail the verdict.
	var payload struct {
		Faithfulness *float64 `json:"faithfulness"`
		Relevance    *float64 `json:"relevance"`
		Completeness *float64 `json:"completeness"`
		Coherence    *float64 `json:"coherence"`
		Conciseness  *float64 `json:"conciseness"`
		Feedback     string   `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(extractJSON(response)), &payload); err != nil {
		j.log.Warn("Answer evaluation returned malformed JSON, returning neutral pass", slog.String("error", err.Error()))
		return model.NeutralVerdict()
	}

	verdict := model.JudgeVerdict{
		Faithfulness: scoreOrDefault(payload.Faithfulness),
		Relevance:    scoreOrDefault(payload.Relevance),
		Completeness: scoreOrDefault(payload.Completeness),
		Coherence:    scoreOrDefault(payload.Coherence),
		Conciseness:  scoreOrDefault(payload.Conciseness),
		Feedback:     payload.Feedback,
	}

	verdict.Overall = verdict.ComputeOverall()
	if verdict.Overall >= j.threshold {
		verdict.Verdict = model.VerdictPass
	} else {
		verdict.Verdict = model.VerdictFail
	}

	j.log.Info("Judged answer",
		slog.Float64("overall", verdict.Overall),
		slog.String("verdict", verdict.Verdict))

	return verdict
}

func scoreOrDefault(score *float64) float64 {
	if score == nil {
		return 1.0
	}
	return *score
}

// extractJSON cuts the first top-level JSON object out of a model response,
// tolerating markdown fences and surrounding prose.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return strings.TrimSpace(s)
}
