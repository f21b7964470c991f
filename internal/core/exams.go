package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"ehr-scribe/internal/llm"
	"ehr-scribe/pkg"
)

// ExamRecommender asks the model for follow-up diagnostic examinations
// given a generated SOAP note and the raw transcript.
type ExamRecommender struct {
	LLM llm.Client
	Log zerolog.Logger
}

// NewExamRecommender constructs an ExamRecommender.
func NewExamRecommender(client llm.Client, log zerolog.Logger) *ExamRecommender {
	return &ExamRecommender{LLM: client, Log: log}
}

// Recommend returns a list of recommended examinations. The caller enforces
// that the SOAP note is a non-empty success record. Each item's internal
// shape is left to the model; only valid JSON and "list of items" are
// guaranteed. On failure the degraded variant with an empty list is
// returned alongside the error.
func (r *ExamRecommender) Recommend(ctx context.Context, soap pkg.SoapNote, transcript string) (pkg.ExaminationList, error) {
	prompt := fmt.Sprintf(examPromptTemplate,
		soap.ChiefComplaint, soap.Assessment, soap.Plan, transcript)

	raw, err := r.LLM.CompleteJSON(ctx, prompt, 0.3)
	if err != nil {
		return r.fail(err)
	}

	var list pkg.ExaminationList
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return r.fail(fmt.Errorf("decode examination response: %w", err))
	}
	if list.Items == nil {
		list.Items = []pkg.Examination{}
	}
	list.Error = ""
	return list, nil
}

func (r *ExamRecommender) fail(err error) (pkg.ExaminationList, error) {
	r.Log.Error().Err(err).Msg("examination recommendation failed")
	return pkg.ExaminationList{
		Items: []pkg.Examination{},
		Error: err.Error(),
	}, err
}
