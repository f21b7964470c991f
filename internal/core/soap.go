package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ehr-scribe/internal/llm"
	"ehr-scribe/pkg"
)

// SOAPGenerator turns a consultation transcript plus patient context into a
// structured SOAP note with one model call.
type SOAPGenerator struct {
	LLM llm.Client
	Log zerolog.Logger
}

// NewSOAPGenerator constructs a SOAPGenerator with the given LLM client.
func NewSOAPGenerator(client llm.Client, log zerolog.Logger) *SOAPGenerator {
	return &SOAPGenerator{LLM: client, Log: log}
}

// Generate produces a SOAP note from the transcript. The caller must reject
// an empty transcript before calling. On any failure (transport, model,
// malformed JSON) the returned note is the degraded error variant and the
// error is returned alongside it; there is no retry.
func (g *SOAPGenerator) Generate(ctx context.Context, transcript string, patient pkg.PatientInfo) (pkg.SoapNote, error) {
	prompt := fmt.Sprintf(soapPromptTemplate, patientContext(patient), transcript)

	raw, err := g.LLM.CompleteJSON(ctx, prompt, 0.3)
	if err != nil {
		return g.fail(err)
	}

	var note pkg.SoapNote
	if err := json.Unmarshal([]byte(raw), &note); err != nil {
		return g.fail(fmt.Errorf("decode soap response: %w", err))
	}
	if note.PreliminaryDiagnosis == nil {
		note.PreliminaryDiagnosis = []string{}
	}
	note.Error = ""
	note.GeneratedAt = time.Now()
	return note, nil
}

func (g *SOAPGenerator) fail(err error) (pkg.SoapNote, error) {
	g.Log.Error().Err(err).Msg("soap generation failed")
	return pkg.SoapNote{
		PreliminaryDiagnosis: []string{},
		Error:                err.Error(),
	}, err
}
