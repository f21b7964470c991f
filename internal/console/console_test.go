package console

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ehr-scribe/internal/core"
)

type fakeLLM struct {
	responses []string
	errs      []error
	Calls     int
	Temps     []float32
}

func (f *fakeLLM) CompleteJSON(_ context.Context, _ string, temperature float32) (string, error) {
	i := f.Calls
	f.Calls++
	f.Temps = append(f.Temps, temperature)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "{}", nil
}

const (
	soapJSON = `{"subjective":"sore throat for two days","objective":"temp 38.2",` +
		`"assessment":"likely strep pharyngitis","plan":"amoxicillin 500mg TID",` +
		`"chief_complaint":"sore throat","preliminary_diagnosis":["strep pharyngitis"]}`
	examsJSON     = `{"examinations":[{"name":"rapid strep test","priority":"high"}]}`
	extractJSON   = `{"drugs":["amoxicillin"]}`
	conflictsJSON = `{"has_conflicts":true,"allergy_warnings":["amoxicillin vs penicillin allergy"],` +
		`"recommendations":["switch to azithromycin"],"severity":"high"}`
)

// newAgent wires an Agent around a scripted model and scripted stdin. No
// transcriber is configured, so capture always goes through manual entry.
func newAgent(fake *fakeLLM, input string) (*Agent, *bytes.Buffer) {
	log := zerolog.Nop()
	out := &bytes.Buffer{}
	return &Agent{
		Soap:  core.NewSOAPGenerator(fake, log),
		Exams: core.NewExamRecommender(fake, log),
		Drugs: core.NewDrugChecker(fake, log),
		Log:   log,
		In:    strings.NewReader(input),
		Out:   out,
	}, out
}

// script joins prompt answers into the stream a user would type, one line
// per answer.
func script(answers ...string) string {
	return strings.Join(answers, "\n") + "\n"
}

func TestRunFullFlowManualEntry(t *testing.T) {
	fake := &fakeLLM{responses: []string{soapJSON, examsJSON, extractJSON, conflictsJSON}}
	agent, out := newAgent(fake, script(
		"Jane Doe", "44", "female", "", "penicillin", "", // intake
		"patient reports sore throat", "", // transcript, blank line ends it
		"n", // do not save
	))

	require.NoError(t, agent.Run(context.Background()))

	assert.Equal(t, 4, fake.Calls)
	assert.Equal(t, []float32{0.3, 0.3, 0.1, 0.2}, fake.Temps)

	text := out.String()
	assert.Contains(t, text, "likely strep pharyngitis")
	assert.Contains(t, text, "rapid strep test")
	assert.Contains(t, text, "amoxicillin vs penicillin allergy")
	assert.Contains(t, text, "Consultation flow complete.")
}

func TestRunAbortsOnEmptyTranscript(t *testing.T) {
	fake := &fakeLLM{}
	agent, out := newAgent(fake, script("", "", "", "", "", "", ""))

	require.NoError(t, agent.Run(context.Background()))

	assert.Zero(t, fake.Calls, "no model call may happen without a transcript")
	assert.Contains(t, out.String(), "No consultation transcript captured")
}

func TestRunSkipsConflictCheckWithoutDrugs(t *testing.T) {
	fake := &fakeLLM{responses: []string{soapJSON, examsJSON, `{"drugs":[]}`}}
	agent, out := newAgent(fake, script(
		"", "", "", "", "", "",
		"routine follow-up, no complaints", "",
		"n",
	))

	require.NoError(t, agent.Run(context.Background()))

	assert.Equal(t, 3, fake.Calls, "conflict screening must not run on an empty drug list")
	assert.Contains(t, out.String(), "skipping conflict check")
}

func TestRunStopsAfterFailedNote(t *testing.T) {
	fake := &fakeLLM{errs: []error{errors.New("model unavailable")}}
	agent, out := newAgent(fake, script(
		"", "", "", "", "", "",
		"patient reports sore throat", "",
	))

	require.NoError(t, agent.Run(context.Background()))

	assert.Equal(t, 1, fake.Calls, "flow must stop once the note is the error variant")
	assert.NotContains(t, out.String(), "Recommending examinations")
}

func TestRunSavesReport(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeLLM{responses: []string{soapJSON, examsJSON, extractJSON, conflictsJSON}}
	agent, out := newAgent(fake, script(
		"Jane Doe", "44", "female", "", "penicillin", "",
		"patient reports sore throat", "",
		"y",
	))
	agent.Reports = core.ReportWriter{Dir: dir}

	require.NoError(t, agent.Run(context.Background()))
	assert.Contains(t, out.String(), "Report saved to ")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "ehr_report_"))

	content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	report := string(content)
	assert.Contains(t, report, "[Patient Information]")
	assert.Contains(t, report, "Jane Doe")
	assert.Contains(t, report, "patient reports sore throat")
	assert.Contains(t, report, "switch to azithromycin")
}
