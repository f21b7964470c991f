package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"ehr-scribe/internal/llm"
	"ehr-scribe/pkg"
)

// DrugChecker performs the two drug-safety operations: extracting drug
// names from a free-text treatment plan, and screening the extracted drugs
// against the patient's allergies, medications and history. Extraction is
// split from checking so an empty extraction can skip the more expensive
// conflict prompt entirely.
type DrugChecker struct {
	LLM llm.Client
	Log zerolog.Logger
}

// NewDrugChecker constructs a DrugChecker.
func NewDrugChecker(client llm.Client, log zerolog.Logger) *DrugChecker {
	return &DrugChecker{LLM: client, Log: log}
}

// ExtractDrugs pulls plain drug names from the treatment plan. Any failure
// yields an empty list, which downstream treats the same as "no drugs
// found": conflict checking is skipped.
func (c *DrugChecker) ExtractDrugs(ctx context.Context, planText string) []string {
	prompt := fmt.Sprintf(extractDrugsPromptTemplate, planText)

	raw, err := c.LLM.CompleteJSON(ctx, prompt, 0.1)
	if err != nil {
		c.Log.Error().Err(err).Msg("drug extraction failed")
		return nil
	}

	var result struct {
		Drugs []string `json:"drugs"`
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.Log.Error().Err(err).Msg("decode drug extraction response")
		return nil
	}

	drugs := result.Drugs[:0]
	for _, d := range result.Drugs {
		if strings.TrimSpace(d) != "" {
			drugs = append(drugs, strings.TrimSpace(d))
		}
	}
	return drugs
}

// CheckConflicts screens the prescribed drugs across five dimensions
// (allergy, drug-drug, current medication, history, dosage). The caller
// passes a non-empty drug list. On failure the degraded variant with
// severity "unknown" is returned alongside the error. has_conflicts is the
// model's assertion and is not reconciled against the list fields.
func (c *DrugChecker) CheckConflicts(ctx context.Context, drugs, allergies, currentMeds []string, history string) (pkg.DrugConflictReport, error) {
	prompt := fmt.Sprintf(conflictPromptTemplate,
		strings.Join(drugs, ", "),
		orNone(allergies),
		orNone(currentMeds),
		orDefault(history, "none"))

	raw, err := c.LLM.CompleteJSON(ctx, prompt, 0.2)
	if err != nil {
		return c.fail(err)
	}

	var report pkg.DrugConflictReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return c.fail(fmt.Errorf("decode conflict response: %w", err))
	}
	if report.AllergyWarnings == nil {
		report.AllergyWarnings = []string{}
	}
	if report.DrugInteractions == nil {
		report.DrugInteractions = []pkg.DrugInteraction{}
	}
	if report.Contraindications == nil {
		report.Contraindications = []string{}
	}
	if report.DosageWarnings == nil {
		report.DosageWarnings = []string{}
	}
	if report.Recommendations == nil {
		report.Recommendations = []string{}
	}
	if report.Severity == "" {
		report.Severity = pkg.SeverityUnknown
	}
	report.Error = ""
	return report, nil
}

func (c *DrugChecker) fail(err error) (pkg.DrugConflictReport, error) {
	c.Log.Error().Err(err).Msg("drug conflict check failed")
	return pkg.DrugConflictReport{
		AllergyWarnings:   []string{},
		DrugInteractions:  []pkg.DrugInteraction{},
		Contraindications: []string{},
		DosageWarnings:    []string{},
		Recommendations:   []string{},
		Severity:          pkg.SeverityUnknown,
		Error:             err.Error(),
	}, err
}
