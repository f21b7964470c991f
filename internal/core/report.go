package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ehr-scribe/pkg"
)

const sectionRule = "============================================================"

var severityLabels = map[string]string{
	pkg.SeverityHigh:   "⚠️ high risk",
	pkg.SeverityMedium: "⚡ medium risk",
	pkg.SeverityLow:    "ℹ️ low risk",
	pkg.SeverityNone:   "✅ no risk",
}

// FormatSoapText renders a SOAP note as a fixed-layout text block. The
// output is deterministic for a given note.
func FormatSoapText(note pkg.SoapNote) string {
	if note.Failed() {
		return fmt.Sprintf("Error: %s", note.Error)
	}

	var b strings.Builder
	b.WriteString("\n" + sectionRule + "\n")
	b.WriteString("SOAP Clinical Note\n")
	b.WriteString(sectionRule + "\n\n")

	b.WriteString("[Chief Complaint]\n")
	b.WriteString(orDefault(note.ChiefComplaint, "not provided") + "\n\n")

	b.WriteString("[Subjective (S)]\n")
	b.WriteString(note.Subjective + "\n\n")

	b.WriteString("[Objective (O)]\n")
	b.WriteString(note.Objective + "\n\n")

	b.WriteString("[Assessment (A)]\n")
	b.WriteString(note.Assessment + "\n\n")

	b.WriteString("[Plan (P)]\n")
	b.WriteString(note.Plan + "\n\n")

	b.WriteString("[Preliminary Diagnosis]\n")
	b.WriteString(strings.Join(note.PreliminaryDiagnosis, ", ") + "\n\n")

	if !note.GeneratedAt.IsZero() {
		b.WriteString("Generated at: " + note.GeneratedAt.Format("2006-01-02 15:04:05") + "\n")
	}
	b.WriteString(sectionRule + "\n")
	return b.String()
}

// FormatExaminations renders the recommendation list. Items are
// model-shaped maps; known keys get labelled lines and anything else is
// appended in sorted key order so the output stays deterministic.
func FormatExaminations(list pkg.ExaminationList) string {
	if list.Failed() {
		return fmt.Sprintf("Error: %s", list.Error)
	}
	if len(list.Items) == 0 {
		return "No examinations recommended.\n"
	}

	var b strings.Builder
	b.WriteString("\n[Recommended Examinations]\n")
	b.WriteString(sectionRule + "\n\n")
	for i, item := range list.Items {
		name, _ := item["name"].(string)
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, orDefault(name, "unnamed examination")))
		writeExamField(&b, item, "priority", "Priority")
		writeExamField(&b, item, "purpose", "Purpose")
		writeExamField(&b, item, "notes", "Notes")

		extras := make([]string, 0, len(item))
		for k := range item {
			switch k {
			case "name", "priority", "purpose", "notes":
			default:
				extras = append(extras, k)
			}
		}
		sort.Strings(extras)
		for _, k := range extras {
			b.WriteString(fmt.Sprintf("   %s: %v\n", k, item[k]))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeExamField(b *strings.Builder, item pkg.Examination, key, label string) {
	if v, ok := item[key].(string); ok && v != "" {
		fmt.Fprintf(b, "   %s: %s\n", label, v)
	}
}

// FormatConflictReport renders a drug conflict report with
// severity-to-icon mapping: high→warning, medium→lightning, low→info,
// none→check. Allergy and dosage warnings carry a warning icon,
// contraindications a prohibition icon, recommendations a bulb.
func FormatConflictReport(report pkg.DrugConflictReport) string {
	if report.Failed() {
		return fmt.Sprintf("Error: %s", report.Error)
	}

	var b strings.Builder
	b.WriteString("\n[Drug Conflict Check]\n")
	b.WriteString(sectionRule + "\n\n")

	label, ok := severityLabels[report.Severity]
	if !ok {
		label = report.Severity
	}
	b.WriteString("Overall assessment: " + label + "\n\n")

	if len(report.AllergyWarnings) > 0 {
		b.WriteString("[Allergy Warnings]\n")
		for _, w := range report.AllergyWarnings {
			b.WriteString("⚠️ " + w + "\n")
		}
		b.WriteString("\n")
	}

	if len(report.DrugInteractions) > 0 {
		b.WriteString("[Drug Interactions]\n")
		for _, di := range report.DrugInteractions {
			if di.Drugs != "" {
				b.WriteString("⚠️ " + di.Drugs + ": " + orDefault(di.Description, "not provided") + "\n")
			} else {
				b.WriteString("⚠️ " + di.Description + "\n")
			}
		}
		b.WriteString("\n")
	}

	if len(report.Contraindications) > 0 {
		b.WriteString("[Contraindications]\n")
		for _, c := range report.Contraindications {
			b.WriteString("🚫 " + c + "\n")
		}
		b.WriteString("\n")
	}

	if len(report.DosageWarnings) > 0 {
		b.WriteString("[Dosage Warnings]\n")
		for _, w := range report.DosageWarnings {
			b.WriteString("⚠️ " + w + "\n")
		}
		b.WriteString("\n")
	}

	if len(report.Recommendations) > 0 {
		b.WriteString("[Recommendations]\n")
		for _, r := range report.Recommendations {
			b.WriteString("💡 " + r + "\n")
		}
		b.WriteString("\n")
	}

	if !report.HasConflicts && len(report.AllergyWarnings) == 0 && len(report.DrugInteractions) == 0 {
		b.WriteString("✅ No obvious drug conflicts or safety risks found.\n")
	}

	return b.String()
}

// ReportWriter persists formatted report text under a configured output
// directory.
type ReportWriter struct {
	Dir string
}

// Save writes content to a timestamped file, creating the directory when
// absent. The whole buffer is written in one call; two saves within the
// same second share a filename and the later write wins.
func (w ReportWriter) Save(content string) (filename, path string, err error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}
	filename = fmt.Sprintf("ehr_report_%s.txt", time.Now().Format("20060102_150405"))
	path = filepath.Join(w.Dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", "", fmt.Errorf("write report: %w", err)
	}
	return filename, path, nil
}
