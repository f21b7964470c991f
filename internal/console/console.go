// Package console implements the interactive consultation flow: one
// session walks patient intake, transcript capture, note generation,
// examination recommendations, drug screening and an optional report save.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ehr-scribe/internal/audio"
	"ehr-scribe/internal/core"
	"ehr-scribe/internal/db"
	"ehr-scribe/internal/stt"
	"ehr-scribe/pkg"
)

// Stage identifies a step in the session state machine.
type Stage int

const (
	StageCollectPatientInfo Stage = iota
	StageCaptureTranscript
	StageGenerateNote
	StageRecommendExaminations
	StageCheckDrugConflicts
	StageOptionalSave
	StageDone
)

// Agent runs one consultation session. All state lives in memory for the
// duration of the run.
type Agent struct {
	Soap    *core.SOAPGenerator
	Exams   *core.ExamRecommender
	Drugs   *core.DrugChecker
	Reports core.ReportWriter
	Store   *db.Store // optional archive

	// Transcriber and NewSource enable voice capture; when either is nil
	// the flow falls back to manual entry.
	Transcriber stt.Transcriber
	NewSource   func() (audio.Source, error)
	Capture     audio.CaptureOptions

	RecordingsDir string
	Log           zerolog.Logger

	In  io.Reader
	Out io.Writer

	patient    pkg.PatientInfo
	transcript string
	note       pkg.SoapNote
	exams      pkg.ExaminationList
	conflicts  pkg.DrugConflictReport
	drugs      []string
}

// Run drives the session from intake to completion. It returns nil on a
// clean finish or user abort; only unexpected I/O failures surface as
// errors.
func (a *Agent) Run(ctx context.Context) error {
	if a.In == nil {
		a.In = os.Stdin
	}
	if a.Out == nil {
		a.Out = os.Stdout
	}
	in := bufio.NewReader(a.In)

	fmt.Fprintln(a.Out, "EHR Scribe - consultation assistant")
	fmt.Fprintln(a.Out, "1. transcript capture  2. SOAP note  3. examination recommendations  4. drug conflict check")
	fmt.Fprintln(a.Out)

	for stage := StageCollectPatientInfo; stage != StageDone; {
		var err error
		stage, err = a.step(ctx, stage, in)
		if err != nil {
			return err
		}
	}
	fmt.Fprintln(a.Out, "\nConsultation flow complete.")
	return nil
}

// step executes one stage and returns the next. StageDone aborts the
// machine; stages that find their precondition unmet jump straight there.
func (a *Agent) step(ctx context.Context, stage Stage, in *bufio.Reader) (Stage, error) {
	switch stage {
	case StageCollectPatientInfo:
		a.patient = a.collectPatientInfo(in)
		return StageCaptureTranscript, nil

	case StageCaptureTranscript:
		a.transcript = a.captureTranscript(ctx, in)
		if strings.TrimSpace(a.transcript) == "" {
			fmt.Fprintln(a.Out, "No consultation transcript captured, exiting.")
			return StageDone, nil
		}
		return StageGenerateNote, nil

	case StageGenerateNote:
		fmt.Fprintln(a.Out, "\nGenerating SOAP note...")
		a.note, _ = a.Soap.Generate(ctx, a.transcript, a.patient)
		fmt.Fprintln(a.Out, core.FormatSoapText(a.note))
		if a.note.Failed() {
			return StageDone, nil
		}
		return StageRecommendExaminations, nil

	case StageRecommendExaminations:
		fmt.Fprintln(a.Out, "\nRecommending examinations...")
		a.exams, _ = a.Exams.Recommend(ctx, a.note, a.transcript)
		fmt.Fprintln(a.Out, core.FormatExaminations(a.exams))
		return StageCheckDrugConflicts, nil

	case StageCheckDrugConflicts:
		fmt.Fprintln(a.Out, "\nChecking drug conflicts...")
		a.drugs = a.Drugs.ExtractDrugs(ctx, a.note.Plan)
		if len(a.drugs) == 0 {
			fmt.Fprintln(a.Out, "No drugs found in the treatment plan, skipping conflict check.")
			return StageOptionalSave, nil
		}
		a.conflicts, _ = a.Drugs.CheckConflicts(ctx,
			a.drugs, a.patient.AllergyList(), a.patient.MedicationList(), a.patient.MedicalHistory)
		fmt.Fprintln(a.Out, core.FormatConflictReport(a.conflicts))
		return StageOptionalSave, nil

	case StageOptionalSave:
		a.archive(ctx)
		if a.confirm(in, "Save report to file?", false) {
			a.saveReport()
		}
		return StageDone, nil
	}
	return StageDone, nil
}

func (a *Agent) collectPatientInfo(in *bufio.Reader) pkg.PatientInfo {
	fmt.Fprintln(a.Out, "Patient information (enter to skip)")
	return pkg.PatientInfo{
		Name:               a.ask(in, "Name", "unknown"),
		Age:                a.ask(in, "Age", "unknown"),
		Gender:             a.ask(in, "Gender", "unknown"),
		MedicalHistory:     a.ask(in, "Medical history", "none"),
		Allergies:          a.ask(in, "Allergies (comma-separated)", "none"),
		CurrentMedications: a.ask(in, "Current medications (comma-separated)", "none"),
	}
}

// captureTranscript obtains the consultation text, via voice when a
// transcriber is wired, otherwise by manual entry. Voice capture that
// yields nothing also falls back to manual entry.
func (a *Agent) captureTranscript(ctx context.Context, in *bufio.Reader) string {
	voiceReady := a.Transcriber != nil && a.NewSource != nil
	if voiceReady && a.confirm(in, "Use voice input?", true) {
		if text := a.recordConsultation(ctx, in); text != "" {
			return text
		}
		fmt.Fprintln(a.Out, "Nothing transcribed, switching to manual entry.")
	}
	return a.manualTranscript(in)
}

// recordConsultation loops phrase captures until the user stops or
// interrupts. Ctrl-C aborts the capture loop only.
func (a *Agent) recordConsultation(ctx context.Context, in *bufio.Reader) string {
	captureCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)
	go func() {
		select {
		case <-interrupt:
			fmt.Fprintln(a.Out, "\nRecording interrupted.")
			cancel()
		case <-captureCtx.Done():
		}
	}()

	var parts []string
	for {
		fmt.Fprintln(a.Out, "Recording, please speak...")
		text, err := a.capturePhrase(captureCtx)
		if err != nil {
			if captureCtx.Err() != nil {
				break
			}
			fmt.Fprintf(a.Out, "Recording error: %v\n", err)
			if !a.confirm(in, "Retry?", true) {
				break
			}
			continue
		}
		if text == "" {
			if !a.confirm(in, "No speech detected, retry?", true) {
				break
			}
			continue
		}
		parts = append(parts, text)
		fmt.Fprintf(a.Out, "Transcribed: %s\n\n", text)
		if !a.confirm(in, "Record another segment?", true) {
			break
		}
	}

	full := strings.Join(parts, " ")
	if full != "" {
		fmt.Fprintf(a.Out, "\nCapture complete, %d segment(s).\n", len(parts))
	}
	return full
}

// capturePhrase records one phrase, saves the raw audio under the
// recordings directory and transcribes it.
func (a *Agent) capturePhrase(ctx context.Context) (string, error) {
	src, err := a.NewSource()
	if err != nil {
		return "", fmt.Errorf("open audio source: %w", err)
	}
	defer src.Close()

	pcm, err := audio.Capture(ctx, src, a.Capture)
	if err != nil {
		return "", err
	}
	if len(pcm) == 0 {
		return "", nil
	}

	if a.RecordingsDir != "" {
		name := fmt.Sprintf("consultation_%s.wav", time.Now().Format("20060102_150405"))
		if err := audio.WriteWAV(filepath.Join(a.RecordingsDir, name), pcm, src.SampleRate()); err != nil {
			a.Log.Warn().Err(err).Msg("save recording")
		}
	}

	return a.Transcriber.Transcribe(ctx, pcm, src.SampleRate())
}

func (a *Agent) manualTranscript(in *bufio.Reader) string {
	fmt.Fprintln(a.Out, "Enter the consultation record (empty line to finish):")
	var lines []string
	for {
		line, err := in.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" || err != nil {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// archive stores the completed consultation when a store is configured.
func (a *Agent) archive(ctx context.Context) {
	if a.Store == nil || a.note.Failed() {
		return
	}
	if _, err := a.Store.SaveConsultation(ctx, a.patient, a.transcript, a.note); err != nil {
		a.Log.Error().Err(err).Msg("archive consultation")
	}
}

// saveReport renders every section into one report file.
func (a *Agent) saveReport() {
	var b strings.Builder
	b.WriteString("============================================================\n")
	b.WriteString("EHR Scribe Consultation Report\n")
	b.WriteString("============================================================\n\n")

	b.WriteString("[Patient Information]\n")
	fmt.Fprintf(&b, "name: %s\nage: %s\ngender: %s\nmedical_history: %s\nallergies: %s\ncurrent_medications: %s\n\n",
		a.patient.Name, a.patient.Age, a.patient.Gender,
		a.patient.MedicalHistory, a.patient.Allergies, a.patient.CurrentMedications)

	b.WriteString("[Consultation Record]\n")
	b.WriteString(a.transcript + "\n\n")

	b.WriteString(core.FormatSoapText(a.note))
	b.WriteString("\n")
	b.WriteString(core.FormatExaminations(a.exams))
	b.WriteString("\n")
	if len(a.drugs) > 0 {
		b.WriteString(core.FormatConflictReport(a.conflicts))
	}

	filename, path, err := a.Reports.Save(b.String())
	if err != nil {
		fmt.Fprintf(a.Out, "Failed to save report: %v\n", err)
		return
	}
	fmt.Fprintf(a.Out, "Report saved to %s\n", path)

	if a.Store != nil {
		if err := a.Store.SaveReport(context.Background(), nil, filename, path); err != nil {
			a.Log.Error().Err(err).Msg("archive report record")
		}
	}
}

func (a *Agent) ask(in *bufio.Reader, label, def string) string {
	fmt.Fprintf(a.Out, "%s [%s]: ", label, def)
	line, _ := in.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

func (a *Agent) confirm(in *bufio.Reader, question string, def bool) bool {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	fmt.Fprintf(a.Out, "%s [%s]: ", question, hint)
	line, _ := in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return def
	}
}
