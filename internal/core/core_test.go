package core

import (
	"context"

	"github.com/rs/zerolog"
)

// fakeLLM is a scripted llm.Client. Each call pops the next queued
// response; Err short-circuits every call. Calls counts invocations.
type fakeLLM struct {
	Responses []string
	Err       error

	Calls   int
	Prompts []string
	Temps   []float32
}

func (f *fakeLLM) CompleteJSON(_ context.Context, prompt string, temperature float32) (string, error) {
	f.Calls++
	f.Prompts = append(f.Prompts, prompt)
	f.Temps = append(f.Temps, temperature)
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Responses) == 0 {
		return "{}", nil
	}
	resp := f.Responses[0]
	f.Responses = f.Responses[1:]
	return resp, nil
}

func testLogger() zerolog.Logger { return zerolog.Nop() }
