// Package tui implements the terminal configuration form.
package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/openscribe/scribe/internal/config"
)

// Run edits the configuration interactively and saves it on confirm.
func Run(cfg *config.Config) error {
	clearScreen()
	fmt.Println(styleHeader.Render("scribe configuration"))

	sampleRate := strconv.Itoa(cfg.Audio.SampleRate)
	maxTokens := strconv.Itoa(cfg.Inference.MaxTokens)
	confirmed := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Recognizer backend").
				Description("In-process VOSK model or a vosk-server websocket").
				Options(
					huh.NewOption("VOSK (local model directory)", "vosk"),
					huh.NewOption("vosk-server (websocket)", "vosk-server"),
				).
				Value(&cfg.Recognizer.Backend),
			huh.NewInput().
				Title("Model path").
				Description("Directory of the VOSK model (vosk backend)").
				Value(&cfg.Recognizer.ModelPath),
			huh.NewInput().
				Title("Recognizer server URL").
				Description("ws:// address (vosk-server backend)").
				Value(&cfg.Recognizer.ServerURL),
			huh.NewInput().
				Title("Sample rate").
				Value(&sampleRate).
				Validate(validatePositiveInt),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Inference provider").
				Options(
					huh.NewOption("llama.cpp-style endpoint", "llamacpp"),
					huh.NewOption("OpenAI-compatible API", "openai"),
				).
				Value(&cfg.Inference.Provider),
			huh.NewInput().
				Title("Inference endpoint").
				Description("Completion URL of the local server").
				Value(&cfg.Inference.EndpointURL),
			huh.NewInput().
				Title("Max tokens").
				Value(&maxTokens).
				Validate(validatePositiveInt),
			huh.NewConfirm().
				Title("Save configuration?").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}
	if !confirmed {
		fmt.Println(styleMuted.Render("Configuration unchanged."))
		return nil
	}

	cfg.Audio.SampleRate, _ = strconv.Atoi(sampleRate)
	cfg.Inference.MaxTokens, _ = strconv.Atoi(maxTokens)

	if err := cfg.Validate(); err != nil {
		fmt.Println(styleErr.Render(fmt.Sprintf("Invalid configuration: %v", err)))
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}

	fmt.Println(styleOK.Render("Configuration saved."))
	return nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}
