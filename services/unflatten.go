package services

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// UnflattenOptions beschreiben einen Aufruf des externen Unflatten-Werkzeugs.
type UnflattenOptions struct {
	InputDir     string
	OutputPath   string
	BaseJSONPath string
	RootListPath string
	RootID       string
	Schema       string
	Encoding     string
}

// Unflattener wandelt ein Verzeichnis mit OCDS-Pfad-CSVs in verschachteltes JSON.
type Unflattener interface {
	Unflatten(ctx context.Context, opts UnflattenOptions) error
}

// CommandUnflattener ruft flatten-tool als externen Prozess auf.
type CommandUnflattener struct {
	Command string
	Logger  *zap.Logger
}

// NewCommandUnflattener erzeugt einen Unflattener für das gegebene Kommando, z.B. "flatten-tool".
func NewCommandUnflattener(command string, logger *zap.Logger) *CommandUnflattener {
	return &CommandUnflattener{Command: command, Logger: logger}
}

// Args baut die Kommandozeile ohne das Programm selbst.
func (u *CommandUnflattener) Args(opts UnflattenOptions) []string {
	var args []string
	if parts := strings.Fields(u.Command); len(parts) > 1 {
		args = append(args, parts[1:]...)
	}
	args = append(args, "unflatten", opts.InputDir,
		"--input-format", "csv",
		"--output-name", opts.OutputPath,
		"--root-id", opts.RootID,
		"--convert-titles",
	)
	if opts.BaseJSONPath != "" {
		args = append(args, "--base-json", opts.BaseJSONPath)
	}
	if opts.RootListPath != "" {
		args = append(args, "--root-list-path", opts.RootListPath)
	}
	if opts.Schema != "" {
		args = append(args, "--schema", opts.Schema)
	}
	if opts.Encoding != "" {
		args = append(args, "--encoding", opts.Encoding)
	}
	return args
}

// Unflatten führt das Kommando aus; stderr landet in der Fehlermeldung.
func (u *CommandUnflattener) Unflatten(ctx context.Context, opts UnflattenOptions) error {
	parts := strings.Fields(u.Command)
	if len(parts) == 0 {
		return fmt.Errorf("unflatten command is not configured")
	}
	cmd := exec.CommandContext(ctx, parts[0], u.Args(opts)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log := u.Logger.With(zap.String("input_dir", opts.InputDir), zap.String("output", opts.OutputPath))
	log.Info("Starte Unflatten")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("unflatten failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	log.Info("Unflatten abgeschlossen")
	return nil
}
