package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	apperrors "github.com/matzehuels/repotrack/pkg/errors"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitOK},
		{"interrupted", fmt.Errorf("update: %w", context.Canceled), exitInterrupted},
		{"unknown parser", apperrors.New(apperrors.ErrCodeInvalidParser, "invalid parser name %q", "Nope"), exitConfig},
		{"bad options", fmt.Errorf("freebsd: %w", apperrors.New(apperrors.ErrCodeInvalidOptions, "unknown field")), exitConfig},
		{"network", apperrors.New(apperrors.ErrCodeNetwork, "GET failed"), exitFailure},
		{"plain", errors.New("2 of 3 sources failed"), exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestVerboseFlag(t *testing.T) {
	root := newRootCommand()
	if root.PersistentFlags().Lookup("verbose") == nil {
		t.Fatal("--verbose not registered")
	}
	if root.PersistentPreRunE == nil {
		t.Fatal("PersistentPreRunE not set")
	}
}
