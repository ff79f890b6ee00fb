package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswers(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{name: "sequence", input: "- one\n- two\n", want: []string{"one", "two"}},
		{name: "object", input: "answers:\n  - one\n  - '  '\n  - three\n", want: []string{"one", "three"}},
		{name: "empty", input: "answers: []\n", wantErr: true},
		{name: "scalar", input: "just text", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAnswers([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunDefaultAnswers(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, options{user: "sim", onboarded: true})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "scenario: ")
	assert.Contains(t, text, "overall ")
	assert.Contains(t, text, "next: ")
}

func TestRunSQLiteWithAnswersFile(t *testing.T) {
	dir := t.TempDir()
	answers := filepath.Join(dir, "answers.yaml")
	require.NoError(t, os.WriteFile(answers, []byte("- a\n- b\n- c\n- d\n- e\n"), 0o600))

	var out bytes.Buffer
	err := run(context.Background(), &out, options{
		user:        "sim",
		answersFile: answers,
		dbPath:      filepath.Join(dir, "sim.db"),
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Onboarding")
}

func TestRunTooFewAnswers(t *testing.T) {
	dir := t.TempDir()
	answers := filepath.Join(dir, "answers.yaml")
	require.NoError(t, os.WriteFile(answers, []byte("- only one\n"), 0o600))

	err := run(context.Background(), &bytes.Buffer{}, options{user: "sim", answersFile: answers})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journey incomplete")
}
