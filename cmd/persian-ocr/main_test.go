package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/persian-ocr/internal/core/normalize"
)

func TestRunNormalize(t *testing.T) {
	in := "كتاب ها مي شود ."
	var out bytes.Buffer
	require.NoError(t, runNormalize(strings.NewReader(in), &out, false))
	assert.Equal(t, normalize.Normalize(in), out.String())
}

func TestRunNormalize_Trace(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runNormalize(strings.NewReader("سلام"), &out, true))
	for _, name := range normalize.Stages() {
		assert.Contains(t, out.String(), "== "+name+" ==\n")
	}
}

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"unknown flag", []string{"--nope"}, 2},
		{"missing input", nil, 2},
		{"two inputs", []string{"a.png", "b.png"}, 2},
		{"unknown engine", []string{"--engine", "bogus", "scan.png"}, 2},
		{"info on missing pdf", []string{"--info", "/does/not/exist.pdf"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Equal(t, tt.want, run(tt.args, strings.NewReader(""), &out))
			assert.Empty(t, out.String())
		})
	}
}

func TestRun_NormalizeStdin(t *testing.T) {
	in := "مي شود ."
	var out bytes.Buffer
	require.Equal(t, 0, run([]string{"--normalize"}, strings.NewReader(in), &out))
	assert.Equal(t, normalize.Normalize(in), out.String())
}
