// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"INFO", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("RequestIDFromContext(empty) = %q, want \"\"", got)
	}

	ctx = ContextWithRequestID(ctx, "req-42")
	if got := RequestIDFromContext(ctx); got != "req-42" {
		t.Errorf("RequestIDFromContext = %q, want req-42", got)
	}
}

func TestGenerateRequestIDUnique(t *testing.T) {
	a := GenerateRequestID()
	b := GenerateRequestID()
	if a == "" || a == b {
		t.Errorf("GenerateRequestID produced %q and %q", a, b)
	}
}

func TestCtxAttachesRequestID(t *testing.T) {
	var buf bytes.Buffer
	old := Logger()
	SetLogger(NewTestLogger(&buf))
	defer SetLogger(old)

	ctx := ContextWithRequestID(context.Background(), "req-7")
	Ctx(ctx).Info().Msg("hello")

	if out := buf.String(); !strings.Contains(out, "req-7") {
		t.Errorf("log line missing request id: %s", out)
	}
}

func TestSlogAdapterForwardsToZerolog(t *testing.T) {
	var buf bytes.Buffer
	old := Logger()
	SetLogger(NewTestLogger(&buf))
	defer SetLogger(old)

	slogger := NewSlogLogger()
	slogger.Info("supervisor event", "service", "http-api")

	out := buf.String()
	if !strings.Contains(out, "supervisor event") || !strings.Contains(out, "http-api") {
		t.Errorf("slog output not forwarded: %s", out)
	}
}

func TestSlogAdapterLevelMapping(t *testing.T) {
	var buf bytes.Buffer
	old := Logger()
	SetLogger(NewTestLogger(&buf))
	defer SetLogger(old)

	slogger := NewSlogLogger()
	slogger.Warn("warn line")
	slogger.Error("error line")

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("warn record not mapped to zerolog warn: %s", out)
	}
	if !strings.Contains(out, `"level":"error"`) {
		t.Errorf("error record not mapped to zerolog error: %s", out)
	}
}
