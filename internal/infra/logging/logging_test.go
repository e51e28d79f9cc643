//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"financeflow/internal/config"
)

func TestWithAddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, config.LogConfig{Level: "debug", Format: "json"}, false)

	ctx := WithJobID(WithUserID(context.Background(), "u-1"), "job-9")
	With(ctx, base).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["user_id"] != "u-1" || line["job_id"] != "job-9" {
		t.Fatalf("missing context fields: %v", line)
	}
	if _, ok := line["chat_id"]; ok {
		t.Fatal("unset fields must not be logged")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, config.LogConfig{Level: "warn", Format: "json"}, false)
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level, got %s", buf.String())
	}
}

func TestRedact(t *testing.T) {
	cases := []struct {
		in   string
		dev  bool
		want string
	}{
		{"short", false, "***"},
		{"ăn phở 45k sáng nay", false, "ăn p...ay"},
		{"anything", true, "anything"},
	}
	for _, c := range cases {
		if got := Redact(c.in, c.dev); got != c.want {
			t.Errorf("Redact(%q, %v) = %q, want %q", c.in, c.dev, got, c.want)
		}
	}
}
