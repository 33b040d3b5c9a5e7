package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
)

func TestRun(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	ok, err := run(&buf, time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !ok {
		t.Fatalf("run() reported a failing scenario:\n%s", buf.String())
	}

	out := buf.String()
	if strings.Contains(out, "\u2717") {
		t.Errorf("output contains a failure mark:\n%s", out)
	}
	for _, want := range []string{
		"1. fresh bug, then two days later (bug)",
		"age 48h0m0s",
		"age 23h59m59s",
		"age 24h0m0s",
		"priority none",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
