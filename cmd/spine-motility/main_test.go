package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "day1.csv")
	if err := os.WriteFile(in, []byte("spine,time,length\ns1,0,10\ns1,5,12\ns1,10,11\ns1,15,15\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "results.csv")
	chart := filepath.Join(dir, "chart.png")
	page := filepath.Join(dir, "chart.html")
	history := filepath.Join(dir, "history.db")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-output", out, "-chart", chart, "-html", page, "-history", history, in}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}

	if !strings.Contains(stdout.String(), "1.6667") {
		t.Errorf("motility missing from output:\n%s", stdout.String())
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("results not written: %v", err)
	}
	if !strings.HasPrefix(string(data), "spine_name,source_file,points,motility\n") {
		t.Errorf("unexpected results CSV: %q", data)
	}
	for _, p := range []string{chart, page, history} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s not written: %v", p, err)
		}
	}
	if !strings.Contains(stdout.String(), "recorded in "+history) {
		t.Errorf("run id not reported:\n%s", stdout.String())
	}
}

func TestRun_BadArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no inputs", nil, 2},
		{"unknown method", []string{"-method", "median", "x.csv"}, 2},
		{"unknown flag", []string{"-nope", "x.csv"}, 2},
		{"zero delta", []string{"-delta", "0", "x.csv"}, 2},
		{"negative delta", []string{"-delta", "-3", "x.csv"}, 2},
		{"missing file", []string{filepath.Join(t.TempDir(), "missing.csv")}, 1},
		{"help", []string{"-h"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if got := run(tt.args, &stdout, &stderr); got != tt.want {
				t.Errorf("exit code: got %d, want %d (stderr: %s)", got, tt.want, stderr.String())
			}
		})
	}
}

func TestRun_ReplacesOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "day1.csv")
	if err := os.WriteFile(in, []byte("spine,time,length\ns1,0,10\ns1,5,12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := t.TempDir()
	out := filepath.Join(outDir, "results.csv")
	if err := os.WriteFile(out, []byte(strings.Repeat("old row\n", 50)), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-output", out, in}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "old row") {
		t.Errorf("stale content left in results: %q", data)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only results.csv in output dir, got %d entries", len(entries))
	}

	// An unwritable target fails without creating anything.
	missing := filepath.Join(outDir, "nope", "results.csv")
	if code := run([]string{"-output", missing, in}, &stdout, &stderr); code != 1 {
		t.Errorf("exit code for unwritable output: got %d, want 1", code)
	}
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--version"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d", code)
	}
	if !strings.HasPrefix(stdout.String(), "spine-motility dev") {
		t.Errorf("unexpected version output: %q", stdout.String())
	}
}
