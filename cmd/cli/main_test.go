package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	jsonOut = false
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("lyryc %v: %v", args, err)
	}
	return out.String()
}

func TestFormatTime(t *testing.T) {
	cases := map[float64]string{
		0:      "00:00.00",
		1.5:    "00:01.50",
		65.256: "01:05.26",
		-2:     "-00:02.00",
	}
	for in, want := range cases {
		if got := formatTime(in); got != want {
			t.Errorf("formatTime(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestParseCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.lrc")
	if err := os.WriteFile(path, []byte("[ti:Song]\n[00:01.00]first\n[00:03.50]second\nnot a line\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := runCLI(t, "", "parse", path)
	for _, want := range []string{"[00:01.00] first", "[00:03.50] second", "2 parsed, 1 metadata, 1 skipped of 4 lines"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAlignCommandReadsStdin(t *testing.T) {
	out := runCLI(t, "one\ntwo\n", "align", "--duration", "10")
	if !strings.Contains(out, "[00:00.00] one") || !strings.Contains(out, "two") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestCompareCommand(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.lrc")
	b := filepath.Join(dir, "b.lrc")
	os.WriteFile(a, []byte("[00:01.00]x\n[00:02.00]y\n"), 0o644)
	os.WriteFile(b, []byte("[00:01.50]x\n[00:02.50]y\n"), 0o644)

	out := runCLI(t, "", "compare", a, b)
	if !strings.Contains(out, "matched 2  MAE 0.500s") || !strings.Contains(out, "mean offset -0.500s") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestDetectCommand(t *testing.T) {
	if out := runCLI(t, "", "detect", "君の名は"); strings.TrimSpace(out) != "ja" {
		t.Errorf("detect = %q, want ja", out)
	}
}
