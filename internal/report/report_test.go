package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const eventsFixture = `{"id":"e1","seq":1,"type":"deposit","pool":"0xf00","depositor":"0xaa","amount":"1500000","timestamp":100}
{"id":"e2","seq":2,"type":"unit_total_changed","pool":"0xf00","unit_total":"1500000","timestamp":100}
{"id":"e3","seq":3,"type":"deposit","pool":"0xf00","depositor":"0xbb","amount":"500000","timestamp":110}
{"id":"e4","seq":4,"type":"withdraw","pool":"0xf00","depositor":"0xaa","amount":"1600000","interest":"100001","timestamp":200}
{"id":"e5","seq":5,"type":"withdraw","pool":"0xf00","depositor":"0xbb","amount":"200000","interest":"-1","timestamp":210}
`

func writeEvents(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write events: %v", err)
	}
	return path
}

func TestReporterFoldsDepositorsSorted(t *testing.T) {
	path := writeEvents(t, eventsFixture)

	var out bytes.Buffer
	if err := NewReporter(6, nil).Run(path, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2: %q", len(lines), out.String())
	}

	wantA := "0xaa deposits=1 withdrawals=1 deposited=1.5 withdrawn=1.6 interest=0.100001 net=0.1"
	if lines[0] != wantA {
		t.Fatalf("line 0 = %q, want %q", lines[0], wantA)
	}
	wantB := "0xbb deposits=1 withdrawals=1 deposited=0.5 withdrawn=0.2 interest=-0.000001 net=-0.3"
	if lines[1] != wantB {
		t.Fatalf("line 1 = %q, want %q", lines[1], wantB)
	}
}

func TestReporterZeroDecimalsRendersRawIntegers(t *testing.T) {
	path := writeEvents(t, `{"id":"e1","seq":1,"type":"deposit","pool":"0xf00","depositor":"0xaa","amount":"42","timestamp":1}`+"\n")

	var out bytes.Buffer
	if err := NewReporter(0, nil).Run(path, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "0xaa deposits=1 withdrawals=0 deposited=42 withdrawn=0 interest=0 net=-42\n"
	if out.String() != want {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}
}

func TestReporterSkipsMalformedLines(t *testing.T) {
	content := "not json\n" +
		`{"id":"e1","seq":1,"type":"deposit","pool":"0xf00","depositor":"0xaa","amount":"100","timestamp":1}` + "\n" +
		`{"id":"e2","seq":2,"type":"deposit","pool":"0xf00","depositor":"0xaa","amount":"bogus","timestamp":2}` + "\n"
	path := writeEvents(t, content)

	var out bytes.Buffer
	if err := NewReporter(0, nil).Run(path, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "0xaa deposits=1 withdrawals=0 deposited=100 withdrawn=0 interest=0 net=-100\n"
	if out.String() != want {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}
}

func TestReporterMissingInput(t *testing.T) {
	var out bytes.Buffer
	if err := NewReporter(0, nil).Run(filepath.Join(t.TempDir(), "absent.jsonl"), &out); err == nil {
		t.Fatalf("expected error for missing input")
	}
}
