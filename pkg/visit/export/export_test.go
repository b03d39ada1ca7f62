package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"beacon-hq/beacon/pkg/visit"
)

func sampleVisits() []*visit.Visit {
	return []*visit.Visit{
		{
			ID:         1,
			IP:         "198.51.100.7",
			Language:   "en-US",
			UserAgent:  "Mozilla/5.0 (X11; Linux x86_64)",
			Platform:   "Linux",
			Timezone:   "Europe/Berlin",
			RecordedAt: "2024-03-15T10:30:00Z",
		},
		{
			ID:         2,
			IP:         "203.0.113.9",
			Language:   "fr-FR",
			UserAgent:  "Mozilla/5.0, \"quoted\" (Macintosh)",
			Platform:   "MacIntel",
			Timezone:   "America/New_York",
			RecordedAt: "2024-03-16T08:00:00Z",
		},
	}
}

func TestJSONExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewJSONExporter(false)

	if err := exporter.Export(context.Background(), sampleVisits(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var decoded []visit.Visit
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(decoded))
	}
	if decoded[0].ID != 1 || decoded[1].Language != "fr-FR" {
		t.Errorf("round-trip mismatch: %+v", decoded)
	}
}

func TestJSONExporter_Export_Empty(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewJSONExporter(false)

	if err := exporter.Export(context.Background(), nil, &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if got := buf.String(); got != "[]" {
		t.Errorf("expected empty array, got %q", got)
	}
}

func TestJSONExporter_ExportStream(t *testing.T) {
	records := sampleVisits()
	ch := make(chan *visit.Visit, len(records))
	for _, r := range records {
		ch <- r
	}
	close(ch)

	var buf bytes.Buffer
	exporter := NewJSONExporter(false)
	if err := exporter.ExportStream(context.Background(), ch, &buf); err != nil {
		t.Fatalf("ExportStream failed: %v", err)
	}

	var decoded []visit.Visit
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("streamed output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Errorf("expected 2 records, got %d", len(decoded))
	}
}

func TestJSONExporter_ExportStream_Cancelled(t *testing.T) {
	ch := make(chan *visit.Visit)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	exporter := NewJSONExporter(false)
	if err := exporter.ExportStream(ctx, ch, &buf); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCSVExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewCSVExporter(true)

	if err := exporter.Export(context.Background(), sampleVisits(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "id" || rows[0][6] != "recorded_at" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "198.51.100.7" {
		t.Errorf("expected ip in row 1, got %v", rows[1])
	}
	// The quoted, comma-bearing user agent must survive escaping.
	if rows[2][3] != `Mozilla/5.0, "quoted" (Macintosh)` {
		t.Errorf("user agent escaping broken: %q", rows[2][3])
	}
}

func TestCSVExporter_Export_NoHeader(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewCSVExporter(false)

	if err := exporter.Export(context.Background(), sampleVisits()[:1], &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if strings.HasPrefix(buf.String(), "id,") {
		t.Errorf("header written despite IncludeHeader=false: %q", buf.String())
	}
}

func TestCSVExporter_ExportStream(t *testing.T) {
	records := sampleVisits()
	ch := make(chan *visit.Visit, len(records))
	for _, r := range records {
		ch <- r
	}
	close(ch)

	var buf bytes.Buffer
	exporter := NewCSVExporter(true)
	if err := exporter.ExportStream(context.Background(), ch, &buf); err != nil {
		t.Fatalf("ExportStream failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("streamed output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("expected header plus 2 rows, got %d", len(rows))
	}
}
