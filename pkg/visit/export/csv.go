package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"beacon-hq/beacon/pkg/visit"
)

// CSVExporter exports visits to CSV format.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{
		IncludeHeader: includeHeader,
	}
}

// Export writes visits to the provided writer in CSV format. Field values
// are escaped by the csv writer, so user agents containing commas or
// quotes round-trip cleanly.
func (e *CSVExporter) Export(ctx context.Context, records []*visit.Visit, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return visit.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := writer.Write(recordToRow(record)); err != nil {
			return visit.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return visit.NewExportError("csv", len(records), err)
	}
	return nil
}

// ExportStream exports visits from a channel in CSV format, flushing
// every 100 records so long exports show progress.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *visit.Visit, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return visit.NewExportError("csv", 0, err)
		}
	}

	recordCount := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return visit.NewExportError("csv", recordCount, err)
				}
				return nil
			}

			if err := writer.Write(recordToRow(record)); err != nil {
				return visit.NewExportError("csv", recordCount, err)
			}

			recordCount++
			if recordCount%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return visit.NewExportError("csv", recordCount, err)
				}
			}
		}
	}
}

// headerRow returns the CSV header row.
func headerRow() []string {
	return []string{"id", "ip", "language", "user_agent", "platform", "timezone", "recorded_at"}
}

// recordToRow converts a visit to a CSV row.
func recordToRow(record *visit.Visit) []string {
	return []string{
		strconv.FormatInt(record.ID, 10),
		record.IP,
		record.Language,
		record.UserAgent,
		record.Platform,
		record.Timezone,
		record.RecordedAt,
	}
}
