package export

import (
	"context"
	"encoding/json"
	"io"

	"beacon-hq/beacon/pkg/visit"
)

// JSONExporter exports visits to JSON format.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{
		Pretty: pretty,
	}
}

// Export writes visits to the provided writer as a JSON array. An empty
// slice exports as "[]" rather than "null" so consumers always see an
// array.
func (e *JSONExporter) Export(ctx context.Context, records []*visit.Visit, w io.Writer) error {
	if len(records) == 0 {
		_, err := w.Write([]byte("[]"))
		if err != nil {
			return visit.NewExportError("json", 0, err)
		}
		return nil
	}

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(records, "", "  ")
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return visit.NewExportError("json", len(records), err)
	}

	if _, err := w.Write(data); err != nil {
		return visit.NewExportError("json", len(records), err)
	}
	return nil
}

// ExportStream exports visits from a channel as a JSON array. Records are
// written as they arrive, so large result sets never load fully into
// memory.
func (e *JSONExporter) ExportStream(ctx context.Context, recordsCh <-chan *visit.Visit, w io.Writer) error {
	if _, err := w.Write([]byte("[")); err != nil {
		return visit.NewExportError("json", 0, err)
	}

	first := true
	recordCount := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				if _, err := w.Write([]byte("]")); err != nil {
					return visit.NewExportError("json", recordCount, err)
				}
				return nil
			}

			if !first {
				if _, err := w.Write([]byte(",")); err != nil {
					return visit.NewExportError("json", recordCount, err)
				}
				if e.Pretty {
					if _, err := w.Write([]byte("\n")); err != nil {
						return visit.NewExportError("json", recordCount, err)
					}
				}
			}
			first = false

			data, err := e.serializeRecord(record)
			if err != nil {
				return visit.NewExportError("json", recordCount, err)
			}
			if _, err := w.Write(data); err != nil {
				return visit.NewExportError("json", recordCount, err)
			}

			recordCount++
		}
	}
}

// serializeRecord serializes a single visit to JSON.
func (e *JSONExporter) serializeRecord(record *visit.Visit) ([]byte, error) {
	if e.Pretty {
		return json.MarshalIndent(record, "  ", "  ")
	}
	return json.Marshal(record)
}
