// Package export provides visit exporters for various formats.
//
// # Export Formats
//
// The export package provides exporters for:
//
//   - JSON: array output with optional pretty-printing
//   - CSV: flat schema with optional header row and proper escaping
//
// # JSON Export
//
//	exporter := export.NewJSONExporter(true)
//	err := exporter.Export(ctx, records, os.Stdout)
//
// # CSV Export
//
//	exporter := export.NewCSVExporter(true)
//	f, _ := os.Create("visits.csv")
//	defer f.Close()
//	err := exporter.Export(ctx, records, f)
//
// # Streaming
//
// Both exporters support streaming large result sets via ExportStream,
// writing records to the output writer as they arrive on a channel
// instead of holding the full set in memory.
//
// # Error Handling
//
// Exporters return visit.ExportError when serialization or the
// underlying writer fails.
package export
