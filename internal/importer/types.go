package importer

import "github.com/theirongolddev/quitc/internal/model"

// Format identifies an import file layout.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"  // {"2024-01-02": "CLEAN", ...}, the ledger's own file format
	FormatJSONL Format = "jsonl" // one {"date": ..., "status": ...} object per line
	FormatCSV   Format = "csv"   // date,status rows with an optional header
)

// DiscoveredFile is one importable file found on disk.
type DiscoveredFile struct {
	Path   string
	Format Format
}

// Record is a single JSONL line. Daemon events share these field names, so a
// captured event stream imports as-is.
type Record struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

// ParseResult holds the output of parsing a single file.
type ParseResult struct {
	File        DiscoveredFile
	Days        model.Days
	Lines       int
	ParseErrors int
	Err         error
}
