// Package importer reads day logs from exported files so they can be merged
// into the ledger.
package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/theirongolddev/quitc/internal/model"
)

// ParseFile reads one file in its detected format. Malformed entries are
// counted in ParseErrors and skipped; Err is set only when the file as a
// whole can't be read. Within a file the last entry for a date wins.
func ParseFile(df DiscoveredFile) ParseResult {
	result := ParseResult{File: df, Days: model.Days{}}

	f, err := os.Open(df.Path)
	if err != nil {
		result.Err = err
		return result
	}
	defer func() { _ = f.Close() }()

	switch df.Format {
	case FormatJSON:
		result.Err = parseJSON(f, &result)
	case FormatJSONL:
		result.Err = parseJSONL(f, &result)
	case FormatCSV:
		result.Err = parseCSV(f, &result)
	default:
		result.Err = fmt.Errorf("unknown format %q", df.Format)
	}
	return result
}

// add records one date/status pair, counting it as a parse error when
// either side is invalid.
func (r *ParseResult) add(date, status string) {
	r.Lines++
	d, err := model.ParseDate(strings.TrimSpace(date))
	if err != nil {
		r.ParseErrors++
		return
	}
	s, err := model.ParseStatus(status)
	if err != nil {
		r.ParseErrors++
		return
	}
	r.Days[d] = s
}

func parseJSON(rd io.Reader, r *ParseResult) error {
	var raw map[string]string
	if err := json.NewDecoder(rd).Decode(&raw); err != nil {
		return fmt.Errorf("decoding %s: %w", r.File.Path, err)
	}
	for date, status := range raw {
		r.add(date, status)
	}
	return nil
}

var patStatus = []byte(`"status"`)

func parseJSONL(rd io.Reader, r *ParseResult) error {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		// Skip lines that can't carry a status (e.g. reminder events) without
		// paying for a full decode.
		if !bytes.Contains(line, patStatus) {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			r.Lines++
			r.ParseErrors++
			continue
		}
		if rec.Status == "" {
			continue
		}
		r.add(rec.Date, rec.Status)
	}
	return scanner.Err()
}

func parseCSV(rd io.Reader, r *ParseResult) error {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	first := true
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				r.Lines++
				r.ParseErrors++
				continue
			}
			return err
		}

		if first {
			first = false
			if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "date") {
				continue
			}
		}
		if len(row) < 2 {
			r.Lines++
			r.ParseErrors++
			continue
		}
		r.add(row[0], row[1])
	}
}
