// File: internal/reporting/reporter.go

// Package reporting exports a finished run's traffic log as JSON Lines, one
// record per executed (request, response) pair.
package reporting

import (
	"fmt"
	"io"
	"os"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/raccoon-cli/api/schemas"
	"github.com/xkilldash9x/raccoon-cli/internal/session"
)

// TrafficRecord is one JSONL line. Seq is the zero-based position in
// execution order; the summary fields mirror the "METHOD path -> status"
// traffic lines for quick grepping, with the full objects alongside.
type TrafficRecord struct {
	RunID    string            `json:"run_id"`
	Seq      int               `json:"seq"`
	Method   string            `json:"method"`
	Path     string            `json:"path"`
	Status   int               `json:"status"`
	Request  *schemas.Request  `json:"request"`
	Response *schemas.Response `json:"response"`
}

// Reporter writes traffic records to an output.
type Reporter interface {
	// WriteTraffic emits the full traffic log in order.
	WriteTraffic(runID string, traffic []session.TrafficEntry) error
	// Close finalizes the report and closes any underlying resources.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// jsonlReporter streams records as newline-delimited JSON. It takes ownership
// of the writer.
type jsonlReporter struct {
	writer io.WriteCloser
}

// New creates a JSONL reporter for the given output path. An empty path or
// "stdout" writes to standard output, which Close then leaves open.
func New(outputPath string) (Reporter, error) {
	if outputPath == "" || outputPath == "stdout" {
		return &jsonlReporter{writer: &nopWriteCloser{os.Stdout}}, nil
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
	}
	return &jsonlReporter{writer: f}, nil
}

func (r *jsonlReporter) WriteTraffic(runID string, traffic []session.TrafficEntry) error {
	enc := json.NewEncoder(r.writer)
	for i, entry := range traffic {
		record := TrafficRecord{
			RunID:    runID,
			Seq:      i,
			Method:   entry.Request.Method,
			Path:     entry.Request.Path,
			Status:   entry.Response.StatusCode,
			Request:  entry.Request,
			Response: entry.Response,
		}
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("failed to encode traffic record %d: %w", i, err)
		}
	}
	return nil
}

func (r *jsonlReporter) Close() error {
	return r.writer.Close()
}
