package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/xuri/excelize/v2"
)

// Source produces a raw Frame for one dataset.
type Source interface {
	// Name is the dataset name the frame is registered under.
	Name() string

	// Read returns the frame. It may block on I/O.
	Read(ctx context.Context) (*Frame, error)
}

// CSVSource parses comma-separated text with a header row.
type CSVSource struct {
	name string
	data []byte
}

// NewCSVSource returns a Source over CSV bytes.
func NewCSVSource(name string, data []byte) *CSVSource {
	return &CSVSource{name: name, data: data}
}

func (s *CSVSource) Name() string { return s.name }

func (s *CSVSource) Read(ctx context.Context) (*Frame, error) {
	return readCSV(ctx, bytes.NewReader(s.data))
}

func readCSV(ctx context.Context, r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	frame := &Frame{Header: header, Text: true}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		row := make([]any, len(record))
		for i, cell := range record {
			row[i] = cell
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame, nil
}

// XLSXSource reads the first sheet of an Excel workbook.
type XLSXSource struct {
	name  string
	data  []byte
	sheet string
}

// NewXLSXSource returns a Source over workbook bytes. An empty sheet selects
// the first sheet in the workbook.
func NewXLSXSource(name string, data []byte, sheet string) *XLSXSource {
	return &XLSXSource{name: name, data: data, sheet: sheet}
}

func (s *XLSXSource) Name() string { return s.name }

func (s *XLSXSource) Read(ctx context.Context) (*Frame, error) {
	f, err := excelize.OpenReader(bytes.NewReader(s.data))
	if err != nil {
		return nil, fmt.Errorf("xlsx: open: %w", err)
	}
	defer f.Close()

	sheet := s.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("xlsx: workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx: read %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("xlsx: sheet %s is empty", sheet)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// GetRows trims trailing empty cells, so short rows are padded to the
	// header width.
	header := rows[0]
	frame := &Frame{Header: header, Text: true, Rows: make([][]any, 0, len(rows)-1)}
	for _, record := range rows[1:] {
		row := make([]any, len(header))
		for i := range row {
			row[i] = ""
		}
		for i, cell := range record {
			if i < len(row) {
				row[i] = cell
			}
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame, nil
}

// RecordsSource adapts in-memory records with an explicit column order.
type RecordsSource struct {
	name    string
	columns []string
	records []map[string]any
}

// NewRecordsSource returns a Source over records. Missing keys read as nil.
func NewRecordsSource(name string, columns []string, records []map[string]any) *RecordsSource {
	return &RecordsSource{name: name, columns: columns, records: records}
}

func (s *RecordsSource) Name() string { return s.name }

func (s *RecordsSource) Read(ctx context.Context) (*Frame, error) {
	frame := &Frame{Header: append([]string(nil), s.columns...), Rows: make([][]any, len(s.records))}
	for r, rec := range s.records {
		row := make([]any, len(s.columns))
		for c, col := range s.columns {
			row[c] = rec[col]
		}
		frame.Rows[r] = row
	}
	return frame, nil
}

// Open reads location (a local path or any URL afs understands) and returns
// a Source chosen by file extension: .csv or .xlsx.
func Open(ctx context.Context, name, location string) (Source, error) {
	ext := strings.ToLower(path.Ext(location))
	if ext != ".csv" && ext != ".xlsx" {
		return nil, fmt.Errorf("dataset %s: unsupported source extension %q", name, ext)
	}

	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: download %s: %w", name, location, err)
	}

	if ext == ".xlsx" {
		return NewXLSXSource(name, data, ""), nil
	}
	return NewCSVSource(name, data), nil
}
