package snapshot

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kevinpineda22/backend-inventario-sub000/services"
	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported snapshot format, expected .xlsx or .csv")

// Supported reports whether ReadRows understands the file name's extension.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".csv":
		return true
	}
	return false
}

// ReadRows reads the first sheet of an .xlsx file or a whole .csv file.
func ReadRows(r io.Reader, name string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return readXLSX(r)
	case ".csv":
		return readCSV(r)
	}
	return nil, ErrUnsupportedFormat
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	bom := []byte("\xef\xbb\xbf")
	br := bufio.NewReader(r)
	head, _ := br.Peek(4096)

	comma := ','
	line := bytes.TrimPrefix(head, bom)
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		comma = ';'
	}
	if bytes.HasPrefix(head, bom) {
		br.Discard(len(bom))
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

// header returns the index of the first non-blank row.
func header(rows [][]string) (int, bool) {
	for i, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return i, true
			}
		}
	}
	return 0, false
}

// ParseCatalog turns catalog rows into a snapshot. Rows with a barcode also yield a barcode unit.
func ParseCatalog(rows [][]string, source string) (services.CatalogSnapshot, error) {
	snap := services.CatalogSnapshot{Source: source}
	h, ok := header(rows)
	if !ok {
		return snap, errors.New("snapshot is empty")
	}
	cols := Classify(rows[h], nil)
	if !cols.Has(RoleItemID) {
		return snap, fmt.Errorf("no item code column in header %v", rows[h])
	}

	for _, row := range rows[h+1:] {
		itemID := cols.Value(row, RoleItemID)
		if itemID == "" {
			continue
		}
		snap.Items = append(snap.Items, services.SnapshotItem{
			ItemID:      itemID,
			Description: cols.Value(row, RoleDescription),
			Group:       cols.Value(row, RoleGroup),
		})
		if barcode := cols.Value(row, RoleBarcode); barcode != "" {
			snap.Barcodes = append(snap.Barcodes, services.SnapshotBarcode{
				Barcode:       barcode,
				ItemID:        itemID,
				UnitOfMeasure: cols.Value(row, RoleUnit),
			})
		}
	}
	return snap, nil
}

// ParseExpected reads theoretical quantities. Repeated items are summed.
func ParseExpected(rows [][]string) ([]services.ExpectedInput, error) {
	h, ok := header(rows)
	if !ok {
		return nil, errors.New("snapshot is empty")
	}
	cols := Classify(rows[h], nil)
	if !cols.Has(RoleItemID) || !cols.Has(RoleQuantity) {
		return nil, fmt.Errorf("expected item code and quantity columns in header %v", rows[h])
	}

	var out []services.ExpectedInput
	index := map[string]int{}
	for n, row := range rows[h+1:] {
		itemID := cols.Value(row, RoleItemID)
		if itemID == "" {
			continue
		}
		qty, err := ParseQuantity(cols.Value(row, RoleQuantity))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", h+n+2, err)
		}
		if i, seen := index[itemID]; seen {
			out[i].Quantity += qty
			continue
		}
		index[itemID] = len(out)
		out = append(out, services.ExpectedInput{ItemID: itemID, Quantity: qty})
	}
	return out, nil
}

// ParseQuantity accepts "1234.5", "1234,5", "1.234,5" and "1,234.5". Blank is zero.
// A single comma is a decimal mark, except that "1,234" could be a thousands
// group and is rejected. "0,125" stays a decimal.
func ParseQuantity(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return 0, nil
	}
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dot >= 0 && comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		whole, frac := s[:comma], s[comma+1:]
		if len(frac) == 3 && strings.Count(s, ",") == 1 && strings.TrimLeft(whole, "+-") != "0" {
			return 0, fmt.Errorf("ambiguous quantity %q: use a decimal point or a thousands separator with decimals", s)
		}
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	return v, nil
}
