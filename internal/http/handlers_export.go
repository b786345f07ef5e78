package http

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
)

const (
	exportSheet = "Transactions"
	contentXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeader = []string{"Date", "Title", "Kind", "Category", "Amount"}

// handleExport streams the filtered transactions as CSV (default) or XLSX.
// Pagination parameters are ignored.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := strings.ToLower(strings.TrimSpace(q.Get("format")))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		s.writeError(w, r, core.NewValidationError("format", "format must be csv or xlsx"), "")
		return
	}

	f, err := ParseListFilter(q)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	txs, err := s.transactions.Export(r.Context(), auth.OwnerFrom(r.Context()), f)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	var buf bytes.Buffer
	contentType := "text/csv; charset=utf-8"
	if format == "xlsx" {
		contentType = contentXLSX
		err = writeXLSX(&buf, txs)
	} else {
		err = writeCSV(&buf, txs)
	}
	if err != nil {
		s.writeError(w, r, fmt.Errorf("render %s export: %w", format, err), "")
		return
	}

	filename := fmt.Sprintf("transactions_%s.%s", time.Now().UTC().Format("20060102"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func exportRow(t core.Transaction) []string {
	return []string{
		t.Date.UTC().Format(dateLayout),
		safeCell(t.Title),
		string(t.Kind),
		safeCell(t.Category),
		core.FormatAmount(t.Amount),
	}
}

// safeCell quotes text a spreadsheet would otherwise evaluate as a formula.
func safeCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

// writeCSV prefixes a UTF-8 BOM so spreadsheet tools detect the encoding.
func writeCSV(w io.Writer, txs []core.Transaction) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, t := range txs {
		if err := cw.Write(exportRow(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, txs []core.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}

	for i, h := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return err
		}
	}

	for idx, t := range txs {
		row := idx + 2
		values := []any{
			t.Date.UTC().Format(dateLayout),
			safeCell(t.Title),
			string(t.Kind),
			safeCell(t.Category),
			t.Amount.InexactFloat64(),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return err
			}
		}
	}

	for col, width := range map[string]float64{"A": 12, "B": 40, "C": 10, "D": 20, "E": 12} {
		if err := f.SetColWidth(exportSheet, col, col, width); err != nil {
			return err
		}
	}

	return f.Write(w)
}
