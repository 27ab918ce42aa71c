package report

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/xuri/excelize/v2"

	"linkprobe/internal/inspect"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sheet names used by WriteXLSX.
const (
	SheetSameOrigin = "Same origin"
	SheetForeign    = "Foreign"
	SheetPages      = "Pages"
	SheetSitemaps   = "Sitemaps"
)

// WriteJSON writes rep to path as indented JSON.
func WriteJSON(path string, rep *inspect.Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteXLSX writes rep to path as a workbook with one sheet per kind of
// finding plus the resolved page and sitemap lists.
func WriteXLSX(path string, rep *inspect.Report) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetSameOrigin); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	for _, name := range []string{SheetForeign, SheetPages, SheetSitemaps} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	brokenHeader := []interface{}{"Link", "Parent page", "Error"}
	sheets := []struct {
		name   string
		header []interface{}
		rows   [][]interface{}
	}{
		{SheetSameOrigin, brokenHeader, brokenRows(rep.SameOrigin(), rep.BaseURL)},
		{SheetForeign, brokenHeader, brokenRows(rep.Foreign(), rep.BaseURL)},
		{SheetPages, []interface{}{"URL"}, listRows(rep.AllURLs)},
		{SheetSitemaps, []interface{}{"URL"}, listRows(rep.SitemapURLs)},
	}

	for _, s := range sheets {
		if err := writeSheet(f, s.name, s.header, s.rows, bold); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 60); err != nil {
		return fmt.Errorf("size %s columns: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func brokenRows(links []inspect.BrokenLink, baseURL string) [][]interface{} {
	rows := make([][]interface{}, 0, len(links))
	for _, bl := range links {
		rows = append(rows, []interface{}{bl.Link, parentOf(bl, baseURL), bl.Error})
	}
	return rows
}

func listRows(urls []string) [][]interface{} {
	rows := make([][]interface{}, 0, len(urls))
	for _, u := range urls {
		rows = append(rows, []interface{}{u})
	}
	return rows
}
