// Package report renders ranking and assessment runs as text tables, JSON or XLSX workbooks.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/tealeg/xlsx/v2"

	"github.com/couchcryptid/quake-risk/internal/pipeline"
)

// Format selects a report rendition.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// Sheet names used in XLSX output.
const (
	SheetRankings    = "Rankings"
	SheetAssessments = "Assessments"
)

// RankingColumns is the header of the ranking table.
var RankingColumns = []string{"Ranking", "Region", "Code", "Events", "Total Magnitude"}

// AssessmentColumns is the header of the per-target risk report.
var AssessmentColumns = []string{"Building", "Address", "Insure", "Total Risk Factor", "Nearby Events", "Average Magnitude", "Status"}

// ParseFormat accepts text, json or xlsx, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatXLSX:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text, json or xlsx)", s)
	}
}

// WriteRankings renders run in format.
func WriteRankings(w io.Writer, format Format, run pipeline.RankingRun) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, run)
	case FormatXLSX:
		return writeXLSX(w, SheetRankings, RankingColumns, rankingRows(run))
	case FormatText, "":
		return writeText(w, RankingColumns, rankingRows(run))
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteAssessments renders run in format.
func WriteAssessments(w io.Writer, format Format, run pipeline.AssessmentRun) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, run)
	case FormatXLSX:
		return writeXLSX(w, SheetAssessments, AssessmentColumns, assessmentRows(run))
	case FormatText, "":
		return writeText(w, AssessmentColumns, assessmentRows(run))
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// cell is one typed report value. Exactly one of the pointers is set.
type cell struct {
	str *string
	num *float64
	n   *int
	b   *bool
}

func strCell(s string) cell { return cell{str: &s} }
func numCell(f float64) cell { return cell{num: &f} }
func intCell(n int) cell { return cell{n: &n} }
func boolCell(b bool) cell { return cell{b: &b} }

func (c cell) text() string {
	switch {
	case c.num != nil:
		return strconv.FormatFloat(*c.num, 'f', 4, 64)
	case c.n != nil:
		return strconv.Itoa(*c.n)
	case c.b != nil:
		if *c.b {
			return "yes"
		}
		return "no"
	case c.str != nil:
		return *c.str
	default:
		return ""
	}
}

func rankingRows(run pipeline.RankingRun) [][]cell {
	rows := make([][]cell, len(run.Rankings))
	for i, r := range run.Rankings {
		rows[i] = []cell{
			intCell(i + 1),
			strCell(r.Name),
			strCell(r.Code),
			intCell(r.Count),
			numCell(r.TotalMagnitude),
		}
	}
	return rows
}

func assessmentRows(run pipeline.AssessmentRun) [][]cell {
	rows := make([][]cell, len(run.Assessments))
	for i, a := range run.Assessments {
		rows[i] = []cell{
			strCell(a.Target.Name),
			strCell(a.Target.FullAddress),
			boolCell(a.Risk.ShouldInsure),
			numCell(a.Risk.TotalRiskFactor),
			intCell(a.Risk.NearbyEventCount),
			numCell(a.Risk.AverageMagnitude),
			strCell(a.Risk.Status),
		}
	}
	return rows
}

func writeText(w io.Writer, header []string, rows [][]cell) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fields := make([]string, len(row))
		for i, c := range row {
			fields[i] = c.text()
		}
		fmt.Fprintln(tw, strings.Join(fields, "\t"))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, sheetName string, header []string, rows [][]cell) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return fmt.Errorf("xlsx: add sheet: %w", err)
	}

	hr := sheet.AddRow()
	for _, h := range header {
		hr.AddCell().SetString(h)
	}
	for _, row := range rows {
		xr := sheet.AddRow()
		for _, c := range row {
			xc := xr.AddCell()
			switch {
			case c.num != nil:
				xc.SetFloat(*c.num)
			case c.n != nil:
				xc.SetInt(*c.n)
			case c.b != nil:
				xc.SetBool(*c.b)
			default:
				xc.SetString(c.text())
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}
