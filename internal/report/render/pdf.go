// Package render lays out visit activity reports as PDF documents.
package render

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"gatepass/internal/report/models"
)

type column struct {
	title string
	width float64
	align string
}

var columns = []column{
	{"Name", 30, "L"},
	{"Email", 42, "L"},
	{"Purpose", 30, "L"},
	{"Visit", 18, "C"},
	{"Entry", 16, "C"},
	{"Exit", 16, "C"},
	{"Minutes", 14, "R"},
	{"Status", 16, "C"},
}

const (
	margin     = 14.0
	rowHeight  = 7.0
	bottomEdge = 18.0
)

// PDF renders reports on A4 portrait pages with a repeating table header.
type PDF struct {
	location *time.Location
}

// NewPDF returns a renderer that prints times in loc. A nil loc means UTC.
func NewPDF(loc *time.Location) *PDF {
	if loc == nil {
		loc = time.UTC
	}
	return &PDF{location: loc}
}

// ContentType is the MIME type of Render output.
func (p *PDF) ContentType() string { return "application/pdf" }

// Render writes the report to w.
func (p *PDF) Render(w io.Writer, report *models.Report) error {
	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	title := fmt.Sprintf("Visitor Report - %s to %s", p.day(report.From), p.day(report.To))

	doc.SetTitle(title, true)
	doc.SetAuthor("GatePass System", true)
	doc.SetCreator("GatePass", true)
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(true, bottomEdge)
	doc.AliasNbPages("")

	doc.SetHeaderFunc(func() {
		doc.SetFillColor(44, 62, 80)
		doc.Rect(0, 0, 210, 22, "F")
		doc.SetTextColor(255, 255, 255)
		doc.SetFont("Helvetica", "B", 15)
		doc.SetXY(margin, 7)
		doc.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
		doc.SetTextColor(51, 51, 51)
		doc.SetY(28)
	})
	doc.SetFooterFunc(func() {
		doc.SetY(-12)
		doc.SetFont("Helvetica", "I", 8)
		doc.SetTextColor(102, 102, 102)
		doc.CellFormat(90, 6, "Generated on "+report.GeneratedAt.In(p.location).Format("Jan 2, 2006 at 3:04 PM"), "", 0, "L", false, 0, "")
		doc.CellFormat(0, 6, fmt.Sprintf("Page %d of {nb}", doc.PageNo()), "", 0, "R", false, 0, "")
	})

	doc.AddPage()
	p.summary(doc, tr, report)
	p.tableHeader(doc)

	if len(report.Rows) == 0 {
		doc.SetFont("Helvetica", "I", 9)
		doc.CellFormat(0, rowHeight*2, "No visits match this query.", "", 1, "C", false, 0, "")
	}

	_, pageHeight := doc.GetPageSize()
	doc.SetFont("Helvetica", "", 8)
	for i, row := range report.Rows {
		if doc.GetY()+rowHeight > pageHeight-bottomEdge {
			doc.AddPage()
			p.tableHeader(doc)
			doc.SetFont("Helvetica", "", 8)
		}
		fill := i%2 == 1
		doc.SetFillColor(248, 249, 250)
		cells := p.cells(row)
		for c, col := range columns {
			text := fit(doc, tr(cells[c]), col.width-2)
			if c == len(columns)-1 {
				p.statusColor(doc, row.Status)
			}
			doc.CellFormat(col.width, rowHeight, text, "B", 0, col.align, fill, 0, "")
			doc.SetTextColor(51, 51, 51)
		}
		doc.Ln(-1)
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func (p *PDF) summary(doc *fpdf.Fpdf, tr func(string) string, report *models.Report) {
	top := doc.GetY()
	doc.SetFillColor(248, 249, 250)
	doc.SetDrawColor(189, 195, 199)
	doc.RoundedRect(margin, top, 210-2*margin, 30, 2, "1234", "FD")

	doc.SetFont("Helvetica", "B", 11)
	doc.SetXY(margin+4, top+3)
	doc.CellFormat(0, 6, "Report Summary", "", 1, "L", false, 0, "")

	doc.SetFont("Helvetica", "", 9)
	left := []string{
		fmt.Sprintf("Total Records: %d", report.Summary.Total),
		fmt.Sprintf("Date Range: %s to %s", p.day(report.From), p.day(report.To)),
		fmt.Sprintf("Filter: %s", report.Status),
	}
	right := []string{
		fmt.Sprintf("Completed Visits: %d", report.Summary.Completed),
		fmt.Sprintf("Currently Inside: %d", report.Summary.Inside),
		fmt.Sprintf("Scheduled Only: %d", report.Summary.Scheduled),
	}
	for i := range left {
		y := top + 10 + float64(i)*5
		doc.SetXY(margin+4, y)
		doc.CellFormat(90, 5, tr(left[i]), "", 0, "L", false, 0, "")
		doc.SetXY(margin+100, y)
		doc.CellFormat(0, 5, right[i], "", 0, "L", false, 0, "")
	}
	if report.Search != "" {
		doc.SetXY(margin+4, top+25)
		doc.CellFormat(0, 4, tr(fit(doc, fmt.Sprintf("Search Term: %q", report.Search), 170)), "", 0, "L", false, 0, "")
	}
	doc.SetY(top + 36)
}

func (p *PDF) tableHeader(doc *fpdf.Fpdf) {
	doc.SetFont("Helvetica", "B", 8)
	doc.SetFillColor(52, 152, 219)
	doc.SetTextColor(255, 255, 255)
	for _, col := range columns {
		doc.CellFormat(col.width, rowHeight, col.title, "", 0, "C", true, 0, "")
	}
	doc.Ln(-1)
	doc.SetTextColor(51, 51, 51)
}

func (p *PDF) cells(row models.Row) []string {
	entry, exit, minutes := "-", "-", "-"
	if row.EntryTime != nil {
		entry = row.EntryTime.In(p.location).Format("3:04 PM")
	}
	if row.ExitTime != nil {
		exit = row.ExitTime.In(p.location).Format("3:04 PM")
	}
	if row.DurationMinutes != nil {
		minutes = strconv.FormatInt(*row.DurationMinutes, 10)
	}
	return []string{
		row.Name,
		row.Email,
		row.Purpose,
		row.VisitAt.In(p.location).Format("Jan 2"),
		entry,
		exit,
		minutes,
		row.Status,
	}
}

func (p *PDF) statusColor(doc *fpdf.Fpdf, status string) {
	switch status {
	case models.RowCompleted:
		doc.SetTextColor(39, 174, 96)
	case models.RowInside:
		doc.SetTextColor(243, 156, 18)
	case models.RowScheduled:
		doc.SetTextColor(52, 152, 219)
	default:
		doc.SetTextColor(231, 76, 60)
	}
}

func (p *PDF) day(t time.Time) string {
	return t.In(p.location).Format("Jan 2, 2006")
}

// fit truncates s with an ellipsis so it prints within width.
func fit(doc *fpdf.Fpdf, s string, width float64) string {
	if doc.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if doc.GetStringWidth(candidate) <= width {
			return candidate
		}
	}
	return ""
}
