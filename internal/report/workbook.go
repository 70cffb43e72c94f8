package report

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/competitor-intel/internal/model"
)

// WorkbookSheet is the sheet holding one row per competitor.
const WorkbookSheet = "Competitors"

var workbookHeader = []string{
	"Name", "URL", "Products", "Services",
	"Total Followers", "Total Posts", "Engagement Rate",
}

// WorkbookRenderer writes the competitor metrics as an XLSX workbook.
type WorkbookRenderer struct{}

// NewWorkbookRenderer creates a WorkbookRenderer.
func NewWorkbookRenderer() *WorkbookRenderer {
	return &WorkbookRenderer{}
}

// Render writes a header row and one row per entry. Metric cells are left
// empty for competitors without social analysis.
func (WorkbookRenderer) Render(w io.Writer, meta model.Project, entries []model.ReportEntry) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(WorkbookSheet)
	if err != nil {
		return &model.RenderError{Err: eris.Wrap(err, "report: add sheet")}
	}

	header := sheet.AddRow()
	for _, h := range workbookHeader {
		header.AddCell().SetString(h)
	}

	for _, e := range entries {
		row := sheet.AddRow()
		row.AddCell().SetString(e.Candidate.Name)
		row.AddCell().SetString(e.Candidate.URL)
		row.AddCell().SetString(strings.Join(e.Candidate.Products, "; "))
		row.AddCell().SetString(strings.Join(e.Candidate.Services, "; "))
		if e.Social == nil {
			row.AddCell()
			row.AddCell()
			row.AddCell()
			continue
		}
		row.AddCell().SetInt64(e.Social.TotalFollowers)
		row.AddCell().SetInt64(e.Social.TotalPosts)
		row.AddCell().SetFloatWithFormat(e.Social.EngagementRate, "0.00")
	}

	if err := f.Write(w); err != nil {
		return &model.RenderError{Err: eris.Wrapf(err, "report: write workbook for %s", meta.NameOrDefault())}
	}
	return nil
}
