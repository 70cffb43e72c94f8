package report

import (
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rotisserie/eris"

	"github.com/sells-group/competitor-intel/internal/model"
)

const (
	margin         = 72.0
	maxBullets     = 5
	metricColWidth = 144.0
	sectionSpacer  = 40.0
)

// PDFOption configures a PDFRenderer.
type PDFOption func(*PDFRenderer)

// WithCreatedAt pins the document's creation and modification dates.
func WithCreatedAt(t time.Time) PDFOption {
	return func(r *PDFRenderer) {
		r.createdAt = t
	}
}

// WithCompression toggles stream compression. Uncompressed output is
// searchable as text.
func WithCompression(on bool) PDFOption {
	return func(r *PDFRenderer) {
		r.compress = on
	}
}

// PDFRenderer writes the competitor analysis report. Output is a function of
// its inputs and the pinned creation time.
type PDFRenderer struct {
	createdAt time.Time
	compress  bool
}

// NewPDFRenderer creates a PDFRenderer. Without WithCreatedAt the Unix epoch
// is used so output stays reproducible.
func NewPDFRenderer(opts ...PDFOption) *PDFRenderer {
	r := &PDFRenderer{createdAt: time.Unix(0, 0).UTC(), compress: true}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Render writes one section per entry, in order, dated with the renderer's
// pinned creation time. Any failure is a *model.RenderError.
func (r *PDFRenderer) Render(w io.Writer, meta model.Project, entries []model.ReportEntry) error {
	return r.RenderAt(w, meta, entries, r.createdAt)
}

// RenderAt is Render with the document dated at.
func (r *PDFRenderer) RenderAt(w io.Writer, meta model.Project, entries []model.ReportEntry, at time.Time) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetCompression(r.compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(at)
	pdf.SetModificationDate(at)
	pdf.SetTitle("Competitor Analysis Report", true)
	pdf.SetCreator("compintel", true)

	d := &doc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.AddPage()

	d.heading("Competitor Analysis Report", 24, 44, 62, 80)
	d.gap(12)
	d.heading("Project Name: "+meta.NameOrDefault(), 18, 52, 73, 94)
	d.para("Business Name: " + orNA(meta.BusinessName))
	d.para("Link: " + orNA(meta.Link))
	d.para("Due Date: " + orNA(meta.DueDate))
	d.gap(20)

	for _, e := range entries {
		d.competitor(e)
	}

	if pdf.Err() {
		return &model.RenderError{Err: eris.Wrap(pdf.Error(), "report: build pdf")}
	}
	if err := pdf.Output(w); err != nil {
		return &model.RenderError{Err: eris.Wrap(err, "report: write pdf")}
	}
	return nil
}

type doc struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (d *doc) width() float64 {
	pw, _ := d.pdf.GetPageSize()
	left, _, right, _ := d.pdf.GetMargins()
	return pw - left - right
}

func (d *doc) gap(h float64) {
	d.pdf.Ln(h)
}

func (d *doc) heading(text string, size float64, r, g, b int) {
	d.pdf.SetFont("Helvetica", "B", size)
	d.pdf.SetTextColor(r, g, b)
	d.pdf.MultiCell(d.width(), size*1.3, d.tr(text), "", "L", false)
	d.pdf.SetTextColor(0, 0, 0)
	d.gap(4)
}

func (d *doc) subheading(text string) {
	d.gap(8)
	d.heading(text, 14, 127, 140, 141)
}

func (d *doc) para(text string) {
	d.pdf.SetFont("Helvetica", "", 11)
	d.pdf.MultiCell(d.width(), 14, d.tr(text), "", "L", false)
	d.gap(4)
}

func (d *doc) bullets(items []string) {
	d.pdf.SetFont("Helvetica", "", 11)
	for _, it := range firstN(items, maxBullets) {
		d.pdf.SetX(margin + 20)
		d.pdf.MultiCell(d.width()-20, 14, d.tr("• "+it), "", "L", false)
		d.gap(2)
	}
}

func (d *doc) competitor(e model.ReportEntry) {
	c := e.Candidate
	d.heading(orNA(c.Name), 18, 52, 73, 94)
	d.para("Website: " + orNA(c.URL))

	d.subheading("Description")
	d.para(orNA(c.Description))
	d.gap(8)

	if len(c.Products) > 0 {
		d.subheading("Products")
		d.bullets(c.Products)
		d.gap(8)
	}
	if len(c.Services) > 0 {
		d.subheading("Services")
		d.bullets(c.Services)
		d.gap(8)
	}

	if e.Social != nil {
		d.subheading("Social Media Analysis")
		d.metrics(*e.Social)
		d.gap(20)
	}

	d.gap(sectionSpacer)
}

func (d *doc) metrics(a model.SocialAnalysis) {
	pdf := d.pdf
	rows := [][2]string{
		{"Total Followers", Thousands(a.TotalFollowers)},
		{"Total Posts", Thousands(a.TotalPosts)},
		{"Engagement Rate", Percent(a.EngagementRate)},
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(128, 128, 128)
	pdf.SetTextColor(245, 245, 245)
	pdf.CellFormat(metricColWidth, 24, "Metric", "1", 0, "C", true, 0, "")
	pdf.CellFormat(metricColWidth, 24, "Value", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetFillColor(245, 245, 220)
	pdf.SetTextColor(0, 0, 0)
	for _, row := range rows {
		pdf.CellFormat(metricColWidth, 18, row[0], "1", 0, "C", true, 0, "")
		pdf.CellFormat(metricColWidth, 18, row[1], "1", 1, "C", true, 0, "")
	}
}
