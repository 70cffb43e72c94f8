// Package tracker reads projects from, and records completion in, the
// Notion project database.
package tracker

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/competitor-intel/internal/model"
	"github.com/sells-group/competitor-intel/pkg/notion"
)

// ErrNotFound is returned when a project page does not exist.
var ErrNotFound = eris.New("tracker: project not found")

// Property names in the project database.
const (
	PropProjectName  = "Project Name"
	PropBusinessName = "Business Name"
	PropStatus       = "Status"
	PropTeam         = "Team/Department"
	PropAssignee     = "Assigned Person"
	PropPriority     = "Priority"
	PropDueDate      = "Due Date"
	PropLink         = "Link"
	PropDescription  = "Description"
	PropLocation     = "Location"
)

// Config holds the database coordinates.
type Config struct {
	ProjectDB        string
	ApprovedProperty string
	SweepStatus      string
}

// Notion implements the tracker against a Notion database.
type Notion struct {
	client notion.Client
	cfg    Config
}

// NewNotion creates a Notion tracker.
func NewNotion(c notion.Client, cfg Config) *Notion {
	if cfg.ApprovedProperty == "" {
		cfg.ApprovedProperty = "Approved"
	}
	return &Notion{client: c, cfg: cfg}
}

// Project loads one project page.
func (n *Notion) Project(ctx context.Context, pageID string) (*model.Project, error) {
	page, err := n.client.GetPage(ctx, pageID)
	if err != nil {
		var apiErr *notionapi.Error
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusNotFound || apiErr.Code == "object_not_found") {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "tracker: load project %s", pageID)
	}
	p := n.PageToProject(*page)
	return &p, nil
}

// Pending lists projects whose approved checkbox is unset and whose status
// matches the configured sweep status.
func (n *Notion) Pending(ctx context.Context) ([]model.Project, error) {
	if n.cfg.ProjectDB == "" {
		return nil, eris.New("tracker: project database not configured")
	}
	pages, err := notion.QueryPendingProjects(ctx, n.client, n.cfg.ProjectDB, n.cfg.ApprovedProperty, n.cfg.SweepStatus)
	if err != nil {
		return nil, eris.Wrap(err, "tracker: pending projects")
	}
	out := make([]model.Project, 0, len(pages))
	for _, p := range pages {
		out = append(out, n.PageToProject(p))
	}
	return out, nil
}

// MarkApproved ticks the approved checkbox on the project page.
func (n *Notion) MarkApproved(ctx context.Context, pageID string) error {
	_, err := n.client.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			n.cfg.ApprovedProperty: notionapi.CheckboxProperty{Checkbox: true},
		},
	})
	if err != nil {
		return eris.Wrapf(err, "tracker: mark %s approved", pageID)
	}
	zap.L().Info("tracker: project marked approved", zap.String("page_id", pageID))
	return nil
}

// PageToProject maps page properties onto a Project. Missing or mistyped
// properties are left empty.
func (n *Notion) PageToProject(page notionapi.Page) model.Project {
	props := page.Properties
	p := model.Project{
		PageID:       string(page.ID),
		ProjectName:  text(props[PropProjectName]),
		BusinessName: text(props[PropBusinessName]),
		Description:  text(props[PropDescription]),
		Location:     text(props[PropLocation]),
		Team:         text(props[PropTeam]),
		Assignee:     text(props[PropAssignee]),
		Link:         text(props[PropLink]),
		Status:       text(props[PropStatus]),
		Priority:     text(props[PropPriority]),
		DueDate:      text(props[PropDueDate]),
	}
	if cb, ok := props[n.cfg.ApprovedProperty].(*notionapi.CheckboxProperty); ok {
		p.Approved = cb.Checkbox
	}
	return p
}

// text flattens the property kinds used by the project database to a
// trimmed string.
func text(prop notionapi.Property) string {
	var s string
	switch v := prop.(type) {
	case *notionapi.TitleProperty:
		s = plain(v.Title)
	case *notionapi.RichTextProperty:
		s = plain(v.RichText)
	case *notionapi.URLProperty:
		s = v.URL
	case *notionapi.StatusProperty:
		s = v.Status.Name
	case *notionapi.SelectProperty:
		s = v.Select.Name
	case *notionapi.DateProperty:
		if v.Date != nil && v.Date.Start != nil {
			s = time.Time(*v.Date.Start).Format("2006-01-02")
		}
	}
	return strings.TrimSpace(s)
}

func plain(rts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		b.WriteString(rt.PlainText)
	}
	return b.String()
}
