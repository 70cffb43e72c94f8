package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// defaultPageSize is the largest page the Notion query API returns.
const defaultPageSize = 100

// QueryAll walks a database query cursor by cursor and returns every page.
// The filter and sorts of base are reused for each request. A cursor that
// repeats ends the walk with an error.
func QueryAll(ctx context.Context, c Client, dbID string, base *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	req := notionapi.DatabaseQueryRequest{PageSize: defaultPageSize}
	if base != nil {
		req.Filter = base.Filter
		req.Sorts = base.Sorts
		if base.PageSize > 0 {
			req.PageSize = base.PageSize
		}
	}

	var pages []notionapi.Page
	seen := make(map[notionapi.Cursor]bool)
	for n := 1; ; n++ {
		page := req
		resp, err := c.QueryDatabase(ctx, dbID, &page)
		if err != nil {
			return nil, eris.Wrapf(err, "notion: query %s page %d", dbID, n)
		}
		pages = append(pages, resp.Results...)

		if !resp.HasMore || resp.NextCursor == "" {
			return pages, nil
		}
		if seen[resp.NextCursor] {
			return nil, eris.Errorf("notion: query %s: cursor %q repeated", dbID, resp.NextCursor)
		}
		seen[resp.NextCursor] = true
		req.StartCursor = resp.NextCursor
	}
}

// PendingProjectsFilter matches projects whose approved checkbox is unset
// and whose Status equals status.
func PendingProjectsFilter(approvedProperty, status string) *notionapi.DatabaseQueryRequest {
	return &notionapi.DatabaseQueryRequest{
		Filter: notionapi.AndCompoundFilter{
			notionapi.PropertyFilter{
				Property: approvedProperty,
				Checkbox: &notionapi.CheckboxFilterCondition{DoesNotEqual: true},
			},
			notionapi.PropertyFilter{
				Property: "Status",
				Status:   &notionapi.StatusFilterCondition{Equals: status},
			},
		},
	}
}

// QueryPendingProjects fetches projects that are waiting for an analysis.
func QueryPendingProjects(ctx context.Context, c Client, dbID, approvedProperty, status string) ([]notionapi.Page, error) {
	pages, err := QueryAll(ctx, c, dbID, PendingProjectsFilter(approvedProperty, status))
	if err != nil {
		return nil, eris.Wrap(err, "notion: query pending projects")
	}
	return pages, nil
}
