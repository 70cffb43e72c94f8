package pipeline

import (
	"context"
	"encoding/json"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/competitor-intel/internal/model"
)

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) SearchAll(ctx context.Context, urls []string) [][]model.SearchSnippet {
	args := m.Called(ctx, urls)
	return args.Get(0).([][]model.SearchSnippet)
}

type mockPages struct {
	mock.Mock
}

func (m *mockPages) ScrapeAll(ctx context.Context, urls []string) []model.PageSummary {
	args := m.Called(ctx, urls)
	return args.Get(0).([]model.PageSummary)
}

type mockLinks struct {
	mock.Mock
}

func (m *mockLinks) ExtractForCompetitor(ctx context.Context, snippets []model.SearchSnippet) model.SocialLinks {
	args := m.Called(ctx, snippets)
	return args.Get(0).(model.SocialLinks)
}

type mockSocial struct {
	mock.Mock
}

func (m *mockSocial) ScrapeLinks(ctx context.Context, links model.SocialLinks) map[model.Platform]model.SocialOutcome {
	args := m.Called(ctx, links)
	return args.Get(0).(map[model.Platform]model.SocialOutcome)
}

type mockRenderer struct {
	mock.Mock
}

func (m *mockRenderer) Render(w io.Writer, meta model.Project, entries []model.ReportEntry) error {
	args := m.Called(w, meta, entries)
	return args.Error(0)
}

type mockArtifacts struct {
	mock.Mock
}

func (m *mockArtifacts) Save(ctx context.Context, name string, data []byte) (string, error) {
	args := m.Called(ctx, name, data)
	return args.String(0), args.Error(1)
}

// stallingProvider is an enrich.SearchProvider whose stalled queries block
// until the per-call timeout fires.
type stallingProvider struct {
	stall map[string]bool
}

func (p stallingProvider) Search(ctx context.Context, query, _ string) (json.RawMessage, error) {
	if p.stall[query] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return json.RawMessage(`[{"url":"` + query + `/news","content":"coverage of ` + query + `"}]`), nil
}
