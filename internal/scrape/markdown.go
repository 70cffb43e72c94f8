package scrape

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

var (
	mainSelectors   = []string{"main", `[role="main"]`, "#content", "#main", "article"}
	boilerplateTags = "script, style, noscript, nav, header, footer, aside, form, iframe, svg, button, input"
	blankRuns       = regexp.MustCompile(`\n{3,}`)
)

// HTMLToMarkdown extracts the page title and converts the main content
// region (or the body when none is marked) to markdown.
func HTMLToMarkdown(html string) (title, markdown string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", eris.Wrap(err, "scrape: parse html")
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())

	var content *goquery.Selection
	for _, sel := range mainSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			content = found.First()
			break
		}
	}
	if content == nil {
		content = doc.Find("body")
	}

	content.Find(boilerplateTags).Remove()
	content.Find(`[role="navigation"], [role="banner"], [aria-modal]`).Remove()

	body, err := content.Html()
	if err != nil {
		return title, "", eris.Wrap(err, "scrape: render content")
	}

	out, err := md.NewConverter("", true, nil).ConvertString(body)
	if err != nil {
		return title, "", eris.Wrap(err, "scrape: convert markdown")
	}

	out = blankRuns.ReplaceAllString(out, "\n\n")
	return title, strings.TrimSpace(out), nil
}
