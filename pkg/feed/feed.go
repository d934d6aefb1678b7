// Package feed renders collected posts as RSS <item> fragments.
package feed

import (
	"bytes"
	"encoding/xml"
	"strings"
	"text/template"

	"github.com/Sternrassler/postfeed/pkg/post"
)

const itemTemplate = `<item>
  <title>{{x .Title}}</title>
  <description>{{x .Summary}}</description>
  <link>{{x .URL}}</link>
  <guid isPermaLink="true">{{x .URL}}</guid>
  <dc:creator>{{x .Author}}</dc:creator>
  <pubDate>{{x .PublishedAt}}</pubDate>
</item>
`

// Options controls rendering.
type Options struct {
	// Escape XML-escapes every interpolated value. When false, values are
	// written verbatim and a title containing '<' or '&' yields malformed XML.
	Escape bool
}

type itemData struct {
	Title       string
	Summary     string
	URL         string
	Author      string
	PublishedAt string
}

var (
	verbatimTmpl = newItemTemplate(func(s string) string { return s })
	escapedTmpl  = newItemTemplate(escape)
)

func newItemTemplate(x func(string) string) *template.Template {
	tmpl := template.New("item").Funcs(template.FuncMap{"x": x})
	return template.Must(tmpl.Parse(itemTemplate))
}

// RenderItem renders one post as an <item> fragment, newline terminated.
func RenderItem(baseURL string, p post.Post, opts Options) string {
	tmpl := verbatimTmpl
	if opts.Escape {
		tmpl = escapedTmpl
	}

	data := itemData{
		Title:       p.Title,
		Summary:     p.Brief,
		URL:         p.URL(baseURL),
		Author:      p.Author.Name,
		PublishedAt: p.DateAdded,
	}

	var buf bytes.Buffer
	// itemData only holds strings, so execution cannot fail.
	_ = tmpl.Execute(&buf, data)
	return buf.String()
}

// Render renders all posts in order.
func Render(baseURL string, posts []post.Post, opts Options) string {
	var sb strings.Builder
	for _, p := range posts {
		sb.WriteString(RenderItem(baseURL, p, opts))
	}
	return sb.String()
}

// Assemble wraps rendered items between a channel header and footer.
func Assemble(header, items, footer string) string {
	return header + items + footer
}

func escape(s string) string {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer never fail.
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
