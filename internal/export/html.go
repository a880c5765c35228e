package export

import (
	"bytes"
	_ "embed"
	"html/template"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	minhtml "github.com/tdewolff/minify/v2/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/Iron-Ham/docsession/internal/engine"
)

// DefaultTitle is the page title used when none is configured.
const DefaultTitle = "Document"

// DefaultClassName is the class of the wrapper element around the rendered
// document body.
const DefaultClassName = "markdown-body"

// DefaultHighlightStyle is the chroma style used for fenced code blocks.
const DefaultHighlightStyle = "github"

//go:embed style.css
var defaultStylesheet string

// DefaultStylesheet returns the built-in page stylesheet.
func DefaultStylesheet() string { return defaultStylesheet }

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta http-equiv="X-UA-Compatible" content="IE=edge">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>{{.Style}}</style>
</head>
<body>
<div class="{{.ClassName}}">{{.Body}}</div>
</body>
</html>
`))

type pageData struct {
	Title     string
	Style     template.CSS
	ClassName string
	Body      template.HTML
}

// HTMLOptions configures an HTMLRenderer.
type HTMLOptions struct {
	Title     string
	ClassName string
	Minify    bool
	// Stylesheet is called once per render so the page carries the styles
	// in effect at export time. Nil uses DefaultStylesheet.
	Stylesheet     func() string
	HighlightStyle string
}

// HTMLRenderer converts markdown into a standalone HTML page.
type HTMLRenderer struct {
	opts     HTMLOptions
	md       goldmark.Markdown
	minifier *minify.M
}

// NewHTMLRenderer creates a renderer. Zero-valued options take defaults.
func NewHTMLRenderer(opts ...HTMLOptions) *HTMLRenderer {
	var o HTMLOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	if o.ClassName == "" {
		o.ClassName = DefaultClassName
	}
	if o.Stylesheet == nil {
		o.Stylesheet = DefaultStylesheet
	}
	if o.HighlightStyle == "" {
		o.HighlightStyle = DefaultHighlightStyle
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(o.HighlightStyle),
				highlighting.WithFormatOptions(chromahtml.WithClasses(false)),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(linkResolver{}, 100)),
		),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)

	m := minify.New()
	m.AddFunc("text/html", minhtml.Minify)
	m.AddFunc("text/css", css.Minify)

	return &HTMLRenderer{opts: o, md: md, minifier: m}
}

// Body converts markdown to an HTML fragment. Relative image links are
// resolved against folder when it is set.
func (r *HTMLRenderer) Body(content, folder string) ([]byte, error) {
	pc := parser.NewContext()
	if folder != "" {
		pc.Set(linksKey, engine.NewStructuredDelegate(folder))
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf, parser.WithContext(pc)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Render produces the full page for src.
func (r *HTMLRenderer) Render(src Source) ([]byte, error) {
	body, err := r.Body(src.Content, src.Folder)
	if err != nil {
		return nil, err
	}

	var page bytes.Buffer
	err = pageTemplate.Execute(&page, pageData{
		Title:     r.opts.Title,
		Style:     template.CSS(r.opts.Stylesheet()),
		ClassName: r.opts.ClassName,
		Body:      template.HTML(body),
	})
	if err != nil {
		return nil, err
	}

	if !r.opts.Minify {
		return page.Bytes(), nil
	}
	out, err := r.minifier.Bytes("text/html", page.Bytes())
	if err != nil {
		// Minification is best effort.
		return page.Bytes(), nil
	}
	return out, nil
}

var linksKey = parser.NewContextKey()

// linkResolver rewrites relative image destinations through the document's
// structured delegate so the exported page finds them from anywhere.
type linkResolver struct{}

func (linkResolver) Transform(doc *ast.Document, _ text.Reader, pc parser.Context) {
	links, ok := pc.Get(linksKey).(*engine.StructuredDelegate)
	if !ok {
		return
	}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := n.(*ast.Image); ok {
			img.Destination = []byte(links.ResolveLink(string(img.Destination)))
		}
		return ast.WalkContinue, nil
	})
}
