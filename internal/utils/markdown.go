package utils

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	policy = bluemonday.UGCPolicy()
)

func init() {
	policy.AllowImages()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)
}

// RenderMarkdown converts user markdown into sanitised HTML.
func RenderMarkdown(source string) string {
	if source == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		// fall back to escaping the raw text
		return policy.Sanitize(source)
	}

	sanitized := policy.SanitizeBytes(buf.Bytes())
	return EnhanceHTML(string(sanitized))
}
