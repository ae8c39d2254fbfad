package renderer

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const htmlHeader = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 960px; margin: auto; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 2px 8px; }
td { text-align: right; }
</style>
</head>
<body>
`

const htmlFooter = `</body>
</html>
`

// HTML converts a markdown report into a standalone HTML page.
func HTML(title, markdown string) ([]byte, error) {
	converter := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, htmlHeader, title)
	if err := converter.Convert([]byte(markdown), &buf); err != nil {
		return nil, fmt.Errorf("cannot convert report to html: %w", err)
	}
	buf.WriteString(htmlFooter)
	return buf.Bytes(), nil
}
