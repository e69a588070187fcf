package extract

import (
	"context"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type markdownExtractor struct{}

func init() {
	Register("text/markdown", markdownExtractor{})
}

// Extract walks the markdown AST and collects text nodes, block by block.
func (markdownExtractor) Extract(ctx context.Context, r io.Reader) (string, error) {
	_ = ctx
	source, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	md := goldmark.New()
	reader := text.NewReader(source)
	doc := md.Parser().Parse(reader)

	var blocks []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if txt := nodeText(node, source); txt != "" {
			blocks = append(blocks, txt)
		}
	}
	return strings.Join(blocks, "\n"), nil
}

func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
		case *ast.FencedCodeBlock:
			for i := 0; i < t.Lines().Len(); i++ {
				line := t.Lines().At(i)
				sb.Write(line.Value(source))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
