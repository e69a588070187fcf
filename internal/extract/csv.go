package extract

import (
	"context"
	"io"
	"strings"
)

type csvExtractor struct{}

func init() {
	Register("text/csv", csvExtractor{})
}

// Extract flattens the file by splitting lines on commas and re-joining the
// cells with spaces. The split is naive: quoted commas and embedded newlines
// are not handled. That mirrors how uploads treat CSV everywhere else in the
// pipeline, so a quoted field ends up split across cells.
func (csvExtractor) Extract(ctx context.Context, r io.Reader) (string, error) {
	_ = ctx
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	lines := strings.Split(string(data), "\n")
	flattened := make([]string, 0, len(lines))
	for _, line := range lines {
		cells := strings.Split(strings.TrimRight(line, "\r"), ",")
		flattened = append(flattened, strings.Join(cells, " "))
	}
	return strings.Join(flattened, " \n"), nil
}
