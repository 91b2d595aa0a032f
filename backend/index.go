package backend

import (
	"context"
	"fmt"
	"net/http"
)

// IndexPath is where the site publishes its slug → note-id map.
const IndexPath = "/blog.json"

// IndexClient reads the site's published post index.
type IndexClient struct {
	baseURL string
	pool    *Pool
}

// FetchIndex returns every published slug mapped to its linked note ID, or to
// nil when the post has no linked note.
func (c *IndexClient) FetchIndex(ctx context.Context) (map[string]*string, error) {
	var index map[string]*string
	if err := c.pool.doJSON(ctx, request{
		method: http.MethodGet,
		url:    c.baseURL + IndexPath,
	}, &index); err != nil {
		return nil, fmt.Errorf("fetching post index: %w", err)
	}
	if index == nil {
		return nil, fmt.Errorf("%w: post index is not a JSON object", ErrDecode)
	}
	return index, nil
}
