package portal

import (
	"context"
	"io"

	"github.com/CirroBio/cirro-annotation/internal/model"
	"github.com/CirroBio/cirro-annotation/internal/session"
)

// Cached memoizes the list calls of a Client for the lifetime of a session.
// Open is never cached.
type Cached struct {
	client  Client
	session *session.Session
}

// NewCached wraps client with session-scoped memoization.
func NewCached(client Client, s *session.Session) *Cached {
	return &Cached{client: client, session: s}
}

// ListProjects implements Client.
func (c *Cached) ListProjects(ctx context.Context) ([]model.Project, error) {
	return session.Memo(c.session, "ListProjects", nil, func() ([]model.Project, error) {
		return c.client.ListProjects(ctx)
	})
}

// ListProcesses implements Client.
func (c *Cached) ListProcesses(ctx context.Context) ([]model.Process, error) {
	return session.Memo(c.session, "ListProcesses", nil, func() ([]model.Process, error) {
		return c.client.ListProcesses(ctx)
	})
}

// ListDatasets implements Client.
func (c *Cached) ListDatasets(ctx context.Context, projectID string) ([]model.Dataset, error) {
	return session.Memo(c.session, "ListDatasets", []any{projectID}, func() ([]model.Dataset, error) {
		return c.client.ListDatasets(ctx, projectID)
	})
}

// ListFiles implements Client.
func (c *Cached) ListFiles(ctx context.Context, projectID, datasetID string) ([]model.File, error) {
	return session.Memo(c.session, "ListFiles", []any{projectID, datasetID}, func() ([]model.File, error) {
		return c.client.ListFiles(ctx, projectID, datasetID)
	})
}

// Open implements Client.
func (c *Cached) Open(ctx context.Context, projectID, datasetID, file string) (io.ReadCloser, error) {
	return c.client.Open(ctx, projectID, datasetID, file)
}
