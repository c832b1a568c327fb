package feed

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/mantonx/gallery/internal/logger"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/types"
)

// Repository hands out feeds and single pages at the configured page size
type Repository struct {
	loader   types.PageLoader
	pageSize int
	logger   hclog.Logger
}

// NewRepository creates a repository. A non-positive pageSize falls back to
// types.DefaultPageSize.
func NewRepository(loader types.PageLoader, pageSize int, l hclog.Logger) *Repository {
	if pageSize <= 0 {
		pageSize = types.DefaultPageSize
	}
	return &Repository{
		loader:   loader,
		pageSize: pageSize,
		logger:   logger.OrNull(l),
	}
}

// PageSize returns the configured page size
func (r *Repository) PageSize() int {
	return r.pageSize
}

// Feed creates a feed that lives as long as scope
func (r *Repository) Feed(scope context.Context) *Feed {
	return NewFeed(scope, r.loader, r.pageSize, WithLogger(r.logger))
}

// Page loads a single page at the configured size
func (r *Repository) Page(ctx context.Context, page int) (*types.Page, error) {
	return r.loader.LoadPage(ctx, page, r.pageSize)
}
