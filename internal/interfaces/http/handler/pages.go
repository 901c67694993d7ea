package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irdash/backend/internal/application/dashboard"
	"github.com/irdash/backend/internal/interfaces/http/dto"
	"github.com/irdash/backend/internal/interfaces/http/middleware"
)

// pager serves the navigation endpoints shared by every paginated cache.
// Each session navigates its own caches, so one client moving to the next
// page never moves another's.
type pager[T any] struct {
	BaseHandler
	sessions *dashboard.SessionPages
	pick     func(c *gin.Context, pages *dashboard.Pages) (*dashboard.PagedCache[T], error)
}

// cache resolves the caller's cache. On failure the response is written.
func (p pager[T]) cache(c *gin.Context) (*dashboard.PagedCache[T], bool) {
	pages, err := p.sessions.Open(c.Request.Context(), middleware.GetSessionToken(c))
	if err != nil {
		p.HandleError(c, err)
		return nil, false
	}
	cache, err := p.pick(c, pages)
	if err != nil {
		p.HandleError(c, err)
		return nil, false
	}
	return cache, true
}

// list returns the current snapshot. The snapshot carries its own state and
// error so views can tell loading, loaded and stale apart.
func (p pager[T]) list(c *gin.Context) {
	if cache, ok := p.cache(c); ok {
		p.show(c, cache)
	}
}

func (p pager[T]) next(c *gin.Context) {
	if cache, ok := p.cache(c); ok {
		p.navigate(c, cache, cache.NextPage)
	}
}

func (p pager[T]) previous(c *gin.Context) {
	if cache, ok := p.cache(c); ok {
		p.navigate(c, cache, cache.PreviousPage)
	}
}

func (p pager[T]) goTo(c *gin.Context) {
	var req dto.PageRequest
	if err := c.ShouldBindUri(&req); err != nil {
		p.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "page must be a positive integer")
		return
	}
	cache, ok := p.cache(c)
	if !ok {
		return
	}
	p.navigate(c, cache, func(ctx context.Context) error {
		return cache.GoToPage(ctx, req.Page)
	})
}

func (p pager[T]) show(c *gin.Context, cache *dashboard.PagedCache[T]) {
	snap := cache.Snapshot()
	p.SuccessWithMeta(c, dto.NewPageResponse(snap), dto.MetaOf(snap))
}

func (p pager[T]) navigate(c *gin.Context, cache *dashboard.PagedCache[T], move func(context.Context) error) {
	if err := move(c.Request.Context()); err != nil && !stale(err) {
		p.HandleError(c, err)
		return
	}
	p.show(c, cache)
}
