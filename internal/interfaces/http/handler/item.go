package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/irdash/backend/internal/application/dashboard"
	"github.com/irdash/backend/internal/domain/investor"
)

// ItemHandler serves the deals, content, events and engagement tabs.
type ItemHandler struct {
	BaseHandler
	pages pager[investor.Item]
	items *dashboard.ItemService
}

// NewItemHandler creates a new ItemHandler
func NewItemHandler(items *dashboard.ItemService, sessions *dashboard.SessionPages) *ItemHandler {
	return &ItemHandler{
		pages: pager[investor.Item]{sessions: sessions, pick: itemPage},
		items: items,
	}
}

// itemPage picks the cache of the /items/:type tab.
func itemPage(c *gin.Context, pages *dashboard.Pages) (*dashboard.PagedCache[investor.Item], error) {
	t, err := investor.ParseItemType(c.Param("type"))
	if err != nil {
		return nil, err
	}
	return pages.Items(t)
}

// CreateItemRequest is the body of POST /items.
type CreateItemRequest struct {
	Type       string           `json:"type" binding:"required,item_type"`
	Title      string           `json:"title" binding:"required,max=500"`
	Status     string           `json:"status" binding:"max=100"`
	Sector     string           `json:"sector" binding:"max=100"`
	TicketSize *decimal.Decimal `json:"ticket_size"`
}

// UpdateItemRequest is the body of PATCH /items/:id. Absent fields are left unchanged.
type UpdateItemRequest struct {
	Title      *string          `json:"title" binding:"omitempty,max=500"`
	Status     *string          `json:"status" binding:"omitempty,max=100"`
	Sector     *string          `json:"sector" binding:"omitempty,max=100"`
	TicketSize *decimal.Decimal `json:"ticket_size"`
}

// List returns the caller's current page of items of /items/:type.
func (h *ItemHandler) List(c *gin.Context) {
	h.pages.list(c)
}

// Next moves to the next page of /items/:type.
func (h *ItemHandler) Next(c *gin.Context) {
	h.pages.next(c)
}

// Previous moves to the previous page of /items/:type.
func (h *ItemHandler) Previous(c *gin.Context) {
	h.pages.previous(c)
}

// GoToPage jumps to /items/:type/page/:page.
func (h *ItemHandler) GoToPage(c *gin.Context) {
	h.pages.goTo(c)
}

// Get returns one item by id.
func (h *ItemHandler) Get(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	item, err := h.items.GetItemByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Create inserts an item and returns it as confirmed by the gateway.
func (h *ItemHandler) Create(c *gin.Context) {
	var req CreateItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	t, err := investor.ParseItemType(req.Type)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	item, err := h.items.CreateItem(c.Request.Context(), investor.ItemDraft{
		Type:       t,
		Title:      req.Title,
		Status:     req.Status,
		Sector:     req.Sector,
		TicketSize: req.TicketSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// Update applies a partial update.
func (h *ItemHandler) Update(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	var req UpdateItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.items.UpdateItem(c.Request.Context(), id, investor.ItemPatch{
		Title:      req.Title,
		Status:     req.Status,
		Sector:     req.Sector,
		TicketSize: req.TicketSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Delete soft deletes an item.
func (h *ItemHandler) Delete(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	if err := h.items.DeleteItem(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
