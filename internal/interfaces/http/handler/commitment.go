package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/irdash/backend/internal/application/dashboard"
	"github.com/irdash/backend/internal/domain/investor"
)

// CommitmentHandler serves commitments and the per-deal views.
type CommitmentHandler struct {
	BaseHandler
	pages       pager[investor.Commitment]
	commitments *dashboard.CommitmentService
}

// NewCommitmentHandler creates a new CommitmentHandler
func NewCommitmentHandler(commitments *dashboard.CommitmentService, sessions *dashboard.SessionPages) *CommitmentHandler {
	return &CommitmentHandler{
		pages: pager[investor.Commitment]{
			sessions: sessions,
			pick: func(_ *gin.Context, p *dashboard.Pages) (*dashboard.PagedCache[investor.Commitment], error) {
				return p.Commitments, nil
			},
		},
		commitments: commitments,
	}
}

// CreateCommitmentRequest is the body of POST /commitments.
type CreateCommitmentRequest struct {
	PersonID    string `json:"person_id" binding:"required,uuid"`
	DealID      string `json:"deal_id" binding:"required,uuid"`
	TicketCount int64  `json:"ticket_count" binding:"required,gt=0"`
}

// UpdateCommitmentRequest is the body of PATCH /commitments/:id.
type UpdateCommitmentRequest struct {
	DealID      *string `json:"deal_id" binding:"omitempty,uuid"`
	TicketCount *int64  `json:"ticket_count" binding:"omitempty,gt=0"`
}

// DealTickets is the response of GET /deals/:id/tickets.
type DealTickets struct {
	DealID       string `json:"deal_id"`
	TotalTickets int64  `json:"total_tickets"`
}

// List returns the caller's current page of commitments.
func (h *CommitmentHandler) List(c *gin.Context) {
	h.pages.list(c)
}

// Next moves to the next page of commitments.
func (h *CommitmentHandler) Next(c *gin.Context) {
	h.pages.next(c)
}

// Previous moves to the previous page of commitments.
func (h *CommitmentHandler) Previous(c *gin.Context) {
	h.pages.previous(c)
}

// GoToPage jumps to /commitments/page/:page.
func (h *CommitmentHandler) GoToPage(c *gin.Context) {
	h.pages.goTo(c)
}

// Get returns one commitment.
func (h *CommitmentHandler) Get(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	commitment, err := h.commitments.GetCommitmentByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, commitment)
}

// ByDeal returns every commitment to the deal.
func (h *CommitmentHandler) ByDeal(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	commitments, err := h.commitments.GetCommitmentsByDealID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, commitments)
}

// Tickets sums the tickets committed to the deal.
func (h *CommitmentHandler) Tickets(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	total, err := h.commitments.TotalTicketsByDeal(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, DealTickets{DealID: id, TotalTickets: total})
}

// Create records a commitment.
func (h *CommitmentHandler) Create(c *gin.Context) {
	var req CreateCommitmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	commitment, err := h.commitments.CreateCommitment(c.Request.Context(), investor.CommitmentDraft{
		PersonID:    req.PersonID,
		DealID:      req.DealID,
		TicketCount: req.TicketCount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, commitment)
}

// Update changes the deal or ticket count of a commitment.
func (h *CommitmentHandler) Update(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	var req UpdateCommitmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	commitment, err := h.commitments.UpdateCommitment(c.Request.Context(), id, investor.CommitmentPatch{
		DealID:      req.DealID,
		TicketCount: req.TicketCount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, commitment)
}

// Delete soft deletes a commitment.
func (h *CommitmentHandler) Delete(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	if err := h.commitments.DeleteCommitment(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
