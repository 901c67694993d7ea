package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/irdash/backend/internal/application/dashboard"
	"github.com/irdash/backend/internal/domain/investor"
)

// MemberHandler serves the members tab.
type MemberHandler struct {
	BaseHandler
	pages       pager[investor.Person]
	persons     *dashboard.PersonService
	commitments *dashboard.CommitmentService
}

// NewMemberHandler creates a new MemberHandler. Page positions are kept per
// session in sessions.
func NewMemberHandler(persons *dashboard.PersonService, commitments *dashboard.CommitmentService, sessions *dashboard.SessionPages) *MemberHandler {
	return &MemberHandler{
		pages: pager[investor.Person]{
			sessions: sessions,
			pick: func(_ *gin.Context, p *dashboard.Pages) (*dashboard.PagedCache[investor.Person], error) {
				return p.Persons, nil
			},
		},
		persons:     persons,
		commitments: commitments,
	}
}

// List returns the caller's current page of members.
func (h *MemberHandler) List(c *gin.Context) {
	h.pages.list(c)
}

// Next moves to the next page of members.
func (h *MemberHandler) Next(c *gin.Context) {
	h.pages.next(c)
}

// Previous moves to the previous page of members.
func (h *MemberHandler) Previous(c *gin.Context) {
	h.pages.previous(c)
}

// GoToPage jumps to /members/page/:page.
func (h *MemberHandler) GoToPage(c *gin.Context) {
	h.pages.goTo(c)
}

// Get returns one member.
func (h *MemberHandler) Get(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	person, err := h.persons.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, person)
}

// Commitments returns every commitment made by the member.
func (h *MemberHandler) Commitments(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	commitments, err := h.commitments.GetCommitmentsByPersonID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, commitments)
}
