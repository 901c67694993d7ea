package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/investor"
	"github.com/irdash/backend/internal/interfaces/http/dto"
	"github.com/irdash/backend/internal/interfaces/http/middleware"
)

// asSession stands in for SessionAuth: the bearer token names the session,
// and requests without one share the "default" session.
func asSession(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		token = "default"
	}
	c.Set(middleware.SessionTokenKey, token)
}

func (e *testEnv) router() *gin.Engine {
	members := NewMemberHandler(e.dash.Persons, e.dash.Commitments, e.dash.Sessions)
	items := NewItemHandler(e.dash.Items, e.dash.Sessions)
	commitments := NewCommitmentHandler(e.dash.Commitments, e.dash.Sessions)
	metrics := NewMetricsHandler(e.dash, 3)

	r := gin.New()
	r.Use(asSession)
	r.GET("/members", members.List)
	r.POST("/members/next", members.Next)
	r.POST("/members/previous", members.Previous)
	r.POST("/members/page/:page", members.GoToPage)
	r.GET("/members/:id", members.Get)
	r.GET("/members/:id/commitments", members.Commitments)

	r.GET("/items/:type", items.List)
	r.POST("/items/:type/next", items.Next)
	r.GET("/items/id/:id", items.Get)
	r.POST("/items", items.Create)
	r.PATCH("/items/:id", items.Update)
	r.DELETE("/items/:id", items.Delete)

	r.GET("/commitments", commitments.List)
	r.GET("/commitments/:id", commitments.Get)
	r.POST("/commitments", commitments.Create)
	r.PATCH("/commitments/:id", commitments.Update)
	r.DELETE("/commitments/:id", commitments.Delete)
	r.GET("/deals/:id/commitments", commitments.ByDeal)
	r.GET("/deals/:id/tickets", commitments.Tickets)

	r.GET("/metrics/committed-volume", metrics.CommittedVolume)
	r.GET("/metrics/key", metrics.KeyMetrics)
	return r
}

func TestMemberHandler_Navigation(t *testing.T) {
	env := newTestEnv(t)
	env.seedPersons(7)
	env.start()
	r := env.router()

	var page pageBody[investor.Person]
	w := perform(r, http.MethodGet, "/members", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w, &page)
	assert.True(t, resp.Success)
	assert.Len(t, page.Rows, 5)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, int64(7), page.TotalRows)
	assert.Equal(t, "loaded", page.State)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(7), resp.Meta.Total)

	page = pageBody[investor.Person]{}
	decode(t, perform(r, http.MethodPost, "/members/next", nil), &page)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Rows, 2)

	page = pageBody[investor.Person]{}
	decode(t, perform(r, http.MethodPost, "/members/next", nil), &page)
	assert.Equal(t, 2, page.Page, "next on the last page stays put")

	page = pageBody[investor.Person]{}
	decode(t, perform(r, http.MethodPost, "/members/previous", nil), &page)
	assert.Equal(t, 1, page.Page)

	page = pageBody[investor.Person]{}
	decode(t, perform(r, http.MethodPost, "/members/page/2", nil), &page)
	assert.Equal(t, 2, page.Page)

	page = pageBody[investor.Person]{}
	decode(t, perform(r, http.MethodPost, "/members/page/9", nil), &page)
	assert.Equal(t, 2, page.Page, "out of range pages are ignored")

	w = perform(r, http.MethodPost, "/members/page/zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidInput, decode(t, w, nil).Error.Code)
}

func TestMemberHandler_NavigationIsPerSession(t *testing.T) {
	env := newTestEnv(t)
	env.seedPersons(12)
	env.start()
	r := env.router()

	pageOf := func(w *httptest.ResponseRecorder) pageBody[investor.Person] {
		t.Helper()
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var page pageBody[investor.Person]
		decode(t, w, &page)
		return page
	}

	withBearer(r, http.MethodPost, "/members/next", "token-a")
	a := pageOf(withBearer(r, http.MethodPost, "/members/next", "token-a"))
	assert.Equal(t, 3, a.Page)
	assert.Len(t, a.Rows, 2)

	b := pageOf(withBearer(r, http.MethodGet, "/members", "token-b"))
	assert.Equal(t, 1, b.Page, "another session starts on the first page")
	assert.Equal(t, 3, b.TotalPages)
	assert.Len(t, b.Rows, 5)

	b = pageOf(withBearer(r, http.MethodPost, "/members/next", "token-b"))
	assert.Equal(t, 2, b.Page)
	assert.Equal(t, 3, pageOf(withBearer(r, http.MethodGet, "/members", "token-a")).Page)
	assert.Equal(t, 2, env.dash.Sessions.Len())

	env.dash.Sessions.Close("token-a")
	assert.Equal(t, 1, pageOf(withBearer(r, http.MethodGet, "/members", "token-a")).Page,
		"a released session starts over")
}

func TestItemHandler_NavigationIsPerSession(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 6; i++ {
		env.seedDeal(fmt.Sprintf("Deal %d", i), 10)
	}
	env.start()
	r := env.router()

	var deals pageBody[investor.Item]
	decode(t, withBearer(r, http.MethodPost, "/items/deal/next", "token-a"), &deals)
	assert.Equal(t, 2, deals.Page)

	deals = pageBody[investor.Item]{}
	decode(t, withBearer(r, http.MethodGet, "/items/deal", "token-b"), &deals)
	assert.Equal(t, 1, deals.Page)
	assert.Equal(t, 2, deals.TotalPages)
}

func TestMemberHandler_Get(t *testing.T) {
	env := newTestEnv(t)
	ids := env.seedPersons(2)
	env.start()
	r := env.router()

	var person investor.Person
	w := perform(r, http.MethodGet, "/members/"+ids[1], nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &person)
	assert.Equal(t, "member01@example.com", person.Email)

	w = perform(r, http.MethodGet, "/members/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, decode(t, w, nil).Error.Code)

	w = perform(r, http.MethodGet, "/members/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestItemHandler_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.start()
	r := env.router()

	w := perform(r, http.MethodPost, "/items", map[string]any{
		"type":        "deal",
		"title":       "Series A",
		"sector":      "Fintech",
		"ticket_size": "2500",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created investor.Item
	decode(t, w, &created)
	assert.Equal(t, investor.ItemTypeDeal, created.Type)
	require.NotNil(t, created.TicketSize)
	assert.True(t, decimal.NewFromInt(2500).Equal(*created.TicketSize))

	var deals pageBody[investor.Item]
	require.Eventually(t, func() bool {
		deals = pageBody[investor.Item]{}
		decode(t, perform(r, http.MethodGet, "/items/Deal", nil), &deals)
		return deals.TotalRows == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "Series A", deals.Rows[0].Title)

	var events pageBody[investor.Item]
	decode(t, perform(r, http.MethodGet, "/items/event", nil), &events)
	assert.Zero(t, events.TotalRows)

	w = perform(r, http.MethodPatch, "/items/"+created.ID, map[string]any{"title": "Series B"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated investor.Item
	decode(t, w, &updated)
	assert.Equal(t, "Series B", updated.Title)
	assert.Equal(t, "Fintech", updated.Sector)

	w = perform(r, http.MethodDelete, "/items/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = perform(r, http.MethodGet, "/items/id/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestItemHandler_RejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	env.start()
	r := env.router()

	w := perform(r, http.MethodGet, "/items/podcast", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidInput, decode(t, w, nil).Error.Code)

	w = perform(r, http.MethodPost, "/items", map[string]any{"type": "Deal"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, decode(t, w, nil).Error.Code)

	w = perform(r, http.MethodPost, "/items", map[string]any{"type": "Webinar", "title": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodPatch, "/items/"+uuid.NewString(), map[string]any{"title": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, decode(t, w, nil).Error.Code)

	w = perform(r, http.MethodPatch, "/items/"+uuid.NewString(), map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "an empty patch is rejected before the gateway")
}

func TestCommitmentHandler_DealViewsAndVolume(t *testing.T) {
	env := newTestEnv(t)
	people := env.seedPersons(2)
	deal := env.seedDeal("Seed round", 100)
	env.start()
	r := env.router()

	w := perform(r, http.MethodPost, "/commitments", map[string]any{
		"person_id":    people[0],
		"deal_id":      deal,
		"ticket_count": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var commitment investor.Commitment
	decode(t, w, &commitment)
	assert.Equal(t, int64(3), commitment.TicketCount)

	var tickets DealTickets
	decode(t, perform(r, http.MethodGet, "/deals/"+deal+"/tickets", nil), &tickets)
	assert.Equal(t, DealTickets{DealID: deal, TotalTickets: 3}, tickets)

	var byDeal []investor.Commitment
	decode(t, perform(r, http.MethodGet, "/deals/"+deal+"/commitments", nil), &byDeal)
	assert.Len(t, byDeal, 1)

	var byPerson []investor.Commitment
	decode(t, perform(r, http.MethodGet, "/members/"+people[1]+"/commitments", nil), &byPerson)
	assert.Empty(t, byPerson)

	var volume dto.VolumeResponse
	require.Eventually(t, func() bool {
		volume = dto.VolumeResponse{}
		decode(t, perform(r, http.MethodGet, "/metrics/committed-volume", nil), &volume)
		v, ok := volume.Volumes[people[0]]
		return ok && v.Equal(decimal.NewFromInt(300))
	}, time.Second, 10*time.Millisecond)
	assert.True(t, volume.Ready)
	assert.Nil(t, volume.Error)
	assert.True(t, volume.Volumes[people[1]].IsZero())

	w = perform(r, http.MethodPatch, "/commitments/"+commitment.ID, map[string]any{"ticket_count": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodDelete, "/commitments/"+commitment.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	tickets = DealTickets{}
	decode(t, perform(r, http.MethodGet, "/deals/"+deal+"/tickets", nil), &tickets)
	assert.Zero(t, tickets.TotalTickets)
}

func TestCommitmentHandler_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	env.start()
	r := env.router()

	w := perform(r, http.MethodPost, "/commitments", map[string]any{
		"person_id":    "p1",
		"deal_id":      uuid.NewString(),
		"ticket_count": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w, nil)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
}

func TestMetricsHandler_KeyMetrics(t *testing.T) {
	env := newTestEnv(t)
	people := env.seedPersons(4)
	deal := env.seedDeal("Growth", 10)
	for i, id := range people {
		env.insert(gateway.CollectionCommitment, gateway.Row{
			"person_id":    id,
			"deal_id":      deal,
			"ticket_count": i + 1,
		})
	}
	env.start()
	r := env.router()

	var metrics investor.KeyMetrics
	require.Eventually(t, func() bool {
		w := perform(r, http.MethodGet, "/metrics/key", nil)
		if w.Code != http.StatusOK {
			return false
		}
		metrics = investor.KeyMetrics{}
		decode(t, w, &metrics)
		return metrics.TotalCommittedVolume.Equal(decimal.NewFromInt(100))
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 4, metrics.TotalMembers)
	assert.Equal(t, 1, metrics.TotalDeals)
	assert.Len(t, metrics.TopInvestors, 3)

	metrics = investor.KeyMetrics{}
	decode(t, perform(r, http.MethodGet, "/metrics/key?top=1", nil), &metrics)
	assert.Len(t, metrics.TopInvestors, 1)

	w := perform(r, http.MethodGet, "/metrics/key?top=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
