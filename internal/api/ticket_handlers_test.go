package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/pradeepmisra81/trudesk/internal/models"
	"github.com/pradeepmisra81/trudesk/internal/repository"
	"github.com/pradeepmisra81/trudesk/internal/tickets"
)

type fakeTicketRepo struct {
	lastQuery *models.TicketQuery
	tickets   []models.Ticket
	total     int
	byUID     map[int64]*models.Ticket
}

func (f *fakeTicketRepo) List(_ context.Context, q *models.TicketQuery) ([]models.Ticket, error) {
	f.lastQuery = q
	return f.tickets, nil
}

func (f *fakeTicketRepo) Count(_ context.Context, _ *models.TicketQuery) (int, error) {
	return f.total, nil
}

func (f *fakeTicketRepo) GetByUID(_ context.Context, uid int64) (*models.Ticket, error) {
	if t, ok := f.byUID[uid]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

type fakeGroupRepo struct {
	own     []models.Group
	public  []models.Group
	members map[int64][]int64
}

func (f *fakeGroupRepo) GroupsOfUser(_ context.Context, _ int64) ([]models.Group, error) {
	return f.own, nil
}

func (f *fakeGroupRepo) PublicGroups(_ context.Context) ([]models.Group, error) {
	return f.public, nil
}

func (f *fakeGroupRepo) IsMember(_ context.Context, groupID, userID int64) (bool, error) {
	for _, uid := range f.members[groupID] {
		if uid == userID {
			return true, nil
		}
	}
	return false, nil
}

func ticketRouter(repo *fakeTicketRepo, groups *fakeGroupRepo, user *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := tickets.NewService(repo, groups, tickets.DefaultCapabilities())
	h := NewTicketHandlers(svc, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(userContextKey, user)
		c.Next()
	})
	r.GET("/tickets", h.listActive)
	r.GET("/tickets/status/:status", h.listByStatus)
	r.GET("/tickets/filter", h.listFiltered)
	r.GET("/tickets/uid/:uid", h.getByUID)
	return r
}

func TestListActiveScopesAndPaginates(t *testing.T) {
	repo := &fakeTicketRepo{total: 120}
	groups := &fakeGroupRepo{own: []models.Group{{ID: 9}}}
	router := ticketRouter(repo, groups, &models.User{ID: 2, Role: "user"})

	req := httptest.NewRequest(http.MethodGet, "/tickets?page=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []int{models.StatusNew, models.StatusOpen, models.StatusPending}, repo.lastQuery.Status)
	require.Equal(t, []int64{9}, repo.lastQuery.GroupIDs)
	require.Equal(t, 2, repo.lastQuery.Page)
	require.Equal(t, 50, repo.lastQuery.Limit)

	var out struct {
		Pagination tickets.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, 120, out.Pagination.Total)
	require.Equal(t, 100, out.Pagination.Start)
	require.False(t, out.Pagination.NextEnabled)
}

func TestListByStatusValidation(t *testing.T) {
	repo := &fakeTicketRepo{}
	router := ticketRouter(repo, &fakeGroupRepo{own: []models.Group{{ID: 1}}}, &models.User{ID: 1, Role: "user"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tickets/status/3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []int{models.StatusClosed}, repo.lastQuery.Status)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tickets/status/9", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListFilteredBuildsFilterFromQuery(t *testing.T) {
	repo := &fakeTicketRepo{}
	router := ticketRouter(repo, &fakeGroupRepo{own: []models.Group{{ID: 1}}}, &models.User{ID: 1, Role: "user"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tickets/filter?st=0&st=1&fs=printer&page=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, repo.lastQuery.Filter)
	require.Equal(t, []int{0, 1}, repo.lastQuery.Filter.Status)
	require.Equal(t, "printer", repo.lastQuery.Filter.Subject)
	require.Equal(t, 1, repo.lastQuery.Page)
	require.Equal(t, "/tickets/filter?st=0&st=1&fs=printer", repo.lastQuery.Filter.Raw)
}

func TestGetByUIDResponses(t *testing.T) {
	ticket := &models.Ticket{
		ID: 1, UID: 1001, GroupID: 9,
		Group: &models.Group{ID: 9, Public: false},
	}
	repo := &fakeTicketRepo{byUID: map[int64]*models.Ticket{1001: ticket}}
	groups := &fakeGroupRepo{members: map[int64][]int64{9: {2}}}

	router := ticketRouter(repo, groups, &models.User{ID: 2, Role: "user"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tickets/uid/1001", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ticket"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tickets/uid/9999", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	router = ticketRouter(repo, groups, &models.User{ID: 5, Role: "user"})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tickets/uid/1001", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}
