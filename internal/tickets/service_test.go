package tickets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pradeepmisra81/trudesk/internal/models"
)

type fakeTicketStore struct {
	tickets  []models.Ticket
	byUID    map[int64]*models.Ticket
	lastSpec *models.TicketQuery
	total    int
}

func (f *fakeTicketStore) List(_ context.Context, q *models.TicketQuery) ([]models.Ticket, error) {
	f.lastSpec = q
	out := make([]models.Ticket, len(f.tickets))
	copy(out, f.tickets)
	return out, nil
}

func (f *fakeTicketStore) Count(_ context.Context, q *models.TicketQuery) (int, error) {
	return f.total, nil
}

func (f *fakeTicketStore) GetByUID(_ context.Context, uid int64) (*models.Ticket, error) {
	if t, ok := f.byUID[uid]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, ErrForbidden
}

type fakeGroupStore struct {
	own     []models.Group
	public  []models.Group
	members map[int64][]int64
}

func (f *fakeGroupStore) GroupsOfUser(_ context.Context, userID int64) ([]models.Group, error) {
	return f.own, nil
}

func (f *fakeGroupStore) PublicGroups(_ context.Context) ([]models.Group, error) {
	return f.public, nil
}

func (f *fakeGroupStore) IsMember(_ context.Context, groupID, userID int64) (bool, error) {
	for _, uid := range f.members[groupID] {
		if uid == userID {
			return true, nil
		}
	}
	return false, nil
}

func agent() *models.User { return &models.User{ID: 1, Role: "agent"} }
func enduser() *models.User {
	return &models.User{ID: 2, Role: "user"}
}

func TestVisibleGroupIDsIncludesPublicWithCapability(t *testing.T) {
	groups := &fakeGroupStore{
		own:    []models.Group{{ID: 1}, {ID: 2}},
		public: []models.Group{{ID: 2, Public: true}, {ID: 3, Public: true}},
	}
	s := NewService(&fakeTicketStore{}, groups, DefaultCapabilities())

	ids, err := s.VisibleGroupIDs(context.Background(), agent())
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, ids)

	ids, err = s.VisibleGroupIDs(context.Background(), enduser())
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, ids)
}

func TestListScopesQueryAndBlanksNotes(t *testing.T) {
	store := &fakeTicketStore{
		tickets: []models.Ticket{{
			ID:    1,
			Notes: []models.Note{{Note: "internal"}},
		}},
		total: 120,
	}
	groups := &fakeGroupStore{own: []models.Group{{ID: 9}}}
	s := NewService(store, groups, DefaultCapabilities())

	result, err := s.List(context.Background(), enduser(), &models.TicketQuery{Page: 2, Limit: 50})
	require.NoError(t, err)

	require.Equal(t, []int64{9}, store.lastSpec.GroupIDs)
	require.Equal(t, int64(2), store.lastSpec.UserID)
	require.Empty(t, result.Tickets[0].Notes)

	require.Equal(t, 100, result.Pagination.Start)
	require.Equal(t, 150, result.Pagination.End)
	require.False(t, result.Pagination.NextEnabled)
	require.Equal(t, 1, result.Pagination.PrevPage)
}

func TestListKeepsNotesForAgents(t *testing.T) {
	store := &fakeTicketStore{
		tickets: []models.Ticket{{ID: 1, Notes: []models.Note{{Note: "internal"}}}},
	}
	groups := &fakeGroupStore{own: []models.Group{{ID: 9}}}
	s := NewService(store, groups, DefaultCapabilities())

	result, err := s.List(context.Background(), agent(), &models.TicketQuery{})
	require.NoError(t, err)
	require.Len(t, result.Tickets[0].Notes, 1)
}

func TestGetByUIDEnforcesMembership(t *testing.T) {
	ticket := &models.Ticket{
		ID:      1,
		UID:     1001,
		GroupID: 9,
		Group:   &models.Group{ID: 9, Public: false},
		Notes:   []models.Note{{Note: "internal"}},
	}
	store := &fakeTicketStore{byUID: map[int64]*models.Ticket{1001: ticket}}
	groups := &fakeGroupStore{members: map[int64][]int64{9: {2}}}
	s := NewService(store, groups, DefaultCapabilities())

	got, err := s.GetByUID(context.Background(), enduser(), 1001)
	require.NoError(t, err)
	require.Empty(t, got.Notes)

	_, err = s.GetByUID(context.Background(), &models.User{ID: 3, Role: "user"}, 1001)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestGetByUIDPublicGroupNeedsCapability(t *testing.T) {
	ticket := &models.Ticket{
		ID:      1,
		UID:     1001,
		GroupID: 9,
		Group:   &models.Group{ID: 9, Public: true},
	}
	store := &fakeTicketStore{byUID: map[int64]*models.Ticket{1001: ticket}}
	groups := &fakeGroupStore{members: map[int64][]int64{}}
	s := NewService(store, groups, DefaultCapabilities())

	_, err := s.GetByUID(context.Background(), agent(), 1001)
	require.NoError(t, err)

	_, err = s.GetByUID(context.Background(), enduser(), 1001)
	require.ErrorIs(t, err, ErrForbidden)
}
