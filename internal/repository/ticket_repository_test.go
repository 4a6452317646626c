package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/pradeepmisra81/trudesk/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestTicketCreateAssignsUIDAndHistory(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTicketRepository(db)
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(uid\), 999\) \+ 1 FROM tickets`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(1042))
	mock.ExpectQuery(`(?s)INSERT INTO tickets.+RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectQuery(`(?s)INSERT INTO ticket_history.+RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(6))
	mock.ExpectCommit()

	ticket := &models.Ticket{
		OwnerID:    1,
		GroupID:    2,
		TypeID:     3,
		PriorityID: 4,
		Status:     models.StatusNew,
		Subject:    "Help",
		Issue:      "issue text",
		History: []models.HistoryEntry{{
			Action:      models.HistoryTicketCreated,
			Description: "Ticket was created.",
			OwnerID:     1,
		}},
	}
	require.NoError(t, repo.Create(context.Background(), ticket))

	require.Equal(t, int64(1042), ticket.UID)
	require.Equal(t, int64(5), ticket.ID)
	require.Equal(t, int64(6), ticket.History[0].ID)
	require.Equal(t, int64(5), ticket.History[0].TicketID)
	require.Equal(t, now, ticket.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketCreateRollsBackOnInsertFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTicketRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(1000))
	mock.ExpectQuery(`INSERT INTO tickets`).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Ticket{})
	require.ErrorContains(t, err, "insert ticket")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListReturnsNothingWithoutGroupScope(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewTicketRepository(db)

	rows, err := repo.List(context.Background(), &models.TicketQuery{Limit: 50})
	require.NoError(t, err)
	require.Empty(t, rows)

	total, err := repo.Count(context.Background(), &models.TicketQuery{Limit: 50})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestBuildTicketConditions(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q := &models.TicketQuery{
		GroupIDs:     []int64{1, 2},
		Status:       []int{0, 1},
		AssignedSelf: true,
		UserID:       7,
		Filter: &models.TicketFilter{
			UID:        "1042",
			Subject:    "Printer",
			DateStart:  &start,
			Priorities: []int64{3},
			Tags:       []string{"hw"},
		},
	}
	where, args := buildTicketConditions(q)

	require.Contains(t, where, "t.group_id IN (?)")
	require.Contains(t, where, "t.status IN (?)")
	require.Contains(t, where, "t.assignee_id = ?")
	require.Contains(t, where, "t.uid = ?")
	require.Contains(t, where, "LOWER(t.subject) LIKE ?")
	require.Contains(t, where, "t.created_at >= ?")
	require.Contains(t, where, "t.priority_id IN (?)")
	require.Contains(t, where, "tg.tag IN (?)")
	require.Contains(t, args, "%printer%")
	require.Contains(t, args, int64(1042))
	require.Contains(t, args, int64(7))
}

func TestBuildTicketConditionsFilterStatusWins(t *testing.T) {
	q := &models.TicketQuery{
		GroupIDs: []int64{1},
		Status:   []int{0, 1, 2},
		Filter:   &models.TicketFilter{Status: []int{3}},
	}
	_, args := buildTicketConditions(q)
	require.Contains(t, args, []int{3})
	require.NotContains(t, args, []int{0, 1, 2})
}

func TestBuildTicketConditionsIgnoresBadUID(t *testing.T) {
	q := &models.TicketQuery{
		GroupIDs: []int64{1},
		Filter:   &models.TicketFilter{UID: "abc"},
	}
	where, _ := buildTicketConditions(q)
	require.NotContains(t, where, "t.uid")
}

func TestBuildTicketConditionsUnassigned(t *testing.T) {
	q := &models.TicketQuery{GroupIDs: []int64{1}, Unassigned: true}
	where, _ := buildTicketConditions(q)
	require.Contains(t, where, "t.assignee_id IS NULL")
}
