package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/helpdesk-service/internal/access"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/notification"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

func strPtr(s string) *string { return &s }

type fakeAreas struct {
	mu    sync.Mutex
	areas map[string]*domain.Area
}

func newFakeAreas(areas ...domain.Area) *fakeAreas {
	f := &fakeAreas{areas: make(map[string]*domain.Area)}
	for i := range areas {
		a := areas[i]
		f.areas[a.ID] = &a
	}
	return f
}

func (f *fakeAreas) Create(_ context.Context, area *domain.Area) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.areas {
		if a.Code == area.Code {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	area.ID = fmt.Sprintf("area-%d", len(f.areas)+1)
	cp := *area
	f.areas[area.ID] = &cp
	return nil
}

func (f *fakeAreas) GetByID(_ context.Context, id string) (*domain.Area, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.areas[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAreas) List(_ context.Context) ([]domain.Area, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Area, 0, len(f.areas))
	for _, a := range f.areas {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeAreas) NextTicketCounter(_ context.Context, areaID string) (string, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.areas[areaID]
	if !ok {
		return "", 0, pgx.ErrNoRows
	}
	a.TicketCounter++
	return a.Code, a.TicketCounter, nil
}

type fakeTickets struct {
	mu      sync.Mutex
	areas   *fakeAreas
	tickets map[string]*domain.Ticket
	writes  int
	seq     int
}

func newFakeTickets(areas *fakeAreas, tickets ...domain.Ticket) *fakeTickets {
	f := &fakeTickets{areas: areas, tickets: make(map[string]*domain.Ticket)}
	for i := range tickets {
		t := tickets[i]
		f.tickets[t.ID] = &t
	}
	return f
}

func (f *fakeTickets) CreateNumbered(ctx context.Context, ticket *domain.Ticket) error {
	code, counter, err := f.areas.NextTicketCounter(ctx, ticket.AreaID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.writes++
	ticket.ID = fmt.Sprintf("ticket-%d", f.seq)
	ticket.Number = domain.FormatTicketNumber(code, counter)
	for i := range ticket.Attachments {
		ticket.Attachments[i].TicketID = ticket.ID
	}
	cp := *ticket
	f.tickets[ticket.ID] = &cp
	return nil
}

func (f *fakeTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.writes++
	cp := *ticket
	f.tickets[ticket.ID] = &cp
	return nil
}

func (f *fakeTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTickets) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, t := range f.tickets {
		if !filter.Scope.Matches(access.RefOf(t)) {
			continue
		}
		if filter.SearchTerm != nil && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(*filter.SearchTerm)) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTickets) BulkUpdateStatus(_ context.Context, ids []string, status domain.TicketStatus, scope access.Scope) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	var n int64
	for _, id := range ids {
		t, ok := f.tickets[id]
		if !ok || !scope.Matches(access.RefOf(t)) {
			continue
		}
		if status == domain.TicketStatusAssigned && t.TechnicianID == nil {
			continue
		}
		t.Status = status
		if status == domain.TicketStatusResolved {
			now := time.Now()
			t.ResolvedAt = &now
		}
		n++
	}
	return n, nil
}

func (f *fakeTickets) BulkAssign(_ context.Context, ids []string, assignment repository.BulkAssignment, scope access.Scope) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	var n int64
	for _, id := range ids {
		t, ok := f.tickets[id]
		if !ok || !scope.Matches(access.RefOf(t)) {
			continue
		}
		tech := assignment.TechnicianID
		t.TechnicianID = &tech
		t.Status = assignment.Status
		if assignment.Status == domain.TicketStatusResolved {
			now := time.Now()
			t.ResolvedAt = &now
		}
		n++
	}
	return n, nil
}

func (f *fakeTickets) BulkDelete(_ context.Context, ids []string, scope access.Scope) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	var n int64
	for _, id := range ids {
		t, ok := f.tickets[id]
		if !ok || !scope.Matches(access.RefOf(t)) {
			continue
		}
		delete(f.tickets, id)
		n++
	}
	return n, nil
}

func (f *fakeTickets) StatusCounts(_ context.Context, scope access.Scope) (map[domain.TicketStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[domain.TicketStatus]int)
	for _, t := range f.tickets {
		if scope.Matches(access.RefOf(t)) {
			counts[t.Status]++
		}
	}
	return counts, nil
}

func (f *fakeTickets) OverdueCount(_ context.Context, scope access.Scope, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tickets {
		if !scope.Matches(access.RefOf(t)) || t.SLADeadline == nil {
			continue
		}
		switch t.Status {
		case domain.TicketStatusResolved, domain.TicketStatusClosed, domain.TicketStatusCancelled:
			continue
		}
		if t.SLADeadline.Before(now) {
			n++
		}
	}
	return n, nil
}

func (f *fakeTickets) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUsers(users ...domain.User) *fakeUsers {
	f := &fakeUsers{users: make(map[string]*domain.User)}
	for i := range users {
		u := users[i]
		f.users[u.ID] = &u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, user.Email) {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	user.ID = fmt.Sprintf("user-%d", len(f.users)+1)
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUsers) Update(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUsers) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, u := range f.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.AreaID != nil && !u.InArea(*filter.AreaID) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeComments struct {
	mu       sync.Mutex
	comments []domain.Comment
}

func (f *fakeComments) Create(_ context.Context, comment *domain.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	comment.ID = fmt.Sprintf("comment-%d", len(f.comments)+1)
	comment.CreatedAt = time.Now()
	f.comments = append(f.comments, *comment)
	return nil
}

func (f *fakeComments) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Comment
	for _, c := range f.comments {
		if c.TicketID != ticketID || (c.IsInternal && !includeInternal) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []domain.TicketHistory
}

func (f *fakeHistory) Create(_ context.Context, entry *domain.TicketHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = fmt.Sprintf("history-%d", len(f.entries)+1)
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistory) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TicketHistory
	for _, e := range f.entries {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeResets struct {
	mu     sync.Mutex
	tokens map[string]*repository.PasswordResetToken
	users  *fakeUsers
	// writeErr fails the password write; the token then stays unused.
	writeErr error
}

func newFakeResets(users *fakeUsers) *fakeResets {
	return &fakeResets{tokens: make(map[string]*repository.PasswordResetToken), users: users}
}

func (f *fakeResets) Create(_ context.Context, token *repository.PasswordResetToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	token.ID = fmt.Sprintf("reset-%d", len(f.tokens)+1)
	cp := *token
	f.tokens[token.Token] = &cp
	return nil
}

func (f *fakeResets) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f *fakeResets) Consume(ctx context.Context, id, userID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var token *repository.PasswordResetToken
	for _, t := range f.tokens {
		if t.ID == id && t.UsedAt == nil {
			token = t
		}
	}
	if token == nil {
		return pgx.ErrNoRows
	}
	if f.writeErr != nil {
		return f.writeErr
	}
	user, err := f.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	user.PasswordHash = passwordHash
	if err := f.users.Update(ctx, user); err != nil {
		return err
	}
	now := time.Now()
	token.UsedAt = &now
	return nil
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []notification.Job
	err  error
}

func (f *fakeQueue) Enqueue(_ context.Context, job notification.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeQueue) Dequeue(context.Context, time.Duration) (*notification.Delivery, error) {
	return nil, nil
}

func (f *fakeQueue) Ack(context.Context, *notification.Delivery) error { return nil }
func (f *fakeQueue) Retry(context.Context, *notification.Delivery, error) error { return nil }
func (f *fakeQueue) DeadLetter(context.Context, *notification.Delivery, error) error { return nil }
func (f *fakeQueue) Recover(context.Context) (int, error) { return 0, nil }

var (
	_ repository.TicketRepository        = (*fakeTickets)(nil)
	_ repository.AreaRepository          = (*fakeAreas)(nil)
	_ repository.UserRepository          = (*fakeUsers)(nil)
	_ repository.CommentRepository       = (*fakeComments)(nil)
	_ repository.TicketHistoryRepository = (*fakeHistory)(nil)
	_ repository.PasswordResetRepository = (*fakeResets)(nil)
	_ notification.Queue                 = (*fakeQueue)(nil)
)
