package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eventflow/platform/internal/app"
	"github.com/eventflow/platform/internal/auth"
	"github.com/eventflow/platform/internal/domain"
)

// stubVerifier accepts the tokens it was given and rejects all others.
type stubVerifier map[string]auth.Identity

func (v stubVerifier) Verify(_ context.Context, raw string) (auth.Identity, error) {
	id, ok := v[raw]
	if !ok {
		return auth.Identity{}, domain.ErrInvalidCredential
	}
	return id, nil
}

var testVerifier = stubVerifier{
	"buyer-token":     {Subject: "buyer-1"},
	"admin-token":     {Subject: "admin-1", Roles: []string{domain.RoleAdmin}},
	"organizer-token": {Subject: "org-1", Roles: []string{domain.RoleOrganizer}},
	"staff-token":     {Subject: "staff-1", Roles: []string{domain.RoleStaff}},
}

func doRequest(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type stubEvents struct {
	event   domain.Event
	err     error
	lastIn  app.CreateEventInput
	lastGet string
	listing []domain.Event
	listErr error
}

func (s *stubEvents) CreateEvent(_ context.Context, in app.CreateEventInput) (domain.Event, error) {
	s.lastIn = in
	return s.event, s.err
}

func (s *stubEvents) ListEvents(context.Context) ([]domain.Event, error) {
	return s.listing, s.listErr
}

func (s *stubEvents) GetEvent(_ context.Context, id string) (domain.Event, error) {
	s.lastGet = id
	return s.event, s.err
}

type stubTickets struct {
	ticket   domain.Ticket
	tickets  []domain.Ticket
	err      error
	lastBuy  app.BuyTicketInput
	lastScan app.ScanTicketInput
	lastMine string
}

func (s *stubTickets) Buy(_ context.Context, in app.BuyTicketInput) (domain.Ticket, error) {
	s.lastBuy = in
	return s.ticket, s.err
}

func (s *stubTickets) ListMine(_ context.Context, sub string) ([]domain.Ticket, error) {
	s.lastMine = sub
	return s.tickets, s.err
}

func (s *stubTickets) Scan(_ context.Context, in app.ScanTicketInput) (domain.Ticket, error) {
	s.lastScan = in
	return s.ticket, s.err
}

type stubBans struct {
	ban       domain.Ban
	bans      []domain.Ban
	err       error
	lastBan   app.BanInput
	lastUnban string
}

func (s *stubBans) Ban(_ context.Context, in app.BanInput) (domain.Ban, error) {
	s.lastBan = in
	return s.ban, s.err
}

func (s *stubBans) Unban(_ context.Context, sub string) error {
	s.lastUnban = sub
	return s.err
}

func (s *stubBans) ListBans(context.Context) ([]domain.Ban, error) {
	return s.bans, s.err
}

type stubNotifications struct {
	items  []domain.Notification
	err    error
	lastIn app.ListNotificationsInput
}

func (s *stubNotifications) List(_ context.Context, in app.ListNotificationsInput) ([]domain.Notification, error) {
	s.lastIn = in
	return s.items, s.err
}

type stubProfiles struct {
	user         domain.User
	role         domain.RoleAssignment
	err          error
	lastSubject  string
	lastRoles    []string
	lastUpdate   app.UpdateProfileInput
	lastRoleName string
}

func (s *stubProfiles) GetOrCreate(_ context.Context, subject string, roles []string) (domain.User, error) {
	s.lastSubject, s.lastRoles = subject, roles
	return s.user, s.err
}

func (s *stubProfiles) Update(_ context.Context, in app.UpdateProfileInput) (domain.User, error) {
	s.lastUpdate = in
	return s.user, s.err
}

func (s *stubProfiles) Roles(_ context.Context, subject string) (domain.User, error) {
	s.lastSubject = subject
	return s.user, s.err
}

func (s *stubProfiles) AddRole(_ context.Context, subject, role string) (domain.RoleAssignment, error) {
	s.lastSubject, s.lastRoleName = subject, role
	return s.role, s.err
}

func (s *stubProfiles) RemoveRole(_ context.Context, subject, role string) error {
	s.lastSubject, s.lastRoleName = subject, role
	return s.err
}
