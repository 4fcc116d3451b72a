package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/eventflow/platform/internal/domain"
	"github.com/eventflow/platform/internal/metrics"
)

// router registers instrumented routes and wraps protected ones with
// Authenticate and RequireRoles.
type router struct {
	mux      *http.ServeMux
	verifier TokenVerifier
	metrics  *metrics.Metrics
}

func newRouter(verifier TokenVerifier, m *metrics.Metrics, gatherer prometheus.Gatherer, service string) *router {
	rt := &router{mux: http.NewServeMux(), verifier: verifier, metrics: m}
	rt.mux.Handle("GET /health", HealthHandler(service))
	if gatherer != nil {
		rt.mux.Handle("GET /metrics", metrics.Handler(gatherer))
	}
	rt.mux.HandleFunc("/", notFound)
	return rt
}

// notFound answers unknown routes, including known paths with an
// unregistered method, with the JSON envelope.
func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, codeNotFound, "not found")
}

func (rt *router) public(pattern, name string, h http.Handler) {
	rt.mux.Handle(pattern, rt.metrics.Instrument(name, h))
}

// protected requires a verified credential and, when roles is non-empty,
// one of roles.
func (rt *router) protected(pattern, name string, h http.Handler, roles ...string) {
	if len(roles) > 0 {
		h = RequireRoles(h, roles...)
	}
	rt.public(pattern, name, Authenticate(rt.verifier, h))
}

// TicketingRoutes are the dependencies of the ticketing service surface.
type TicketingRoutes struct {
	Verifier TokenVerifier
	Events   EventService
	Tickets  TicketService
	Bans     BanService
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

func NewTicketingMux(d TicketingRoutes) *http.ServeMux {
	rt := newRouter(d.Verifier, d.Metrics, d.Gatherer, "ticketing-service")

	rt.public("GET /events", "list_events", HandleListEvents(d.Events))
	rt.public("GET /events/{id}", "get_event", HandleGetEvent(d.Events))
	rt.protected("POST /events", "create_event", HandleCreateEvent(d.Events), domain.RoleAdmin, domain.RoleOrganizer)

	rt.protected("POST /events/{id}/tickets", "buy_ticket", HandleBuyTicket(d.Tickets))
	rt.protected("GET /my-tickets", "my_tickets", HandleMyTickets(d.Tickets))
	rt.protected("POST /tickets/scan", "scan_ticket", HandleScanTicket(d.Tickets), domain.RoleAdmin, domain.RoleOrganizer, domain.RoleStaff)

	rt.protected("GET /bans", "list_bans", HandleListBans(d.Bans), domain.RoleAdmin)
	rt.protected("POST /bans", "create_ban", HandleCreateBan(d.Bans), domain.RoleAdmin)
	rt.protected("DELETE /bans/{sub}", "delete_ban", HandleDeleteBan(d.Bans), domain.RoleAdmin)

	return rt.mux
}

type NotificationRoutes struct {
	Verifier      TokenVerifier
	Notifications NotificationLister
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
}

func NewNotificationMux(d NotificationRoutes) *http.ServeMux {
	rt := newRouter(d.Verifier, d.Metrics, d.Gatherer, "notification-service")
	rt.protected("GET /notifications", "list_notifications", HandleListNotifications(d.Notifications), domain.RoleAdmin, domain.RoleOrganizer)
	return rt.mux
}

type ProfileRoutes struct {
	Verifier TokenVerifier
	Profiles ProfileService
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

func NewProfileMux(d ProfileRoutes) *http.ServeMux {
	rt := newRouter(d.Verifier, d.Metrics, d.Gatherer, "user-profile-service")

	rt.protected("GET /profile/{sub}", "get_profile", HandleGetProfile(d.Profiles))
	rt.protected("PUT /profile/{sub}", "update_profile", HandleUpdateProfile(d.Profiles))
	rt.protected("GET /profile/{sub}/roles", "get_roles", HandleGetRoles(d.Profiles))
	rt.protected("POST /profile/{sub}/roles", "add_role", HandleAddRole(d.Profiles), domain.RoleAdmin)
	rt.protected("DELETE /profile/{sub}/roles/{role}", "remove_role", HandleRemoveRole(d.Profiles), domain.RoleAdmin)

	return rt.mux
}
