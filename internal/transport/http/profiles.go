package http

import (
	"context"
	"net/http"
	"time"

	"github.com/eventflow/platform/internal/app"
	"github.com/eventflow/platform/internal/auth"
	"github.com/eventflow/platform/internal/domain"
)

// ProfileService is the minimal interface needed for profile endpoints.
type ProfileService interface {
	GetOrCreate(ctx context.Context, subject string, tokenRoles []string) (domain.User, error)
	Update(ctx context.Context, in app.UpdateProfileInput) (domain.User, error)
	Roles(ctx context.Context, subject string) (domain.User, error)
	AddRole(ctx context.Context, subject, role string) (domain.RoleAssignment, error)
	RemoveRole(ctx context.Context, subject, role string) error
}

type profileResponse struct {
	ID          string    `json:"id"`
	KeycloakSub string    `json:"keycloak_sub"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Roles       []string  `json:"roles"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newProfileResponse(u domain.User) profileResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return profileResponse{
		ID:          u.ID,
		KeycloakSub: u.Subject,
		Email:       u.Email,
		Name:        u.Name,
		Roles:       roles,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// requireSelfOrAdmin writes a 403 and returns false unless the caller is
// the subject in the path or an admin.
func requireSelfOrAdmin(w http.ResponseWriter, r *http.Request) (auth.Identity, string, bool) {
	id := identity(r)
	subject := r.PathValue("sub")
	if err := auth.RequireSelfOrRole(id, subject, domain.RoleAdmin); err != nil {
		writeDomainError(w, err)
		return id, subject, false
	}
	return id, subject, true
}

// HandleGetProfile returns the profile, creating it on first sight. Roles
// from the caller's credential are merged in only for their own profile.
func HandleGetProfile(svc ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, subject, ok := requireSelfOrAdmin(w, r)
		if !ok {
			return
		}
		var tokenRoles []string
		if id.Subject == subject {
			tokenRoles = id.Roles
		}
		user, err := svc.GetOrCreate(r.Context(), subject, tokenRoles)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newProfileResponse(user))
	}
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func HandleUpdateProfile(svc ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, subject, ok := requireSelfOrAdmin(w, r)
		if !ok {
			return
		}
		var req updateProfileRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		user, err := svc.Update(r.Context(), app.UpdateProfileInput{
			Subject: subject,
			Name:    req.Name,
			Email:   req.Email,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newProfileResponse(user))
	}
}

type rolesResponse struct {
	UserID      string   `json:"user_id"`
	KeycloakSub string   `json:"keycloak_sub"`
	Roles       []string `json:"roles"`
}

func HandleGetRoles(svc ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, subject, ok := requireSelfOrAdmin(w, r)
		if !ok {
			return
		}
		user, err := svc.Roles(r.Context(), subject)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		p := newProfileResponse(user)
		writeJSON(w, http.StatusOK, rolesResponse{UserID: p.ID, KeycloakSub: p.KeycloakSub, Roles: p.Roles})
	}
}

type addRoleRequest struct {
	Role string `json:"role"`
}

type roleResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// HandleAddRole assigns a role; callers are expected to be admins.
func HandleAddRole(svc ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addRoleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		role, err := svc.AddRole(r.Context(), r.PathValue("sub"), req.Role)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, roleResponse(role))
	}
}

func HandleRemoveRole(svc ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.RemoveRole(r.Context(), r.PathValue("sub"), r.PathValue("role")); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "role removed"})
	}
}
