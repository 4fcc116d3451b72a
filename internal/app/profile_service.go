package app

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/eventflow/platform/internal/clock"
	"github.com/eventflow/platform/internal/domain"
)

type ProfileRepository interface {
	GetUserBySubject(ctx context.Context, subject string) (domain.User, error)
	CreateUser(ctx context.Context, user domain.User) error
	UpdateUser(ctx context.Context, user domain.User) error
	AddRole(ctx context.Context, role domain.RoleAssignment) error
	EnsureRole(ctx context.Context, role domain.RoleAssignment) error
	RemoveRole(ctx context.Context, userID, role string) error
}

// Directory looks up account details at the identity provider.
type Directory interface {
	LookupUser(ctx context.Context, subject string) (domain.User, error)
}

type ProfileService struct {
	repo      ProfileRepository
	directory Directory
	clock     clock.Clock
	logger    *log.Logger
}

func NewProfileService(repo ProfileRepository, directory Directory, clk clock.Clock, logger *log.Logger) *ProfileService {
	if logger == nil {
		logger = log.Default()
	}
	return &ProfileService{
		repo:      repo,
		directory: directory,
		clock:     clk,
		logger:    logger,
	}
}

// GetOrCreate returns the profile for subject, creating it from the
// directory on first sight. Roles asserted by the credential are added to
// the stored role set; roles missing from the credential are kept.
func (s *ProfileService) GetOrCreate(ctx context.Context, subject string, tokenRoles []string) (domain.User, error) {
	if subject == "" {
		return domain.User{}, domain.ErrSubjectRequired
	}

	user, err := s.repo.GetUserBySubject(ctx, subject)
	if errors.Is(err, domain.ErrUserNotFound) {
		user, err = s.create(ctx, subject)
	}
	if err != nil {
		return domain.User{}, err
	}

	if err := s.syncRoles(ctx, user, tokenRoles); err != nil {
		return domain.User{}, err
	}
	return s.repo.GetUserBySubject(ctx, subject)
}

func (s *ProfileService) create(ctx context.Context, subject string) (domain.User, error) {
	email, name := subject+"@example.com", "User"
	if s.directory != nil {
		found, err := s.directory.LookupUser(ctx, subject)
		if err != nil {
			s.logger.Printf("WARN: directory lookup failed subject=%s error=%v", subject, err)
		} else {
			if found.Email != "" {
				email = found.Email
			}
			if found.Name != "" {
				name = found.Name
			}
		}
	}

	now := s.clock.Now()
	// CreateUser ignores a concurrent insert for the same subject, so the
	// re-read below returns whichever row won.
	if err := s.repo.CreateUser(ctx, domain.User{
		ID:        newID(),
		Subject:   subject,
		Email:     email,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return domain.User{}, err
	}
	return s.repo.GetUserBySubject(ctx, subject)
}

func (s *ProfileService) syncRoles(ctx context.Context, user domain.User, tokenRoles []string) error {
	have := make(map[string]struct{}, len(user.Roles))
	for _, role := range user.Roles {
		have[role] = struct{}{}
	}
	now := s.clock.Now()
	for _, role := range tokenRoles {
		if _, ok := have[role]; ok || role == "" {
			continue
		}
		if err := s.repo.EnsureRole(ctx, domain.RoleAssignment{
			ID:        newID(),
			UserID:    user.ID,
			Role:      role,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		have[role] = struct{}{}
	}
	return nil
}

type UpdateProfileInput struct {
	Subject string
	Name    *string
	Email   *string
}

// Update replaces the fields set in in. A field that is present but blank
// is rejected rather than stored empty.
func (s *ProfileService) Update(ctx context.Context, in UpdateProfileInput) (domain.User, error) {
	var name, email string
	if in.Name != nil {
		if name = strings.TrimSpace(*in.Name); name == "" {
			return domain.User{}, domain.ErrNameRequired
		}
	}
	if in.Email != nil {
		if email = strings.TrimSpace(*in.Email); email == "" {
			return domain.User{}, domain.ErrEmailRequired
		}
	}

	user, err := s.repo.GetUserBySubject(ctx, in.Subject)
	if err != nil {
		return domain.User{}, err
	}
	if in.Name != nil {
		user.Name = name
	}
	if in.Email != nil {
		user.Email = email
	}
	user.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Roles returns the stored profile including its role set.
func (s *ProfileService) Roles(ctx context.Context, subject string) (domain.User, error) {
	return s.repo.GetUserBySubject(ctx, subject)
}

func (s *ProfileService) AddRole(ctx context.Context, subject, role string) (domain.RoleAssignment, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return domain.RoleAssignment{}, domain.ErrRoleRequired
	}
	user, err := s.repo.GetUserBySubject(ctx, subject)
	if err != nil {
		return domain.RoleAssignment{}, err
	}

	assignment := domain.RoleAssignment{
		ID:        newID(),
		UserID:    user.ID,
		Role:      role,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.AddRole(ctx, assignment); err != nil {
		return domain.RoleAssignment{}, err
	}
	return assignment, nil
}

func (s *ProfileService) RemoveRole(ctx context.Context, subject, role string) error {
	user, err := s.repo.GetUserBySubject(ctx, subject)
	if err != nil {
		return err
	}
	return s.repo.RemoveRole(ctx, user.ID, role)
}
