package user

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/radiology-api/internal/email"
	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/repository"
	"github.com/jwalitptl/radiology-api/pkg/clock"
	"github.com/jwalitptl/radiology-api/pkg/errors"
	"github.com/jwalitptl/radiology-api/pkg/privilege"
	"github.com/jwalitptl/radiology-api/pkg/security"
)

type Service struct {
	repo       repository.UserRepository
	authorizer *privilege.Authorizer
	emailSvc   email.Service
	clock      clock.Clock
	logger     *zerolog.Logger
}

func NewService(
	repo repository.UserRepository,
	authorizer *privilege.Authorizer,
	emailSvc email.Service,
	clk clock.Clock,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		repo:       repo,
		authorizer: authorizer,
		emailSvc:   emailSvc,
		clock:      clk,
		logger:     logger,
	}
}

// Create registers a user with the default read-only grant set, attributed to
// the new principal itself.
func (s *Service) Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, errors.Internal(err)
	}

	now := s.clock.Now()
	user := &model.User{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		PhoneNumber:  req.PhoneNumber,
		IsActive:     true,
	}
	user.Privileges = privilege.DefaultGrants(user.ID, now)

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.emailSvc.SendWelcome(ctx, user.Email, user.Username); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to send welcome email")
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = req.PhoneNumber
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	user.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

// GrantPrivileges merges the requested operations into the target user's
// grant for the module and persists the resulting grant set. The request is
// rejected before any state change when the capability pair is unknown or the
// target is inactive.
func (s *Service) GrantPrivileges(ctx context.Context, targetID, grantedBy uuid.UUID, req *model.GrantRequest) (*model.User, error) {
	user, err := s.repo.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}

	principal := user.Principal()
	if err := s.authorizer.Grant(principal, req.Module, req.Operations, grantedBy, s.clock.Now()); err != nil {
		return nil, err
	}

	user.Privileges = principal.Grants
	if err := s.repo.ReplaceGrants(ctx, targetID, user.Privileges); err != nil {
		return nil, err
	}
	return user, nil
}

// RevokePrivileges removes operations from the target's grant, or the whole
// grant when no operations are named.
func (s *Service) RevokePrivileges(ctx context.Context, targetID uuid.UUID, req *model.RevokeRequest) (*model.User, error) {
	user, err := s.repo.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}

	principal := user.Principal()
	if err := s.authorizer.Revoke(principal, req.Module, req.Operations); err != nil {
		return nil, err
	}

	user.Privileges = principal.Grants
	if err := s.repo.ReplaceGrants(ctx, targetID, user.Privileges); err != nil {
		return nil, err
	}
	return user, nil
}

// Capabilities returns the full module/operation catalog.
func (s *Service) Capabilities() map[privilege.Module][]privilege.Operation {
	registry := s.authorizer.Registry()
	catalog := make(map[privilege.Module][]privilege.Operation)
	for _, m := range registry.Modules() {
		ops, err := registry.OperationsOf(m)
		if err != nil {
			continue
		}
		catalog[m] = ops
	}
	return catalog
}
