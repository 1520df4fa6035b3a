package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/student-store/internal/domain/entity"
	"github.com/oksasatya/student-store/internal/domain/errs"
	repo "github.com/oksasatya/student-store/internal/domain/repository"
	"github.com/oksasatya/student-store/pkg/helpers"
)

type UserService struct {
	Repo   repo.UserRepository
	Logger *logrus.Logger

	now func() time.Time
}

func NewUserService(r repo.UserRepository, logger *logrus.Logger) *UserService {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &UserService{Repo: r, Logger: logger, now: time.Now}
}

type UpdateProfileInput struct {
	Gender    *string `json:"gender" validate:"omitnil,max=32"`
	Residence *string `json:"residence" validate:"omitnil,max=128"`
}

// GetSelf returns the caller's identity if it exists and is active.
func (s *UserService) GetSelf(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, errs.ErrInactiveUser
	}
	return u, nil
}

// UpdateSelf applies the present fields. The record is saved, and
// updated_at moved, only when something actually changed.
func (s *UserService) UpdateSelf(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	u, err := s.GetSelf(ctx, userID)
	if err != nil {
		return nil, err
	}
	next, changed := u.Apply(entity.ProfilePatch{Gender: in.Gender, Residence: in.Residence})
	if !changed {
		return u, nil
	}
	next.UpdatedAt = s.now().UTC()
	if err := s.Repo.Update(ctx, &next); err != nil {
		return nil, err
	}
	s.Logger.WithField("user_id", next.ID).Info("profile updated")
	return &next, nil
}
