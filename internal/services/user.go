package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/diewo77/paintms/internal/auth"
	"github.com/diewo77/paintms/internal/models"
	"github.com/diewo77/paintms/internal/validation"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrWrongPassword is returned by ChangePassword when the current password does not match.
	ErrWrongPassword = errors.New("current password is incorrect")
)

// MinPasswordLength applies to passwords set through ChangePassword.
const MinPasswordLength = 6

// RequestMeta identifies the origin of a request in the audit trail.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// ProfilePatch updates only the non-nil fields.
type ProfilePatch struct {
	Name     *string
	Email    *string
	Username *string
}

type UserService struct {
	db       *gorm.DB
	log      logrus.FieldLogger
	activity *ActivityService
}

func NewUserService(db *gorm.DB, log logrus.FieldLogger, activity *ActivityService) *UserService {
	return &UserService{db: db, log: log, activity: activity}
}

// Login checks the credentials of the user whose username or email is login.
func (s *UserService) Login(ctx context.Context, login, password string, meta RequestMeta) (*models.User, error) {
	login = strings.TrimSpace(login)
	v := make(validation.Violations)
	validation.Required("username", login, v)
	validation.Required("password", password, v)
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}

	var u models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR LOWER(email) = ?", login, strings.ToLower(login)).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !auth.CheckPassword(u.Password, password) {
		s.activity.Record(ctx, Activity{
			UserID: u.ID, Action: models.ActionLoginFailed,
			Details:   map[string]string{"reason": "invalid password", "login": login},
			IPAddress: meta.IPAddress, UserAgent: meta.UserAgent,
		})
		return nil, ErrInvalidCredentials
	}
	s.activity.Record(ctx, Activity{
		UserID: u.ID, Action: models.ActionLoginSuccess,
		Details:   map[string]string{"login": login},
		IPAddress: meta.IPAddress, UserAgent: meta.UserAgent,
	})
	return &u, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, lookupErr(err, "user", id)
	}
	return &u, nil
}

// Exists reports whether a user id is still known. Used to reject tokens of deleted users.
func (s *UserService) Exists(ctx context.Context, id uint) bool {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false
	}
	return n > 0
}

func (s *UserService) ChangePassword(ctx context.Context, id uint, current, next string, meta RequestMeta) error {
	v := make(validation.Violations)
	validation.Required("current_password", current, v)
	validation.Required("new_password", next, v)
	if next != "" && len([]rune(next)) < MinPasswordLength {
		v.Add("new_password", "too_short")
	}
	if !v.Empty() {
		return &ValidationError{Violations: v}
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.Password, current) {
		s.activity.Record(ctx, Activity{
			UserID: id, Action: models.ActionPasswordFailed,
			Details:   map[string]string{"reason": "invalid current password"},
			IPAddress: meta.IPAddress, UserAgent: meta.UserAgent,
		})
		return ErrWrongPassword
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(u).Updates(map[string]any{"password": hash}).Error; err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.activity.Record(ctx, Activity{
		UserID: id, Action: models.ActionPasswordChanged,
		Details:   map[string]string{"email": u.Email},
		IPAddress: meta.IPAddress, UserAgent: meta.UserAgent,
	})
	return nil
}

// UpdateProfile changes the name, email or username of a user.
func (s *UserService) UpdateProfile(ctx context.Context, id uint, p ProfilePatch, meta RequestMeta) (*models.User, error) {
	v := make(validation.Violations)
	updates := map[string]any{}
	if p.Name != nil {
		validation.MaxLen("name", *p.Name, 255, v)
		updates["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		email := strings.TrimSpace(*p.Email)
		validation.Required("email", email, v)
		if _, err := mail.ParseAddress(email); email != "" && err != nil {
			v.Add("email", "invalid_email")
		}
		updates["email"] = email
	}
	if p.Username != nil {
		username := strings.TrimSpace(*p.Username)
		validation.MaxLen("username", username, 100, v)
		if username == "" {
			updates["username"] = nil
		} else {
			updates["username"] = username
		}
	}
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}

	var u models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&u, id).Error; err != nil {
			return lookupErr(err, "user", id)
		}
		for _, field := range []string{"email", "username"} {
			val, ok := updates[field]
			if !ok || val == nil {
				continue
			}
			var n int64
			if err := tx.Model(&models.User{}).Where(field+" = ? AND id <> ?", val, id).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return invalid(field, "already_in_use")
			}
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&u).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				return invalid("email", "already_in_use")
			}
			return err
		}
		return tx.First(&u, id).Error
	})
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, Activity{
		UserID: id, Action: models.ActionProfileUpdated,
		IPAddress: meta.IPAddress, UserAgent: meta.UserAgent,
	})
	return &u, nil
}
