package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"github.com/go-sql-driver/mysql"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateUserOptions struct {
	Username string
	Email    string
	Password string
	Role     string
}

type UserService struct {
	userRepo UserRepository
}

func byID(userID uint) clause.Expression {
	return clause.Eq{Column: model.ColUserID, Value: userID}
}

func (s *UserService) GetUserByID(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.First(ctx, byID(userID))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) GetUserByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	var (
		user *model.User
		err  error
	)
	if _, err = mail.ParseAddress(identifier); err == nil {
		user, err = s.userRepo.First(ctx, clause.Eq{Column: model.ColUserEmail, Value: identifier})
	} else {
		user, err = s.userRepo.First(ctx, clause.Eq{Column: model.ColUserUsername, Value: identifier})
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// FindUserByLogin is GetUserByUsernameOrEmail returning nil for unknown logins.
func (s *UserService) FindUserByLogin(ctx context.Context, login string) (*model.User, error) {
	user, err := s.GetUserByUsernameOrEmail(ctx, login)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	return user, err
}

func (s *UserService) checkUserExist(ctx context.Context, email string, username string) error {
	existing, err := s.userRepo.First(ctx, clause.Or(
		clause.Eq{Column: model.ColUserEmail, Value: email},
		clause.Eq{Column: model.ColUserUsername, Value: username},
	))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if existing != nil {
		if existing.Username == username {
			return ErrUsernameTaken
		}
		return ErrEmailRegistered
	}
	return nil
}

func (s *UserService) CreateUser(ctx context.Context, opts CreateUserOptions) (*model.User, error) {
	if err := s.checkUserExist(ctx, opts.Email, opts.Username); err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := opts.Role
	if role == "" {
		role = model.RoleUser
	}
	user := model.User{
		Username: opts.Username,
		Email:    opts.Email,
		Password: string(passwordHash),
		Role:     role,
	}

	var mysqlErr *mysql.MySQLError
	if err := s.userRepo.Create(ctx, &user); errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		switch {
		case strings.Contains(mysqlErr.Message, model.IdxUserUsername):
			return nil, ErrUsernameTaken
		case strings.Contains(mysqlErr.Message, model.IdxUserEmail):
			return nil, ErrEmailRegistered
		}
		return nil, err
	} else if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) VerifyPassword(user *model.User, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *UserService) IncrementLoginAttempts(ctx context.Context, userID uint) (int, error) {
	affected, err := s.userRepo.Updates(ctx, map[string]interface{}{
		model.ColUserLoginAttempts: gorm.Expr(model.ColUserLoginAttempts + " + ?", 1),
	}, byID(userID))
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, ErrUserNotFound
	}
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.LoginAttempts, nil
}

func (s *UserService) LockUser(ctx context.Context, userID uint, reason string, until time.Time) error {
	affected, err := s.userRepo.Updates(ctx, map[string]interface{}{
		model.ColUserIsLocked:   true,
		model.ColUserLockReason: reason,
		model.ColUserLockUntil:  until,
	}, byID(userID))
	if err == nil && affected == 0 {
		return ErrUserNotFound
	}
	return err
}

func (s *UserService) UnlockUser(ctx context.Context, userID uint) error {
	if _, err := s.GetUserByID(ctx, userID); err != nil {
		return err
	}
	_, err := s.userRepo.Updates(ctx, map[string]interface{}{
		model.ColUserIsLocked:      false,
		model.ColUserLockReason:    "",
		model.ColUserLockUntil:     nil,
		model.ColUserLoginAttempts: 0,
	}, byID(userID))
	return err
}

// RecordLogin stores the last login and clears the failed attempt counter.
func (s *UserService) RecordLogin(ctx context.Context, userID uint, ip string, at time.Time) error {
	_, err := s.userRepo.Updates(ctx, map[string]interface{}{
		model.ColUserLastLoginIP:   ip,
		model.ColUserLastLoginAt:   at,
		model.ColUserLoginAttempts: 0,
	}, byID(userID))
	return err
}

func NewUserService(userRepo UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}
