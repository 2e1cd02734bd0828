package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dukerupert/chorechart/internal/apperr"
	"github.com/dukerupert/chorechart/internal/auth"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/store"
)

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type PasswordInput struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type ActiveInput struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// UserService manages parent and child accounts and token issuance.
type UserService struct {
	users  *store.UserStore
	tokens *auth.TokenIssuer
}

func NewUserService(db *sql.DB, tokens *auth.TokenIssuer) *UserService {
	return &UserService{users: store.NewUserStore(db), tokens: tokens}
}

// Register creates a parent account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return s.create(ctx, in, true, nil)
}

func (s *UserService) create(ctx context.Context, in RegisterInput, isParent bool, parentID *int64) (*model.User, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Create(ctx, in.Username, hash, isParent, parentID)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.Conflict("username already registered")
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and returns a signed access token.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", err
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, password) {
		return "", apperr.Unauthorized("incorrect username or password")
	}
	if !u.IsActive {
		return "", apperr.Unauthorized("user account is inactive")
	}
	return s.tokens.Issue(u.ID, roleOf(u))
}

// Authenticate resolves a bearer token to the principal it names. Tokens of
// deleted or deactivated users are rejected.
func (s *UserService) Authenticate(ctx context.Context, token string) (auth.Principal, error) {
	id, _, err := s.tokens.Verify(token)
	if err != nil {
		return auth.Principal{}, apperr.Unauthorized("could not validate credentials")
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return auth.Principal{}, err
	}
	if u == nil || !u.IsActive {
		return auth.Principal{}, apperr.Unauthorized("could not validate credentials")
	}
	return principalOf(u), nil
}

func (s *UserService) Me(ctx context.Context, p auth.Principal) (*model.User, error) {
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}

func (s *UserService) CreateChild(ctx context.Context, p auth.Principal, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	parentID := p.UserID
	return s.create(ctx, in, false, &parentID)
}

func (s *UserService) ListChildren(ctx context.Context, p auth.Principal) ([]model.User, error) {
	return s.users.ListChildren(ctx, p.UserID)
}

func (s *UserService) ResetChildPassword(ctx context.Context, p auth.Principal, childID int64, in PasswordInput) error {
	if err := validateInput(in); err != nil {
		return err
	}
	if _, err := childOf(ctx, s.users, p, childID); err != nil {
		return err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, childID, hash)
}

func (s *UserService) SetChildActive(ctx context.Context, p auth.Principal, childID int64, in ActiveInput) (*model.User, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if _, err := childOf(ctx, s.users, p, childID); err != nil {
		return nil, err
	}
	return s.users.SetActive(ctx, childID, *in.IsActive)
}

// childOf loads childID and checks it belongs to the calling parent.
func childOf(ctx context.Context, users *store.UserStore, p auth.Principal, childID int64) (*model.User, error) {
	u, err := users.GetByID(ctx, childID)
	if err != nil {
		return nil, err
	}
	if u == nil || u.IsParent || u.ParentID == nil || *u.ParentID != p.UserID {
		return nil, apperr.NotFound("child not found")
	}
	return u, nil
}

// activeChildrenOf checks every id is an active child of the parent.
func activeChildrenOf(ctx context.Context, users *store.UserStore, p auth.Principal, ids []int64) error {
	for _, id := range ids {
		u, err := childOf(ctx, users, p, id)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return apperr.Validation("child %d is not one of your children", id)
			}
			return err
		}
		if !u.IsActive {
			return apperr.Validation("child %d is inactive", id)
		}
	}
	return nil
}

func roleOf(u *model.User) string {
	if u.IsParent {
		return auth.RoleParent
	}
	return auth.RoleChild
}

func principalOf(u *model.User) auth.Principal {
	p := auth.Principal{UserID: u.ID, Username: u.Username, Role: roleOf(u), FamilyID: u.ID}
	if !u.IsParent && u.ParentID != nil {
		p.FamilyID = *u.ParentID
	}
	return p
}
