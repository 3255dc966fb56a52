package auth

import (
	"context"
	"strings"
	"time"

	"Sahaaya/internal/apperror"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type UserService struct {
	repo   UserRepository
	tokens *TokenIssuer
	gate   *Gate
	logger *zap.Logger
}

func NewUserService(repo UserRepository, tokens *TokenIssuer, gate *Gate, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, tokens: tokens, gate: gate, logger: logger}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterUser creates a local account with the user role and signs it in.
func (s *UserService) RegisterUser(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, RoleUser)
	if err != nil {
		return nil, err
	}
	return s.signIn(user)
}

// CreateAdmin seeds an administrator account.
func (s *UserService) CreateAdmin(ctx context.Context, name, email, password string) (*User, error) {
	return s.createUser(ctx, name, email, password, RoleAdmin)
}

func (s *UserService) createUser(ctx context.Context, name, email, password, role string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.Validation("email and password are required")
	}

	existingUser, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, s.internal(err, "failed to look up user")
	}
	if existingUser != nil {
		return nil, apperror.AlreadyExists("email already registered")
	}

	hashPassword, err := HashPassword(password)
	if err != nil {
		return nil, s.internal(err, "failed to register user")
	}

	now := time.Now().UTC()
	user := &User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hashPassword,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if apperror.Is(err, apperror.KindAlreadyExists) {
			return nil, err
		}
		return nil, s.internal(err, "failed to register user")
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID.Hex()), zap.String("role", role))
	return user, nil
}

func (s *UserService) AuthenticateUser(ctx context.Context, cred Credential) (*AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(cred.Email))
	if err != nil {
		return nil, s.internal(err, "failed to look up user")
	}
	if user == nil || !CheckPasswordHash(cred.Password, user.PasswordHash) {
		return nil, apperror.Unauthorized("invalid credentials")
	}
	return s.signIn(user)
}

func (s *UserService) signIn(user *User) (*AuthResponse, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, s.internal(err, "token not generated")
	}
	return &AuthResponse{Token: token, User: user}, nil
}

// Profile returns a user with their created and joined campaigns. Callers may
// read their own profile; admins may read anyone's.
func (s *UserService) Profile(ctx context.Context, caller *Identity, targetID primitive.ObjectID) (*Profile, error) {
	user, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return nil, s.internal(err, "failed to fetch profile")
	}
	if user == nil {
		return nil, apperror.NotFound("user not found")
	}
	if !s.gate.IsSelf(targetID, caller.UserID) {
		if err := s.gate.Require(caller, ObjProfile, ActReadAny); err != nil {
			return nil, err
		}
	}

	created, err := s.repo.CampaignsCreatedBy(ctx, user.ID)
	if err != nil {
		return nil, s.internal(err, "failed to fetch profile")
	}
	joined, err := s.repo.CampaignsJoinedBy(ctx, user.ID)
	if err != nil {
		return nil, s.internal(err, "failed to fetch profile")
	}
	return &Profile{User: *user, CreatedCampaigns: created, JoinedCampaigns: joined}, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, caller *Identity, req ProfileUpdateRequest) (*User, error) {
	if err := s.gate.Require(caller, ObjProfile, ActWrite); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)

	user, err := s.repo.UpdateProfile(ctx, caller.UserID, req)
	if err != nil {
		return nil, s.internal(err, "failed to update profile")
	}
	if user == nil {
		return nil, apperror.NotFound("user not found")
	}
	return user, nil
}

// VerifyGovtID records the uploaded government id and marks the caller verified.
func (s *UserService) VerifyGovtID(ctx context.Context, caller *Identity, govtIDURL string) (*User, error) {
	govtIDURL = strings.TrimSpace(govtIDURL)
	if govtIDURL == "" {
		return nil, apperror.Validation("govt_id_url is required")
	}
	if err := s.gate.Require(caller, ObjProfile, ActWrite); err != nil {
		return nil, err
	}

	user, err := s.repo.SetGovtID(ctx, caller.UserID, govtIDURL)
	if err != nil {
		return nil, s.internal(err, "failed to verify id")
	}
	if user == nil {
		return nil, apperror.NotFound("user not found")
	}
	return user, nil
}

func (s *UserService) internal(err error, msg string) error {
	s.logger.Error(msg, zap.Error(err))
	return apperror.Internal(err, msg)
}
