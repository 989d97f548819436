package user

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	domain "user-registry-service/internal/domain/user"
	apperrors "user-registry-service/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// Repository defines the interface for user data access operations. It
// abstracts the data layer so store-backed, cached, and in-memory
// implementations are interchangeable.
type Repository interface {
	QueryAll(ctx context.Context) ([]domain.User, error)                        // All users, populated
	QueryByID(ctx context.Context, id int64) (*domain.User, error)              // User by ID, populated
	Search(ctx context.Context, key, value string) ([]domain.User, error)       // Equality filter on a declared field
	Create(ctx context.Context, u *domain.User) (*domain.User, error)           // Persist a new user
	Update(ctx context.Context, u *domain.User) (*domain.User, error)           // Partial overwrite by ID
	Delete(ctx context.Context, id int64) error                                 // Remove by ID
	AddFriend(ctx context.Context, userID, friendID int64) (*domain.User, error) // Append to friend list
	AddEnemy(ctx context.Context, userID, enemyID int64) (*domain.User, error)   // Append to enemy list
}

// PasswordHasher is the one-way hashing half of the auth capability.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(password, hash string) bool
}

// TokenIssuer is the token-signing half of the auth capability.
type TokenIssuer interface {
	Issue(identity domain.Identity) (string, error)
}

// Service implements the business logic for the user registry. It owns
// input validation and the mapping of auth and store outcomes onto the
// error taxonomy.
type Service struct {
	repo     Repository
	hasher   PasswordHasher
	tokens   TokenIssuer
	log      *zap.Logger
	validate *validator.Validate
}

// New creates a new Service with the provided repository, auth capability,
// and logger.
func New(r Repository, h PasswordHasher, t TokenIssuer, log *zap.Logger) *Service {
	return &Service{repo: r, hasher: h, tokens: t, log: log, validate: validator.New()}
}

// formatValidationError converts validator.ValidationErrors into a human-readable error message.
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var messages []string
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
			case "email":
				messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
			case "max":
				messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
			default:
				messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
			}
		}
		return apperrors.NewBadRequestError(fmt.Sprintf("validation failed: %s", strings.Join(messages, ", ")))
	}
	return err
}

// ListUsers returns every user with relationship lists populated.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.QueryAll(ctx)
	if err != nil {
		s.log.Error("failed to list users", zap.Error(err))
		return nil, err
	}
	return toDTOs(users), nil
}

// Register creates a new user. The password is hashed before persistence
// and the relationship lists start empty.
func (s *Service) Register(ctx context.Context, in RegisterRequest) (*User, error) {
	if in.Email == "" || in.Password == "" {
		s.log.Warn("register missing credentials")
		return nil, apperrors.NewBadRequestError("Invalid Email or password")
	}
	if err := s.validate.Struct(in); err != nil {
		s.log.Warn("register validation failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.log.Error("failed to hash password", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	created, err := s.repo.Create(ctx, &domain.User{
		Name:         in.Name,
		Age:          in.Age,
		Gender:       in.Gender,
		Email:        in.Email,
		PasswordHash: hash,
		Friends:      []domain.User{},
		Enemies:      []domain.User{},
	})
	if err != nil {
		s.log.Error("failed to create user", zap.Error(err))
		return nil, err
	}

	s.log.Info("user registered", zap.Int64("id", created.ID), zap.String("email", created.Email))
	dto := toDTO(*created)
	return &dto, nil
}

// Login checks the credentials against the stored hash and issues a token
// with {id, email, role} claims. A wrong email and a wrong password fail
// distinguishably, matching the registry's observable contract.
func (s *Service) Login(ctx context.Context, in LoginRequest) (*LoginResponse, error) {
	if in.Email == "" || in.Password == "" {
		s.log.Warn("login missing credentials")
		return nil, apperrors.NewBadRequestError("Invalid Email or password")
	}

	matches, err := s.repo.Search(ctx, "email", in.Email)
	if err != nil {
		s.log.Error("failed to search user by email", zap.Error(err))
		return nil, err
	}
	if len(matches) == 0 {
		s.log.Warn("login email not found", zap.String("email", in.Email))
		return nil, apperrors.NewUnauthorizedError("Email not found")
	}

	account := matches[0]
	if !s.hasher.Compare(in.Password, account.PasswordHash) {
		s.log.Warn("login password mismatch", zap.Int64("id", account.ID))
		return nil, apperrors.NewUnauthorizedError("Password not match")
	}

	token, err := s.tokens.Issue(domain.Identity{ID: account.ID, Email: account.Email, Role: "user"})
	if err != nil {
		s.log.Error("failed to issue token", zap.Int64("id", account.ID), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to issue token", err)
	}

	s.log.Info("user logged in", zap.Int64("id", account.ID))
	return &LoginResponse{Token: token}, nil
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, in GetUserRequest) (*User, error) {
	if in.ID <= 0 {
		return nil, apperrors.NewBadRequestError("invalid user id")
	}

	u, err := s.repo.QueryByID(ctx, in.ID)
	if err != nil {
		s.log.Warn("failed to get user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	dto := toDTO(*u)
	return &dto, nil
}

// UpdateUser overwrites the supplied fields on the stored record. A new
// password is re-hashed before it replaces the stored hash.
func (s *Service) UpdateUser(ctx context.Context, in UpdateUserRequest) (*User, error) {
	if err := s.validate.Struct(in); err != nil {
		s.log.Warn("update validation failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	var hash string
	if in.Password != "" {
		var err error
		hash, err = s.hasher.Hash(in.Password)
		if err != nil {
			s.log.Error("failed to hash password", zap.Error(err))
			return nil, apperrors.NewInternalError("failed to hash password", err)
		}
	}

	updated, err := s.repo.Update(ctx, &domain.User{
		ID:           in.ID,
		Name:         in.Name,
		Age:          in.Age,
		Gender:       in.Gender,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		s.log.Warn("failed to update user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	s.log.Info("user updated", zap.Int64("id", in.ID))
	dto := toDTO(*updated)
	return &dto, nil
}

// DeleteUser removes a user by ID.
func (s *Service) DeleteUser(ctx context.Context, in DeleteUserRequest) error {
	if in.ID <= 0 {
		return apperrors.NewBadRequestError("invalid user id")
	}

	if err := s.repo.Delete(ctx, in.ID); err != nil {
		s.log.Warn("failed to delete user", zap.Int64("id", in.ID), zap.Error(err))
		return err
	}

	s.log.Info("user deleted", zap.Int64("id", in.ID))
	return nil
}

// SearchUsers returns all users whose declared field equals the value.
func (s *Service) SearchUsers(ctx context.Context, in SearchUsersRequest) ([]User, error) {
	users, err := s.repo.Search(ctx, in.Key, in.Value)
	if err != nil {
		s.log.Warn("failed to search users", zap.String("key", in.Key), zap.Error(err))
		return nil, err
	}
	return toDTOs(users), nil
}

// AddFriend appends the target user to the acting user's friend list.
func (s *Service) AddFriend(ctx context.Context, in AddRelationRequest) (*User, error) {
	return s.addRelation(ctx, in, s.repo.AddFriend)
}

// AddEnemy appends the target user to the acting user's enemy list.
func (s *Service) AddEnemy(ctx context.Context, in AddRelationRequest) (*User, error) {
	return s.addRelation(ctx, in, s.repo.AddEnemy)
}

func (s *Service) addRelation(ctx context.Context, in AddRelationRequest, mutate func(context.Context, int64, int64) (*domain.User, error)) (*User, error) {
	if in.ActorID <= 0 || in.TargetID <= 0 {
		s.log.Warn("relation mutation incomplete", zap.Int64("actor_id", in.ActorID), zap.Int64("target_id", in.TargetID))
		return nil, apperrors.NewUnauthorizedError("Information incomplete")
	}

	// The acting user comes from the token; a stale identity is an auth
	// failure, not a bad request.
	if _, err := s.repo.QueryByID(ctx, in.ActorID); err != nil {
		if apperrors.FromError(err).Status == http.StatusNotFound {
			s.log.Warn("acting user not found", zap.Int64("actor_id", in.ActorID))
			return nil, apperrors.NewUnauthorizedError("Information incomplete")
		}
		s.log.Error("failed to load acting user", zap.Int64("actor_id", in.ActorID), zap.Error(err))
		return nil, err
	}

	updated, err := mutate(ctx, in.ActorID, in.TargetID)
	if err != nil {
		s.log.Warn("relation mutation failed", zap.Int64("actor_id", in.ActorID), zap.Int64("target_id", in.TargetID), zap.Error(err))
		return nil, err
	}

	s.log.Info("relation mutated", zap.Int64("actor_id", in.ActorID), zap.Int64("target_id", in.TargetID))
	dto := toDTO(*updated)
	return &dto, nil
}

// toDTO strips the password hash and maps nested lists.
func toDTO(u domain.User) User {
	return User{
		ID:      u.ID,
		Name:    u.Name,
		Age:     u.Age,
		Gender:  u.Gender,
		Email:   u.Email,
		Friends: toDTOs(u.Friends),
		Enemies: toDTOs(u.Enemies),
	}
}

func toDTOs(users []domain.User) []User {
	out := make([]User, len(users))
	for i, u := range users {
		out[i] = toDTO(u)
	}
	return out
}
