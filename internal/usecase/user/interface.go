package user

import "context"

// Usecase defines the interface for user registry business operations.
type Usecase interface {
	ListUsers(ctx context.Context) ([]User, error)
	Register(ctx context.Context, in RegisterRequest) (*User, error)
	Login(ctx context.Context, in LoginRequest) (*LoginResponse, error)
	GetUser(ctx context.Context, in GetUserRequest) (*User, error)
	UpdateUser(ctx context.Context, in UpdateUserRequest) (*User, error)
	DeleteUser(ctx context.Context, in DeleteUserRequest) error
	SearchUsers(ctx context.Context, in SearchUsersRequest) ([]User, error)
	AddFriend(ctx context.Context, in AddRelationRequest) (*User, error)
	AddEnemy(ctx context.Context, in AddRelationRequest) (*User, error)
}
