package user

// RegisterRequest represents the payload for registering a new user.
// Email and Password are the mandatory pair; everything else is profile data.
type RegisterRequest struct {
	Name     string `validate:"omitempty,max=100"`
	Age      int    `validate:"omitempty,gte=0,lte=150"`
	Gender   string `validate:"omitempty,max=50"`
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// LoginRequest represents the payload for logging in.
type LoginRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// LoginResponse carries the signed token issued on successful login.
type LoginResponse struct {
	Token string
}

// GetUserRequest represents the payload for retrieving a user.
type GetUserRequest struct {
	ID int64
}

// UpdateUserRequest represents the payload for a partial update. Zero
// fields are left untouched on the stored record.
type UpdateUserRequest struct {
	ID       int64  `validate:"required"`
	Name     string `validate:"omitempty,max=100"`
	Age      int    `validate:"omitempty,gte=0,lte=150"`
	Gender   string `validate:"omitempty,max=50"`
	Email    string `validate:"omitempty,email"`
	Password string `validate:"omitempty"`
}

// DeleteUserRequest represents the payload for deleting a user.
type DeleteUserRequest struct {
	ID int64
}

// SearchUsersRequest represents an equality search over a declared field.
type SearchUsersRequest struct {
	Key   string
	Value string
}

// AddRelationRequest represents a friend or enemy list mutation. ActorID
// comes from the authenticated identity, TargetID from the request.
type AddRelationRequest struct {
	ActorID  int64
	TargetID int64
}

// User represents a user DTO for API responses. The password hash never
// leaves the usecase layer.
type User struct {
	ID      int64
	Name    string
	Age     int
	Gender  string
	Email   string
	Friends []User
	Enemies []User
}
