package user

// Relation kinds for a user's relationship lists.
const (
	RelationFriend = "friend"
	RelationEnemy  = "enemy"
)

// User represents a user entity in the registry.
// Friends and Enemies are populated at read time, exactly one level deep:
// nested users always carry empty relationship lists.
type User struct {
	ID           int64  // ID is the store-assigned unique identifier
	Name         string // Name is the display name of the user
	Age          int    // Age in years
	Gender       string // Gender as free-form text
	Email        string // Email is the unique login address
	PasswordHash string // PasswordHash is the bcrypt hash; never the plaintext
	Friends      []User // Friends is the populated friend list
	Enemies      []User // Enemies is the populated enemy list
}

// Identity is the decoded token claims attached to an authenticated request.
type Identity struct {
	ID    int64
	Email string
	Role  string
}
