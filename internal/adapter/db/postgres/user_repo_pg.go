package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "user-registry-service/pkg/errors"
	"user-registry-service/pkg/security"

	"user-registry-service/internal/domain/user"
)

// UserRepoPG implements the Repository interface using PostgreSQL and GORM.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"` // Store-assigned identifier
	Name     string // Display name
	Age      int    // Age in years
	Gender   string // Free-form gender text
	Email    string `gorm:"not null;index"` // Login address
	Password string `gorm:"not null"`       // Password hash, never plaintext
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// RelationSchema represents one membership in a user's friend or enemy
// list. The composite primary key enforces set semantics: a user can hold
// a given member in a given list at most once.
type RelationSchema struct {
	UserID    int64  `gorm:"primaryKey;autoIncrement:false"` // Owning user
	RelatedID int64  `gorm:"primaryKey;autoIncrement:false"` // Listed user
	Kind      string `gorm:"primaryKey;size:16"`             // friend or enemy
}

// TableName specifies the table name for the RelationSchema model.
func (RelationSchema) TableName() string {
	return "user_relations"
}

// Migrate creates the users and user_relations tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserSchema{}, &RelationSchema{})
}

// QueryAll retrieves every user with friend and enemy lists populated.
func (r *UserRepoPG) QueryAll(ctx context.Context) ([]user.User, error) {
	var models []UserSchema
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		r.log.Error("failed to list users from db", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return r.populate(ctx, models)
}

// QueryByID retrieves a user by ID with friend and enemy lists populated.
func (r *UserRepoPG) QueryByID(ctx context.Context, id int64) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Warn("user not found", zap.Int64("id", id))
			return nil, apperrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", id))
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.Int64("id", id))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	users, err := r.populate(ctx, []UserSchema{model})
	if err != nil {
		return nil, err
	}
	return &users[0], nil
}

// Search retrieves all users whose declared field equals the given value.
// An empty result is not an error. The field name is checked against the
// searchable-field whitelist before it reaches the query.
func (r *UserRepoPG) Search(ctx context.Context, key, value string) ([]user.User, error) {
	column, err := security.ValidateSearchKey(key)
	if err != nil {
		r.log.Warn("invalid search key", zap.String("key", key), zap.Error(err))
		return nil, apperrors.NewBadRequestError(err.Error())
	}
	value, err = security.ValidateSearchValue(value)
	if err != nil {
		r.log.Warn("invalid search value", zap.String("key", key), zap.Error(err))
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	// Numeric columns compare against a typed argument
	var arg any = value
	if column == "age" {
		n, convErr := strconv.Atoi(value)
		if convErr != nil {
			return nil, apperrors.NewBadRequestError("search value for age must be a number")
		}
		arg = n
	}

	var models []UserSchema
	if err := r.db.WithContext(ctx).Where(fmt.Sprintf("%s = ?", column), arg).Order("id").Find(&models).Error; err != nil {
		r.log.Error("failed to search users in db", zap.Error(err), zap.String("key", key))
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	users := make([]user.User, len(models))
	for i, model := range models {
		users[i] = toDomain(model)
	}
	return users, nil
}

// Create inserts a new user and returns the record with its assigned ID.
// The caller is responsible for hashing the password beforehand.
func (r *UserRepoPG) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	model := UserSchema{
		Name:     u.Name,
		Age:      u.Age,
		Gender:   u.Gender,
		Email:    u.Email,
		Password: u.PasswordHash,
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("email", u.Email))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	r.log.Info("user created in db", zap.Int64("id", model.ID))
	created := toDomain(model)
	return &created, nil
}

// Update overwrites only the supplied (non-zero) fields of the record
// matching u.ID and returns the post-update record, populated.
func (r *UserRepoPG) Update(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	var existing UserSchema
	if err := r.db.WithContext(ctx).First(&existing, u.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Warn("user not found for update", zap.Int64("id", u.ID))
			return nil, apperrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", u.ID))
		}
		r.log.Error("failed to load user for update", zap.Error(err), zap.Int64("id", u.ID))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	changes := UserSchema{
		Name:     u.Name,
		Age:      u.Age,
		Gender:   u.Gender,
		Email:    u.Email,
		Password: u.PasswordHash,
	}

	// Updates with a struct skips zero-valued fields, which is exactly the
	// partial-overwrite contract.
	if err := r.db.WithContext(ctx).Model(&existing).Updates(changes).Error; err != nil {
		r.log.Error("failed to update user in db", zap.Error(err), zap.Int64("id", u.ID))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	r.log.Info("user updated in db", zap.Int64("id", u.ID))
	return r.QueryByID(ctx, u.ID)
}

// Delete removes a user by ID together with the relation rows the user
// owns. Rows in other users' lists that reference the deleted user are
// left in place and simply stop populating.
func (r *UserRepoPG) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&UserSchema{}, id)
	if res.Error != nil {
		r.log.Error("failed to delete user in db", zap.Error(res.Error), zap.Int64("id", id))
		return fmt.Errorf("failed to delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		r.log.Warn("user not found for delete", zap.Int64("id", id))
		return apperrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", id))
	}

	if err := r.db.WithContext(ctx).Where("user_id = ?", id).Delete(&RelationSchema{}).Error; err != nil {
		r.log.Error("failed to delete user relations in db", zap.Error(err), zap.Int64("id", id))
		return fmt.Errorf("failed to delete user relations: %w", err)
	}

	r.log.Info("user deleted in db", zap.Int64("id", id))
	return nil
}

// AddFriend appends the given user to userID's friend list and returns the
// populated post-mutation record.
func (r *UserRepoPG) AddFriend(ctx context.Context, userID, friendID int64) (*user.User, error) {
	return r.addRelation(ctx, userID, friendID, user.RelationFriend)
}

// AddEnemy appends the given user to userID's enemy list and returns the
// populated post-mutation record.
func (r *UserRepoPG) AddEnemy(ctx context.Context, userID, enemyID int64) (*user.User, error) {
	return r.addRelation(ctx, userID, enemyID, user.RelationEnemy)
}

// addRelation inserts one relation row. Membership is a set: inserting an
// existing member fails rather than duplicating it.
func (r *UserRepoPG) addRelation(ctx context.Context, userID, relatedID int64, kind string) (*user.User, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&UserSchema{}).Where("id IN ?", []int64{userID, relatedID}).Count(&count).Error; err != nil {
		r.log.Error("failed to check relation users", zap.Error(err), zap.Int64("user_id", userID), zap.Int64("related_id", relatedID))
		return nil, fmt.Errorf("failed to check users: %w", err)
	}
	wanted := int64(2)
	if userID == relatedID {
		wanted = 1
	}
	if count < wanted {
		r.log.Warn("relation user missing", zap.Int64("user_id", userID), zap.Int64("related_id", relatedID), zap.String("kind", kind))
		return nil, apperrors.NewBadRequestError("user not found")
	}

	var existing int64
	if err := r.db.WithContext(ctx).Model(&RelationSchema{}).
		Where("user_id = ? AND related_id = ? AND kind = ?", userID, relatedID, kind).
		Count(&existing).Error; err != nil {
		r.log.Error("failed to check existing relation", zap.Error(err), zap.Int64("user_id", userID))
		return nil, fmt.Errorf("failed to check relation: %w", err)
	}
	if existing > 0 {
		r.log.Warn("relation already present", zap.Int64("user_id", userID), zap.Int64("related_id", relatedID), zap.String("kind", kind))
		return nil, apperrors.NewBadRequestError("user already registered")
	}

	rel := RelationSchema{UserID: userID, RelatedID: relatedID, Kind: kind}
	if err := r.db.WithContext(ctx).Create(&rel).Error; err != nil {
		r.log.Error("failed to create relation in db", zap.Error(err), zap.Int64("user_id", userID))
		return nil, fmt.Errorf("failed to create relation: %w", err)
	}

	r.log.Info("relation added", zap.Int64("user_id", userID), zap.Int64("related_id", relatedID), zap.String("kind", kind))
	return r.QueryByID(ctx, userID)
}

// populate expands relation rows into full nested user records, one level
// deep: nested users carry empty lists.
func (r *UserRepoPG) populate(ctx context.Context, models []UserSchema) ([]user.User, error) {
	users := make([]user.User, len(models))
	if len(models) == 0 {
		return users, nil
	}

	ownerIDs := make([]int64, len(models))
	for i, model := range models {
		users[i] = toDomain(model)
		ownerIDs[i] = model.ID
	}

	var relations []RelationSchema
	if err := r.db.WithContext(ctx).Where("user_id IN ?", ownerIDs).Find(&relations).Error; err != nil {
		r.log.Error("failed to load relations from db", zap.Error(err))
		return nil, fmt.Errorf("failed to load relations: %w", err)
	}
	if len(relations) == 0 {
		return users, nil
	}

	relatedIDs := make([]int64, 0, len(relations))
	for _, rel := range relations {
		relatedIDs = append(relatedIDs, rel.RelatedID)
	}

	var relatedModels []UserSchema
	if err := r.db.WithContext(ctx).Where("id IN ?", relatedIDs).Find(&relatedModels).Error; err != nil {
		r.log.Error("failed to load related users from db", zap.Error(err))
		return nil, fmt.Errorf("failed to load related users: %w", err)
	}

	relatedByID := make(map[int64]user.User, len(relatedModels))
	for _, model := range relatedModels {
		relatedByID[model.ID] = toDomain(model)
	}

	indexByID := make(map[int64]int, len(users))
	for i := range users {
		indexByID[users[i].ID] = i
	}

	for _, rel := range relations {
		related, ok := relatedByID[rel.RelatedID]
		if !ok {
			// Dangling reference to a deleted user; skipped on read
			continue
		}
		i := indexByID[rel.UserID]
		switch rel.Kind {
		case user.RelationFriend:
			users[i].Friends = append(users[i].Friends, related)
		case user.RelationEnemy:
			users[i].Enemies = append(users[i].Enemies, related)
		}
	}

	return users, nil
}

// toDomain maps a schema row onto the domain entity with empty lists.
func toDomain(model UserSchema) user.User {
	return user.User{
		ID:           model.ID,
		Name:         model.Name,
		Age:          model.Age,
		Gender:       model.Gender,
		Email:        model.Email,
		PasswordHash: model.Password,
		Friends:      []user.User{},
		Enemies:      []user.User{},
	}
}
