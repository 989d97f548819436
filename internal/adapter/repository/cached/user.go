package cached

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"user-registry-service/internal/adapter/cache"
	domain "user-registry-service/internal/domain/user"
	"user-registry-service/internal/usecase/user"
)

// CachedUserRepository implements user.Repository with caching support.
// It wraps a persistent repository (DB) and a cache implementation.
// Only QueryByID is served from cache; list reads and searches always go
// to the store. Relationship mutations invalidate both sides' entries,
// since the target may appear nested in the actor's cached record.
type CachedUserRepository struct {
	dbRepo user.Repository
	cache  cache.UserCache
	log    *zap.Logger
	group  singleflight.Group
}

// NewCachedUserRepository creates a new instance of CachedUserRepository.
func NewCachedUserRepository(dbRepo user.Repository, cache cache.UserCache, log *zap.Logger) user.Repository {
	return &CachedUserRepository{
		dbRepo: dbRepo,
		cache:  cache,
		log:    log,
	}
}

// QueryAll delegates to the DB repository.
func (r *CachedUserRepository) QueryAll(ctx context.Context) ([]domain.User, error) {
	return r.dbRepo.QueryAll(ctx)
}

// QueryByID retrieves a user by ID using Cache-Aside pattern.
func (r *CachedUserRepository) QueryByID(ctx context.Context, id int64) (*domain.User, error) {
	if r.cache != nil {
		cachedUser, err := r.cache.Get(ctx, id)
		if err != nil {
			r.log.Warn("cache get error, falling back to database", zap.Int64("id", id), zap.Error(err))
		} else if cachedUser != nil {
			r.log.Debug("user retrieved from cache", zap.Int64("id", id))
			return cachedUser, nil
		}
	}

	// Cache miss or cache disabled - use single-flight to prevent stampede
	key := fmt.Sprintf("user:%d", id)
	result, err, _ := r.group.Do(key, func() (any, error) {
		// Double-check cache in case another request populated it while we were waiting
		if r.cache != nil {
			cachedUser, err := r.cache.Get(ctx, id)
			if err == nil && cachedUser != nil {
				r.log.Debug("user retrieved from cache after single-flight wait", zap.Int64("id", id))
				return cachedUser, nil
			}
		}

		// Only one request hits the database
		u, err := r.dbRepo.QueryByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if r.cache != nil {
			if err := r.cache.Set(ctx, u); err != nil {
				r.log.Warn("failed to cache user", zap.Int64("id", id), zap.Error(err))
			}
		}

		return u, nil
	})

	if err != nil {
		return nil, err
	}

	return result.(*domain.User), nil
}

// Search delegates to the DB repository.
func (r *CachedUserRepository) Search(ctx context.Context, key, value string) ([]domain.User, error) {
	return r.dbRepo.Search(ctx, key, value)
}

// Create delegates to the DB repository.
func (r *CachedUserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	return r.dbRepo.Create(ctx, u)
}

// Update updates the user in DB and invalidates the cache.
func (r *CachedUserRepository) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	updated, err := r.dbRepo.Update(ctx, u)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, u.ID)
	return updated, nil
}

// Delete deletes the user from DB and invalidates the cache.
func (r *CachedUserRepository) Delete(ctx context.Context, id int64) error {
	if err := r.dbRepo.Delete(ctx, id); err != nil {
		return err
	}

	r.invalidate(ctx, id)
	return nil
}

// AddFriend mutates the friend list in DB and invalidates both users.
func (r *CachedUserRepository) AddFriend(ctx context.Context, userID, friendID int64) (*domain.User, error) {
	updated, err := r.dbRepo.AddFriend(ctx, userID, friendID)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, userID, friendID)
	return updated, nil
}

// AddEnemy mutates the enemy list in DB and invalidates both users.
func (r *CachedUserRepository) AddEnemy(ctx context.Context, userID, enemyID int64) (*domain.User, error) {
	updated, err := r.dbRepo.AddEnemy(ctx, userID, enemyID)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, userID, enemyID)
	return updated, nil
}

func (r *CachedUserRepository) invalidate(ctx context.Context, ids ...int64) {
	if r.cache == nil {
		return
	}
	if err := r.cache.DeleteMultiple(ctx, ids...); err != nil {
		r.log.Warn("failed to invalidate cache", zap.Int64s("ids", ids), zap.Error(err))
	}
}
