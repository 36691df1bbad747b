// file: service/user_service.go

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"go-auth-api/model"
	"go-auth-api/repository"
	"time"
)

const profileCacheTTL = 10 * time.Minute

// UserService serves profile reads, utilizing a cache-aside strategy.
// Only sanitized records are cached, so a cache hit can never leak a
// password hash or refresh token.
type UserService struct {
	repo  repository.IUserRepository
	cache ICacheClient
}

func NewUserService(repo repository.IUserRepository, cache ICacheClient) *UserService {
	return &UserService{
		repo:  repo,
		cache: cache,
	}
}

// GetProfile returns the sanitized user record for the given id.
func (s *UserService) GetProfile(ctx context.Context, userID int) (*model.User, error) {
	cacheKey := fmt.Sprintf("profile:%d", userID)

	// 1. Try to get data from the cache.
	if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
		var user model.User
		if err := json.Unmarshal([]byte(cached), &user); err == nil {
			return &user, nil
		}
	}

	// 2. Cache miss. Fetch from the database.
	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	clean := Sanitize(user)

	// 3. Store the result for future requests.
	if data, err := json.Marshal(clean); err == nil {
		s.cache.Set(ctx, cacheKey, data, profileCacheTTL)
	}

	return clean, nil
}
