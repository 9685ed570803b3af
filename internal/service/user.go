package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/model"
	"actiapp.dev/backend/internal/pkg/cache"
	"actiapp.dev/backend/internal/repo"
)

type User struct {
	Repo  UserRepo
	Cache UserCache
}

func NewUser(userRepo *repo.User, userCache *cache.Set[model.User]) *User {
	return &User{
		Repo:  userRepo,
		Cache: userCache,
	}
}

// Cache: user#userId:{userId}, 1hr
func (s *User) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	var user model.User
	_, err := s.Cache.MutexGetSet(ctx, userID, &user, func() (*model.User, error) {
		return s.Repo.GetUserByID(ctx, userID)
	}, constant.UserCacheTTL)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Forget drops the cached copies of the given users.
func (s *User) Forget(ctx context.Context, userIDs ...string) {
	for _, id := range userIDs {
		if err := s.Cache.Delete(ctx, id); err != nil {
			log.Error().
				Err(err).
				Str("evt.name", "user.cache.evict.failed").
				Str("userId", id).
				Msg("failed to evict cached user")
		}
	}
}
