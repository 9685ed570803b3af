package service

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"actiapp.dev/backend/internal/model"
	"actiapp.dev/backend/internal/pkg/cache"
)

func Module() fx.Option {
	return fx.Module("service", fx.Provide(
		newUserCache,
		NewUser,
		NewAuth,
		NewLocker,
		NewHealth,
		NewActivity,
		NewOrganization,
		NewSessionEvents,
	))
}

func newUserCache(client *redis.Client) *cache.Set[model.User] {
	return cache.NewSet[model.User](client, "user#userId")
}
