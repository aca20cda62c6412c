package identity

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultAvatar is used whenever a session has no stored avatar.
const DefaultAvatar = "default-avatar.png"

// Identity is the stable presentation of a player, resolved from their
// session. Authentication itself lives outside this process; we only read.
type Identity struct {
	DisplayName string
	AvatarRef   string
}

// Resolver maps an opaque session token to an Identity.
type Resolver interface {
	Resolve(ctx context.Context, sessionToken string) (Identity, error)
}

// RedisResolver reads identities from the session store the auth service
// maintains, keyed session:<token> with name/avatar hash fields.
type RedisResolver struct {
	rdb  *redis.Client
	next Resolver // fallback for unknown tokens
}

func NewRedisResolver(addr, password string, fallback Resolver) *RedisResolver {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &RedisResolver{rdb: rdb, next: fallback}
}

func (r *RedisResolver) Resolve(ctx context.Context, sessionToken string) (Identity, error) {
	if sessionToken == "" {
		return r.next.Resolve(ctx, sessionToken)
	}
	fields, err := r.rdb.HGetAll(ctx, "session:"+sessionToken).Result()
	if err != nil || len(fields) == 0 {
		if err != nil {
			slog.Warn("session lookup failed, using guest identity", "error", err)
		}
		return r.next.Resolve(ctx, sessionToken)
	}

	id := Identity{
		DisplayName: fields["name"],
		AvatarRef:   fields["avatar"],
	}
	if id.AvatarRef == "" {
		id.AvatarRef = DefaultAvatar
	}
	return id, nil
}

func (r *RedisResolver) Close() error {
	return r.rdb.Close()
}

// Guest resolves every token to an anonymous identity. Used standalone when
// no session store is configured, and as the fallback behind RedisResolver.
type Guest struct{}

func (Guest) Resolve(ctx context.Context, sessionToken string) (Identity, error) {
	return Identity{AvatarRef: DefaultAvatar}, nil
}
