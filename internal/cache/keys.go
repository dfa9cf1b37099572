package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix      = "user:%d"
	PostKeyPrefix      = "post:%d"
	BlacklistKeyPrefix = "blacklist:%s"
)

const (
	UserTTL = 5 * time.Minute
	PostTTL = 30 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

// InvalidateUserPosts drops the cached detail of every listed post. Post
// detail embeds the author, so a profile change makes those entries stale.
func InvalidateUserPosts(ctx context.Context, postIDs []uint) {
	if client == nil || len(postIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(postIDs))
	for _, id := range postIDs {
		keys = append(keys, PostKey(id))
	}
	client.Del(ctx, keys...)
}
