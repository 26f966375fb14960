package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// TranslationCache is the hot copy of the translations table. Every entry for
// a comment lives in one hash so the cascade can drop them with a single DEL.
// A nil client turns every call into a miss or no-op.
type TranslationCache struct {
	client *redis.Client
}

// NewTranslationCache wraps client, which may be nil.
func NewTranslationCache(client *redis.Client) *TranslationCache {
	return &TranslationCache{client: client}
}

// Get returns the cached translation of commentID into lang.
func (c *TranslationCache) Get(ctx context.Context, commentID, lang string) (string, bool, error) {
	if c == nil || c.client == nil {
		return "", false, nil
	}
	text, err := c.client.HGet(ctx, TranslationKey(commentID), lang).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// Put stores a translation and refreshes the hash TTL.
func (c *TranslationCache) Put(ctx context.Context, commentID, lang, text string) error {
	if c == nil || c.client == nil {
		return nil
	}
	key := TranslationKey(commentID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, lang, text)
		pipe.Expire(ctx, key, TranslationTTL)
		return nil
	})
	return err
}

// Drop removes every cached translation of commentID.
func (c *TranslationCache) Drop(ctx context.Context, commentID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, TranslationKey(commentID)).Err()
}
