package snooze

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "snooze:"

// RedisStore はユーザーごとのソート済みセットにスヌーズを保持する。
// メンバーはアクションID、スコアは期限のUnixミリ秒。
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore はRedisStoreを生成する。
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func userKey(userID string) string {
	return keyPrefix + userID
}

func scoreOf(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// Snooze はアクションをuntilまでスヌーズする。
func (s *RedisStore) Snooze(ctx context.Context, userID, actionID string, until time.Time) error {
	err := s.client.ZAdd(ctx, userKey(userID), redis.Z{
		Score:  float64(until.UnixMilli()),
		Member: actionID,
	}).Err()
	if err != nil {
		return fmt.Errorf("スヌーズの保存に失敗しました: %w", err)
	}
	return nil
}

// Unsnooze はスヌーズを解除する。
func (s *RedisStore) Unsnooze(ctx context.Context, userID, actionID string) error {
	if err := s.client.ZRem(ctx, userKey(userID), actionID).Err(); err != nil {
		return fmt.Errorf("スヌーズの解除に失敗しました: %w", err)
	}
	return nil
}

// Active は有効なスヌーズを返す。期限切れのメンバーはついでに削除する。
func (s *RedisStore) Active(ctx context.Context, userID string, now time.Time) (map[string]time.Time, error) {
	key := userKey(userID)

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", scoreOf(now))
	rangeCmd := pipe.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min: "(" + scoreOf(now),
		Max: "+inf",
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("スヌーズ一覧の取得に失敗しました: %w", err)
	}

	active := make(map[string]time.Time, len(rangeCmd.Val()))
	for _, z := range rangeCmd.Val() {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		active[id] = time.UnixMilli(int64(z.Score)).UTC()
	}
	return active, nil
}

// PurgeExpired は全ユーザーのキーを走査して期限切れのスヌーズを削除する。
func (s *RedisStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := s.client.ZRemRangeByScore(ctx, iter.Val(), "-inf", scoreOf(now)).Result()
		if err != nil {
			return total, fmt.Errorf("期限切れスヌーズの削除に失敗しました: %w", err)
		}
		total += n
	}
	if err := iter.Err(); err != nil {
		return total, fmt.Errorf("スヌーズキーの走査に失敗しました: %w", err)
	}
	return total, nil
}

// DeleteByUserID はユーザーのキーごと削除する。
func (s *RedisStore) DeleteByUserID(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, userKey(userID)).Err(); err != nil {
		return fmt.Errorf("ユーザーのスヌーズ削除に失敗しました: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
