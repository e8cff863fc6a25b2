package redis

import (
	"context"
	"fmt"
	"time"
)

// SummaryCache 缓存各项目最近章节摘要，避免每次起草重复调用模型
type SummaryCache struct {
	client *Client
	ttl    time.Duration
}

func NewSummaryCache(client *Client, ttl time.Duration) *SummaryCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SummaryCache{client: client, ttl: ttl}
}

func summaryKey(project string, chapter int) string {
	return fmt.Sprintf("recent_summary:%s:%d", project, chapter)
}

// Get 返回缓存的摘要；未命中时 ok 为 false
func (c *SummaryCache) Get(ctx context.Context, project string, chapter int) (string, bool) {
	if c == nil || c.client == nil {
		return "", false
	}
	val, err := c.client.Get(ctx, summaryKey(project, chapter))
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *SummaryCache) Set(ctx context.Context, project string, chapter int, summary string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, summaryKey(project, chapter), summary, c.ttl)
}

// Invalidate 定稿改写了前文，后续章节的摘要缓存全部作废
func (c *SummaryCache) Invalidate(ctx context.Context, project string, chapters ...int) error {
	if c == nil || c.client == nil || len(chapters) == 0 {
		return nil
	}
	keys := make([]string, 0, len(chapters))
	for _, n := range chapters {
		keys = append(keys, summaryKey(project, n))
	}
	return c.client.Del(ctx, keys...)
}
