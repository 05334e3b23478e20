// Package events publishes job alert events on Redis pub/sub so other
// services (gateway SSE, analytics) can react to new postings.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"jobmate/jobalert-service/internal/model"
)

// ChannelJobDiscovered carries one message per newly stored job.
const ChannelJobDiscovered = "EVENT_JOB_DISCOVERED"

// Publisher announces pipeline events.
type Publisher interface {
	PublishJobDiscovered(ctx context.Context, job model.Job) error
}

// redisPublisher is the subset of *redis.Client used here.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Redis publishes events with PUBLISH.
type Redis struct {
	rdb redisPublisher
}

// NewRedis wraps a go-redis client.
func NewRedis(rdb redisPublisher) *Redis {
	return &Redis{rdb: rdb}
}

// JobDiscovered is the EVENT_JOB_DISCOVERED payload.
type JobDiscovered struct {
	Type     string  `json:"type"`
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	Company  string  `json:"company"`
	Source   string  `json:"source"`
	JobScore float64 `json:"job_score"`
}

func (r *Redis) PublishJobDiscovered(ctx context.Context, job model.Job) error {
	event, err := json.Marshal(JobDiscovered{
		Type:     ChannelJobDiscovered,
		URL:      job.URL,
		Title:    job.Title,
		Company:  job.Company,
		Source:   job.Source,
		JobScore: job.JobScore,
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ChannelJobDiscovered, err)
	}
	if err := r.rdb.Publish(ctx, ChannelJobDiscovered, event).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ChannelJobDiscovered, err)
	}
	return nil
}

// Nop discards every event.
type Nop struct{}

func (Nop) PublishJobDiscovered(context.Context, model.Job) error { return nil }
