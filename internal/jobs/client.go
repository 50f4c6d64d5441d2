package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/huangsam/leadscore/core"
	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/schema"
	"github.com/redis/go-redis/v9"
)

const (
	maxRetry       = 3
	taskRetention  = 24 * time.Hour
	defaultTimeout = 10 * time.Minute
)

// Client submits scoring tasks.
type Client struct {
	client *asynq.Client
	queue  string
}

// NewClient connects to the queue at redisURL.
func NewClient(redisURL, queue string) (*Client, error) {
	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}
	if queue == "" {
		queue = "default"
	}
	return &Client{client: asynq.NewClient(opt), queue: queue}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueScoreBatch submits one score:batch task per framework and returns
// the task ids in framework order.
func (c *Client) EnqueueScoreBatch(ctx context.Context, tenant string, frameworks []schema.FrameworkID, contacts []schema.Contact) ([]string, error) {
	submitted := time.Now().UTC()
	ids := make([]string, 0, len(frameworks))
	for _, fw := range frameworks {
		id := uuid.NewString()
		task, err := NewScoreBatchTask(ScoreBatchPayload{
			Tenant:      tenant,
			Framework:   fw,
			Contacts:    contacts,
			SubmittedAt: submitted,
		},
			asynq.TaskID(id),
			asynq.Queue(c.queue),
			asynq.MaxRetry(maxRetry),
			asynq.Timeout(defaultTimeout),
			asynq.Retention(taskRetention),
		)
		if err != nil {
			return ids, err
		}
		if _, err := c.client.EnqueueContext(ctx, task); err != nil {
			return ids, fmt.Errorf("failed to enqueue %s task for %s: %w", TaskScoreBatch, fw, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	if redisURL == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return asynq.RedisClientOpt{
		Network:   opt.Network,
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

// ExecuteEnqueue reads contacts from the configured input and submits one
// score:batch task per selected framework.
func ExecuteEnqueue(ctx context.Context, cfg *contract.Config) error {
	contacts, err := core.LoadContacts(cfg.InputFile)
	if err != nil {
		return err
	}
	if len(contacts) == 0 {
		return fmt.Errorf("no contacts found in input")
	}

	client, err := NewClient(cfg.RedisURL, cfg.Queue)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ids, err := client.EnqueueScoreBatch(ctx, cfg.Tenant, cfg.Frameworks, contacts)
	for i, id := range ids {
		fmt.Printf("📨 Enqueued %s batch of %d contacts (task %s)\n", cfg.Frameworks[i], len(contacts), id)
	}
	return err
}
