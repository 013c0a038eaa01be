package worker

import (
	"context"
	"crypto/tls"
	"net/url"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

// ParseRedisURL parses a Redis URL and returns asynq.RedisClientOpt
func ParseRedisURL(redisURL string) (asynq.RedisClientOpt, error) {
	// Handle plain host:port format
	if !strings.HasPrefix(redisURL, "redis://") && !strings.HasPrefix(redisURL, "rediss://") {
		return asynq.RedisClientOpt{Addr: redisURL}, nil
	}

	u, err := url.Parse(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	opt := asynq.RedisClientOpt{
		Addr: u.Host,
	}

	if u.User != nil {
		opt.Username = u.User.Username()
		if password, ok := u.User.Password(); ok {
			opt.Password = password
		}
	}

	if u.Scheme == "rediss" {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return opt, nil
}

// Queue enqueues minutes jobs.
type Queue struct {
	client *asynq.Client
}

func NewQueue(redisURL string) (*Queue, error) {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &Queue{client: asynq.NewClient(opt)}, nil
}

// EnqueueMinutes schedules payload. The task id is the job id, so a job
// cannot be enqueued twice.
func (q *Queue) EnqueueMinutes(ctx context.Context, payload ProcessMinutesPayload) error {
	task, err := NewProcessMinutesTask(payload)
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.TaskID(payload.JobID),
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour),
	)
	return err
}

func (q *Queue) Close() error {
	return q.client.Close()
}
