package queuesvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/mahudhurio/core"
)

const popTimeout = 5 * time.Second

// Redis is a list-backed queue: LPUSH to publish, BRPOP to consume.
type Redis struct {
	client *redis.Client
	key    string
	logger core.Logger
}

var _ core.Queue = (*Redis)(nil)

// envelope is the wire form of a core.QueueMessage.
type envelope struct {
	Type string `json:"type"`
	Body []byte `json:"body"`
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func NewRedis(client *redis.Client, key string, logger core.Logger) *Redis {
	if key == "" {
		key = "mahudhurio:queue"
	}
	return &Redis{client: client, key: key, logger: logger}
}

// Ping checks the connection to redis.
func (q *Redis) Ping(ctx context.Context) error {
	return errors.Wrap(q.client.Ping(ctx).Err(), "pinging redis")
}

func (q *Redis) Publish(ctx context.Context, msg core.QueueMessage) error {
	data, err := json.Marshal(envelope{Type: msg.Type, Body: msg.Body})
	if err != nil {
		return errors.Wrap(err, "encoding queue message")
	}
	return errors.Wrap(q.client.LPush(ctx, q.key, data).Err(), "publishing queue message")
}

func (q *Redis) Consume(ctx context.Context) (<-chan core.QueueMessage, error) {
	out := make(chan core.QueueMessage)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, popTimeout, q.key).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if err != redis.Nil {
					q.logger.Error("popping queue message: "+err.Error(), err)
					time.Sleep(time.Second)
				}
				continue
			}
			if len(res) != 2 {
				continue
			}

			var env envelope
			if err = json.Unmarshal([]byte(res[1]), &env); err != nil {
				q.logger.Error("decoding queue message: "+err.Error(), err)
				continue
			}
			select {
			case out <- core.QueueMessage{Type: env.Type, Body: env.Body}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
