package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is one raw job payload taken off the input list.
type Message struct {
	Body string
}

// Queue is the transport the worker reads jobs from and writes results to.
type Queue interface {
	ReceiveMessages(ctx context.Context) ([]Message, error)
	SendResult(ctx context.Context, result interface{}) error
	Requeue(ctx context.Context, msg Message) error
}

type RedisManager struct {
	Client       *redis.Client
	InputQueue   string
	OutputQueue  string
	BlockTimeout time.Duration
}

func NewRedisManager(client *redis.Client, inputQueue, outputQueue string) *RedisManager {
	return &RedisManager{
		Client:       client,
		InputQueue:   inputQueue,
		OutputQueue:  outputQueue,
		BlockTimeout: 20 * time.Second,
	}
}

// ReceiveMessages blocks on the input list for at most BlockTimeout and
// returns no messages when it expires.
func (m *RedisManager) ReceiveMessages(ctx context.Context) ([]Message, error) {
	// BLPop returns [key, value]
	result, err := m.Client.BLPop(ctx, m.BlockTimeout, m.InputQueue).Result()
	if errors.Is(err, redis.Nil) {
		return []Message{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []Message{{Body: result[1]}}, nil
}

func (m *RedisManager) SendResult(ctx context.Context, result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return m.Client.RPush(ctx, m.OutputQueue, data).Err()
}

// Requeue pushes msg back to the head of the input list so it is the next
// job popped.
func (m *RedisManager) Requeue(ctx context.Context, msg Message) error {
	return m.Client.LPush(ctx, m.InputQueue, msg.Body).Err()
}

// Ping checks the connection before the worker starts consuming.
func (m *RedisManager) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx).Err()
}
