// Package redistore implements the store.Store interface against a
// Redis-hosted document store. Task documents live as JSON values under
// a tenant- and identity-scoped key prefix; change notifications are
// pushed over a per-identity pub/sub channel.
package redistore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"

	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/config"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/model"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/store"
)

const (
	// APITimeout bounds every remote call.
	APITimeout = 5 * time.Second

	// TaskIDLength is the length of store-assigned document ids.
	TaskIDLength = 20
)

// Client implements store.Store using Redis.
type Client struct {
	rdb   *redis.Client
	appID string
	newID func() string
}

// New creates a Redis-backed store client from the app configuration.
func New(cfg config.Config) (*Client, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("store address is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.StoreAddr,
		Password: cfg.StorePassword,
		DB:       cfg.StoreDB,
	})

	return NewWithClient(rdb, cfg.AppID)
}

// NewWithClient wraps an existing Redis client (used by tests).
func NewWithClient(rdb *redis.Client, appID string) (*Client, error) {
	if appID == "" {
		return nil, fmt.Errorf("app id is required")
	}

	newID, err := nanoid.Standard(TaskIDLength)
	if err != nil {
		return nil, fmt.Errorf("init id generator: %w", err)
	}

	return &Client{rdb: rdb, appID: appID, newID: newID}, nil
}

// Ping checks the store connection.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) identityKey(id string) string {
	return fmt.Sprintf("%s:identities:%s", c.appID, id)
}

func (c *Client) taskKey(identityID, taskID string) string {
	return fmt.Sprintf("%s:%s:tasks:%s", c.appID, identityID, taskID)
}

func (c *Client) taskIndexKey(identityID string) string {
	return fmt.Sprintf("%s:%s:tasks", c.appID, identityID)
}

func (c *Client) changeChannel(identityID string) string {
	return fmt.Sprintf("%s:%s:changes", c.appID, identityID)
}

// serverNow reads the Redis server clock so creation timestamps are
// server-observed rather than client-supplied.
func (c *Client) serverNow(ctx context.Context) (time.Time, error) {
	now, err := c.rdb.Time(ctx).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("read server time: %w", err)
	}
	return now.UTC(), nil
}

// CreateIdentity issues a fresh anonymous identity.
func (c *Client) CreateIdentity(ctx context.Context) (model.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	now, err := c.serverNow(ctx)
	if err != nil {
		return model.Identity{}, err
	}

	identity := model.Identity{ID: uuid.New().String(), CreatedAt: now}
	data, err := json.Marshal(identity)
	if err != nil {
		return model.Identity{}, fmt.Errorf("marshal identity: %w", err)
	}

	if err := c.rdb.Set(ctx, c.identityKey(identity.ID), data, 0).Err(); err != nil {
		return model.Identity{}, fmt.Errorf("create identity: %w", err)
	}

	return identity, nil
}

// LookupIdentity validates a previously issued identity.
func (c *Client) LookupIdentity(ctx context.Context, id string) (model.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	data, err := c.rdb.Get(ctx, c.identityKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return model.Identity{}, store.ErrIdentityNotFound
		}
		return model.Identity{}, fmt.Errorf("lookup identity: %w", err)
	}

	var identity model.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return model.Identity{}, fmt.Errorf("decode identity: %w", err)
	}
	return identity, nil
}

// ListTasks returns the full current task set for an identity.
func (c *Client) ListTasks(ctx context.Context, identityID string) ([]model.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	return c.listTasks(ctx, identityID)
}

func (c *Client) listTasks(ctx context.Context, identityID string) ([]model.Task, error) {
	ids, err := c.rdb.SMembers(ctx, c.taskIndexKey(identityID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if len(ids) == 0 {
		return []model.Task{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, c.taskKey(identityID, id))
	}

	values, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch tasks: %w", err)
	}

	tasks := make([]model.Task, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			// Index entry without a document: the task was deleted
			// between SMEMBERS and MGET.
			continue
		}
		var task model.Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// CreateTask stores a new task document and notifies subscribers.
func (c *Client) CreateTask(ctx context.Context, identityID string, input store.TaskInput) (model.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	now, err := c.serverNow(ctx)
	if err != nil {
		return model.Task{}, err
	}

	task := model.Task{
		ID:        c.newID(),
		Text:      input.Text,
		Completed: false,
		CreatedAt: now,
		DueDate:   input.DueDate,
	}

	data, err := json.Marshal(task)
	if err != nil {
		return model.Task{}, fmt.Errorf("marshal task: %w", err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, c.taskKey(identityID, task.ID), data, 0)
	pipe.SAdd(ctx, c.taskIndexKey(identityID), task.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}

	c.notify(ctx, identityID, "created", task.ID)
	return task, nil
}

// SetTaskCompleted overwrites the completed flag on a task.
func (c *Client) SetTaskCompleted(ctx context.Context, identityID, taskID string, completed bool) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	return c.updateTask(ctx, identityID, taskID, "toggled", func(task *model.Task) {
		task.Completed = completed
	})
}

// EditTask overwrites text and due date on a task.
func (c *Client) EditTask(ctx context.Context, identityID, taskID string, input store.TaskInput) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	return c.updateTask(ctx, identityID, taskID, "edited", func(task *model.Task) {
		task.Text = input.Text
		task.DueDate = input.DueDate
	})
}

func (c *Client) updateTask(ctx context.Context, identityID, taskID, event string, mutate func(*model.Task)) error {
	key := c.taskKey(identityID, taskID)

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return store.ErrTaskNotFound
		}
		return fmt.Errorf("fetch task: %w", err)
	}

	var task model.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return fmt.Errorf("decode task: %w", err)
	}

	mutate(&task)

	updated, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	if err := c.rdb.Set(ctx, key, updated, 0).Err(); err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	c.notify(ctx, identityID, event, taskID)
	return nil
}

// DeleteTask removes a task document. Unknown ids are a no-op; the
// request is still sent.
func (c *Client) DeleteTask(ctx context.Context, identityID, taskID string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, c.taskKey(identityID, taskID))
	pipe.SRem(ctx, c.taskIndexKey(identityID), taskID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	c.notify(ctx, identityID, "deleted", taskID)
	return nil
}

// notify publishes a change notification. The payload only wakes
// subscribers; they refetch the full set regardless of its content.
func (c *Client) notify(ctx context.Context, identityID, event, taskID string) {
	payload := fmt.Sprintf("%s:%s", event, taskID)
	_ = c.rdb.Publish(ctx, c.changeChannel(identityID), payload).Err()
}
