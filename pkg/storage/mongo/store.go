// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/taskmig/core/pkg/resilience"
	"github.com/taskmig/core/pkg/task"
)

const collectionName = "tasks"

// taskDoc is the persisted document shape. The task id in canonical textual
// form is the document key.
type taskDoc struct {
	ID          string `bson:"_id"`
	Title       string `bson:"title"`
	Description string `bson:"description,omitempty"`
	Status      string `bson:"status"`
}

func toDoc(t *task.Task) taskDoc {
	return taskDoc{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
	}
}

func (d taskDoc) toTask() (*task.Task, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("invalid task id %q: %w", d.ID, err))
	}
	return &task.Task{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Status:      task.Status(d.Status),
	}, nil
}

// Store implements storage.TaskRepository on a MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewStore creates a store over the tasks collection of the named database.
func NewStore(client *mongo.Client, dbName string) *Store {
	return &Store{
		client: client,
		coll:   client.Database(dbName).Collection(collectionName),
	}
}

// Save upserts the task by id.
func (s *Store) Save(ctx context.Context, t *task.Task) error {
	if err := t.Validate(); err != nil {
		return resilience.Permanent(err)
	}

	_, err := s.coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: t.ID.String()}},
		toDoc(t),
		options.Replace().SetUpsert(true))
	if err != nil {
		return classify(fmt.Errorf("failed to save task %s: %w", t.ID, err))
	}
	return nil
}

// Get looks up a task by id. Absence returns (nil, nil).
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	var doc taskDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id.String()}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, classify(fmt.Errorf("failed to get task %s: %w", id, err))
	}
	return doc.toTask()
}

// List enumerates all tasks.
func (s *Store) List(ctx context.Context) ([]*task.Task, error) {
	cur, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, classify(fmt.Errorf("failed to list tasks: %w", err))
	}
	defer func() { _ = cur.Close(ctx) }()

	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(fmt.Errorf("failed to read task cursor: %w", err))
	}

	tasks := make([]*task.Task, 0, len(docs))
	for _, doc := range docs {
		t, err := doc.toTask()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Delete removes the task by id. Deleting an absent id is a no-op.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return classify(fmt.Errorf("failed to delete task %s: %w", id, err))
	}
	return nil
}

// Ping performs a minimal round trip to the cluster primary.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return resilience.Transient(err)
	}
	return nil
}

// Close disconnects the underlying client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// classify maps driver errors into the resilience taxonomy. Network errors,
// server-selection timeouts and client-side timeouts are transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return resilience.Transient(err)
	}
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return resilience.Transient(err)
	}
	return err
}
