package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrWorkerOnline = errors.New("worker already online")

// WorkerRepositoryInterface tracks kitchen-action consumers so two processes
// never run under one name.
type WorkerRepositoryInterface interface {
	// Register marks the worker online. A worker still online and seen within
	// staleAfter is rejected with ErrWorkerOnline.
	Register(ctx context.Context, name string, staleAfter time.Duration) error
	Heartbeat(ctx context.Context, name string) error
	RecordProcessed(ctx context.Context, name string) error
	SetOffline(ctx context.Context, name string) error
	List(ctx context.Context) ([]Worker, error)
}

type Worker struct {
	Name             string    `json:"workerName"`
	Status           string    `json:"status"`
	ActionsProcessed int64     `json:"actionsProcessed"`
	LastSeen         time.Time `json:"lastSeen"`
}

type WorkerRepository struct {
	db *sql.DB
}

func NewWorkerRepository(db *sql.DB) *WorkerRepository {
	return &WorkerRepository{db: db}
}

func (r *WorkerRepository) Register(ctx context.Context, name string, staleAfter time.Duration) error {
	var (
		status   string
		lastSeen time.Time
	)
	err := r.db.QueryRowContext(ctx, `SELECT status, last_seen FROM kitchen_workers WHERE name=$1`, name).Scan(&status, &lastSeen)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = r.db.ExecContext(ctx, `INSERT INTO kitchen_workers (name, status, last_seen) VALUES ($1, 'online', now())`, name)
		if err != nil {
			return fmt.Errorf("register worker: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("load worker: %w", err)
	}
	if status == "online" && time.Since(lastSeen) < staleAfter {
		return fmt.Errorf("%w: %s", ErrWorkerOnline, name)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE kitchen_workers SET status='online', last_seen=now() WHERE name=$1`, name); err != nil {
		return fmt.Errorf("register worker: %w", err)
	}
	return nil
}

func (r *WorkerRepository) Heartbeat(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE kitchen_workers SET last_seen=now() WHERE name=$1`, name)
	return err
}

func (r *WorkerRepository) RecordProcessed(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE kitchen_workers SET actions_processed = actions_processed + 1, last_seen=now()
		WHERE name=$1`, name)
	return err
}

func (r *WorkerRepository) SetOffline(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE kitchen_workers SET status='offline', last_seen=now() WHERE name=$1`, name)
	return err
}

func (r *WorkerRepository) List(ctx context.Context) ([]Worker, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, status, actions_processed, last_seen
		FROM kitchen_workers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	out := []Worker{}
	for rows.Next() {
		var w Worker
		if err := rows.Scan(&w.Name, &w.Status, &w.ActionsProcessed, &w.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
