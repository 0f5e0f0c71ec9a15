package repository

import (
	"context"
	"database/sql"
	"time"

	"duckdns_agent/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

type StatusRepo interface {
	Save(ctx context.Context, s models.UpdaterStatus) error
	Load(ctx context.Context) (models.UpdaterStatus, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.UpdateEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.UpdateEvent, error)
}

type Repository struct {
	StatusRepo StatusRepo
	EventRepo  EventRepo
	Auth       Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StatusRepo: NewStatusSQLite(db),
		EventRepo:  NewEventSQLite(db),
		Auth:       NewUserRepository(db),
	}
}
