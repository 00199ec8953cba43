package repository

import (
	"context"
	"database/sql"
	"time"

	"presence_monitor"
	"presence_monitor/internal/repository/db"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*presence_monitor.User, error)
}

type ScheduleRepo interface {
	List(ctx context.Context) ([]presence_monitor.ScheduleEntry, error)
	Create(ctx context.Context, e presence_monitor.ScheduleEntry) error
	Delete(ctx context.Context, id string) (bool, error)
	MarkFired(ctx context.Context, id, day string) error
}

type EventRepo interface {
	Append(ctx context.Context, e presence_monitor.MonitorEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]presence_monitor.MonitorEvent, error)
}

type Repository struct {
	Schedules ScheduleRepo
	Events    EventRepo
	Auth      Authorization
}

func NewRepository(sqlDB *sql.DB) *Repository {
	return &Repository{
		Schedules: NewScheduleSQLite(sqlDB),
		Events:    NewEventSQLite(sqlDB),
		Auth:      NewUserRepository(sqlDB),
	}
}

// InitDB opens the SQLite file and ensures the schema exists.
func InitDB(path string) (*sql.DB, error) {
	return db.Init(path)
}
