package repository

import (
	"context"
	"database/sql"

	"presence_monitor"
)

type ScheduleSQLite struct {
	db *sql.DB
}

func NewScheduleSQLite(db *sql.DB) *ScheduleSQLite {
	return &ScheduleSQLite{db: db}
}

var _ ScheduleRepo = (*ScheduleSQLite)(nil)

const (
	insertScheduleSQL = `
		INSERT INTO schedule_entries (id, time_of_day, content, last_fired_date)
		VALUES (?, ?, ?, ?)
	`

	selectSchedulesSQL = `
		SELECT id, time_of_day, content, last_fired_date
		FROM schedule_entries ORDER BY time_of_day ASC, id ASC
	`

	deleteScheduleSQL = `DELETE FROM schedule_entries WHERE id = ?`

	markFiredSQL = `UPDATE schedule_entries SET last_fired_date = ? WHERE id = ?`
)

// List returns all entries ordered by time of day.
func (r *ScheduleSQLite) List(ctx context.Context) ([]presence_monitor.ScheduleEntry, error) {
	rows, err := r.db.QueryContext(ctx, selectSchedulesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]presence_monitor.ScheduleEntry, 0, 8)
	for rows.Next() {
		var e presence_monitor.ScheduleEntry
		var fired sql.NullString
		if err := rows.Scan(&e.ID, &e.TimeOfDay, &e.Content, &fired); err != nil {
			return nil, err
		}
		if fired.Valid {
			e.LastFiredDate = fired.String
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new entry. Validation of TimeOfDay/Content happens in the
// service layer; the store persists what it is given.
func (r *ScheduleSQLite) Create(ctx context.Context, e presence_monitor.ScheduleEntry) error {
	var fired any
	if e.LastFiredDate != "" {
		fired = e.LastFiredDate
	}
	_, err := r.db.ExecContext(ctx, insertScheduleSQL, e.ID, e.TimeOfDay, e.Content, fired)
	return err
}

// Delete removes an entry, reporting whether a row existed.
func (r *ScheduleSQLite) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, deleteScheduleSQL, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkFired stamps the day (YYYY-MM-DD) the entry last fired.
func (r *ScheduleSQLite) MarkFired(ctx context.Context, id, day string) error {
	_, err := r.db.ExecContext(ctx, markFiredSQL, day, id)
	return err
}
