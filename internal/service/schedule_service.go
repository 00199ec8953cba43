package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"presence_monitor"
	"presence_monitor/internal/repository"

	"github.com/google/uuid"
)

var (
	errInvalidTimeOfDay = errors.New("invalid time_of_day: must be HH:MM with hours 0-23 and minutes 0-59")
	errEmptyContent     = errors.New("invalid content: must not be empty")
)

// ScheduleService validates and persists reminder entries. Validation is the
// engine's responsibility, not the store's: the repository persists whatever
// it is handed.
type ScheduleService struct {
	repo       repository.ScheduleRepo
	invalidate func()
}

// NewScheduleService wires the store plus the checker's cache invalidation
// hook, called after every successful add/delete.
func NewScheduleService(repo repository.ScheduleRepo, invalidate func()) *ScheduleService {
	if invalidate == nil {
		invalidate = func() {}
	}
	return &ScheduleService{repo: repo, invalidate: invalidate}
}

// List returns all entries.
func (s *ScheduleService) List(ctx context.Context) ([]presence_monitor.ScheduleEntry, error) {
	return s.repo.List(ctx)
}

// Add validates and stores a new entry. On validation failure nothing is
// written and the schedule list is unchanged.
func (s *ScheduleService) Add(ctx context.Context, timeOfDay, content string) (presence_monitor.ScheduleEntry, error) {
	timeOfDay = strings.TrimSpace(timeOfDay)
	if err := validateTimeOfDay(timeOfDay); err != nil {
		return presence_monitor.ScheduleEntry{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return presence_monitor.ScheduleEntry{}, errEmptyContent
	}

	e := presence_monitor.ScheduleEntry{
		ID:        uuid.NewString(),
		TimeOfDay: timeOfDay,
		Content:   content,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return presence_monitor.ScheduleEntry{}, err
	}
	s.invalidate()
	return e, nil
}

// Delete removes an entry, reporting whether it existed.
func (s *ScheduleService) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		s.invalidate()
	}
	return ok, nil
}

// validateTimeOfDay accepts exactly "HH:MM" on a 24h clock.
func validateTimeOfDay(s string) error {
	if len(s) != 5 {
		return fmt.Errorf("%w: got %q", errInvalidTimeOfDay, s)
	}
	if _, err := time.Parse("15:04", s); err != nil {
		return fmt.Errorf("%w: got %q", errInvalidTimeOfDay, s)
	}
	return nil
}
