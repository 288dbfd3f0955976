package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ewhitfield/tend/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventCols = `id, household_id, title, description, category, location,
	date, end_date, start_time, end_time, all_day, recurrence, recurrence_end, attendees,
	created_at, updated_at`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	var endDate, recurrenceEnd sql.NullTime
	var attendees string

	err := scanner.Scan(
		&e.ID, &e.HouseholdID, &e.Title, &e.Description, &e.Category, &e.Location,
		&e.Date, &endDate, &e.StartTime, &e.EndTime, &e.AllDay,
		&e.Recurrence, &recurrenceEnd, &attendees,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if endDate.Valid {
		e.EndDate = &endDate.Time
	}
	if recurrenceEnd.Valid {
		e.RecurrenceEnd = &recurrenceEnd.Time
	}
	e.Attendees = unmarshalList(attendees)
	return &e, nil
}

func (s *EventStore) Create(e model.CalendarEvent) (*model.CalendarEvent, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Recurrence == "" {
		e.Recurrence = model.RecurNone
	}

	_, err := s.db.Exec(
		`INSERT INTO calendar_events (id, household_id, title, description, category, location,
			date, end_date, start_time, end_time, all_day, recurrence, recurrence_end, attendees)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.HouseholdID, e.Title, e.Description, e.Category, e.Location,
		e.Date.UTC(), nullTime(e.EndDate), e.StartTime, e.EndTime, e.AllDay,
		e.Recurrence, nullTime(e.RecurrenceEnd), marshalList(e.Attendees),
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return s.GetByID(e.ID)
}

func (s *EventStore) GetByID(id string) (*model.CalendarEvent, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM calendar_events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *EventStore) ListByHousehold(householdID string) ([]model.CalendarEvent, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM calendar_events WHERE household_id = ? ORDER BY date ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListCandidatesInWindow returns stored events that could contribute an
// instance inside [start, end]: events starting before the window end whose
// recurrence has not ended before the window start, plus multi-day events
// spilling into the window. Expansion decides the exact instances.
func (s *EventStore) ListCandidatesInWindow(householdID string, start, end time.Time) ([]model.CalendarEvent, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM calendar_events
		 WHERE household_id = ? AND date <= ?
		   AND (recurrence != 'none'
		        OR date >= ?
		        OR (end_date IS NOT NULL AND end_date >= ?))
		 ORDER BY date ASC`,
		householdID, end.UTC(), start.UTC(), start.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list events in window: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]model.CalendarEvent, error) {
	var events []model.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Update persists the full event record. Edits to a recurring series always
// land here, on the parent id; projected instances are never stored.
func (s *EventStore) Update(e model.CalendarEvent) (*model.CalendarEvent, error) {
	_, err := s.db.Exec(
		`UPDATE calendar_events SET title = ?, description = ?, category = ?, location = ?,
			date = ?, end_date = ?, start_time = ?, end_time = ?, all_day = ?,
			recurrence = ?, recurrence_end = ?, attendees = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		e.Title, e.Description, e.Category, e.Location,
		e.Date.UTC(), nullTime(e.EndDate), e.StartTime, e.EndTime, e.AllDay,
		e.Recurrence, nullTime(e.RecurrenceEnd), marshalList(e.Attendees),
		e.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return s.GetByID(e.ID)
}

func (s *EventStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM calendar_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
