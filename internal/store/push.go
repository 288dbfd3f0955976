package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ewhitfield/tend/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

const subCols = `id, member_id, household_id, endpoint, p256dh_key, auth_key, device_name, created_at`

func scanSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := scanner.Scan(&sub.ID, &sub.MemberID, &sub.HouseholdID, &sub.Endpoint,
		&sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscription upserts by endpoint: re-subscribing from the same
// browser refreshes the keys instead of duplicating the row.
func (s *PushStore) CreateSubscription(memberID, householdID, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error) {
	_, err := s.db.Exec(
		`INSERT INTO push_subscriptions (id, member_id, household_id, endpoint, p256dh_key, auth_key, device_name)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET p256dh_key = excluded.p256dh_key, auth_key = excluded.auth_key, device_name = excluded.device_name`,
		uuid.NewString(), memberID, householdID, endpoint, p256dh, auth, deviceName,
	)
	if err != nil {
		return nil, fmt.Errorf("create push subscription: %w", err)
	}
	return s.GetByEndpoint(endpoint)
}

func (s *PushStore) GetByEndpoint(endpoint string) (*model.PushSubscription, error) {
	row := s.db.QueryRow(`SELECT `+subCols+` FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return sub, nil
}

func (s *PushStore) ListByMember(memberID string) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT `+subCols+` FROM push_subscriptions WHERE member_id = ? ORDER BY created_at DESC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions by member: %w", err)
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

func (s *PushStore) ListByHousehold(householdID string) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT `+subCols+` FROM push_subscriptions WHERE household_id = ? ORDER BY created_at DESC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions by household: %w", err)
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

func collectSubscriptions(rows *sql.Rows) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (s *PushStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

// ListHouseholdIDs returns distinct household ids that have push
// subscriptions. The reminder sweep iterates these.
func (s *PushStore) ListHouseholdIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT household_id FROM push_subscriptions`)
	if err != nil {
		return nil, fmt.Errorf("list push household ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan household id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Notification preferences ---

// GetPrefs returns the member's saved preferences, or the defaults when
// none are saved yet. The result is always fully populated.
func (s *PushStore) GetPrefs(memberID string) (model.NotificationPrefs, error) {
	p := model.DefaultPrefs()
	err := s.db.QueryRow(
		`SELECT enabled, tasks_enabled, tasks_lead_minutes, events_enabled, events_lead_minutes,
			quiet_hours_start, quiet_hours_end, sound, vibration
		 FROM notification_prefs WHERE member_id = ?`, memberID,
	).Scan(&p.Enabled, &p.Tasks.Enabled, &p.Tasks.LeadMinutes, &p.Events.Enabled, &p.Events.LeadMinutes,
		&p.QuietHoursStart, &p.QuietHoursEnd, &p.Sound, &p.Vibration)
	if err == sql.ErrNoRows {
		return model.DefaultPrefs(), nil
	}
	if err != nil {
		return model.NotificationPrefs{}, fmt.Errorf("get notification prefs: %w", err)
	}
	return p, nil
}

func (s *PushStore) SavePrefs(memberID, householdID string, p model.NotificationPrefs) error {
	_, err := s.db.Exec(
		`INSERT INTO notification_prefs (member_id, household_id, enabled,
			tasks_enabled, tasks_lead_minutes, events_enabled, events_lead_minutes,
			quiet_hours_start, quiet_hours_end, sound, vibration)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(member_id) DO UPDATE SET
			enabled = excluded.enabled,
			tasks_enabled = excluded.tasks_enabled,
			tasks_lead_minutes = excluded.tasks_lead_minutes,
			events_enabled = excluded.events_enabled,
			events_lead_minutes = excluded.events_lead_minutes,
			quiet_hours_start = excluded.quiet_hours_start,
			quiet_hours_end = excluded.quiet_hours_end,
			sound = excluded.sound,
			vibration = excluded.vibration,
			updated_at = CURRENT_TIMESTAMP`,
		memberID, householdID, p.Enabled,
		p.Tasks.Enabled, p.Tasks.LeadMinutes, p.Events.Enabled, p.Events.LeadMinutes,
		p.QuietHoursStart, p.QuietHoursEnd, p.Sound, p.Vibration,
	)
	if err != nil {
		return fmt.Errorf("save notification prefs: %w", err)
	}
	return nil
}

// --- Sent log (at-most-once per item/category/lead) ---

func (s *PushStore) WasSent(householdID, notificationType, referenceID string, leadMinutes int) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sent_log
		 WHERE household_id = ? AND notification_type = ? AND reference_id = ? AND lead_minutes = ?`,
		householdID, notificationType, referenceID, leadMinutes,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check sent log: %w", err)
	}
	return count > 0, nil
}

func (s *PushStore) RecordSent(householdID, notificationType, referenceID string, leadMinutes int) error {
	_, err := s.db.Exec(
		`INSERT INTO sent_log (household_id, notification_type, reference_id, lead_minutes)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		householdID, notificationType, referenceID, leadMinutes,
	)
	if err != nil {
		return fmt.Errorf("record sent: %w", err)
	}
	return nil
}
