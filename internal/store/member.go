package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ewhitfield/tend/internal/model"
)

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

const memberCols = `id, household_id, name, color, avatar_emoji, sort_order, created_at, updated_at`

func scanMember(scanner interface{ Scan(...any) error }) (*model.HouseholdMember, error) {
	var m model.HouseholdMember
	err := scanner.Scan(&m.ID, &m.HouseholdID, &m.Name, &m.Color, &m.AvatarEmoji,
		&m.SortOrder, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MemberStore) Create(m model.HouseholdMember) (*model.HouseholdMember, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	_, err := s.db.Exec(
		`INSERT INTO household_members (id, household_id, name, color, avatar_emoji, sort_order)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.HouseholdID, m.Name, m.Color, m.AvatarEmoji, m.SortOrder,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	return s.GetByID(m.ID)
}

func (s *MemberStore) GetByID(id string) (*model.HouseholdMember, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM household_members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *MemberStore) ListByHousehold(householdID string) ([]model.HouseholdMember, error) {
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM household_members WHERE household_id = ? ORDER BY sort_order ASC, name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.HouseholdMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// MemberIDs returns the ids of a household's members in sort order.
// The rotation "anyone" pick draws from this pool.
func (s *MemberStore) MemberIDs(householdID string) ([]string, error) {
	members, err := s.ListByHousehold(householdID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (s *MemberStore) Update(m model.HouseholdMember) (*model.HouseholdMember, error) {
	_, err := s.db.Exec(
		`UPDATE household_members SET name = ?, color = ?, avatar_emoji = ?, sort_order = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		m.Name, m.Color, m.AvatarEmoji, m.SortOrder, m.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return s.GetByID(m.ID)
}

func (s *MemberStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM household_members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}
