package model

// CategoryPrefs controls notifications for a single category.
type CategoryPrefs struct {
	Enabled     bool `json:"enabled"`
	LeadMinutes int  `json:"lead_minutes"`
}

// NotificationPrefs is the fully populated notification configuration for a
// household member. It is always constructed complete (see DefaultPrefs);
// nothing downstream falls back to implicit defaults.
type NotificationPrefs struct {
	Enabled bool `json:"enabled"`

	Tasks  CategoryPrefs `json:"tasks"`
	Events CategoryPrefs `json:"events"`

	// QuietHoursStart/End are "HH:MM" strings. A window whose start is at or
	// after its end wraps past midnight.
	QuietHoursStart string `json:"quiet_hours_start"`
	QuietHoursEnd   string `json:"quiet_hours_end"`

	Sound     bool `json:"sound"`
	Vibration bool `json:"vibration"`
}

// DefaultPrefs returns the configuration used when a member has not saved
// preferences yet.
func DefaultPrefs() NotificationPrefs {
	return NotificationPrefs{
		Enabled:         true,
		Tasks:           CategoryPrefs{Enabled: true, LeadMinutes: 60},
		Events:          CategoryPrefs{Enabled: true, LeadMinutes: 30},
		QuietHoursStart: "22:00",
		QuietHoursEnd:   "07:00",
		Sound:           true,
		Vibration:       true,
	}
}

// CategoryPrefsFor returns the per-category block for a notification type.
// Unknown categories report disabled.
func (p NotificationPrefs) CategoryPrefsFor(category string) CategoryPrefs {
	switch category {
	case NotifTypeTaskDue:
		return p.Tasks
	case NotifTypeEventReminder:
		return p.Events
	}
	return CategoryPrefs{}
}
