package reminder

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ewhitfield/tend/internal/model"
)

// armWindow bounds how far ahead a timer may be armed. Items due further
// out are picked up by a later sweep; this keeps staleness after a missed
// timer (process asleep, restart) to at most one window.
const armWindow = 24 * time.Hour

// Key identifies an armed timer: one per item per notification category.
type Key struct {
	ItemID   string
	Category string
}

// Scheduler arms at-most-once reminder timers keyed by item and category.
// Re-arming a key cancels the previous timer first, so a due-date change
// never produces duplicate notifications.
type Scheduler struct {
	mu     sync.Mutex
	timers map[Key]*time.Timer
	logger *slog.Logger
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		timers: make(map[Key]*time.Timer),
		logger: logger,
	}
}

// parseClock parses an "HH:MM" string into minutes since midnight.
// Malformed values report ok=false and the caller treats the window as
// disabled.
func parseClock(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' ||
		s[3] < '0' || s[3] > '9' || s[4] < '0' || s[4] > '9' ||
		h > 23 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// InQuietHours reports whether now falls inside the preference's quiet
// window. A window whose start is at or after its end wraps past midnight.
func InQuietHours(prefs model.NotificationPrefs, now time.Time) bool {
	start, okS := parseClock(prefs.QuietHoursStart)
	end, okE := parseClock(prefs.QuietHoursEnd)
	if !okS || !okE {
		return false
	}

	minutes := now.Hour()*60 + now.Minute()
	if start < end {
		return minutes >= start && minutes < end
	}
	return minutes >= start || minutes < end
}

// ShouldNotify applies the preference gates: master switch, per-category
// toggle, and quiet hours.
func ShouldNotify(category string, prefs model.NotificationPrefs, now time.Time) bool {
	if !prefs.Enabled {
		return false
	}
	if !prefs.CategoryPrefsFor(category).Enabled {
		return false
	}
	return !InQuietHours(prefs, now)
}

// Arm schedules fire to run at the item's lead-time offset before dueAt.
// It returns false without arming when preferences suppress the category,
// the notify time has already passed, or it is beyond the look-ahead
// window. A previous timer for the same key is always cancelled first.
func (s *Scheduler) Arm(itemID, category string, dueAt time.Time, prefs model.NotificationPrefs, now time.Time, fire func()) bool {
	if !ShouldNotify(category, prefs, now) {
		return false
	}

	lead := time.Duration(prefs.CategoryPrefsFor(category).LeadMinutes) * time.Minute
	notifyAt := dueAt.Add(-lead)

	if !notifyAt.After(now) || notifyAt.Sub(now) >= armWindow {
		return false
	}

	key := Key{ItemID: itemID, Category: category}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.timers[key]; ok {
		prev.Stop()
	}
	s.timers[key] = time.AfterFunc(notifyAt.Sub(now), func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		fire()
	})

	s.logger.Debug("reminder armed", "item_id", itemID, "category", category, "notify_at", notifyAt)
	return true
}

// Cancel stops and forgets the timer for a key. Safe to call for keys that
// were never armed or have already fired.
func (s *Scheduler) Cancel(itemID, category string) {
	key := Key{ItemID: itemID, Category: category}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

// Stop cancels every armed timer.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}

// Armed reports whether a timer is currently pending for the key.
func (s *Scheduler) Armed(itemID, category string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[Key{ItemID: itemID, Category: category}]
	return ok
}
