package reminder

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ewhitfield/tend/internal/model"
	"github.com/ewhitfield/tend/internal/push"
	"github.com/ewhitfield/tend/internal/recurrence"
)

// TaskLister yields incomplete tasks due before a cutoff.
type TaskLister interface {
	ListDueBefore(cutoff time.Time) ([]model.Task, error)
}

// EventLister yields events that could contribute an instance in a window.
type EventLister interface {
	ListCandidatesInWindow(householdID string, start, end time.Time) ([]model.CalendarEvent, error)
}

// PushDirectory is the subscription and preference store the sweep reads
// from and records deliveries into.
type PushDirectory interface {
	ListHouseholdIDs() ([]string, error)
	ListByHousehold(householdID string) ([]model.PushSubscription, error)
	ListByMember(memberID string) ([]model.PushSubscription, error)
	GetPrefs(memberID string) (model.NotificationPrefs, error)
	WasSent(householdID, notificationType, referenceID string, leadMinutes int) (bool, error)
	RecordSent(householdID, notificationType, referenceID string, leadMinutes int) error
	DeleteByEndpoint(endpoint string) error
}

// Sender delivers a payload to one subscription.
type Sender interface {
	Send(sub *model.PushSubscription, payload push.Payload) error
}

// Sweeper periodically walks every household with push subscriptions and
// arms reminder timers for tasks and event instances falling due within
// the look-ahead window. Fired timers deliver through the Sender, pruning
// subscriptions the push service reports as gone.
type Sweeper struct {
	tasks  TaskLister
	events EventLister
	pushes PushDirectory
	sender Sender
	sched  *Scheduler
	cron   *cron.Cron
	logger *slog.Logger
	now    func() time.Time
}

func NewSweeper(tasks TaskLister, events EventLister, pushes PushDirectory, sender Sender, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		tasks:  tasks,
		events: events,
		pushes: pushes,
		sender: sender,
		sched:  NewScheduler(logger),
		cron:   cron.New(),
		logger: logger.With("component", "reminder"),
		now:    time.Now,
	}
}

// Start runs an immediate sweep and then re-sweeps on a fixed cadence.
// Periodic re-sweeping re-arms anything lost to a restart and picks up
// items that have newly entered the look-ahead window.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc("@every 15m", s.Sweep); err != nil {
		return fmt.Errorf("schedule reminder sweep: %w", err)
	}
	s.cron.Start()
	go s.Sweep()
	return nil
}

// Stop halts the cron loop, waits for an in-flight sweep, and cancels all
// armed timers.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.sched.Stop()
}

// Sweep arms reminders for everything due within the look-ahead window,
// across all households that have at least one push subscription.
func (s *Sweeper) Sweep() {
	now := s.now()

	households, err := s.pushes.ListHouseholdIDs()
	if err != nil {
		s.logger.Error("list households for sweep", "error", err)
		return
	}
	if len(households) == 0 {
		return
	}

	dueTasks, err := s.tasks.ListDueBefore(now.Add(armWindow))
	if err != nil {
		s.logger.Error("list due tasks for sweep", "error", err)
		return
	}
	tasksByHousehold := make(map[string][]model.Task)
	for _, t := range dueTasks {
		tasksByHousehold[t.HouseholdID] = append(tasksByHousehold[t.HouseholdID], t)
	}

	for _, householdID := range households {
		members, err := s.householdMembers(householdID)
		if err != nil {
			s.logger.Error("list subscribers", "household_id", householdID, "error", err)
			continue
		}
		if len(members) == 0 {
			continue
		}

		s.sweepTasks(householdID, tasksByHousehold[householdID], members, now)
		s.sweepEvents(householdID, members, now)
	}
}

// householdMembers returns the distinct member ids with a subscription in
// the household. Members without a device get nothing armed.
func (s *Sweeper) householdMembers(householdID string) ([]string, error) {
	subs, err := s.pushes.ListByHousehold(householdID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var members []string
	for _, sub := range subs {
		if !seen[sub.MemberID] {
			seen[sub.MemberID] = true
			members = append(members, sub.MemberID)
		}
	}
	return members, nil
}

func (s *Sweeper) sweepTasks(householdID string, tasks []model.Task, members []string, now time.Time) {
	for _, t := range tasks {
		task := t
		payload := push.TaskDuePayload(task)
		s.armForMembers(householdID, members, task.ID, model.NotifTypeTaskDue, task.Progress.DueAt, payload, now)
	}
}

func (s *Sweeper) sweepEvents(householdID string, members []string, now time.Time) {
	windowEnd := now.Add(armWindow)
	candidates, err := s.events.ListCandidatesInWindow(householdID, now, windowEnd)
	if err != nil {
		s.logger.Error("list events for sweep", "household_id", householdID, "error", err)
		return
	}

	for _, ev := range candidates {
		for _, inst := range recurrence.Expand(ev, now, windowEnd) {
			startAt := eventStart(inst.CalendarEvent)
			if !startAt.After(now) || startAt.After(windowEnd) {
				continue
			}
			s.armForMembers(householdID, members, inst.ID, model.NotifTypeEventReminder, startAt, push.EventReminderPayload(inst, startAt), now)
		}
	}
}

// armForMembers arms one timer per member so that each member's own lead
// time and quiet hours apply. The timer key folds the member in, keeping
// the same item armed independently per member.
func (s *Sweeper) armForMembers(householdID string, members []string, itemID, category string, dueAt time.Time, payload push.Payload, now time.Time) {
	for _, memberID := range members {
		prefs, err := s.pushes.GetPrefs(memberID)
		if err != nil {
			s.logger.Error("load prefs", "member_id", memberID, "error", err)
			continue
		}

		member := memberID
		lead := prefs.CategoryPrefsFor(category).LeadMinutes
		s.sched.Arm(memberItem(member, itemID), category, dueAt, prefs, now, func() {
			s.deliver(householdID, member, category, itemID, lead, payload)
		})
	}
}

// deliver re-checks preferences at fire time, dedupes against the sent
// log, and pushes to every one of the member's devices.
func (s *Sweeper) deliver(householdID, memberID, category, itemID string, leadMinutes int, payload push.Payload) {
	prefs, err := s.pushes.GetPrefs(memberID)
	if err != nil {
		s.logger.Error("load prefs at fire", "member_id", memberID, "error", err)
		return
	}
	if !ShouldNotify(category, prefs, s.now()) {
		return
	}

	refID := memberItem(memberID, itemID)
	sent, err := s.pushes.WasSent(householdID, category, refID, leadMinutes)
	if err != nil {
		s.logger.Error("check sent log", "reference_id", refID, "error", err)
		return
	}
	if sent {
		return
	}

	subs, err := s.pushes.ListByMember(memberID)
	if err != nil {
		s.logger.Error("list member subscriptions", "member_id", memberID, "error", err)
		return
	}

	delivered := false
	for i := range subs {
		err := s.sender.Send(&subs[i], payload)
		if errors.Is(err, push.ErrExpired) {
			s.logger.Info("pruning expired subscription", "endpoint", subs[i].Endpoint)
			if err := s.pushes.DeleteByEndpoint(subs[i].Endpoint); err != nil {
				s.logger.Error("delete expired subscription", "error", err)
			}
			continue
		}
		if err != nil {
			s.logger.Error("send push", "member_id", memberID, "error", err)
			continue
		}
		delivered = true
	}

	if delivered {
		if err := s.pushes.RecordSent(householdID, category, refID, leadMinutes); err != nil {
			s.logger.Error("record sent", "reference_id", refID, "error", err)
		}
	}
}

// CancelTask drops any pending task reminder for the given members.
// Called when a task is completed, skipped, or deleted.
func (s *Sweeper) CancelTask(taskID string, memberIDs []string) {
	for _, m := range memberIDs {
		s.sched.Cancel(memberItem(m, taskID), model.NotifTypeTaskDue)
	}
}

// CancelEvent drops any pending reminder for an event or instance.
func (s *Sweeper) CancelEvent(eventID string, memberIDs []string) {
	for _, m := range memberIDs {
		s.sched.Cancel(memberItem(m, eventID), model.NotifTypeEventReminder)
	}
}

func memberItem(memberID, itemID string) string {
	return memberID + "/" + itemID
}

// eventStart resolves the concrete start of an instance: its date plus the
// clock start time, or midnight for all-day events.
func eventStart(ev model.CalendarEvent) time.Time {
	if ev.AllDay || ev.StartTime == "" {
		return ev.Date
	}
	if minutes, ok := parseClock(ev.StartTime); ok {
		return ev.Date.Add(time.Duration(minutes) * time.Minute)
	}
	return ev.Date
}
