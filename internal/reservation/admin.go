package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/auntor69/ewu-hub-3.0/internal/audit"
	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
	"github.com/auntor69/ewu-hub-3.0/internal/logging"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
	"github.com/auntor69/ewu-hub-3.0/internal/repository"
)

type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	SetRole(ctx context.Context, userID uuid.UUID, role model.RoleCode) error
	SetActive(ctx context.Context, userID uuid.UUID, active bool) error
	List(ctx context.Context, role model.RoleCode, limit, offset int) ([]repository.UserWithRole, int64, error)
}

type PenaltyStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.PenaltyStatus) (*model.Penalty, error)
	List(ctx context.Context, status model.PenaltyStatus, limit, offset int) ([]model.Penalty, int64, error)
}

type OpeningHoursAdminStore interface {
	OpeningHoursStore
	Upsert(ctx context.Context, days []model.OpeningHours) error
}

type AuditLogStore interface {
	List(ctx context.Context, action model.AuditAction, limit, offset int) ([]model.AuditLog, int64, error)
}

var (
	_ UserStore              = (*repository.GormUserRepository)(nil)
	_ PenaltyStore           = (*repository.GormPenaltyRepository)(nil)
	_ OpeningHoursAdminStore = (*repository.GormOpeningHoursRepository)(nil)
	_ AuditLogStore          = (*repository.GormAuditRepository)(nil)
)

// Admin holds the administrative operations. Everything except
// ListOpeningHours requires an admin actor.
type Admin struct {
	users     UserStore
	penalties PenaltyStore
	hours     OpeningHoursAdminStore
	audits    AuditLogStore
	recorder  *audit.Recorder
	log       zerolog.Logger
}

func NewAdmin(
	users UserStore,
	penalties PenaltyStore,
	hours OpeningHoursAdminStore,
	audits AuditLogStore,
	recorder *audit.Recorder,
	log zerolog.Logger,
) *Admin {
	return &Admin{
		users:     users,
		penalties: penalties,
		hours:     hours,
		audits:    audits,
		recorder:  recorder,
		log:       logging.For(log, "admin"),
	}
}

func requireAdmin(actor calendar.Actor) error {
	if !actor.Is(calendar.RoleAdmin) {
		return ErrNotAuthorized
	}
	return nil
}

func (a *Admin) record(ctx context.Context, actor calendar.Actor, action model.AuditAction, payload map[string]any) {
	uid := actor.UserID
	a.recorder.Record(ctx, audit.Entry{UserID: &uid, Action: action, Payload: payload})
}

// SetRole replaces the single role of userID.
func (a *Admin) SetRole(ctx context.Context, actor calendar.Actor, userID uuid.UUID, role model.RoleCode) (*model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	u, err := a.users.FindByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, calendar.ErrUserNotFound
		}
		return nil, queryErr("set role", err)
	}
	if err := a.users.SetRole(ctx, userID, role); err != nil {
		return nil, writeErr("set role", err)
	}

	a.log.Info().Str(logging.UserID, userID.String()).Str("role", string(role)).Msg("role changed")
	a.record(ctx, actor, model.AuditActionUserRole, map[string]any{"user_id": userID.String(), "role": role})
	return u, nil
}

func (a *Admin) ListUsers(ctx context.Context, actor calendar.Actor, role model.RoleCode, page, size int) (calendar.Page[repository.UserWithRole], error) {
	if err := requireAdmin(actor); err != nil {
		return calendar.Page[repository.UserWithRole]{}, err
	}
	if role != "" && !role.Valid() {
		return calendar.Page[repository.UserWithRole]{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	page, size = calendar.NormalizePage(page, size)
	items, total, err := a.users.List(ctx, role, size, calendar.Offset(page, size))
	if err != nil {
		return calendar.Page[repository.UserWithRole]{}, queryErr("list users", err)
	}
	return calendar.PageOf(items, page, size, total), nil
}

// SetUserActive (de)activates an account. Admins cannot deactivate
// themselves.
func (a *Admin) SetUserActive(ctx context.Context, actor calendar.Actor, userID uuid.UUID, active bool) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if !active && userID == actor.UserID {
		return fmt.Errorf("%w: cannot deactivate yourself", ErrNotAuthorized)
	}
	if err := a.users.SetActive(ctx, userID, active); err != nil {
		if repository.IsNotFound(err) {
			return calendar.ErrUserNotFound
		}
		return writeErr("set user active", err)
	}
	a.record(ctx, actor, model.AuditActionUserActive, map[string]any{"user_id": userID.String(), "active": active})
	return nil
}

func (a *Admin) ListPenalties(ctx context.Context, actor calendar.Actor, status model.PenaltyStatus, page, size int) (calendar.Page[model.Penalty], error) {
	if err := requireAdmin(actor); err != nil {
		return calendar.Page[model.Penalty]{}, err
	}
	if status != "" && !status.Valid() {
		return calendar.Page[model.Penalty]{}, ErrInvalidPenaltyStatus
	}
	page, size = calendar.NormalizePage(page, size)
	items, total, err := a.penalties.List(ctx, status, size, calendar.Offset(page, size))
	if err != nil {
		return calendar.Page[model.Penalty]{}, queryErr("list penalties", err)
	}
	return calendar.PageOf(items, page, size, total), nil
}

func (a *Admin) UpdatePenaltyStatus(ctx context.Context, actor calendar.Actor, id uuid.UUID, status model.PenaltyStatus) (*model.Penalty, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, ErrInvalidPenaltyStatus
	}
	p, err := a.penalties.UpdateStatus(ctx, id, status)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrPenaltyNotFound
		}
		return nil, writeErr("update penalty", err)
	}
	a.record(ctx, actor, model.AuditActionPenaltyUpdate, map[string]any{"penalty_id": id.String(), "status": status})
	return p, nil
}

// ListOpeningHours is readable by everyone.
func (a *Admin) ListOpeningHours(ctx context.Context) ([]calendar.DayHours, error) {
	rows, err := a.hours.List(ctx)
	if err != nil {
		return nil, queryErr("list opening hours", err)
	}
	out := make([]calendar.DayHours, 0, len(rows))
	for _, row := range rows {
		day, err := DayHoursFromModel(row)
		if err != nil {
			a.log.Warn().Err(err).Int("weekday", row.Weekday).Msg("skipping malformed opening hours")
			continue
		}
		out = append(out, day)
	}
	return out, nil
}

func (a *Admin) UpdateOpeningHours(ctx context.Context, actor calendar.Actor, days []calendar.DayHours) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	rows := make([]model.OpeningHours, 0, len(days))
	seen := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("%w: %v", calendar.ErrInvalidClock, err)
		}
		if seen[d.Weekday] {
			return fmt.Errorf("%w: %s listed twice", calendar.ErrInvalidClock, d.Weekday)
		}
		seen[d.Weekday] = true
		rows = append(rows, DayHoursToModel(d))
	}
	if err := a.hours.Upsert(ctx, rows); err != nil {
		return writeErr("update opening hours", err)
	}
	a.record(ctx, actor, model.AuditActionOpeningHoursUpdate, map[string]any{"days": len(rows)})
	return nil
}

func (a *Admin) ListAuditLogs(ctx context.Context, actor calendar.Actor, action model.AuditAction, page, size int) (calendar.Page[model.AuditLog], error) {
	if err := requireAdmin(actor); err != nil {
		return calendar.Page[model.AuditLog]{}, err
	}
	page, size = calendar.NormalizePage(page, size)
	items, total, err := a.audits.List(ctx, action, size, calendar.Offset(page, size))
	if err != nil {
		return calendar.Page[model.AuditLog]{}, queryErr("list audit logs", err)
	}
	return calendar.PageOf(items, page, size, total), nil
}

// DayHoursFromModel parses a stored row.
func DayHoursFromModel(row model.OpeningHours) (calendar.DayHours, error) {
	day := calendar.DayHours{Weekday: time.Weekday(row.Weekday), Closed: row.Closed}
	if !row.Closed {
		var err error
		if day.Open, err = calendar.ParseClock(row.Open); err != nil {
			return calendar.DayHours{}, err
		}
		if day.Close, err = calendar.ParseClock(row.Close); err != nil {
			return calendar.DayHours{}, err
		}
	}
	return day, day.Validate()
}

func DayHoursToModel(d calendar.DayHours) model.OpeningHours {
	return model.OpeningHours{
		Weekday: int(d.Weekday),
		Open:    d.Open.String(),
		Close:   d.Close.String(),
		Closed:  d.Closed,
	}
}
