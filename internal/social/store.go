package social

import (
	"context"
	"fmt"
	"slices"
	"time"

	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/metrics"
	"github.com/feedora/backend/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Action is the outcome of a toggle.
type Action string

const (
	ActionAdded   Action = "added"
	ActionUpdated Action = "updated"
	ActionRemoved Action = "removed"
	// ActionUnchanged means a concurrent request changed the pair first; the
	// result reflects the state that request left behind.
	ActionUnchanged Action = "unchanged"
	// ActionNone is returned by ClearState when there was nothing to clear.
	ActionNone Action = "none"
)

// Result describes a state transition for one (actor, target) pair.
type Result struct {
	Action    Action `json:"action"`
	Kind      string `json:"kind,omitempty"`
	PriorKind string `json:"priorKind,omitempty"`

	present bool
}

// Active reports whether the pair holds a state after the call.
func (r Result) Active() bool {
	switch r.Action {
	case ActionAdded, ActionUpdated:
		return true
	case ActionUnchanged:
		return r.present
	}
	return false
}

// Relation describes one toggle table: which columns identify the pair, which
// kinds are valid, and how to build and check rows.
type Relation struct {
	// Name labels metrics and spans ("reaction", "follow", ...).
	Name string
	// Table, ActorColumn and TargetColumn locate the pair.
	Table        string
	ActorColumn  string
	TargetColumn string
	// KindColumn is empty for presence-only relations.
	KindColumn string
	// Kinds is the valid kind set; nil for presence-only relations.
	Kinds []string
	// TargetName is used in NotFound messages.
	TargetName string
	// TargetExists reports whether target is present.
	TargetExists func(tx *gorm.DB, target string) (bool, error)
	// Validate rejects pairs that may never exist, such as self-follows.
	Validate func(actor, target string) error
	// NewRow returns a pointer to a model ready to insert.
	NewRow func(actor, target, kind string) any
	// KindUpdates returns the columns to write when the kind changes.
	KindUpdates func(kind string, now time.Time) map[string]any
}

func (r Relation) presenceOnly() bool {
	return r.KindColumn == ""
}

// Store applies toggle semantics to one Relation.
type Store struct {
	db  *gorm.DB
	rel Relation
}

// NewStore builds a Store for rel.
func NewStore(db *gorm.DB, rel Relation) *Store {
	return &Store{db: db, rel: rel}
}

// Relation returns the store's relation description.
func (s *Store) Relation() Relation {
	return s.rel
}

type pairRow struct {
	ID   string
	Kind string
}

// SetState applies the toggle: insert when absent, delete when the same kind
// (or, for presence relations, anything) is present, update in place when a
// different kind is present. The transition runs in one transaction against
// the pair's unique index, so a racing duplicate never creates a second row.
func (s *Store) SetState(ctx context.Context, actor, target, kind string) (res Result, err error) {
	if actor == "" {
		return res, apperrors.ErrUnauthenticated
	}
	if s.rel.presenceOnly() {
		kind = ""
	} else if !slices.Contains(s.rel.Kinds, kind) {
		return res, apperrors.Invalidf("invalid %s kind %q", s.rel.Name, kind)
	}
	if s.rel.Validate != nil {
		if err := s.rel.Validate(actor, target); err != nil {
			return res, err
		}
	}

	ctx, span := telemetry.StartSpan(ctx, "toggle."+s.rel.Name,
		attribute.String("toggle.actor", actor),
		attribute.String("toggle.target", target),
	)
	defer func() {
		span.SetAttributes(attribute.String("toggle.action", string(res.Action)))
		telemetry.EndSpan(span, err)
	}()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireTarget(tx, target); err != nil {
			return err
		}

		cur, found, err := s.current(tx, actor, target, true)
		if err != nil {
			return err
		}

		switch {
		case !found:
			res, err = s.insert(tx, actor, target, kind)
		case s.rel.presenceOnly() || cur.Kind == kind:
			res, err = s.remove(tx, actor, target, cur)
		default:
			res, err = s.update(tx, actor, target, cur, kind)
		}
		return err
	})
	if err != nil {
		return Result{}, err
	}

	metrics.Get().TogglesTotal.WithLabelValues(s.rel.Name, string(res.Action)).Inc()
	return res, nil
}

// ClearState removes the pair's state if any. It is idempotent.
func (s *Store) ClearState(ctx context.Context, actor, target string) (Result, error) {
	if actor == "" {
		return Result{}, apperrors.ErrUnauthenticated
	}

	var res Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, found, err := s.current(tx, actor, target, true)
		if err != nil || !found {
			res = Result{Action: ActionNone}
			return err
		}
		res, err = s.remove(tx, actor, target, cur)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	if res.Action != ActionNone {
		metrics.Get().TogglesTotal.WithLabelValues(s.rel.Name, string(res.Action)).Inc()
	}
	return res, nil
}

// GetState returns the pair's kind and whether any state exists. Presence
// relations report an empty kind.
func (s *Store) GetState(ctx context.Context, actor, target string) (string, bool, error) {
	if actor == "" {
		return "", false, nil
	}
	cur, found, err := s.current(s.db.WithContext(ctx), actor, target, false)
	return cur.Kind, found, err
}

func (s *Store) requireTarget(tx *gorm.DB, target string) error {
	if s.rel.TargetExists == nil {
		return nil
	}
	ok, err := s.rel.TargetExists(tx, target)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", s.rel.TargetName, err)
	}
	if !ok {
		return apperrors.NotFoundf(s.rel.TargetName)
	}
	return nil
}

func (s *Store) current(tx *gorm.DB, actor, target string, lock bool) (pairRow, bool, error) {
	cols := "id"
	if !s.rel.presenceOnly() {
		cols = "id, " + s.rel.KindColumn + " AS kind"
	}

	q := tx.Table(s.rel.Table).Select(cols).
		Where(s.rel.ActorColumn+" = ? AND "+s.rel.TargetColumn+" = ?", actor, target).
		Limit(1)
	if lock && tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rows []pairRow
	if err := q.Scan(&rows).Error; err != nil {
		return pairRow{}, false, fmt.Errorf("read %s state: %w", s.rel.Name, err)
	}
	if len(rows) == 0 {
		return pairRow{}, false, nil
	}
	return rows[0], true, nil
}

// reread reports the pair's state after losing a race.
func (s *Store) reread(tx *gorm.DB, actor, target string) (Result, error) {
	cur, found, err := s.current(tx, actor, target, false)
	if err != nil {
		return Result{}, err
	}
	return Result{Action: ActionUnchanged, Kind: cur.Kind, present: found}, nil
}

func (s *Store) insert(tx *gorm.DB, actor, target, kind string) (Result, error) {
	row := s.rel.NewRow(actor, target, kind)
	ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if ins.Error != nil {
		return Result{}, fmt.Errorf("insert %s: %w", s.rel.Name, ins.Error)
	}
	if ins.RowsAffected == 0 {
		return s.reread(tx, actor, target)
	}
	return Result{Action: ActionAdded, Kind: kind}, nil
}

func (s *Store) remove(tx *gorm.DB, actor, target string, cur pairRow) (Result, error) {
	del := tx.Exec("DELETE FROM "+s.rel.Table+" WHERE id = ?", cur.ID)
	if del.Error != nil {
		return Result{}, fmt.Errorf("delete %s: %w", s.rel.Name, del.Error)
	}
	if del.RowsAffected == 0 {
		return s.reread(tx, actor, target)
	}
	return Result{Action: ActionRemoved, PriorKind: cur.Kind}, nil
}

func (s *Store) update(tx *gorm.DB, actor, target string, cur pairRow, kind string) (Result, error) {
	// Compare-and-swap on the prior kind.
	upd := tx.Table(s.rel.Table).
		Where("id = ? AND "+s.rel.KindColumn+" = ?", cur.ID, cur.Kind).
		Updates(s.rel.KindUpdates(kind, tx.NowFunc()))
	if upd.Error != nil {
		return Result{}, fmt.Errorf("update %s: %w", s.rel.Name, upd.Error)
	}
	if upd.RowsAffected == 0 {
		return s.reread(tx, actor, target)
	}
	return Result{Action: ActionUpdated, Kind: kind, PriorKind: cur.Kind}, nil
}

// ExistsIn returns a TargetExists func that checks table.id.
func ExistsIn(table string) func(tx *gorm.DB, id string) (bool, error) {
	return func(tx *gorm.DB, id string) (bool, error) {
		var n int64
		err := tx.Table(table).Where("id = ?", id).Limit(1).Count(&n).Error
		return n > 0, err
	}
}
