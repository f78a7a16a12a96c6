package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/macho715/tr-dash/internal/db"
	"github.com/macho715/tr-dash/internal/domain"
)

type SQLiteScheduleRepo struct {
	db db.DBTX
}

func NewSQLiteScheduleRepo(conn db.DBTX) *SQLiteScheduleRepo {
	return &SQLiteScheduleRepo{db: conn}
}

type constraintRow struct {
	Kind      domain.ConstraintKind `json:"kind"`
	NotBefore *time.Time            `json:"not_before,omitempty"`
	NotAfter  *time.Time            `json:"not_after,omitempty"`
}

type windowRow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type assignmentRow struct {
	ResourceID string     `json:"resource_id"`
	Quantity   int        `json:"quantity"`
	Window     *windowRow `json:"window,omitempty"`
}

const activityColumns = `id, name, type, trip_id, transport_unit_id, location_id,
	state, lock_level, priority, plan_start, plan_end, duration_min, duration_mode,
	actual_start, actual_end, progress_pct, calc_es, calc_ef, calc_ls, calc_lf,
	total_float_min, free_float_min, pin_start, pin_reason, hold_reason,
	constraints_json, resources_json`

func (r *SQLiteScheduleRepo) Version(ctx context.Context) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM schedule_state WHERE id = 1`).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("schedule state: %w", ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("reading schedule version: %w", err)
	}
	return v, nil
}

func (r *SQLiteScheduleRepo) Load(ctx context.Context) (*domain.Snapshot, error) {
	s := domain.NewSnapshot()

	var epoch sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT version, epoch FROM schedule_state WHERE id = 1`).Scan(&s.Version, &epoch)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("schedule state: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading schedule state: %w", err)
	}
	s.Epoch = parseTime(epoch)

	if err := r.loadActivities(ctx, s); err != nil {
		return nil, err
	}
	if err := r.loadDependencies(ctx, s); err != nil {
		return nil, err
	}
	if err := r.loadResources(ctx, s); err != nil {
		return nil, err
	}
	if err := r.loadGroups(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SQLiteScheduleRepo) loadActivities(ctx context.Context, s *domain.Snapshot) error {
	rows, err := r.db.QueryContext(ctx, `SELECT `+activityColumns+` FROM activities ORDER BY id`)
	if err != nil {
		return fmt.Errorf("querying activities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return err
		}
		s.Activities[a.ID] = a
	}
	return rows.Err()
}

func scanActivity(rows *sql.Rows) (domain.Activity, error) {
	var a domain.Activity
	var planStart, planEnd, actualStart, actualEnd sql.NullString
	var es, ef, ls, lf, pinStart, holdReason sql.NullString
	var progress sql.NullInt64
	var stateStr, lockStr, modeStr, pinReason, constraintsJSON, resourcesJSON string

	err := rows.Scan(
		&a.ID, &a.Name, &a.Type, &a.TripID, &a.TransportUnitID, &a.LocationID,
		&stateStr, &lockStr, &a.Priority, &planStart, &planEnd, &a.DurationMin, &modeStr,
		&actualStart, &actualEnd, &progress, &es, &ef, &ls, &lf,
		&a.Calc.TotalFloatMin, &a.Calc.FreeFloatMin, &pinStart, &pinReason, &holdReason,
		&constraintsJSON, &resourcesJSON,
	)
	if err != nil {
		return a, fmt.Errorf("scanning activity: %w", err)
	}
	a.State = domain.ActivityState(stateStr)
	a.LockLevel = domain.LockLevel(lockStr)
	a.DurationMode = domain.DurationMode(modeStr)

	a.Plan = domain.Window{Start: parseTime(planStart), End: parseTime(planEnd)}
	a.Calc.ES, a.Calc.EF = parseTime(es), parseTime(ef)
	a.Calc.LS, a.Calc.LF = parseTime(ls), parseTime(lf)

	if actualStart.Valid || actualEnd.Valid || progress.Valid {
		a.Actual = &domain.Actual{
			Start:       parseTime(actualStart),
			End:         parseNullableTime(actualEnd, timeLayout),
			ProgressPct: int(progress.Int64),
		}
	}
	if pinStart.Valid {
		a.Pin = &domain.ReflowPin{Start: parseTime(pinStart), Reason: pinReason}
	}
	if holdReason.Valid {
		a.Hold = &domain.RiskHold{Reason: holdReason.String}
	}

	var constraints []constraintRow
	if err := unmarshalJSON(constraintsJSON, &constraints); err != nil {
		return a, fmt.Errorf("activity %s constraints: %w", a.ID, err)
	}
	for _, c := range constraints {
		a.Constraints = append(a.Constraints, domain.Constraint{Kind: c.Kind, NotBefore: c.NotBefore, NotAfter: c.NotAfter})
	}

	var assignments []assignmentRow
	if err := unmarshalJSON(resourcesJSON, &assignments); err != nil {
		return a, fmt.Errorf("activity %s resources: %w", a.ID, err)
	}
	for _, ra := range assignments {
		out := domain.ResourceAssignment{ResourceID: ra.ResourceID, Quantity: ra.Quantity}
		if ra.Window != nil {
			out.Window = &domain.Window{Start: ra.Window.Start, End: ra.Window.End}
		}
		a.Resources = append(a.Resources, out)
	}
	return a, nil
}

func (r *SQLiteScheduleRepo) loadDependencies(ctx context.Context, s *domain.Snapshot) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT successor_id, predecessor_id, relation, lag_min
		 FROM activity_dependencies ORDER BY successor_id, ord`)
	if err != nil {
		return fmt.Errorf("querying dependencies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var succ, relation string
		var d domain.Dependency
		if err := rows.Scan(&succ, &d.PredecessorID, &relation, &d.LagMin); err != nil {
			return fmt.Errorf("scanning dependency: %w", err)
		}
		d.Type = domain.RelationType(relation)
		a, ok := s.Activities[succ]
		if !ok {
			continue
		}
		a.Dependencies = append(a.Dependencies, d)
		s.Activities[succ] = a
	}
	return rows.Err()
}

func (r *SQLiteScheduleRepo) loadResources(ctx context.Context, s *domain.Snapshot) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, capacity, available_start, available_end FROM resources ORDER BY id`)
	if err != nil {
		return fmt.Errorf("querying resources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var res domain.Resource
		var from, until sql.NullString
		if err := rows.Scan(&res.ID, &res.Name, &res.Capacity, &from, &until); err != nil {
			return fmt.Errorf("scanning resource: %w", err)
		}
		if from.Valid && until.Valid {
			res.Available = &domain.Window{Start: parseTime(from), End: parseTime(until)}
		}
		s.Resources[res.ID] = res
	}
	return rows.Err()
}

func (r *SQLiteScheduleRepo) loadGroups(ctx context.Context, s *domain.Snapshot) error {
	rows, err := r.db.QueryContext(ctx, `SELECT kind, id, name, exclusive FROM groups ORDER BY kind, id`)
	if err != nil {
		return fmt.Errorf("querying groups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var g domain.Group
		var exclusive int
		if err := rows.Scan(&kind, &g.ID, &g.Name, &exclusive); err != nil {
			return fmt.Errorf("scanning group: %w", err)
		}
		g.Exclusive = intToBool(exclusive)
		if m := groupMap(s, kind); m != nil {
			m[g.ID] = g
		}
	}
	return rows.Err()
}

func groupMap(s *domain.Snapshot, kind string) map[string]domain.Group {
	switch kind {
	case "trip":
		return s.Trips
	case "transport_unit":
		return s.TransportUnits
	case "location":
		return s.Locations
	}
	return nil
}

// Replace runs in its own transaction unless the repo is already bound to one.
func (r *SQLiteScheduleRepo) Replace(ctx context.Context, expectedVersion int64, s *domain.Snapshot) (int64, error) {
	conn, ok := r.db.(*sql.DB)
	if !ok {
		return r.replace(ctx, expectedVersion, s)
	}
	var version int64
	err := db.NewSQLiteUnitOfWork(conn).WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		version, err = NewSQLiteScheduleRepo(tx).replace(ctx, expectedVersion, s)
		return err
	})
	return version, err
}

func (r *SQLiteScheduleRepo) replace(ctx context.Context, expectedVersion int64, s *domain.Snapshot) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE schedule_state SET version = version + 1, epoch = ?, updated_at = ?
		 WHERE id = 1 AND version = ?`,
		timeToValue(s.Epoch), nowUTC(), expectedVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("bumping schedule version: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bumping schedule version: %w", err)
	}
	if n == 0 {
		current, err := r.Version(ctx)
		if err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w: expected version %d, store is at %d", ErrConcurrentSnapshotConflict, expectedVersion, current)
	}

	for _, table := range []string{"activity_dependencies", "activities", "resources", "groups"} {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return 0, fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for _, id := range s.ActivityIDs() {
		a := s.Activities[id]
		if err := r.insertActivity(ctx, &a); err != nil {
			return 0, err
		}
	}
	for _, id := range sortedKeys(s.Resources) {
		if err := r.insertResource(ctx, s.Resources[id]); err != nil {
			return 0, err
		}
	}
	for _, kg := range []struct {
		kind   string
		groups map[string]domain.Group
	}{{"trip", s.Trips}, {"transport_unit", s.TransportUnits}, {"location", s.Locations}} {
		for _, id := range sortedKeys(kg.groups) {
			g := kg.groups[id]
			_, err := r.db.ExecContext(ctx,
				`INSERT INTO groups (kind, id, name, exclusive) VALUES (?, ?, ?, ?)`,
				kg.kind, id, g.Name, boolToInt(g.Exclusive),
			)
			if err != nil {
				return 0, fmt.Errorf("inserting %s %s: %w", kg.kind, id, err)
			}
		}
	}
	return expectedVersion + 1, nil
}

func (r *SQLiteScheduleRepo) insertActivity(ctx context.Context, a *domain.Activity) error {
	constraints := make([]constraintRow, 0, len(a.Constraints))
	for _, c := range a.Constraints {
		constraints = append(constraints, constraintRow{Kind: c.Kind, NotBefore: c.NotBefore, NotAfter: c.NotAfter})
	}
	constraintsJSON, err := marshalJSON(constraints)
	if err != nil {
		return err
	}
	assignments := make([]assignmentRow, 0, len(a.Resources))
	for _, ra := range a.Resources {
		row := assignmentRow{ResourceID: ra.ResourceID, Quantity: ra.Quantity}
		if ra.Window != nil {
			row.Window = &windowRow{Start: ra.Window.Start, End: ra.Window.End}
		}
		assignments = append(assignments, row)
	}
	resourcesJSON, err := marshalJSON(assignments)
	if err != nil {
		return err
	}

	var actualStart, actualEnd, progress interface{}
	if a.Actual != nil {
		actualStart = timeToValue(a.Actual.Start)
		actualEnd = nullableTimeToString(a.Actual.End, timeLayout)
		progress = nullableIntToValue(&a.Actual.ProgressPct)
	}
	var pinStart interface{}
	var pinReason string
	if a.Pin != nil {
		pinStart = a.Pin.Start.UTC().Format(timeLayout)
		pinReason = a.Pin.Reason
	}
	var holdReason interface{}
	if a.Hold != nil {
		holdReason = a.Hold.Reason
	}
	lock := a.LockLevel
	if lock == "" {
		lock = domain.LockNone
	}
	mode := a.DurationMode
	if mode == "" {
		mode = domain.DurationFixed
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO activities (`+activityColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Type, a.TripID, a.TransportUnitID, a.LocationID,
		string(a.State), string(lock), a.Priority, timeToValue(a.Plan.Start), timeToValue(a.Plan.End), a.DurationMin, string(mode),
		actualStart, actualEnd, progress,
		timeToValue(a.Calc.ES), timeToValue(a.Calc.EF), timeToValue(a.Calc.LS), timeToValue(a.Calc.LF),
		a.Calc.TotalFloatMin, a.Calc.FreeFloatMin, pinStart, pinReason, holdReason,
		constraintsJSON, resourcesJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting activity %s: %w", a.ID, err)
	}

	for i, d := range a.Dependencies {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO activity_dependencies (successor_id, ord, predecessor_id, relation, lag_min)
			 VALUES (?, ?, ?, ?, ?)`,
			a.ID, i, d.PredecessorID, string(d.Type), d.LagMin,
		)
		if err != nil {
			return fmt.Errorf("inserting dependency %s -> %s: %w", d.PredecessorID, a.ID, err)
		}
	}
	return nil
}

func (r *SQLiteScheduleRepo) insertResource(ctx context.Context, res domain.Resource) error {
	var from, until interface{}
	if res.Available != nil {
		from, until = timeToValue(res.Available.Start), timeToValue(res.Available.End)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO resources (id, name, capacity, available_start, available_end) VALUES (?, ?, ?, ?, ?)`,
		res.ID, res.Name, res.Capacity, from, until,
	)
	if err != nil {
		return fmt.Errorf("inserting resource %s: %w", res.ID, err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
