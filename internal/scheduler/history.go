package scheduler

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/macho715/tr-dash/internal/domain"
)

// History field names.
const (
	FieldActualStart = "actual_start"
	FieldActualEnd   = "actual_end"
	FieldProgress    = "progress_pct"
	FieldLockLevel   = "lock_level"
	FieldPin         = "pin"
	FieldState       = "state"
	FieldPlanStart   = "plan_start"
	FieldPlanEnd     = "plan_end"
	FieldES          = "calc_es"
	FieldEF          = "calc_ef"
	FieldLS          = "calc_ls"
	FieldLF          = "calc_lf"
	FieldTotalFloat  = "calc_total_float_min"
	FieldFreeFloat   = "calc_free_float_min"
)

// recorder collects history events for one run. Event ids are derived from
// the run id and sequence number.
type recorder struct {
	runNS  uuid.UUID
	runID  string
	actor  string
	at     time.Time
	events []domain.HistoryEvent
}

func newRecorder(runID, actor string, at time.Time) *recorder {
	return &recorder{runNS: uuid.MustParse(runID), runID: runID, actor: actor, at: at}
}

// record appends an event when the value actually changed.
func (r *recorder) record(activityID, field, old, new string) {
	if old == new {
		return
	}
	seq := len(r.events) + 1
	r.events = append(r.events, domain.HistoryEvent{
		ID:         uuid.NewSHA1(r.runNS, []byte(strconv.Itoa(seq))).String(),
		RunID:      r.runID,
		Seq:        seq,
		At:         r.at,
		Actor:      r.actor,
		ActivityID: activityID,
		Field:      field,
		Old:        old,
		New:        new,
	})
}

func (r *recorder) recordTiming(activityID string, old, new domain.Timing) {
	r.record(activityID, FieldES, formatTime(old.ES), formatTime(new.ES))
	r.record(activityID, FieldEF, formatTime(old.EF), formatTime(new.EF))
	r.record(activityID, FieldLS, formatTime(old.LS), formatTime(new.LS))
	r.record(activityID, FieldLF, formatTime(old.LF), formatTime(new.LF))
	r.record(activityID, FieldTotalFloat, formatTimingMin(old, old.TotalFloatMin), formatTimingMin(new, new.TotalFloatMin))
	r.record(activityID, FieldFreeFloat, formatTimingMin(old, old.FreeFloatMin), formatTimingMin(new, new.FreeFloatMin))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// formatTimingMin renders a float value, empty for timing never computed.
func formatTimingMin(t domain.Timing, v int64) string {
	if t.ES.IsZero() {
		return ""
	}
	return strconv.FormatInt(v, 10)
}
