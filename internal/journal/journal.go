package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"clawredeem/internal/components/assert"
	"clawredeem/internal/components/chrono"
	"clawredeem/internal/components/telemetry"
	"clawredeem/internal/journal/db"
	"clawredeem/internal/redeemer"
	"clawredeem/internal/scrapers/clawportal"
	"clawredeem/pkg/migrations"
)

const (
	report_journal_write = "journal.write"
	report_journal_order = "journal.event-outside-run"
)

var ErrRunNotFound = errors.New("run not found")

// Journal keeps a record of every run and every submitted code in sqlite. It
// is a redeemer.Sink; write failures are reported and never stop a run.
type Journal struct {
	db     *sql.DB
	qry    *db.Queries
	makeTx db.MakeTx
	clock  chrono.API
	tel    telemetry.API

	mu    sync.Mutex
	runId string
}

func Open(path string, clock chrono.API, tel telemetry.API) (*Journal, error) {
	assert.NotEmptyStr(path)
	sqlite, err := migrations.OpenAndMigrateDB(db.Schema, path)
	if err != nil {
		return nil, fmt.Errorf("journal %s: %w", path, err)
	}
	return New(sqlite, clock, tel), nil
}

// New wraps an already migrated database.
func New(sqlite *sql.DB, clock chrono.API, tel telemetry.API) *Journal {
	assert.NotNil(sqlite)
	assert.NotNil(clock)
	assert.NotNil(tel)
	return &Journal{
		db:     sqlite,
		qry:    db.New(sqlite),
		makeTx: db.NewMakeTx(sqlite),
		clock:  clock,
		tel:    telemetry.NewScopedAPI("journal", tel),
	}
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: true}
}

func (j *Journal) Emit(ctx context.Context, event redeemer.Event) {
	// the run may be aborted because ctx was cancelled, the record of that
	// still has to be written
	ctx = context.WithoutCancel(ctx)

	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.write(ctx, event)
	if err != nil {
		j.tel.ReportBroken(report_journal_write, fmt.Sprintf("%T", event), err)
	}
}

func (j *Journal) write(ctx context.Context, event redeemer.Event) error {
	if started, ok := event.(redeemer.RunStarted); ok {
		j.runId = started.RunId
		return j.qry.CreateRun(ctx, db.CreateRunParams{
			ID:      started.RunId,
			Started: started.Started.Unix(),
			Total:   int64(started.Codes),
			State:   redeemer.StateInit.String(),
		})
	}
	if j.runId == "" {
		j.tel.ReportWarning(report_journal_order, fmt.Sprintf("%T", event))
		return nil
	}

	switch e := event.(type) {
	case redeemer.PointsSnapshot:
		return j.setPoints(ctx, j.qry, e.Points)
	case redeemer.CodeSubmitted:
		outcome := db.OutcomeAccepted
		if e.Outcome.Kind == redeemer.Rejected {
			outcome = db.OutcomeRejected
		}
		return j.qry.CreateSubmission(ctx, db.CreateSubmissionParams{
			RunID:   j.runId,
			Idx:     int64(e.Index),
			Code:    e.Code,
			Outcome: outcome,
			Message: e.Outcome.Message,
			At:      j.clock.Now().Unix(),
		})
	case redeemer.CodeSkipped:
		return j.qry.CreateSubmission(ctx, db.CreateSubmissionParams{
			RunID:   j.runId,
			Idx:     int64(e.Index),
			Code:    e.Code,
			Outcome: db.OutcomeSkipped,
			Message: e.Err.Error(),
			At:      j.clock.Now().Unix(),
		})
	case redeemer.Aborted:
		defer j.endRun()
		return j.qry.FinishRun(ctx, db.FinishRunParams{
			Finished: sql.NullInt64{Int64: j.clock.Now().Unix(), Valid: true},
			State:    redeemer.StateAborted.String(),
			Reason:   sql.NullString{String: e.Err.Error(), Valid: true},
			ID:       j.runId,
		})
	case redeemer.Finished:
		defer j.endRun()
		return j.finish(ctx, e.Summary)
	}
	return nil
}

func (j *Journal) endRun() {
	j.runId = ""
}

func (j *Journal) setPoints(ctx context.Context, qry *db.Queries, points clawportal.ClawPoints) error {
	return qry.SetRunPoints(ctx, db.SetRunPointsParams{
		PointsTotal:      nullInt(points.Total),
		PointsRedeemable: nullInt(points.Redeemable),
		PointsClaimed:    nullInt(points.Claimed),
		ID:               j.runId,
	})
}

func (j *Journal) finish(ctx context.Context, summary redeemer.Summary) error {
	tx, discard, commit, err := j.makeTx(ctx)
	if err != nil {
		return err
	}
	defer discard()

	if summary.Points != nil {
		err = j.setPoints(ctx, tx, *summary.Points)
		if err != nil {
			return err
		}
	}
	err = tx.FinishRun(ctx, db.FinishRunParams{
		Finished: sql.NullInt64{Int64: summary.Finished.Unix(), Valid: true},
		State:    summary.State.String(),
		ID:       j.runId,
	})
	if err != nil {
		return err
	}
	return commit()
}

// Run is one recorded run. Finished is zero and State is "init" for a run
// that never ended (the process died).
type Run struct {
	Id       string
	Started  time.Time
	Finished time.Time
	Total    int
	State    string
	Reason   string
	Points   *clawportal.ClawPoints
}

type Submission struct {
	Index   int
	Code    string
	Outcome string
	Message string
	At      time.Time
}

func runFromRow(row db.Run) Run {
	run := Run{
		Id:      row.ID,
		Started: time.Unix(row.Started, 0),
		Total:   int(row.Total),
		State:   row.State,
		Reason:  row.Reason.String,
	}
	if row.Finished.Valid {
		run.Finished = time.Unix(row.Finished.Int64, 0)
	}
	if row.PointsTotal.Valid {
		run.Points = &clawportal.ClawPoints{
			Total:      int(row.PointsTotal.Int64),
			Redeemable: int(row.PointsRedeemable.Int64),
			Claimed:    int(row.PointsClaimed.Int64),
		}
	}
	return run
}

// Runs lists at most limit runs, newest first.
func (j *Journal) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := j.qry.ListRuns(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out := make([]Run, len(rows))
	for i, row := range rows {
		out[i] = runFromRow(row)
	}
	return out, nil
}

func (j *Journal) Run(ctx context.Context, runId string) (Run, error) {
	row, err := j.qry.GetRun(ctx, runId)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runId)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return runFromRow(row), nil
}

func (j *Journal) Submissions(ctx context.Context, runId string) ([]Submission, error) {
	rows, err := j.qry.GetSubmissions(ctx, runId)
	if err != nil {
		return nil, fmt.Errorf("get submissions: %w", err)
	}
	out := make([]Submission, len(rows))
	for i, row := range rows {
		out[i] = Submission{
			Index:   int(row.Idx),
			Code:    row.Code,
			Outcome: row.Outcome,
			Message: row.Message,
			At:      time.Unix(row.At, 0),
		}
	}
	return out, nil
}

// AcceptedCodes returns every code any run got accepted, so a codes file can
// be checked against it before submitting again.
func (j *Journal) AcceptedCodes(ctx context.Context) (map[string]bool, error) {
	codes, err := j.qry.AcceptedCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("accepted codes: %w", err)
	}
	out := make(map[string]bool, len(codes))
	for _, code := range codes {
		out[code] = true
	}
	return out, nil
}
