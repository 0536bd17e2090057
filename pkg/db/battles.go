package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"agent-arena/pkg/analytics"
	"agent-arena/pkg/coach"
	"agent-arena/pkg/models"
	"agent-arena/pkg/scoring"

	"github.com/google/uuid"
)

const battleColumns = `id, agent_id, user_id, challenge_type, input_text, output_text,
	score_total, score_breakdown, program_id, drill_id, created_at`

const reportColumns = `id, battle_id, agent_id, strengths, weaknesses, prompt_suggestions,
	next_drills, recommended_focus, created_at, updated_at`

// RecordBattle persists a scored battle, the owning agent's new rating and
// the battle's coach report in a single transaction.
func (a *ArenaDB) RecordBattle(ctx context.Context, battle *models.Battle, report *models.CoachReportRecord, newRating int) error {
	_, err := a.RecordDrillBattle(ctx, battle, report, newRating, "")
	return err
}

// RecordDrillBattle is RecordBattle for a battle submitted as a program drill.
// When enrollmentID is set, battle.DrillID is marked complete for the
// enrollment in the same transaction, and the enrollment is completed once
// every drill of its program is done. Reports whether the program is complete.
func (a *ArenaDB) RecordDrillBattle(ctx context.Context, battle *models.Battle, report *models.CoachReportRecord, newRating int, enrollmentID string) (bool, error) {
	if battle.ID == "" {
		battle.ID = uuid.New().String()
	}
	if battle.CreatedAt.IsZero() {
		battle.CreatedAt = a.now()
	}

	breakdownJSON, err := json.Marshal(battle.ScoreBreakdown)
	if err != nil {
		return false, fmt.Errorf("failed to marshal score breakdown: %w", err)
	}

	report.BattleID = battle.ID
	report.AgentID = battle.AgentID

	var programComplete bool
	err = a.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO battles (`+battleColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			battle.ID, battle.AgentID, battle.UserID, string(battle.ChallengeType),
			battle.InputText, battle.OutputText, battle.ScoreTotal, string(breakdownJSON),
			nullString(battle.ProgramID), nullString(battle.DrillID), battle.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert battle: %w", err)
		}

		res, err := tx.ExecContext(ctx, `UPDATE agents SET rating = ?, updated_at = ? WHERE id = ?`,
			newRating, battle.CreatedAt, battle.AgentID)
		if err != nil {
			return fmt.Errorf("failed to update agent rating: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("failed to update agent rating: agent %s not found", battle.AgentID)
		}

		if err := upsertCoachReport(ctx, tx, report, battle.CreatedAt); err != nil {
			return err
		}

		if enrollmentID == "" {
			return nil
		}
		programComplete, err = completeDrill(ctx, tx, enrollmentID, battle, a.now())
		return err
	})

	return programComplete, err
}

// GetBattle retrieves a battle by ID. Returns nil if not found.
func (a *ArenaDB) GetBattle(ctx context.Context, id string) (*models.Battle, error) {
	row := a.db.QueryRowContext(ctx, `SELECT `+battleColumns+` FROM battles WHERE id = ?`, id)

	battle, err := scanBattle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get battle: %w", err)
	}
	return battle, nil
}

// ListBattlesByAgent returns an agent's battles, newest first, up to limit.
// A limit of zero or less returns every battle.
func (a *ArenaDB) ListBattlesByAgent(ctx context.Context, agentID string, limit int) ([]models.Battle, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := a.db.QueryContext(ctx, `
		SELECT `+battleColumns+` FROM battles
		WHERE agent_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query battles: %w", err)
	}
	defer rows.Close()

	battles := []models.Battle{}
	for rows.Next() {
		battle, err := scanBattle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan battle: %w", err)
		}
		battles = append(battles, *battle)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating battles: %w", err)
	}

	return battles, nil
}

// ListBattleRecords returns the analytics view of an agent's full history,
// oldest first.
func (a *ArenaDB) ListBattleRecords(ctx context.Context, agentID string) ([]analytics.BattleRecord, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT score_total, challenge_type, created_at FROM battles
		WHERE agent_id = ? ORDER BY created_at ASC, rowid ASC`, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query battle records: %w", err)
	}
	defer rows.Close()

	records := []analytics.BattleRecord{}
	for rows.Next() {
		var record analytics.BattleRecord
		var challengeType string
		if err := rows.Scan(&record.ScoreTotal, &challengeType, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan battle record: %w", err)
		}
		record.ChallengeType = scoring.ChallengeType(challengeType)
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating battle records: %w", err)
	}

	return records, nil
}

// SaveCoachReport inserts or replaces the coach report of a battle. The
// original creation time is kept when a report is replaced.
func (a *ArenaDB) SaveCoachReport(ctx context.Context, report *models.CoachReportRecord) error {
	return a.withTx(ctx, func(tx *sql.Tx) error {
		return upsertCoachReport(ctx, tx, report, a.now())
	})
}

func upsertCoachReport(ctx context.Context, tx *sql.Tx, report *models.CoachReportRecord, now time.Time) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = now

	encoded := make([]string, 0, 4)
	for _, v := range []any{report.Strengths, report.Weaknesses, report.PromptSuggestions, report.NextDrills} {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal coach report: %w", err)
		}
		encoded = append(encoded, string(data))
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO coach_reports (`+reportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (battle_id) DO UPDATE SET
			strengths = excluded.strengths,
			weaknesses = excluded.weaknesses,
			prompt_suggestions = excluded.prompt_suggestions,
			next_drills = excluded.next_drills,
			recommended_focus = excluded.recommended_focus,
			updated_at = excluded.updated_at`,
		report.ID, report.BattleID, report.AgentID, encoded[0], encoded[1], encoded[2], encoded[3],
		string(report.RecommendedFocus), report.CreatedAt, report.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save coach report: %w", err)
	}

	// an existing row keeps its ID and creation time
	row := tx.QueryRowContext(ctx, `SELECT id, created_at FROM coach_reports WHERE battle_id = ?`, report.BattleID)
	if err := row.Scan(&report.ID, &report.CreatedAt); err != nil {
		return fmt.Errorf("failed to reload coach report: %w", err)
	}

	return nil
}

// GetCoachReport retrieves the coach report of a battle. Returns nil if not found.
func (a *ArenaDB) GetCoachReport(ctx context.Context, battleID string) (*models.CoachReportRecord, error) {
	row := a.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM coach_reports WHERE battle_id = ?`, battleID)

	report, err := scanCoachReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get coach report: %w", err)
	}
	return report, nil
}

// ListCoachReportsByAgent returns an agent's most recent coach reports.
func (a *ArenaDB) ListCoachReportsByAgent(ctx context.Context, agentID string, limit int) ([]models.CoachReportRecord, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT `+reportColumns+` FROM coach_reports
		WHERE agent_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query coach reports: %w", err)
	}
	defer rows.Close()

	reports := []models.CoachReportRecord{}
	for rows.Next() {
		report, err := scanCoachReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coach report: %w", err)
		}
		reports = append(reports, *report)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coach reports: %w", err)
	}

	return reports, nil
}

func scanBattle(row rowScanner) (*models.Battle, error) {
	var battle models.Battle
	var challengeType, breakdownJSON string
	var programID, drillID sql.NullString

	err := row.Scan(&battle.ID, &battle.AgentID, &battle.UserID, &challengeType,
		&battle.InputText, &battle.OutputText, &battle.ScoreTotal, &breakdownJSON,
		&programID, &drillID, &battle.CreatedAt)
	if err != nil {
		return nil, err
	}

	battle.ChallengeType = scoring.ChallengeType(challengeType)
	battle.ProgramID = programID.String
	battle.DrillID = drillID.String

	if err := json.Unmarshal([]byte(breakdownJSON), &battle.ScoreBreakdown); err != nil {
		return nil, fmt.Errorf("failed to unmarshal score breakdown: %w", err)
	}

	return &battle, nil
}

func scanCoachReport(row rowScanner) (*models.CoachReportRecord, error) {
	var record models.CoachReportRecord
	var strengths, weaknesses, suggestions, drills, focus string

	err := row.Scan(&record.ID, &record.BattleID, &record.AgentID, &strengths, &weaknesses,
		&suggestions, &drills, &focus, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}

	fields := []struct {
		raw  string
		dest any
	}{
		{strengths, &record.Strengths},
		{weaknesses, &record.Weaknesses},
		{suggestions, &record.PromptSuggestions},
		{drills, &record.NextDrills},
	}
	for _, f := range fields {
		if err := json.Unmarshal([]byte(f.raw), f.dest); err != nil {
			return nil, fmt.Errorf("failed to unmarshal coach report: %w", err)
		}
	}
	record.RecommendedFocus = coach.Focus(focus)

	return &record, nil
}

// nullString stores empty strings as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
