package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agent-arena/pkg/models"
	"agent-arena/pkg/scoring"

	"github.com/google/uuid"
)

const programColumns = `id, slug, title, description, challenge_type, created_at`
const drillColumns = `id, program_id, order_index, title, difficulty, preset_input`
const enrollmentColumns = `id, program_id, agent_id, user_id, started_at, completed_at`

// SeedPrograms inserts or updates programs and their drills, matching
// programs by slug and drills by position.
func (a *ArenaDB) SeedPrograms(ctx context.Context, programs []models.Program) error {
	return a.withTx(ctx, func(tx *sql.Tx) error {
		for i := range programs {
			program := &programs[i]
			if program.ID == "" {
				program.ID = uuid.New().String()
			}
			if program.CreatedAt.IsZero() {
				program.CreatedAt = a.now()
			}

			_, err := tx.ExecContext(ctx, `
				INSERT INTO programs (`+programColumns+`)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT (slug) DO UPDATE SET
					title = excluded.title,
					description = excluded.description,
					challenge_type = excluded.challenge_type`,
				program.ID, program.Slug, program.Title, program.Description,
				string(program.ChallengeType), program.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to upsert program %s: %w", program.Slug, err)
			}

			if err := tx.QueryRowContext(ctx, `SELECT id FROM programs WHERE slug = ?`, program.Slug).Scan(&program.ID); err != nil {
				return fmt.Errorf("failed to reload program %s: %w", program.Slug, err)
			}

			for j := range program.Drills {
				drill := &program.Drills[j]
				drill.ProgramID = program.ID
				if drill.ID == "" {
					drill.ID = uuid.New().String()
				}
				_, err := tx.ExecContext(ctx, `
					INSERT INTO drills (`+drillColumns+`)
					VALUES (?, ?, ?, ?, ?, ?)
					ON CONFLICT (program_id, order_index) DO UPDATE SET
						title = excluded.title,
						difficulty = excluded.difficulty,
						preset_input = excluded.preset_input`,
					drill.ID, drill.ProgramID, drill.OrderIndex, drill.Title, drill.Difficulty, drill.PresetInput)
				if err != nil {
					return fmt.Errorf("failed to upsert drill %s #%d: %w", program.Slug, drill.OrderIndex, err)
				}
			}
		}
		return nil
	})
}

// ListPrograms returns every program with its drills in creation order.
func (a *ArenaDB) ListPrograms(ctx context.Context) ([]models.Program, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT `+programColumns+` FROM programs ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query programs: %w", err)
	}

	programs := []models.Program{}
	for rows.Next() {
		program, err := scanProgram(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan program: %w", err)
		}
		programs = append(programs, *program)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating programs: %w", err)
	}
	rows.Close()

	for i := range programs {
		if programs[i].Drills, err = a.listDrills(ctx, programs[i].ID); err != nil {
			return nil, err
		}
	}

	return programs, nil
}

// GetProgramBySlug retrieves a program and its drills. Returns nil if not found.
func (a *ArenaDB) GetProgramBySlug(ctx context.Context, slug string) (*models.Program, error) {
	return a.getProgram(ctx, `slug = ?`, slug)
}

// GetProgram retrieves a program and its drills by ID. Returns nil if not found.
func (a *ArenaDB) GetProgram(ctx context.Context, id string) (*models.Program, error) {
	return a.getProgram(ctx, `id = ?`, id)
}

func (a *ArenaDB) getProgram(ctx context.Context, where string, arg string) (*models.Program, error) {
	row := a.db.QueryRowContext(ctx, `SELECT `+programColumns+` FROM programs WHERE `+where, arg)

	program, err := scanProgram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get program: %w", err)
	}

	if program.Drills, err = a.listDrills(ctx, program.ID); err != nil {
		return nil, err
	}
	return program, nil
}

func (a *ArenaDB) listDrills(ctx context.Context, programID string) ([]models.Drill, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT `+drillColumns+` FROM drills WHERE program_id = ? ORDER BY order_index ASC`, programID)
	if err != nil {
		return nil, fmt.Errorf("failed to query drills: %w", err)
	}
	defer rows.Close()

	drills := []models.Drill{}
	for rows.Next() {
		var drill models.Drill
		if err := rows.Scan(&drill.ID, &drill.ProgramID, &drill.OrderIndex, &drill.Title,
			&drill.Difficulty, &drill.PresetInput); err != nil {
			return nil, fmt.Errorf("failed to scan drill: %w", err)
		}
		drills = append(drills, drill)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drills: %w", err)
	}

	return drills, nil
}

// CreateEnrollment enrolls an agent into a program. Enrolling twice returns
// the existing enrollment.
func (a *ArenaDB) CreateEnrollment(ctx context.Context, programID, agentID, userID string) (*models.Enrollment, error) {
	_, err := a.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO enrollments (id, program_id, agent_id, user_id, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), programID, agentID, userID, a.now())
	if err != nil {
		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}

	row := a.db.QueryRowContext(ctx, `
		SELECT `+enrollmentColumns+` FROM enrollments WHERE program_id = ? AND agent_id = ?`,
		programID, agentID)
	enrollment, err := scanEnrollment(row)
	if err != nil {
		return nil, fmt.Errorf("failed to reload enrollment: %w", err)
	}
	return enrollment, nil
}

// GetEnrollment retrieves an enrollment by ID. Returns nil if not found.
func (a *ArenaDB) GetEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	row := a.db.QueryRowContext(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = ?`, id)

	enrollment, err := scanEnrollment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return enrollment, nil
}

// ListEnrollmentsByUser returns the user's enrollments with progress, most
// recently started first.
func (a *ArenaDB) ListEnrollmentsByUser(ctx context.Context, userID string) ([]models.EnrollmentSummary, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT e.id, e.program_id, e.agent_id, e.user_id, e.started_at, e.completed_at,
			p.slug, p.title,
			(SELECT COUNT(*) FROM drill_completions dc WHERE dc.enrollment_id = e.id),
			(SELECT COUNT(*) FROM drills d WHERE d.program_id = e.program_id)
		FROM enrollments e
		JOIN programs p ON p.id = e.program_id
		WHERE e.user_id = ?
		ORDER BY e.started_at DESC, e.rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	summaries := []models.EnrollmentSummary{}
	for rows.Next() {
		var s models.EnrollmentSummary
		var completedAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.ProgramID, &s.AgentID, &s.UserID, &s.StartedAt, &completedAt,
			&s.ProgramSlug, &s.ProgramTitle, &s.CompletedDrills, &s.TotalDrills); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		if completedAt.Valid {
			s.CompletedAt = &completedAt.Time
		}
		s.ProgressPercent = ProgressPercent(s.CompletedDrills, s.TotalDrills)
		summaries = append(summaries, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enrollments: %w", err)
	}

	return summaries, nil
}

// ListCompletedDrillIDs returns the drills completed under an enrollment.
func (a *ArenaDB) ListCompletedDrillIDs(ctx context.Context, enrollmentID string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT drill_id FROM drill_completions WHERE enrollment_id = ?
		ORDER BY completed_at ASC, rowid ASC`, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query drill completions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan drill completion: %w", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drill completions: %w", err)
	}

	return ids, nil
}

// completeDrill marks battle.DrillID complete for the enrollment and tags the
// battle with the program. Completing a drill twice keeps the first completion.
func completeDrill(ctx context.Context, tx *sql.Tx, enrollmentID string, battle *models.Battle, now time.Time) (bool, error) {
	var programID string
	if err := tx.QueryRowContext(ctx, `SELECT program_id FROM enrollments WHERE id = ?`, enrollmentID).Scan(&programID); err != nil {
		return false, fmt.Errorf("failed to load enrollment: %w", err)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO drill_completions (id, enrollment_id, drill_id, battle_id, completed_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), enrollmentID, battle.DrillID, battle.ID, now)
	if err != nil {
		return false, fmt.Errorf("failed to save drill completion: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE battles SET program_id = ? WHERE id = ?`, programID, battle.ID); err != nil {
		return false, fmt.Errorf("failed to tag battle: %w", err)
	}
	battle.ProgramID = programID

	var completed, total int
	err = tx.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM drill_completions WHERE enrollment_id = ?),
			(SELECT COUNT(*) FROM drills WHERE program_id = ?)`,
		enrollmentID, programID).Scan(&completed, &total)
	if err != nil {
		return false, fmt.Errorf("failed to count drills: %w", err)
	}

	if total == 0 || completed < total {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE enrollments SET completed_at = ? WHERE id = ? AND completed_at IS NULL`,
		now, enrollmentID); err != nil {
		return false, fmt.Errorf("failed to complete enrollment: %w", err)
	}
	return true, nil
}

// CountCompletedEnrollments returns how many programs an agent has finished.
func (a *ArenaDB) CountCompletedEnrollments(ctx context.Context, agentID string) (int, error) {
	var count int
	err := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM enrollments WHERE agent_id = ? AND completed_at IS NOT NULL`, agentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed enrollments: %w", err)
	}
	return count, nil
}

// ProgressPercent returns completed/total as a rounded percentage.
func ProgressPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return (completed*100 + total/2) / total
}

func scanProgram(row rowScanner) (*models.Program, error) {
	var program models.Program
	var challengeType string
	if err := row.Scan(&program.ID, &program.Slug, &program.Title, &program.Description,
		&challengeType, &program.CreatedAt); err != nil {
		return nil, err
	}
	program.ChallengeType = scoring.ChallengeType(challengeType)
	return &program, nil
}

func scanEnrollment(row rowScanner) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	var completedAt sql.NullTime
	if err := row.Scan(&enrollment.ID, &enrollment.ProgramID, &enrollment.AgentID, &enrollment.UserID,
		&enrollment.StartedAt, &completedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		enrollment.CompletedAt = &t
	}
	return &enrollment, nil
}
