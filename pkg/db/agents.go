package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"agent-arena/pkg/models"

	"github.com/google/uuid"
)

const agentColumns = `id, user_id, name, bio, avatar_emoji, traits, skills, prompt, rating, created_at, updated_at`

// CreateAgent stores a new agent. A missing ID or timestamp is filled in.
func (a *ArenaDB) CreateAgent(ctx context.Context, agent *models.Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.New().String()
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = a.now()
	}
	agent.UpdatedAt = agent.CreatedAt

	traitsJSON, err := json.Marshal(agent.Traits)
	if err != nil {
		return fmt.Errorf("failed to marshal traits: %w", err)
	}
	skillsJSON, err := json.Marshal(agent.Skills)
	if err != nil {
		return fmt.Errorf("failed to marshal skills: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO agents (`+agentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agent.ID, agent.UserID, agent.Name, agent.Bio, agent.AvatarEmoji,
		string(traitsJSON), string(skillsJSON), agent.Prompt, agent.Rating,
		agent.CreatedAt, agent.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert agent: %w", err)
	}

	return nil
}

// GetAgent retrieves an agent by ID. Returns nil if not found.
func (a *ArenaDB) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	row := a.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)

	agent, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return agent, nil
}

// ListAgentsByUser returns the user's agents, newest first.
func (a *ArenaDB) ListAgentsByUser(ctx context.Context, userID string) ([]models.Agent, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT `+agentColumns+` FROM agents
		WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}
	defer rows.Close()

	agents := []models.Agent{}
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, *agent)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agents: %w", err)
	}

	return agents, nil
}

// Leaderboard ranks agents by rating, highest first, breaking ties by age.
// A non-empty challengeType restricts the board to agents with at least one
// battle of that type and counts only those battles.
func (a *ArenaDB) Leaderboard(ctx context.Context, limit int, challengeType string) ([]models.LeaderboardEntry, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT a.id, a.user_id, a.name, a.avatar_emoji, a.rating, COUNT(b.id)
		FROM agents a
		LEFT JOIN battles b ON b.agent_id = a.id AND (? = '' OR b.challenge_type = ?)
		GROUP BY a.id
		HAVING (? = '' OR COUNT(b.id) > 0)
		ORDER BY a.rating DESC, a.created_at ASC, a.rowid ASC
		LIMIT ?`,
		challengeType, challengeType, challengeType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var entry models.LeaderboardEntry
		if err := rows.Scan(&entry.AgentID, &entry.UserID, &entry.Name, &entry.AvatarEmoji,
			&entry.Rating, &entry.BattleCount); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entry.Rank = len(entries) + 1
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	return entries, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*models.Agent, error) {
	var agent models.Agent
	var traitsJSON, skillsJSON string

	err := row.Scan(&agent.ID, &agent.UserID, &agent.Name, &agent.Bio, &agent.AvatarEmoji,
		&traitsJSON, &skillsJSON, &agent.Prompt, &agent.Rating, &agent.CreatedAt, &agent.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(traitsJSON), &agent.Traits); err != nil {
		return nil, fmt.Errorf("failed to unmarshal traits: %w", err)
	}
	if err := json.Unmarshal([]byte(skillsJSON), &agent.Skills); err != nil {
		return nil, fmt.Errorf("failed to unmarshal skills: %w", err)
	}

	return &agent, nil
}
