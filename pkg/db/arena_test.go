package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"agent-arena/pkg/coach"
	"agent-arena/pkg/models"
	"agent-arena/pkg/scoring"
)

// strongLogicOutput earns every logic bonus for a total of 70.
const strongLogicOutput = "1. All cats are mammals.\n2. All mammals are animals.\nAnswer: yes, every cat is an animal because inclusion is transitive."

func createTestArenaDB(t *testing.T) (*ArenaDB, func()) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_arena.db")

	db, err := NewArenaDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return db, cleanup
}

// stepClock makes every call to now return a later instant.
func stepClock(db *ArenaDB, start time.Time) {
	current := start
	db.now = func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func createTestAgent(t *testing.T, db *ArenaDB, userID, name string) *models.Agent {
	t.Helper()

	agent := &models.Agent{
		UserID:      userID,
		Name:        name,
		Bio:         "A careful reasoning agent",
		AvatarEmoji: "🤖",
		Traits:      models.Traits{Analytical: 80, Calm: 60, Fast: 40},
		Skills:      []string{"Analyst", "Solver"},
		Prompt:      "Think step by step and answer clearly.",
		Rating:      1000,
	}
	if err := db.CreateAgent(context.Background(), agent); err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}
	return agent
}

func recordTestBattle(t *testing.T, db *ArenaDB, agent *models.Agent, ct scoring.ChallengeType, output string) *models.Battle {
	t.Helper()

	input := "Solve the puzzle and explain."
	result := scoring.ScoreChallenge(ct, input, output)
	battle := &models.Battle{
		AgentID:        agent.ID,
		UserID:         agent.UserID,
		ChallengeType:  ct,
		InputText:      input,
		OutputText:     output,
		ScoreTotal:     result.ScoreTotal,
		ScoreBreakdown: result.ScoreBreakdown,
	}
	report := &models.CoachReportRecord{Report: coach.Generate(ct, result.ScoreBreakdown, input, output)}

	newRating := scoring.UpdateRatingLinear(agent.Rating, result.ScoreTotal)
	if err := db.RecordBattle(context.Background(), battle, report, newRating); err != nil {
		t.Fatalf("Failed to record battle: %v", err)
	}
	agent.Rating = newRating
	return battle
}

func TestArenaDB_Nonces(t *testing.T) {
	db, cleanup := createTestArenaDB(t)
	defer cleanup()

	nonce := "test_nonce_123"

	seen, err := db.HasSeenNonce(nonce)
	if err != nil {
		t.Fatalf("Failed to check nonce: %v", err)
	}
	if seen {
		t.Error("Expected nonce to be unseen")
	}

	if err := db.SaveNonce(nonce); err != nil {
		t.Fatalf("Failed to save nonce: %v", err)
	}
	// saving twice is not an error
	if err := db.SaveNonce(nonce); err != nil {
		t.Fatalf("Failed to save duplicate nonce: %v", err)
	}

	seen, err = db.HasSeenNonce(nonce)
	if err != nil {
		t.Fatalf("Failed to check nonce: %v", err)
	}
	if !seen {
		t.Error("Expected nonce to be seen")
	}

	if err := db.CleanupOldNonces(time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Failed to cleanup nonces: %v", err)
	}

	seen, err = db.HasSeenNonce(nonce)
	if err != nil {
		t.Fatalf("Failed to check nonce: %v", err)
	}
	if seen {
		t.Error("Expected nonce to be removed by cleanup")
	}
}

func TestArenaDB_Ping(t *testing.T) {
	db, cleanup := createTestArenaDB(t)
	defer cleanup()

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Expected ping to succeed, got %v", err)
	}
}

func TestArenaDB_CreateAndGetAgent(t *testing.T) {
	db, cleanup := createTestArenaDB(t)
	defer cleanup()

	ctx := context.Background()
	agent := createTestAgent(t, db, "user_1", "Athena")

	retrieved, err := db.GetAgent(ctx, agent.ID)
	if err != nil {
		t.Fatalf("Failed to get agent: %v", err)
	}
	if retrieved == nil {
		t.Fatal("Expected agent, got nil")
	}

	if retrieved.Name != "Athena" {
		t.Errorf("Expected name Athena, got %s", retrieved.Name)
	}
	if retrieved.Traits != agent.Traits {
		t.Errorf("Expected traits %+v, got %+v", agent.Traits, retrieved.Traits)
	}
	if len(retrieved.Skills) != 2 || retrieved.Skills[0] != "Analyst" {
		t.Errorf("Expected skills [Analyst Solver], got %v", retrieved.Skills)
	}
	if retrieved.Rating != 1000 {
		t.Errorf("Expected rating 1000, got %d", retrieved.Rating)
	}

	missing, err := db.GetAgent(ctx, "non_existent")
	if err != nil {
		t.Fatalf("Expected no error for missing agent, got %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for missing agent")
	}
}

func TestArenaDB_ListAgentsByUser(t *testing.T) {
	db, cleanup := createTestArenaDB(t)
	defer cleanup()
	stepClock(db, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	createTestAgent(t, db, "user_1", "First")
	createTestAgent(t, db, "user_1", "Second")
	createTestAgent(t, db, "user_2", "Other")

	agents, err := db.ListAgentsByUser(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("Failed to list agents: %v", err)
	}

	if len(agents) != 2 {
		t.Fatalf("Expected 2 agents, got %d", len(agents))
	}
	if agents[0].Name != "Second" {
		t.Errorf("Expected newest agent first, got %s", agents[0].Name)
	}
}

func TestArenaDB_Leaderboard(t *testing.T) {
	db, cleanup := createTestArenaDB(t)
	defer cleanup()
	stepClock(db, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	older := createTestAgent(t, db, "user_1", "Older")
	newer := createTestAgent(t, db, "user_2", "Newer")
	top := createTestAgent(t, db, "user_3", "Top")

	recordTestBattle(t, db, top, scoring.Logic, strongLogicOutput)
	recordTestBattle(t, db, older, scoring.Debate, "Claim: yes.")

	entries, err := db.Leaderboard(ctx, 10, "")
	if err != nil {
		t.Fatalf("Failed to get leaderboard: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}

	if entries[0].AgentID != top.ID || entries[0].Rank != 1 {
		t.Errorf("Expected Top ranked first, got %s (rank %d)", entries[0].Name, entries[0].Rank)
	}
	if entries[0].Rating != 1002 {
		t.Errorf("Expected rating 1002, got %d", entries[0].Rating)
	}
	// equal ratings fall back to creation order
	if entries[1].AgentID != older.ID || entries[2].AgentID != newer.ID {
		t.Errorf("Expected Older before Newer, got %s, %s", entries[1].Name, entries[2].Name)
	}

	logicOnly, err := db.Leaderboard(ctx, 10, string(scoring.Logic))
	if err != nil {
		t.Fatalf("Failed to get filtered leaderboard: %v", err)
	}
	if len(logicOnly) != 1 || logicOnly[0].AgentID != top.ID {
		t.Fatalf("Expected only Top on the logic board, got %+v", logicOnly)
	}
	if logicOnly[0].BattleCount != 1 {
		t.Errorf("Expected battle count 1, got %d", logicOnly[0].BattleCount)
	}

	limited, err := db.Leaderboard(ctx, 2, "")
	if err != nil {
		t.Fatalf("Failed to get limited leaderboard: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(limited))
	}
}
