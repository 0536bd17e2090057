package arena

import (
	"context"
	"unicode/utf8"

	"agent-arena/pkg/analytics"
	"agent-arena/pkg/coach"
	"agent-arena/pkg/events"
	"agent-arena/pkg/logger"
	"agent-arena/pkg/models"
	"agent-arena/pkg/scoring"
)

// Battle limits
const (
	MinBattleInput       = 10
	MaxBattleInput       = 2000
	MaxBattleOutput      = 10000
	DefaultInsightsLimit = 5
	MaxInsightsLimit     = 50
	DefaultBattlesLimit  = 20
)

// BattleCreated is the payload of the battle.created event.
type BattleCreated struct {
	BattleID        string                `json:"battle_id"`
	AgentID         string                `json:"agent_id"`
	UserID          string                `json:"user_id"`
	ChallengeType   scoring.ChallengeType `json:"challenge_type"`
	ScoreTotal      int                   `json:"score_total"`
	PreviousRating  int                   `json:"previous_rating"`
	NewRating       int                   `json:"new_rating"`
	DrillID         string                `json:"drill_id,omitempty"`
	ProgramComplete bool                  `json:"program_complete,omitempty"`
}

// SubmitBattle scores an agent's output, updates its rating and stores the
// battle with its coach report. An empty output is replaced by a template
// response for the challenge type. When EnrollmentID and DrillID are set the
// drill is completed for that enrollment.
func (s *Service) SubmitBattle(ctx context.Context, userID string, req models.SubmitBattleRequest) (*models.SubmitBattleResponse, error) {
	if err := s.checkRate(ctx, ActionBattleSubmit, userID); err != nil {
		return nil, err
	}

	ct, err := scoring.ParseChallengeType(req.ChallengeType)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	if req.AgentID == "" {
		return nil, invalidf("agent is required")
	}
	if n := utf8.RuneCountInString(req.InputText); n < MinBattleInput || n > MaxBattleInput {
		return nil, invalidf("challenge input must be between %d and %d characters", MinBattleInput, MaxBattleInput)
	}
	if utf8.RuneCountInString(req.OutputText) > MaxBattleOutput {
		return nil, invalidf("output must be %d characters or less", MaxBattleOutput)
	}
	if (req.EnrollmentID == "") != (req.DrillID == "") {
		return nil, invalidf("enrollment and drill must be given together")
	}

	agent, err := s.store.GetAgent(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}
	if agent == nil || agent.UserID != userID {
		return nil, notFound("agent not found or unauthorized")
	}

	var programID string
	if req.EnrollmentID != "" {
		program, err := s.drillContext(ctx, userID, agent.ID, req.EnrollmentID, req.DrillID)
		if err != nil {
			return nil, err
		}
		if program.ChallengeType != ct {
			return nil, invalidf("drill expects a %s challenge", program.ChallengeType)
		}
		programID = program.ID
	}

	output := req.OutputText
	if output == "" {
		output = TemplateResponse(ct, req.InputText)
	}

	result := s.engine.ScoreChallenge(ct, req.InputText, output)
	if result.ScoreTotal == 0 && result.ScoreBreakdown.Has(scoring.KeyBlockedContent) {
		logger.ForAgent(s.battleLog, agent.ID).Warn().
			Str("challenge_type", string(ct)).
			Msg("Battle rejected: blocked content")
		return nil, ErrContentBlocked
	}

	battle := &models.Battle{
		AgentID:        agent.ID,
		UserID:         userID,
		ChallengeType:  ct,
		InputText:      req.InputText,
		OutputText:     output,
		ScoreTotal:     result.ScoreTotal,
		ScoreBreakdown: result.ScoreBreakdown,
		ProgramID:      programID,
		DrillID:        req.DrillID,
		CreatedAt:      s.now(),
	}
	report := &models.CoachReportRecord{
		Report: coach.Generate(ct, result.ScoreBreakdown, req.InputText, output),
	}
	newRating := s.rating.NextRating(agent.Rating, result.ScoreTotal)

	programComplete, err := s.store.RecordDrillBattle(ctx, battle, report, newRating, req.EnrollmentID)
	if err != nil {
		return nil, err
	}
	if programComplete {
		logger.ForAgent(s.trainingLog, agent.ID).Info().
			Str("enrollment_id", req.EnrollmentID).
			Msg("Program completed")
	}

	logger.ForBattle(s.battleLog, battle.ID, agent.ID).Info().
		Str("challenge_type", string(ct)).
		Int("score", battle.ScoreTotal).
		Int("rating", newRating).
		Msg("Battle recorded")

	s.publish(ctx, s.battleLog, events.BattleCreated, BattleCreated{
		BattleID:        battle.ID,
		AgentID:         agent.ID,
		UserID:          userID,
		ChallengeType:   ct,
		ScoreTotal:      battle.ScoreTotal,
		PreviousRating:  agent.Rating,
		NewRating:       newRating,
		DrillID:         req.DrillID,
		ProgramComplete: programComplete,
	})

	return &models.SubmitBattleResponse{
		Battle:         *battle,
		CoachReport:    *report,
		PreviousRating: agent.Rating,
		NewRating:      newRating,
	}, nil
}

// GetBattle returns a battle with its coach report.
func (s *Service) GetBattle(ctx context.Context, id string) (*models.BattleDetail, error) {
	battle, err := s.store.GetBattle(ctx, id)
	if err != nil {
		return nil, err
	}
	if battle == nil {
		return nil, notFound("battle")
	}

	report, err := s.store.GetCoachReport(ctx, id)
	if err != nil {
		return nil, err
	}
	post, err := s.store.GetPostByBattle(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.BattleDetail{Battle: *battle, CoachReport: report, Post: post}, nil
}

// ListAgentBattles returns an agent's most recent battles.
func (s *Service) ListAgentBattles(ctx context.Context, agentID string, limit int) ([]models.Battle, error) {
	if limit <= 0 || limit > MaxBoardSize {
		limit = DefaultBattlesLimit
	}
	return s.store.ListBattlesByAgent(ctx, agentID, limit)
}

// RegenerateCoachReport rebuilds a battle's coach report from the stored
// battle and overwrites the saved one. Only the battle's owner may do this.
func (s *Service) RegenerateCoachReport(ctx context.Context, userID, battleID string) (*models.CoachReportRecord, error) {
	battle, err := s.store.GetBattle(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if battle == nil {
		return nil, notFound("battle not found or unauthorized")
	}
	if battle.UserID != userID {
		return nil, ErrUnauthorized
	}

	report := &models.CoachReportRecord{
		BattleID: battle.ID,
		AgentID:  battle.AgentID,
		Report:   coach.Generate(battle.ChallengeType, battle.ScoreBreakdown, battle.InputText, battle.OutputText),
	}
	if err := s.store.SaveCoachReport(ctx, report); err != nil {
		return nil, err
	}

	logger.ForBattle(s.coachLog, battle.ID, battle.AgentID).Info().
		Str("focus", string(report.RecommendedFocus)).
		Msg("Coach report regenerated")
	return report, nil
}

// GetAgentCoachInsights returns an agent's most recent coach reports.
func (s *Service) GetAgentCoachInsights(ctx context.Context, agentID string, limit int) ([]models.CoachReportRecord, error) {
	if limit <= 0 {
		limit = DefaultInsightsLimit
	}
	if limit > MaxInsightsLimit {
		limit = MaxInsightsLimit
	}
	return s.store.ListCoachReportsByAgent(ctx, agentID, limit)
}

// GetAgentAnalytics recomputes an agent's dashboard from its full history.
func (s *Service) GetAgentAnalytics(ctx context.Context, agentID string) (*analytics.AgentAnalytics, error) {
	if _, err := s.GetAgent(ctx, agentID); err != nil {
		return nil, err
	}

	records, err := s.store.ListBattleRecords(ctx, agentID)
	if err != nil {
		return nil, err
	}
	completions, err := s.store.CountCompletedEnrollments(ctx, agentID)
	if err != nil {
		return nil, err
	}

	view := analytics.Compute(records, completions)
	logger.ForAgent(s.statsLog, agentID).Debug().
		Int("battles", len(records)).
		Msg("Analytics computed")
	return &view, nil
}

// Score evaluates a submission without storing anything.
func (s *Service) Score(req models.ScoreRequest) (*models.ScoreResponse, error) {
	ct, err := scoring.ParseChallengeType(req.ChallengeType)
	if err != nil {
		return nil, invalidf("%v", err)
	}

	result := s.engine.ScoreChallenge(ct, req.InputText, req.OutputText)
	return &models.ScoreResponse{
		Result:      result,
		CoachReport: coach.Generate(ct, result.ScoreBreakdown, req.InputText, req.OutputText),
	}, nil
}

// CoachReport builds a report for an already scored breakdown.
func (s *Service) CoachReport(challengeType string, breakdown scoring.Breakdown, inputText, outputText string) (*coach.Report, error) {
	ct, err := scoring.ParseChallengeType(challengeType)
	if err != nil {
		return nil, invalidf("%v", err)
	}

	report := coach.Generate(ct, breakdown, inputText, outputText)
	return &report, nil
}
