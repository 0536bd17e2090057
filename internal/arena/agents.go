package arena

import (
	"context"
	"strings"
	"unicode/utf8"

	"agent-arena/pkg/models"
	"agent-arena/pkg/moderation"
	"agent-arena/pkg/scoring"
)

// Agent limits
const (
	MaxAgentName     = 50
	MinAgentBio      = 10
	MaxAgentBio      = 500
	MinAgentPrompt   = 20
	MaxAgentPrompt   = 1000
	MaxAgentSkills   = 3
	MaxTraitValue    = 100
	DefaultAvatar    = "🤖"
	DefaultBoardSize = 50
	MaxBoardSize     = 100
)

// Skills lists the accepted agent skill labels.
var Skills = []string{"Strategist", "Creator", "Analyst", "Diplomat", "Solver"}

// CreateAgent validates and stores a new agent owned by userID.
func (s *Service) CreateAgent(ctx context.Context, userID string, req models.CreateAgentRequest) (*models.Agent, error) {
	if err := validateAgent(&req); err != nil {
		return nil, err
	}

	if r := moderation.Moderate(req.Bio, moderation.ContextBio); !r.Allowed {
		return nil, invalidf("bio: %s", r.Reason)
	}
	if r := moderation.Moderate(req.Prompt, moderation.ContextPrompt); !r.Allowed {
		return nil, invalidf("prompt: %s", r.Reason)
	}

	agent := &models.Agent{
		UserID:      userID,
		Name:        req.Name,
		Bio:         req.Bio,
		AvatarEmoji: req.AvatarEmoji,
		Traits:      req.Traits,
		Skills:      req.Skills,
		Prompt:      req.Prompt,
		Rating:      scoring.DefaultRating,
		CreatedAt:   s.now(),
	}
	if agent.AvatarEmoji == "" {
		agent.AvatarEmoji = DefaultAvatar
	}

	if err := s.store.CreateAgent(ctx, agent); err != nil {
		return nil, err
	}

	s.battleLog.Info().
		Str("agent_id", agent.ID).
		Str("user_id", userID).
		Msg("Agent created")

	return agent, nil
}

func validateAgent(req *models.CreateAgentRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Bio = strings.TrimSpace(req.Bio)
	req.Prompt = strings.TrimSpace(req.Prompt)

	if n := utf8.RuneCountInString(req.Name); n < 1 || n > MaxAgentName {
		return invalidf("name must be between 1 and %d characters", MaxAgentName)
	}
	if n := utf8.RuneCountInString(req.Bio); n < MinAgentBio || n > MaxAgentBio {
		return invalidf("bio must be between %d and %d characters", MinAgentBio, MaxAgentBio)
	}
	if n := utf8.RuneCountInString(req.Prompt); n < MinAgentPrompt || n > MaxAgentPrompt {
		return invalidf("prompt must be between %d and %d characters", MinAgentPrompt, MaxAgentPrompt)
	}

	for _, v := range []int{req.Traits.Analytical, req.Traits.Calm, req.Traits.Fast} {
		if v < 0 || v > MaxTraitValue {
			return invalidf("traits must be between 0 and %d", MaxTraitValue)
		}
	}

	if len(req.Skills) < 1 || len(req.Skills) > MaxAgentSkills {
		return invalidf("select between 1 and %d skills", MaxAgentSkills)
	}
	seen := make(map[string]bool, len(req.Skills))
	for _, skill := range req.Skills {
		if !knownSkill(skill) {
			return invalidf("unknown skill %q", skill)
		}
		if seen[skill] {
			return invalidf("duplicate skill %q", skill)
		}
		seen[skill] = true
	}

	return nil
}

func knownSkill(skill string) bool {
	for _, s := range Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// ListAgents returns the agents owned by userID, newest first.
func (s *Service) ListAgents(ctx context.Context, userID string) ([]models.Agent, error) {
	return s.store.ListAgentsByUser(ctx, userID)
}

// GetAgent returns an agent by ID.
func (s *Service) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	agent, err := s.store.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, notFound("agent")
	}
	return agent, nil
}

// Leaderboard ranks agents by rating. A non-empty challengeType keeps only
// agents with at least one battle of that type.
func (s *Service) Leaderboard(ctx context.Context, limit int, challengeType string) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultBoardSize
	}
	if limit > MaxBoardSize {
		limit = MaxBoardSize
	}

	filter := ""
	if challengeType != "" {
		ct, err := scoring.ParseChallengeType(challengeType)
		if err != nil {
			return nil, invalidf("%v", err)
		}
		filter = string(ct)
	}

	return s.store.Leaderboard(ctx, limit, filter)
}
