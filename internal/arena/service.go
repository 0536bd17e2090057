// Package arena implements the Agent Arena application service: agents,
// battle submission and scoring, coach reports, analytics, training
// programs and the social feed, exposed over HTTP and gRPC.
package arena

import (
	"context"
	"time"

	"agent-arena/pkg/analytics"
	"agent-arena/pkg/config"
	"agent-arena/pkg/events"
	"agent-arena/pkg/logger"
	"agent-arena/pkg/models"
	"agent-arena/pkg/ratelimit"
	"agent-arena/pkg/scoring"

	"github.com/rs/zerolog"
)

// Store is the persistence the service depends on. *db.ArenaDB implements it.
type Store interface {
	CreateAgent(ctx context.Context, agent *models.Agent) error
	GetAgent(ctx context.Context, id string) (*models.Agent, error)
	ListAgentsByUser(ctx context.Context, userID string) ([]models.Agent, error)
	Leaderboard(ctx context.Context, limit int, challengeType string) ([]models.LeaderboardEntry, error)

	RecordDrillBattle(ctx context.Context, battle *models.Battle, report *models.CoachReportRecord, newRating int, enrollmentID string) (bool, error)
	GetBattle(ctx context.Context, id string) (*models.Battle, error)
	ListBattlesByAgent(ctx context.Context, agentID string, limit int) ([]models.Battle, error)
	ListBattleRecords(ctx context.Context, agentID string) ([]analytics.BattleRecord, error)
	GetCoachReport(ctx context.Context, battleID string) (*models.CoachReportRecord, error)
	SaveCoachReport(ctx context.Context, report *models.CoachReportRecord) error
	ListCoachReportsByAgent(ctx context.Context, agentID string, limit int) ([]models.CoachReportRecord, error)

	ListPrograms(ctx context.Context) ([]models.Program, error)
	GetProgramBySlug(ctx context.Context, slug string) (*models.Program, error)
	GetProgram(ctx context.Context, id string) (*models.Program, error)
	CreateEnrollment(ctx context.Context, programID, agentID, userID string) (*models.Enrollment, error)
	GetEnrollment(ctx context.Context, id string) (*models.Enrollment, error)
	ListEnrollmentsByUser(ctx context.Context, userID string) ([]models.EnrollmentSummary, error)
	ListCompletedDrillIDs(ctx context.Context, enrollmentID string) ([]string, error)
	CountCompletedEnrollments(ctx context.Context, agentID string) (int, error)

	UpsertPostForBattle(ctx context.Context, post *models.Post) (bool, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	GetPostByBattle(ctx context.Context, battleID string) (*models.Post, error)
	ListPosts(ctx context.Context, offset, limit int) ([]models.Post, error)
	ListPostsByAgent(ctx context.Context, agentID string, limit int) ([]models.Post, error)
	CastVote(ctx context.Context, postID, userID string, value int) (*models.VoteResponse, error)
	GetUserVote(ctx context.Context, postID, userID string) (int, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	ToggleFollow(ctx context.Context, userID, agentID string) (bool, error)
	IsFollowing(ctx context.Context, userID, agentID string) (bool, error)
	CountFollowers(ctx context.Context, agentID string) (int, error)
}

// Rate limited actions; the key of a check is "{action}:{userID}".
const (
	ActionBattleSubmit  = "battleSubmit"
	ActionComment       = "comment"
	ActionVote          = "vote"
	ActionPostPublish   = "postPublish"
	ActionFollow        = "follow"
	ActionProgramEnroll = "programEnroll"
	ActionDrillStart    = "drillStart"
)

// Service coordinates the pure scoring core with persistence, rate limits
// and event publishing.
type Service struct {
	store     Store
	engine    *scoring.Engine
	rating    scoring.RatingStrategy
	limiter   ratelimit.Limiter
	limits    map[string]ratelimit.Rule
	publisher events.Publisher

	battleLog   zerolog.Logger
	coachLog    zerolog.Logger
	statsLog    zerolog.Logger
	feedLog     zerolog.Logger
	trainingLog zerolog.Logger

	now func() time.Time
}

// NewService wires the service. A nil limiter uses an in-memory limiter and
// a nil publisher discards events.
func NewService(cfg *config.Config, store Store, limiter ratelimit.Limiter, publisher events.Publisher) *Service {
	if limiter == nil {
		limiter = ratelimit.NewMemory()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}

	return &Service{
		store:     store,
		engine:    scoring.NewEngine(nil),
		rating:    scoring.LinearStrategy{},
		limiter:   limiter,
		limits:    rateRules(cfg.RateLimits),
		publisher: publisher,

		battleLog:   logger.NewCategoryLogger(cfg.LogLevel, logger.Arena, logger.Battle, cfg.LogToFile),
		coachLog:    logger.NewCategoryLogger(cfg.LogLevel, logger.Arena, logger.Coach, cfg.LogToFile),
		statsLog:    logger.NewCategoryLogger(cfg.LogLevel, logger.Arena, logger.Analytics, cfg.LogToFile),
		feedLog:     logger.NewCategoryLogger(cfg.LogLevel, logger.Arena, logger.Feed, cfg.LogToFile),
		trainingLog: logger.NewCategoryLogger(cfg.LogLevel, logger.Arena, logger.Training, cfg.LogToFile),

		now: func() time.Time { return time.Now().UTC() },
	}
}

func rateRules(c config.RateLimitConfig) map[string]ratelimit.Rule {
	return map[string]ratelimit.Rule{
		ActionBattleSubmit:  {Limit: c.BattleSubmit, Window: time.Minute},
		ActionComment:       {Limit: c.Comment, Window: time.Minute},
		ActionVote:          {Limit: c.Vote, Window: time.Minute},
		ActionPostPublish:   {Limit: c.PostPublish, Window: time.Hour},
		ActionFollow:        {Limit: c.Follow, Window: time.Minute},
		ActionProgramEnroll: {Limit: c.ProgramEnroll, Window: time.Minute},
		ActionDrillStart:    {Limit: c.DrillStart, Window: time.Minute},
	}
}

// checkRate consumes one unit of the user's budget for action. A rule with
// no positive limit disables the check. A limiter failure is logged and the
// action allowed.
func (s *Service) checkRate(ctx context.Context, action, userID string) error {
	rule, ok := s.limits[action]
	if !ok || rule.Limit <= 0 {
		return nil
	}

	decision, err := s.limiter.Allow(ctx, action+":"+userID, rule.Limit, rule.Window)
	if err != nil {
		s.battleLog.Error().Err(err).Str("action", action).Msg("Rate limiter unavailable")
		return nil
	}
	if !decision.Allowed {
		return &RateLimitError{Action: action, RetryAt: decision.RetryAt}
	}
	return nil
}

// publish sends an event without failing the caller.
func (s *Service) publish(ctx context.Context, lg zerolog.Logger, eventType events.Type, payload any) {
	if err := s.publisher.Publish(ctx, events.New(eventType, payload)); err != nil {
		lg.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish event")
	}
}

// ownedAgent loads an agent and checks that userID owns it.
func (s *Service) ownedAgent(ctx context.Context, userID, agentID string) (*models.Agent, error) {
	agent, err := s.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, notFound("agent")
	}
	if agent.UserID != userID {
		return nil, ErrUnauthorized
	}
	return agent, nil
}
