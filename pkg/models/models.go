// Package models defines data structures for the Agent Arena.
// This package contains API request/response models and database models
// shared by the store, the service layer and the HTTP handlers.
package models

import (
	"time"

	"agent-arena/pkg/coach"
	"agent-arena/pkg/scoring"
)

// Database Models

// Traits are the personality sliders of an agent, each in [0, 100].
type Traits struct {
	Analytical int `json:"analytical"`
	Calm       int `json:"calm"`
	Fast       int `json:"fast"`
}

// Agent is a named persona owned by a user that competes in battles.
type Agent struct {
	ID          string    `json:"id" db:"id"`                     // Unique agent identifier (UUID)
	UserID      string    `json:"user_id" db:"user_id"`           // Owning user
	Name        string    `json:"name" db:"name"`                 // Display name
	Bio         string    `json:"bio" db:"bio"`                   // Short description
	AvatarEmoji string    `json:"avatar_emoji" db:"avatar_emoji"` // Avatar glyph
	Traits      Traits    `json:"traits" db:"traits"`             // Trait sliders (JSON)
	Skills      []string  `json:"skills" db:"skills"`             // One to three skill labels (JSON)
	Prompt      string    `json:"prompt" db:"prompt"`             // System prompt text
	Rating      int       `json:"rating" db:"rating"`             // Current rating, never below 100
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Battle is one scored submission of agent output against a challenge input.
type Battle struct {
	ID             string                `json:"id" db:"id"`
	AgentID        string                `json:"agent_id" db:"agent_id"`
	UserID         string                `json:"user_id" db:"user_id"`
	ChallengeType  scoring.ChallengeType `json:"challenge_type" db:"challenge_type"`
	InputText      string                `json:"input_text" db:"input_text"`
	OutputText     string                `json:"output_text" db:"output_text"`
	ScoreTotal     int                   `json:"score_total" db:"score_total"`
	ScoreBreakdown scoring.Breakdown     `json:"score_breakdown" db:"score_breakdown"` // Rule contributions (JSON)
	ProgramID      string                `json:"program_id,omitempty" db:"program_id"` // Set when submitted as a drill
	DrillID        string                `json:"drill_id,omitempty" db:"drill_id"`
	CreatedAt      time.Time             `json:"created_at" db:"created_at"`
}

// CoachReportRecord is the stored coach report of a battle. There is at most
// one per battle; regeneration overwrites it.
type CoachReportRecord struct {
	ID        string    `json:"id" db:"id"`
	BattleID  string    `json:"battle_id" db:"battle_id"`
	AgentID   string    `json:"agent_id" db:"agent_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	coach.Report
}

// Program is a structured sequence of drills for one challenge type.
type Program struct {
	ID            string                `json:"id" db:"id"`
	Slug          string                `json:"slug" db:"slug"`
	Title         string                `json:"title" db:"title"`
	Description   string                `json:"description" db:"description"`
	ChallengeType scoring.ChallengeType `json:"challenge_type" db:"challenge_type"`
	Drills        []Drill               `json:"drills,omitempty"`
	CreatedAt     time.Time             `json:"created_at" db:"created_at"`
}

// Drill is a preset challenge inside a program.
type Drill struct {
	ID          string `json:"id" db:"id"`
	ProgramID   string `json:"program_id" db:"program_id"`
	OrderIndex  int    `json:"order_index" db:"order_index"` // 1-based position in the program
	Title       string `json:"title" db:"title"`
	Difficulty  int    `json:"difficulty" db:"difficulty"` // 1 (easiest) to 5
	PresetInput string `json:"preset_input" db:"preset_input"`
}

// Enrollment links an agent to a program.
type Enrollment struct {
	ID          string     `json:"id" db:"id"`
	ProgramID   string     `json:"program_id" db:"program_id"`
	AgentID     string     `json:"agent_id" db:"agent_id"`
	UserID      string     `json:"user_id" db:"user_id"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"` // Set once every drill is completed
}

// DrillCompletion records the battle that completed a drill for an enrollment.
type DrillCompletion struct {
	ID           string    `json:"id" db:"id"`
	EnrollmentID string    `json:"enrollment_id" db:"enrollment_id"`
	DrillID      string    `json:"drill_id" db:"drill_id"`
	BattleID     string    `json:"battle_id" db:"battle_id"`
	CompletedAt  time.Time `json:"completed_at" db:"completed_at"`
}

// Post is a battle shared to the public feed.
type Post struct {
	ID             string    `json:"id" db:"id"`
	BattleID       string    `json:"battle_id" db:"battle_id"`
	AgentID        string    `json:"agent_id" db:"agent_id"`
	UserID         string    `json:"user_id" db:"user_id"`
	Title          string    `json:"title" db:"title"`
	Body           string    `json:"body" db:"body"`
	UpvotesCount   int       `json:"upvotes_count" db:"upvotes_count"`
	DownvotesCount int       `json:"downvotes_count" db:"downvotes_count"`
	CommentsCount  int       `json:"comments_count" db:"-"` // Computed on read
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Comment is a user comment on a post.
type Comment struct {
	ID        string    `json:"id" db:"id"`
	PostID    string    `json:"post_id" db:"post_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Vote is a user's +1 or -1 on a post.
type Vote struct {
	PostID string `json:"post_id" db:"post_id"`
	UserID string `json:"user_id" db:"user_id"`
	Value  int    `json:"value" db:"value"`
}

// SeenNonce tracks used nonces to prevent replay attacks in HMAC authentication.
// Each nonce can only be used once within the configured time window.
type SeenNonce struct {
	Nonce  string    `json:"nonce" db:"nonce"`
	SeenAt time.Time `json:"seen_at" db:"seen_at"`
}

// Read Models

// LeaderboardEntry is one ranked agent.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	AgentID     string `json:"agent_id"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	AvatarEmoji string `json:"avatar_emoji"`
	Rating      int    `json:"rating"`
	BattleCount int    `json:"battle_count"`
}

// EnrollmentSummary is an enrollment with its program and progress.
type EnrollmentSummary struct {
	Enrollment
	ProgramSlug     string `json:"program_slug"`
	ProgramTitle    string `json:"program_title"`
	CompletedDrills int    `json:"completed_drills"`
	TotalDrills     int    `json:"total_drills"`
	ProgressPercent int    `json:"progress_percent"`
}

// TrainingState describes where an enrollment stands in its program.
type TrainingState struct {
	Enrollment        Enrollment `json:"enrollment"`
	Program           Program    `json:"program"`
	CompletedDrillIDs []string   `json:"completed_drill_ids"`
	NextDrill         *Drill     `json:"next_drill,omitempty"` // First incomplete drill by order
	IsComplete        bool       `json:"is_complete"`
	ProgressPercent   int        `json:"progress_percent"`
}

// API Requests and Responses

// CreateAgentRequest creates a new agent for the calling user.
type CreateAgentRequest struct {
	Name        string   `json:"name"`
	Bio         string   `json:"bio"`
	AvatarEmoji string   `json:"avatar_emoji,omitempty"`
	Traits      Traits   `json:"traits"`
	Skills      []string `json:"skills"`
	Prompt      string   `json:"prompt"`
}

// SubmitBattleRequest submits agent output for scoring. EnrollmentID and
// DrillID are set together when the battle completes a program drill.
type SubmitBattleRequest struct {
	AgentID       string `json:"agent_id"`
	ChallengeType string `json:"challenge_type"`
	InputText     string `json:"input_text"`
	OutputText    string `json:"output_text"`
	EnrollmentID  string `json:"enrollment_id,omitempty"`
	DrillID       string `json:"drill_id,omitempty"`
}

// SubmitBattleResponse is the outcome of a battle submission.
type SubmitBattleResponse struct {
	Battle         Battle            `json:"battle"`
	CoachReport    CoachReportRecord `json:"coach_report"`
	PreviousRating int               `json:"previous_rating"`
	NewRating      int               `json:"new_rating"`
}

// BattleDetail is a battle together with its coach report and, once
// shared, its feed post.
type BattleDetail struct {
	Battle      Battle             `json:"battle"`
	CoachReport *CoachReportRecord `json:"coach_report,omitempty"`
	Post        *Post              `json:"post,omitempty"`
}

// SharePostRequest shares a battle to the feed. An empty title uses the default.
type SharePostRequest struct {
	BattleID string `json:"battle_id"`
	Title    string `json:"title,omitempty"`
}

// FeedPage is one page of the public feed.
type FeedPage struct {
	Posts   []Post `json:"posts"`
	Page    int    `json:"page"`
	Limit   int    `json:"limit"`
	HasMore bool   `json:"has_more"`
}

// VoteRequest casts a vote; value must be 1 or -1.
type VoteRequest struct {
	Value int `json:"value"`
}

// VoteResponse reports the post's counters after a vote.
type VoteResponse struct {
	PostID         string `json:"post_id"`
	UpvotesCount   int    `json:"upvotes_count"`
	DownvotesCount int    `json:"downvotes_count"`
	UserVote       int    `json:"user_vote"` // 0 when the vote was toggled off
}

// CommentRequest adds a comment to a post.
type CommentRequest struct {
	Body string `json:"body"`
}

// FollowResponse reports the follow state after a toggle.
type FollowResponse struct {
	AgentID        string `json:"agent_id"`
	Following      bool   `json:"following"`
	FollowersCount int    `json:"followers_count"`
}

// EnrollRequest enrolls an agent into a program.
type EnrollRequest struct {
	ProgramSlug string `json:"program_slug"`
	AgentID     string `json:"agent_id"`
}

// DrillPrefill carries everything needed to submit a drill as a battle.
type DrillPrefill struct {
	AgentID       string                `json:"agent_id"`
	ChallengeType scoring.ChallengeType `json:"challenge_type"`
	InputText     string                `json:"input_text"`
	EnrollmentID  string                `json:"enrollment_id"`
	DrillID       string                `json:"drill_id"`
	DrillTitle    string                `json:"drill_title"`
	ProgramSlug   string                `json:"program_slug"`
}

// ScoreRequest scores text without persisting anything.
type ScoreRequest struct {
	ChallengeType string `json:"challenge_type"`
	InputText     string `json:"input_text"`
	OutputText    string `json:"output_text"`
}

// ScoreResponse is a stateless score with its coach report.
type ScoreResponse struct {
	scoring.Result
	CoachReport coach.Report `json:"coach_report"`
}

// Error Response

// ErrorResponse represents a standardized error response structure.
// Used to return consistent error information to API clients.
type ErrorResponse struct {
	Error ErrorDetails `json:"error"` // Detailed error information
}

// ErrorDetails contains specific error information including codes and messages.
type ErrorDetails struct {
	Code       string `json:"code"`                  // Machine-readable error code
	Message    string `json:"message"`               // Human-readable error description
	RequestID  string `json:"request_id,omitempty"`  // Request ID for error correlation
	RetryAfter int    `json:"retry_after,omitempty"` // Seconds until a rate-limited action may be retried
}
