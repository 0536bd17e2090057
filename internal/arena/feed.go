package arena

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"agent-arena/pkg/events"
	"agent-arena/pkg/models"
	"agent-arena/pkg/moderation"
)

// Feed limits
const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100
	MaxPostTitle     = 200
	MaxCommentBody   = 1000
	AgentPostsLimit  = 5
)

// PostShared is the payload of the post.shared event.
type PostShared struct {
	PostID   string `json:"post_id"`
	BattleID string `json:"battle_id"`
	AgentID  string `json:"agent_id"`
	UserID   string `json:"user_id"`
	Title    string `json:"title"`
}

// CommentCreated is the payload of the comment.created event.
type CommentCreated struct {
	CommentID string `json:"comment_id"`
	PostID    string `json:"post_id"`
	UserID    string `json:"user_id"`
}

// ShareBattle publishes one of the user's battles to the feed. Sharing a
// battle again only changes the post title.
func (s *Service) ShareBattle(ctx context.Context, userID string, req models.SharePostRequest) (*models.Post, error) {
	if err := s.checkRate(ctx, ActionPostPublish, userID); err != nil {
		return nil, err
	}

	battle, err := s.store.GetBattle(ctx, req.BattleID)
	if err != nil {
		return nil, err
	}
	if battle == nil {
		return nil, notFound("battle")
	}
	if battle.UserID != userID {
		return nil, fmt.Errorf("%w: you can only share your own battles", ErrUnauthorized)
	}

	title := strings.TrimSpace(req.Title)
	if utf8.RuneCountInString(title) > MaxPostTitle {
		return nil, invalidf("title must be %d characters or less", MaxPostTitle)
	}
	if title != "" {
		if r := moderation.Moderate(title, moderation.ContextPost); !r.Allowed {
			return nil, invalidf("title: %s", r.Reason)
		}
	} else {
		agent, err := s.store.GetAgent(ctx, battle.AgentID)
		if err != nil {
			return nil, err
		}
		agentName := "My agent"
		if agent != nil {
			agentName = agent.Name
		}
		title = fmt.Sprintf("%s scored %d on %s Challenge!", agentName, battle.ScoreTotal, battle.ChallengeType.Title())
	}

	post := &models.Post{
		BattleID:  battle.ID,
		AgentID:   battle.AgentID,
		UserID:    userID,
		Title:     title,
		Body:      fmt.Sprintf("My agent completed a %s challenge and scored %d points!", battle.ChallengeType, battle.ScoreTotal),
		CreatedAt: s.now(),
	}

	created, err := s.store.UpsertPostForBattle(ctx, post)
	if err != nil {
		return nil, err
	}

	if created {
		s.feedLog.Info().Str("post_id", post.ID).Str("battle_id", battle.ID).Msg("Battle shared")
		s.publish(ctx, s.feedLog, events.PostShared, PostShared{
			PostID:   post.ID,
			BattleID: battle.ID,
			AgentID:  battle.AgentID,
			UserID:   userID,
			Title:    post.Title,
		})
	}

	return post, nil
}

// Feed returns one page of posts, newest first. Pages start at 1.
func (s *Service) Feed(ctx context.Context, page, limit int) (*models.FeedPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}

	// one extra row tells whether another page exists
	posts, err := s.store.ListPosts(ctx, (page-1)*limit, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}

	return &models.FeedPage{Posts: posts, Page: page, Limit: limit, HasMore: hasMore}, nil
}

// GetPost returns a post by ID.
func (s *Service) GetPost(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, notFound("post")
	}
	return post, nil
}

// ListAgentPosts returns an agent's most recent posts.
func (s *Service) ListAgentPosts(ctx context.Context, agentID string) ([]models.Post, error) {
	return s.store.ListPostsByAgent(ctx, agentID, AgentPostsLimit)
}

// Vote casts an upvote (1) or downvote (-1). Repeating a vote removes it.
func (s *Service) Vote(ctx context.Context, userID, postID string, value int) (*models.VoteResponse, error) {
	if value != 1 && value != -1 {
		return nil, invalidf("vote must be 1 or -1")
	}
	if err := s.checkRate(ctx, ActionVote, userID); err != nil {
		return nil, err
	}
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	return s.store.CastVote(ctx, postID, userID, value)
}

// PostVote reports a post's counters and the caller's current vote.
func (s *Service) PostVote(ctx context.Context, userID, postID string) (*models.VoteResponse, error) {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	value, err := s.store.GetUserVote(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	return &models.VoteResponse{
		PostID:         post.ID,
		UpvotesCount:   post.UpvotesCount,
		DownvotesCount: post.DownvotesCount,
		UserVote:       value,
	}, nil
}

// Comment adds a moderated comment to a post.
func (s *Service) Comment(ctx context.Context, userID, postID string, req models.CommentRequest) (*models.Comment, error) {
	if err := s.checkRate(ctx, ActionComment, userID); err != nil {
		return nil, err
	}

	body := strings.TrimSpace(req.Body)
	if n := utf8.RuneCountInString(body); n < 1 || n > MaxCommentBody {
		return nil, invalidf("comment must be between 1 and %d characters", MaxCommentBody)
	}
	if r := moderation.Moderate(body, moderation.ContextComment); !r.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrContentBlocked, r.Reason)
	}

	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:    postID,
		UserID:    userID,
		Body:      body,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	s.publish(ctx, s.feedLog, events.CommentCreated, CommentCreated{
		CommentID: comment.ID,
		PostID:    postID,
		UserID:    userID,
	})

	return comment, nil
}

// DeleteComment removes one of the user's own comments.
func (s *Service) DeleteComment(ctx context.Context, userID, commentID string) error {
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment == nil {
		return notFound("comment")
	}
	if comment.UserID != userID {
		return fmt.Errorf("%w: you can only delete your own comments", ErrUnauthorized)
	}

	return s.store.DeleteComment(ctx, commentID)
}

// ListComments returns a post's comments, oldest first.
func (s *Service) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, postID)
}

// ToggleFollow follows an agent, or unfollows it when already followed.
func (s *Service) ToggleFollow(ctx context.Context, userID, agentID string) (*models.FollowResponse, error) {
	if err := s.checkRate(ctx, ActionFollow, userID); err != nil {
		return nil, err
	}
	if _, err := s.GetAgent(ctx, agentID); err != nil {
		return nil, err
	}

	following, err := s.store.ToggleFollow(ctx, userID, agentID)
	if err != nil {
		return nil, err
	}
	followers, err := s.store.CountFollowers(ctx, agentID)
	if err != nil {
		return nil, err
	}

	return &models.FollowResponse{AgentID: agentID, Following: following, FollowersCount: followers}, nil
}

// FollowStatus reports whether userID follows the agent.
func (s *Service) FollowStatus(ctx context.Context, userID, agentID string) (*models.FollowResponse, error) {
	if _, err := s.GetAgent(ctx, agentID); err != nil {
		return nil, err
	}

	following, err := s.store.IsFollowing(ctx, userID, agentID)
	if err != nil {
		return nil, err
	}
	followers, err := s.store.CountFollowers(ctx, agentID)
	if err != nil {
		return nil, err
	}

	return &models.FollowResponse{AgentID: agentID, Following: following, FollowersCount: followers}, nil
}
