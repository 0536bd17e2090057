package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"agent-arena/pkg/models"

	"github.com/google/uuid"
)

const postSelect = `SELECT p.id, p.battle_id, p.agent_id, p.user_id, p.title, p.body,
	p.upvotes_count, p.downvotes_count, p.created_at,
	(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id)
	FROM posts p`

const commentColumns = `id, post_id, user_id, body, created_at`

// UpsertPostForBattle shares a battle to the feed. A battle has at most one
// post; sharing it again only replaces the title. Returns true when a new
// post was created.
func (a *ArenaDB) UpsertPostForBattle(ctx context.Context, post *models.Post) (bool, error) {
	created := false

	err := a.withTx(ctx, func(tx *sql.Tx) error {
		var existingID string
		err := tx.QueryRowContext(ctx, `SELECT id FROM posts WHERE battle_id = ?`, post.BattleID).Scan(&existingID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if post.ID == "" {
				post.ID = uuid.New().String()
			}
			if post.CreatedAt.IsZero() {
				post.CreatedAt = a.now()
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO posts (id, battle_id, agent_id, user_id, title, body, upvotes_count, downvotes_count, created_at)
				VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?)`,
				post.ID, post.BattleID, post.AgentID, post.UserID, post.Title, post.Body, post.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert post: %w", err)
			}
			created = true
		case err != nil:
			return fmt.Errorf("failed to look up post: %w", err)
		default:
			if _, err := tx.ExecContext(ctx, `UPDATE posts SET title = ? WHERE id = ?`, post.Title, existingID); err != nil {
				return fmt.Errorf("failed to update post title: %w", err)
			}
		}

		row := tx.QueryRowContext(ctx, postSelect+` WHERE p.battle_id = ?`, post.BattleID)
		stored, err := scanPost(row)
		if err != nil {
			return fmt.Errorf("failed to reload post: %w", err)
		}
		*post = *stored
		return nil
	})

	return created, err
}

// GetPost retrieves a post by ID. Returns nil if not found.
func (a *ArenaDB) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return a.getPost(ctx, `p.id = ?`, id)
}

// GetPostByBattle retrieves the post sharing a battle. Returns nil if not found.
func (a *ArenaDB) GetPostByBattle(ctx context.Context, battleID string) (*models.Post, error) {
	return a.getPost(ctx, `p.battle_id = ?`, battleID)
}

func (a *ArenaDB) getPost(ctx context.Context, where, arg string) (*models.Post, error) {
	row := a.db.QueryRowContext(ctx, postSelect+` WHERE `+where, arg)

	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// ListPosts returns a page of the feed, newest first.
func (a *ArenaDB) ListPosts(ctx context.Context, offset, limit int) ([]models.Post, error) {
	return a.queryPosts(ctx, postSelect+` ORDER BY p.created_at DESC, p.rowid DESC LIMIT ? OFFSET ?`, limit, offset)
}

// ListPostsByAgent returns an agent's most recent posts.
func (a *ArenaDB) ListPostsByAgent(ctx context.Context, agentID string, limit int) ([]models.Post, error) {
	return a.queryPosts(ctx, postSelect+` WHERE p.agent_id = ? ORDER BY p.created_at DESC, p.rowid DESC LIMIT ?`, agentID, limit)
}

func (a *ArenaDB) queryPosts(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *post)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}

	return posts, nil
}

// CastVote applies a user's vote to a post. Repeating the current vote
// removes it and a different value replaces it; the post's counters follow.
// Returns the updated counters with the user's resulting vote (0 if removed).
func (a *ArenaDB) CastVote(ctx context.Context, postID, userID string, value int) (*models.VoteResponse, error) {
	if value != 1 && value != -1 {
		return nil, fmt.Errorf("invalid vote value %d", value)
	}

	resp := &models.VoteResponse{PostID: postID}

	err := a.withTx(ctx, func(tx *sql.Tx) error {
		var existing int
		err := tx.QueryRowContext(ctx, `SELECT value FROM votes WHERE post_id = ? AND user_id = ?`,
			postID, userID).Scan(&existing)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to look up vote: %w", err)
		}

		var upDelta, downDelta int
		switch {
		case existing == value:
			if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE post_id = ? AND user_id = ?`, postID, userID); err != nil {
				return fmt.Errorf("failed to remove vote: %w", err)
			}
			upDelta, downDelta = -boolInt(value == 1), -boolInt(value == -1)
			resp.UserVote = 0
		case existing != 0:
			if _, err := tx.ExecContext(ctx, `UPDATE votes SET value = ? WHERE post_id = ? AND user_id = ?`,
				value, postID, userID); err != nil {
				return fmt.Errorf("failed to update vote: %w", err)
			}
			upDelta, downDelta = value, -value
			resp.UserVote = value
		default:
			if _, err := tx.ExecContext(ctx, `INSERT INTO votes (post_id, user_id, value) VALUES (?, ?, ?)`,
				postID, userID, value); err != nil {
				return fmt.Errorf("failed to insert vote: %w", err)
			}
			upDelta, downDelta = boolInt(value == 1), boolInt(value == -1)
			resp.UserVote = value
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE posts SET upvotes_count = upvotes_count + ?, downvotes_count = downvotes_count + ?
			WHERE id = ?`, upDelta, downDelta, postID)
		if err != nil {
			return fmt.Errorf("failed to update vote counters: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("failed to update vote counters: post %s not found", postID)
		}

		return tx.QueryRowContext(ctx, `SELECT upvotes_count, downvotes_count FROM posts WHERE id = ?`, postID).
			Scan(&resp.UpvotesCount, &resp.DownvotesCount)
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// GetUserVote returns the user's vote on a post, 0 when there is none.
func (a *ArenaDB) GetUserVote(ctx context.Context, postID, userID string) (int, error) {
	var value int
	err := a.db.QueryRowContext(ctx, `SELECT value FROM votes WHERE post_id = ? AND user_id = ?`,
		postID, userID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get vote: %w", err)
	}
	return value, nil
}

// CreateComment stores a new comment.
func (a *ArenaDB) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = a.now()
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO comments (`+commentColumns+`) VALUES (?, ?, ?, ?, ?)`,
		comment.ID, comment.PostID, comment.UserID, comment.Body, comment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}

	return nil
}

// GetComment retrieves a comment by ID. Returns nil if not found.
func (a *ArenaDB) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	err := a.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id).
		Scan(&comment.ID, &comment.PostID, &comment.UserID, &comment.Body, &comment.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return &comment, nil
}

// DeleteComment removes a comment.
func (a *ArenaDB) DeleteComment(ctx context.Context, id string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

// ListComments returns a post's comments, oldest first.
func (a *ArenaDB) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT `+commentColumns+` FROM comments
		WHERE post_id = ? ORDER BY created_at ASC, rowid ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var comment models.Comment
		if err := rows.Scan(&comment.ID, &comment.PostID, &comment.UserID, &comment.Body, &comment.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}

	return comments, nil
}

// ToggleFollow follows the agent if the user does not follow it yet and
// unfollows it otherwise. Returns the resulting state.
func (a *ArenaDB) ToggleFollow(ctx context.Context, userID, agentID string) (bool, error) {
	following := false

	err := a.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM follows WHERE user_id = ? AND agent_id = ?`, userID, agentID)
		if err != nil {
			return fmt.Errorf("failed to remove follow: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO follows (user_id, agent_id, created_at) VALUES (?, ?, ?)`,
			userID, agentID, a.now()); err != nil {
			return fmt.Errorf("failed to insert follow: %w", err)
		}
		following = true
		return nil
	})

	return following, err
}

// IsFollowing reports whether the user follows the agent.
func (a *ArenaDB) IsFollowing(ctx context.Context, userID, agentID string) (bool, error) {
	var count int
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM follows WHERE user_id = ? AND agent_id = ?`,
		userID, agentID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return count > 0, nil
}

// CountFollowers returns how many users follow an agent.
func (a *ArenaDB) CountFollowers(ctx context.Context, agentID string) (int, error) {
	var count int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM follows WHERE agent_id = ?`, agentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	return count, nil
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	if err := row.Scan(&post.ID, &post.BattleID, &post.AgentID, &post.UserID, &post.Title, &post.Body,
		&post.UpvotesCount, &post.DownvotesCount, &post.CreatedAt, &post.CommentsCount); err != nil {
		return nil, err
	}
	return &post, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
