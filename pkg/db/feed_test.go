package db

import (
	"context"
	"testing"
	"time"

	"agent-arena/pkg/models"
	"agent-arena/pkg/scoring"
)

func createTestPost(t *testing.T, db *ArenaDB, title string) *models.Post {
	t.Helper()

	agent := createTestAgent(t, db, "user_1", "Athena")
	battle := recordTestBattle(t, db, agent, scoring.Logic, strongLogicOutput)

	post := &models.Post{
		BattleID: battle.ID,
		AgentID:  agent.ID,
		UserID:   agent.UserID,
		Title:    title,
		Body:     "My agent completed a logic challenge and scored 70 points!",
	}
	created, err := db.UpsertPostForBattle(context.Background(), post)
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	if !created {
		t.Fatal("Expected a new post")
	}
	return post
}

func TestArenaDB_UpsertPostForBattle(t *testing.T) {
	db, cleanup := createTestArenaDB(t)
	defer cleanup()
	ctx := context.Background()

	post := createTestPost(t, db, "First title")

	again := &models.Post{
		BattleID: post.BattleID,
		AgentID:  post.AgentID,
		UserID:   post.UserID,
		Title:    "Second title",
		Body:     "ignored",
	}
	created, err := db.UpsertPostForBattle(ctx, again)
	if err != nil {
		t.Fatalf("Failed to reshare battle: %v", err)
	}
	if created {
		t.Error("Expected existing post to be updated")
	}
	if again.ID != post.ID {
		t.Errorf("Expected post ID %s, got %s", post.ID, again.ID)
	}
	if again.Title != "Second title" {
		t.Errorf("Expected updated title, got %s", again.Title)
	}
	if again.Body != post.Body {
		t.Errorf("Expected body to be kept, got %s", again.Body)
	}

	byBattle, err := db.GetPostByBattle(ctx, post.BattleID)
	if err != nil {
		t.Fatalf("Failed to get post by battle: %v", err)
	}
	if byBattle == nil || byBattle.ID != post.ID {
		t.Errorf("Expected post %s by battle, got %+v", post.ID, byBattle)
	}

	missing, err := db.GetPost(ctx, "non_existent")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for missing post")
	}
}

func TestArenaDB_ListPosts(t *testing.T) {
	db, cleanup := createTestArenaDB(t)
	defer cleanup()
	stepClock(db, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	older := createTestPost(t, db, "Older")
	newer := createTestPost(t, db, "Newer")

	page, err := db.ListPosts(ctx, 0, 1)
	if err != nil {
		t.Fatalf("Failed to list posts: %v", err)
	}
	if len(page) != 1 || page[0].ID != newer.ID {
		t.Fatalf("Expected newest post first, got %+v", page)
	}

	next, err := db.ListPosts(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Failed to list posts: %v", err)
	}
	if len(next) != 1 || next[0].ID != older.ID {
		t.Errorf("Expected older post on second page, got %+v", next)
	}

	byAgent, err := db.ListPostsByAgent(ctx, older.AgentID, 5)
	if err != nil {
		t.Fatalf("Failed to list agent posts: %v", err)
	}
	if len(byAgent) != 1 || byAgent[0].ID != older.ID {
		t.Errorf("Expected one post for agent, got %+v", byAgent)
	}
}

func TestArenaDB_CastVote(t *testing.T) {
	db, cleanup := createTestArenaDB(t)
	defer cleanup()
	ctx := context.Background()

	post := createTestPost(t, db, "Votes")

	tests := []struct {
		name     string
		userID   string
		value    int
		up, down int
		userVote int
	}{
		{"first upvote", "voter_1", 1, 1, 0, 1},
		{"second user downvotes", "voter_2", -1, 1, 1, -1},
		{"switch to downvote", "voter_1", -1, 0, 2, -1},
		{"same value toggles off", "voter_1", -1, 0, 1, 0},
		{"vote again after toggle", "voter_1", 1, 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := db.CastVote(ctx, post.ID, tt.userID, tt.value)
			if err != nil {
				t.Fatalf("Failed to vote: %v", err)
			}
			if resp.UpvotesCount != tt.up || resp.DownvotesCount != tt.down {
				t.Errorf("Expected %d/%d, got %d/%d", tt.up, tt.down, resp.UpvotesCount, resp.DownvotesCount)
			}
			if resp.UserVote != tt.userVote {
				t.Errorf("Expected user vote %d, got %d", tt.userVote, resp.UserVote)
			}

			stored, err := db.GetUserVote(ctx, post.ID, tt.userID)
			if err != nil {
				t.Fatalf("Failed to get vote: %v", err)
			}
			if stored != tt.userVote {
				t.Errorf("Expected stored vote %d, got %d", tt.userVote, stored)
			}
		})
	}

	if _, err := db.CastVote(ctx, post.ID, "voter_3", 2); err == nil {
		t.Error("Expected error for invalid vote value")
	}
	if _, err := db.CastVote(ctx, "non_existent", "voter_3", 1); err == nil {
		t.Error("Expected error for unknown post")
	}
}

func TestArenaDB_Comments(t *testing.T) {
	db, cleanup := createTestArenaDB(t)
	defer cleanup()
	stepClock(db, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	post := createTestPost(t, db, "Comments")

	first := &models.Comment{PostID: post.ID, UserID: "user_2", Body: "Nice structure"}
	second := &models.Comment{PostID: post.ID, UserID: "user_3", Body: "Great answer"}
	for _, c := range []*models.Comment{first, second} {
		if err := db.CreateComment(ctx, c); err != nil {
			t.Fatalf("Failed to create comment: %v", err)
		}
	}

	comments, err := db.ListComments(ctx, post.ID)
	if err != nil {
		t.Fatalf("Failed to list comments: %v", err)
	}
	if len(comments) != 2 || comments[0].ID != first.ID {
		t.Fatalf("Expected oldest comment first, got %+v", comments)
	}

	withCount, _ := db.GetPost(ctx, post.ID)
	if withCount.CommentsCount != 2 {
		t.Errorf("Expected 2 comments on post, got %d", withCount.CommentsCount)
	}

	retrieved, err := db.GetComment(ctx, first.ID)
	if err != nil {
		t.Fatalf("Failed to get comment: %v", err)
	}
	if retrieved == nil || retrieved.Body != "Nice structure" {
		t.Errorf("Expected stored comment, got %+v", retrieved)
	}

	if err := db.DeleteComment(ctx, first.ID); err != nil {
		t.Fatalf("Failed to delete comment: %v", err)
	}
	deleted, err := db.GetComment(ctx, first.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if deleted != nil {
		t.Error("Expected comment to be deleted")
	}
}

func TestArenaDB_ToggleFollow(t *testing.T) {
	db, cleanup := createTestArenaDB(t)
	defer cleanup()
	ctx := context.Background()

	agent := createTestAgent(t, db, "user_1", "Athena")

	expected := []bool{true, false, true}
	for i, want := range expected {
		following, err := db.ToggleFollow(ctx, "fan_1", agent.ID)
		if err != nil {
			t.Fatalf("Failed to toggle follow: %v", err)
		}
		if following != want {
			t.Errorf("Toggle %d: expected following=%v, got %v", i+1, want, following)
		}
	}

	isFollowing, err := db.IsFollowing(ctx, "fan_1", agent.ID)
	if err != nil {
		t.Fatalf("Failed to check follow: %v", err)
	}
	if !isFollowing {
		t.Error("Expected fan_1 to follow the agent")
	}

	count, err := db.CountFollowers(ctx, agent.ID)
	if err != nil {
		t.Fatalf("Failed to count followers: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 follower, got %d", count)
	}
}
