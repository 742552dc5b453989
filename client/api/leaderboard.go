package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	UserID      int64   `json:"user_id" validate:"required"`
	Nickname    string  `json:"nickname"`
	TotalPoints int     `json:"total_points"`
	TotalWins   int     `json:"total_wins"`
	BestScore   int     `json:"best_score"`
	GamesPlayed int     `json:"games_played"`
	AvgAccuracy float64 `json:"avg_accuracy"`
}

type QuizLeaderboard struct {
	QuizID      int64              `json:"quiz_id" validate:"required"`
	QuizTitle   string             `json:"quiz_title"`
	Leaderboard []LeaderboardEntry `json:"leaderboard" validate:"required,dive"`
}

type RoomLeaderboard struct {
	RoomID      int64              `json:"room_id" validate:"required"`
	RoomName    string             `json:"room_name"`
	Leaderboard []LeaderboardEntry `json:"leaderboard" validate:"required,dive"`
}

type LeaderboardQuery struct {
	Ordering string
	Limit    int
}

func (q LeaderboardQuery) values() url.Values {
	v := url.Values{}
	if q.Ordering != "" {
		v.Set("ordering", q.Ordering)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// GlobalLeaderboard lists players by total points, the response is a bare array.
func (c *Client) GlobalLeaderboard(ctx context.Context, q LeaderboardQuery) ([]LeaderboardEntry, error) {
	return getList[LeaderboardEntry](ctx, c, "/leaderboard/global/", q.values())
}

func (c *Client) QuizLeaderboard(ctx context.Context, quizID int64, q LeaderboardQuery) (QuizLeaderboard, error) {
	return getOne[QuizLeaderboard](ctx, c, http.MethodGet,
		fmt.Sprintf("/leaderboard/quiz/%d/", quizID), q.values(), nil)
}

func (c *Client) RoomLeaderboard(ctx context.Context, roomID int64) (RoomLeaderboard, error) {
	return getOne[RoomLeaderboard](ctx, c, http.MethodGet,
		fmt.Sprintf("/leaderboard/room/%d/", roomID), nil, nil)
}
