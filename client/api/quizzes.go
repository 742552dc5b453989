package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/adwski/quizroom/client/model"
)

type Topic struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Quiz struct {
	ID            int64           `json:"id" validate:"required"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Visibility    string          `json:"visibility" validate:"omitempty,oneof=public private"`
	Status        string          `json:"status" validate:"omitempty,oneof=draft published archived"`
	Topics        []Topic         `json:"topics"`
	QuestionCount int             `json:"question_count"`
	CreatedAt     model.Timestamp `json:"created_at"`
	UpdatedAt     model.Timestamp `json:"updated_at"`
}

type QuestionOrder struct {
	QuestionID int64 `json:"question_id" validate:"required"`
	Order      int   `json:"order" validate:"min=0"`
}

// QuizRequest creates or replaces a quiz of the current user.
type QuizRequest struct {
	Title          string          `json:"title" validate:"required,max=140"`
	Description    string          `json:"description"`
	Visibility     string          `json:"visibility,omitempty" validate:"omitempty,oneof=public private"`
	Status         string          `json:"status,omitempty" validate:"omitempty,oneof=draft published archived"`
	QuestionOrders []QuestionOrder `json:"question_orders,omitempty" validate:"dive"`
}

type QuizPatch struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=140"`
	Description *string `json:"description,omitempty"`
	Visibility  *string `json:"visibility,omitempty" validate:"omitempty,oneof=public private"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=draft published archived"`
}

func myQuizPath(id int64) string {
	return fmt.Sprintf("/quizzes/mine/%d/", id)
}

func (c *Client) PublicQuizzes(ctx context.Context) ([]Quiz, error) {
	return getList[Quiz](ctx, c, "/quizzes/", nil)
}

func (c *Client) Quiz(ctx context.Context, id int64) (Quiz, error) {
	return getOne[Quiz](ctx, c, http.MethodGet, fmt.Sprintf("/quizzes/%d/", id), nil, nil)
}

func (c *Client) MyQuizzes(ctx context.Context) ([]Quiz, error) {
	return getList[Quiz](ctx, c, "/quizzes/mine/", nil)
}

func (c *Client) MyQuiz(ctx context.Context, id int64) (Quiz, error) {
	return getOne[Quiz](ctx, c, http.MethodGet, myQuizPath(id), nil, nil)
}

func (c *Client) CreateQuiz(ctx context.Context, req QuizRequest) (Quiz, error) {
	return getOne[Quiz](ctx, c, http.MethodPost, "/quizzes/mine/", nil, &req)
}

func (c *Client) UpdateQuiz(ctx context.Context, id int64, req QuizRequest) (Quiz, error) {
	return getOne[Quiz](ctx, c, http.MethodPut, myQuizPath(id), nil, &req)
}

func (c *Client) PatchQuiz(ctx context.Context, id int64, req QuizPatch) (Quiz, error) {
	return getOne[Quiz](ctx, c, http.MethodPatch, myQuizPath(id), nil, &req)
}

func (c *Client) DeleteQuiz(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, myQuizPath(id), nil, nil, nil)
}
