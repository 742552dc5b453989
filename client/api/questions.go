package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/adwski/quizroom/client/model"
)

var (
	errNoOptions      = errors.New("a question needs at least one option")
	errTooManyOptions = errors.New("a question has at most 4 options")
	errOptionOrder    = errors.New("option order must be within 1..4")
	errDuplicateOrder = errors.New("option order values must be unique")
	errCorrectCount   = errors.New("exactly one option must be correct")
)

type AnswerOption struct {
	ID        int64  `json:"id" validate:"required"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order"`
}

type Question struct {
	ID          int64           `json:"id" validate:"required"`
	Text        string          `json:"text"`
	Explanation string          `json:"explanation"`
	Difficulty  string          `json:"difficulty"`
	Points      int             `json:"points"`
	Options     []AnswerOption  `json:"options_readonly" validate:"dive"`
	CreatedAt   model.Timestamp `json:"created_at"`
}

type OptionInput struct {
	ID        int64  `json:"id,omitempty"`
	Text      string `json:"text" validate:"required,max=300"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order"`
}

type QuestionRequest struct {
	Text        string        `json:"text" validate:"required"`
	Explanation string        `json:"explanation,omitempty"`
	Difficulty  string        `json:"difficulty,omitempty"`
	Points      int           `json:"points,omitempty" validate:"omitempty,min=1,max=100"`
	Options     []OptionInput `json:"options" validate:"options,dive"`
}

// QuestionPatch changes some fields of a question. A non-nil Options replaces all options.
type QuestionPatch struct {
	Text        *string       `json:"text,omitempty" validate:"omitempty,min=1"`
	Explanation *string       `json:"explanation,omitempty"`
	Difficulty  *string       `json:"difficulty,omitempty"`
	Points      *int          `json:"points,omitempty" validate:"omitempty,min=1,max=100"`
	Options     []OptionInput `json:"options,omitempty" validate:"omitempty,options,dive"`
}

func questionPath(id int64) string {
	return fmt.Sprintf("/questions/%d/", id)
}

func (c *Client) Questions(ctx context.Context) ([]Question, error) {
	return getList[Question](ctx, c, "/questions/", nil)
}

func (c *Client) Question(ctx context.Context, id int64) (Question, error) {
	return getOne[Question](ctx, c, http.MethodGet, questionPath(id), nil, nil)
}

func (c *Client) CreateQuestion(ctx context.Context, req QuestionRequest) (Question, error) {
	if err := validOptions(req.Options); err != nil {
		return Question{}, errors.Join(ErrInvalidRequest, err)
	}
	return getOne[Question](ctx, c, http.MethodPost, "/questions/", nil, &req)
}

func (c *Client) UpdateQuestion(ctx context.Context, id int64, req QuestionRequest) (Question, error) {
	if err := validOptions(req.Options); err != nil {
		return Question{}, errors.Join(ErrInvalidRequest, err)
	}
	return getOne[Question](ctx, c, http.MethodPut, questionPath(id), nil, &req)
}

func (c *Client) PatchQuestion(ctx context.Context, id int64, req QuestionPatch) (Question, error) {
	if req.Options != nil {
		if err := validOptions(req.Options); err != nil {
			return Question{}, errors.Join(ErrInvalidRequest, err)
		}
	}
	return getOne[Question](ctx, c, http.MethodPatch, questionPath(id), nil, &req)
}

func (c *Client) DeleteQuestion(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, questionPath(id), nil, nil, nil)
}
