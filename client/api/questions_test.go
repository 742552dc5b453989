package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opt(order int, correct bool) OptionInput {
	return OptionInput{Text: "option", Order: order, IsCorrect: correct}
}

func TestValidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []OptionInput
		err  error
	}{
		{name: "single correct", opts: []OptionInput{opt(1, true)}},
		{name: "four options", opts: []OptionInput{opt(1, false), opt(2, true), opt(3, false), opt(4, false)}},
		{name: "empty", err: errNoOptions},
		{
			name: "five options",
			opts: []OptionInput{opt(1, true), opt(2, false), opt(3, false), opt(4, false), opt(1, false)},
			err:  errTooManyOptions,
		},
		{name: "order zero", opts: []OptionInput{opt(0, true)}, err: errOptionOrder},
		{name: "order five", opts: []OptionInput{opt(5, true)}, err: errOptionOrder},
		{name: "duplicate order", opts: []OptionInput{opt(1, true), opt(1, false)}, err: errDuplicateOrder},
		{name: "no correct", opts: []OptionInput{opt(1, false), opt(2, false)}, err: errCorrectCount},
		{name: "two correct", opts: []OptionInput{opt(1, true), opt(2, true)}, err: errCorrectCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validOptions(tt.opts)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestCreateQuestion(t *testing.T) {
	c, rec := newTestClient(t, http.StatusCreated, `{
		"id": 12, "text": "2+2?", "points": 10,
		"options_readonly": [{"id": 1, "text": "4", "is_correct": true, "order": 1}, {"id": 2, "text": "5", "order": 2}]
	}`)

	q, err := c.CreateQuestion(context.Background(), QuestionRequest{
		Text:    "2+2?",
		Points:  10,
		Options: []OptionInput{{Text: "4", Order: 1, IsCorrect: true}, {Text: "5", Order: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "/api/questions/", rec.last().path)
	assert.Len(t, rec.last().body["options"], 2)
	require.Len(t, q.Options, 2)
	assert.True(t, q.Options[0].IsCorrect)

	_, err = c.CreateQuestion(context.Background(), QuestionRequest{
		Text:    "2+2?",
		Options: []OptionInput{{Text: "4", Order: 1}, {Text: "5", Order: 2}},
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.ErrorIs(t, err, errCorrectCount)

	_, err = c.CreateQuestion(context.Background(), QuestionRequest{
		Text:    "2+2?",
		Points:  500,
		Options: []OptionInput{{Text: "4", Order: 1, IsCorrect: true}},
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPatchQuestionKeepsOptions(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"id": 12, "text": "2+2=?"}`)
	text := "2+2=?"

	_, err := c.PatchQuestion(context.Background(), 12, QuestionPatch{Text: &text})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, rec.last().method)
	assert.Equal(t, "/api/questions/12/", rec.last().path)
	assert.Equal(t, map[string]any{"text": "2+2=?"}, rec.last().body)
}
