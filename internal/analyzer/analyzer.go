// Package analyzer turns review text into a ranked dish list via a single
// LLM call with a fixed prompt template and a strict JSON output contract.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"platepick/internal/apperrs"
	"platepick/internal/llm"
	"platepick/internal/model"
)

// DefaultTopN is the conventional size of the returned dish list.
const DefaultTopN = 3

type Analyzer struct {
	client llm.Client
	model  string
	topN   int
	logger *zap.Logger
}

// New builds an analyzer on top of an LLM client. topN <= 0 uses the
// default of 3.
func New(client llm.Client, modelName string, topN int, logger *zap.Logger) *Analyzer {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		client: client,
		model:  modelName,
		topN:   topN,
		logger: logger.Named("analyzer"),
	}
}

// TopDishes returns the top-N dishes ranked by positive mention frequency.
// An empty review list short-circuits with ErrNoData before any LLM call;
// malformed model output yields a ParseError, not retried here.
func (a *Analyzer) TopDishes(ctx context.Context, reviews []model.Review) ([]model.Dish, error) {
	if len(reviews) == 0 {
		return nil, apperrs.ErrNoData
	}

	start := time.Now()

	req := &llm.ChatRequest{
		Model: a.model,
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: fmt.Sprintf(systemPrompt, a.topN)},
			{Role: llm.RoleUser, Content: fmt.Sprintf(userPromptTemplate, a.topN, buildReviewBlock(reviews))},
		},
		ResponseFormat: &llm.ResponseFormat{Type: llm.ResponseFormatJSON},
	}

	resp, err := a.client.ChatCompletion(ctx, req)
	if err != nil {
		return nil, &apperrs.UpstreamError{Target: "llm", Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &apperrs.UpstreamError{Target: "llm", Message: "no choices in response"}
	}

	dishes, err := parseDishes(resp.Choices[0].Message.Content, a.topN)
	if err != nil {
		return nil, err
	}

	a.logger.Info("dish analysis completed",
		zap.Int("review_count", len(reviews)),
		zap.Int("dish_count", len(dishes)),
		zap.Duration("duration", time.Since(start)),
	)

	return dishes, nil
}

// parseDishes decodes the model's JSON payload and normalizes ranks.
// A double-nested {"dishes":{"dishes":[...]}} reply, the same defect the
// cache read path guards for, is unwrapped one level.
func parseDishes(content string, topN int) ([]model.Dish, error) {
	var envelope struct {
		Dishes json.RawMessage `json:"dishes"`
	}
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return nil, &apperrs.ParseError{Message: "model output is not a JSON object", Err: err}
	}
	if len(envelope.Dishes) == 0 {
		return nil, &apperrs.ParseError{Message: "model output has no dishes field"}
	}

	var dishes []model.Dish
	if err := json.Unmarshal(envelope.Dishes, &dishes); err != nil {
		var nested struct {
			Dishes []model.Dish `json:"dishes"`
		}
		if err2 := json.Unmarshal(envelope.Dishes, &nested); err2 != nil {
			return nil, &apperrs.ParseError{Message: "dishes field has unexpected shape", Err: err}
		}
		dishes = nested.Dishes
	}

	valid := dishes[:0]
	for _, d := range dishes {
		if d.Name == "" {
			continue
		}
		valid = append(valid, d)
	}
	if len(valid) == 0 {
		return nil, &apperrs.ParseError{Message: "model returned no named dishes"}
	}

	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Rank < valid[j].Rank })
	if len(valid) > topN {
		valid = valid[:topN]
	}
	for i := range valid {
		valid[i].Rank = i + 1
	}

	return valid, nil
}
