package subconscious

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ringline/ringline/internal/provider"
	"github.com/ringline/ringline/internal/recall"
)

const governancePrompt = `You audit a live phone call against the permitted workflows below.
For every workflow step, judge its current status from the transcript:
not-started, missed, in-progress, complete or unresolved.
A step is "missed" when the conversation moved past the point where it was required.
Answer with a JSON array only, no prose:
[{"procedure":"<id>","step":"<id>","status":"<status>"}]

Workflows:
%s`

const summaryPrompt = `Summarize the phone call transcript in at most three sentences.
Keep names, order numbers, amounts and promises made to the caller.
Answer with the summary only.`

// analyzeGovernance asks the model for a per-step verdict and parses it
// into proposals. The transcript is already truncated.
func analyzeGovernance(ctx context.Context, prov provider.Provider, model, workflows, transcript string) ([]Proposal, error) {
	resp, err := prov.Chat(ctx, &provider.ChatRequest{
		Model: model,
		Messages: []provider.Message{
			{Role: "system", Content: fmt.Sprintf(governancePrompt, workflows)},
			{Role: "user", Content: transcript},
		},
		MaxTokens: 1000,
	})
	if err != nil {
		return nil, fmt.Errorf("governance analysis: %w", err)
	}
	proposals, err := parseProposals(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("governance verdict: %w", err)
	}
	return proposals, nil
}

// parseProposals extracts the JSON array from a model reply that may be
// wrapped in prose or code fences.
func parseProposals(text string) ([]Proposal, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in %q", text)
	}
	var proposals []Proposal
	if err := json.Unmarshal([]byte(text[start:end+1]), &proposals); err != nil {
		return nil, err
	}
	return proposals, nil
}

// summarize produces the running call summary.
func summarize(ctx context.Context, prov provider.Provider, model, transcript string) (string, error) {
	resp, err := prov.Chat(ctx, &provider.ChatRequest{
		Model: model,
		Messages: []provider.Message{
			{Role: "system", Content: summaryPrompt},
			{Role: "user", Content: transcript},
		},
		MaxTokens: 300,
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// indexSummary embeds a call's closing summary and stores it keyed by
// call id, so later calls can recall it. Providers without embedding
// support skip indexing quietly.
func indexSummary(ctx context.Context, prov provider.Provider, vectors recall.VectorStore, callID, summary string) error {
	emb, ok := prov.(provider.Embedder)
	if !ok || vectors == nil || summary == "" {
		return nil
	}
	resp, err := emb.Embed(ctx, &provider.EmbeddingRequest{Input: summary})
	if err != nil {
		return fmt.Errorf("embed summary: %w", err)
	}
	if err := vectors.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("recall collection: %w", err)
	}
	if err := vectors.Upsert(ctx, callID, resp.Vector, map[string]any{
		"content": summary,
		"source":  "call:" + callID,
	}); err != nil {
		return fmt.Errorf("recall upsert: %w", err)
	}
	return nil
}

// recallSuggestions embeds the caller's latest utterance and queries the
// vector store for related history. Providers without embedding support
// disable recall quietly.
func recallSuggestions(ctx context.Context, prov provider.Provider, vectors recall.VectorStore, query string, limit int) ([]string, error) {
	emb, ok := prov.(provider.Embedder)
	if !ok || vectors == nil {
		return nil, nil
	}
	resp, err := emb.Embed(ctx, &provider.EmbeddingRequest{Input: query})
	if err != nil {
		return nil, fmt.Errorf("embed recall query: %w", err)
	}
	results, err := vectors.Search(ctx, resp.Vector, limit)
	if err != nil {
		return nil, fmt.Errorf("recall search: %w", err)
	}
	out := make([]string, 0, len(results))
	for _, r := range results {
		if text, ok := r.Payload["content"].(string); ok && text != "" {
			out = append(out, text)
		}
	}
	return out, nil
}
