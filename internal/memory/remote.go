package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// RemoteConfig configures RemotePlugin.
type RemoteConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// RemotePlugin is a Plugin backed by a central memory service reached
// over HTTP, authenticated with an optional bearer token.
type RemotePlugin struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRemotePlugin builds a RemotePlugin from cfg, applying a default
// 10s timeout when unset and trimming a trailing slash from BaseURL.
func NewRemotePlugin(cfg RemoteConfig) *RemotePlugin {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemotePlugin{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name identifies this provider for logging/diagnostics.
func (p *RemotePlugin) Name() string { return "remote" }

type remoteSearchRequest struct {
	ProjectID string  `json:"project_id"`
	Query     string  `json:"query"`
	Limit     int     `json:"limit,omitempty"`
	MinScore  float32 `json:"min_score,omitempty"`
}

type remoteSearchResponse struct {
	Matches []SearchMatch `json:"matches"`
}

// Search posts payload to /v1/qa/search.
func (p *RemotePlugin) Search(ctx context.Context, payload SearchPayload) ([]SearchMatch, error) {
	var resp remoteSearchResponse
	req := remoteSearchRequest{
		ProjectID: payload.ProjectID,
		Query:     payload.Query,
		Limit:     payload.Limit,
		MinScore:  payload.MinScore,
	}
	if err := p.post(ctx, "search", req, &resp); err != nil {
		return nil, fmt.Errorf("memory: remote search: %w", err)
	}
	return resp.Matches, nil
}

type remoteHitsRequest struct {
	ProjectID  string             `json:"project_id"`
	References []ReferencePayload `json:"references"`
}

// RecordHit posts payload to /v1/qa/hits.
func (p *RemotePlugin) RecordHit(ctx context.Context, payload HitsPayload) error {
	req := remoteHitsRequest{ProjectID: payload.ProjectID, References: payload.References}
	if err := p.post(ctx, "hits", req, nil); err != nil {
		return fmt.Errorf("memory: remote record hit: %w", err)
	}
	return nil
}

// RecordCandidate posts payload to /v1/qa/candidates.
func (p *RemotePlugin) RecordCandidate(ctx context.Context, payload CandidatePayload) error {
	if err := p.post(ctx, "candidates", payload, nil); err != nil {
		return fmt.Errorf("memory: remote record candidate: %w", err)
	}
	return nil
}

// RecordValidation posts payload to /v1/qa/validations.
func (p *RemotePlugin) RecordValidation(ctx context.Context, payload ValidationPayload) error {
	if err := p.post(ctx, "validations", payload, nil); err != nil {
		return fmt.Errorf("memory: remote record validation: %w", err)
	}
	return nil
}

type remoteTaskGradeRequest struct {
	Prompt string `json:"prompt"`
}

// TaskGrade posts prompt to /v1/qa/task-grade.
func (p *RemotePlugin) TaskGrade(ctx context.Context, prompt string) (TaskGradeResult, error) {
	var resp TaskGradeResult
	if err := p.post(ctx, "task-grade", remoteTaskGradeRequest{Prompt: prompt}, &resp); err != nil {
		return TaskGradeResult{}, fmt.Errorf("memory: remote task grade: %w", err)
	}
	return resp, nil
}

// HealthCheck confirms the remote service is reachable.
func (p *RemotePlugin) HealthCheck(ctx context.Context) error {
	reqURL := p.baseURL + "/v1/qa/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	p.auth(req)
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("memory: remote health check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("memory: remote health check: status %d", resp.StatusCode)
	}
	return nil
}

func (p *RemotePlugin) auth(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
}

func (p *RemotePlugin) post(ctx context.Context, endpoint string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	reqURL := fmt.Sprintf("%s/v1/qa/%s", p.baseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	p.auth(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
