package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"storyboard/internal/domain"
)

const (
	// DefaultDashScopeBaseURL is the default DashScope API host
	DefaultDashScopeBaseURL = "https://dashscope.aliyuncs.com"
	// DefaultDashScopeModel is the text-to-image model
	DefaultDashScopeModel = "wanx-v1"
	// DefaultDashScopeTimeout is the HTTP timeout for a single DashScope request
	DefaultDashScopeTimeout = 30 * time.Second

	synthesisPath = "/api/v1/services/aigc/text2image/image-synthesis"
	tasksPath     = "/api/v1/tasks/"

	taskSucceeded = "SUCCEEDED"
	taskFailed    = "FAILED"
)

// DashScopeClient implements ImageGenerator for Alibaba DashScope (wanx).
// Generation is asynchronous: a task is submitted, then polled until done.
type DashScopeClient struct {
	apiKey     string
	baseURL    string
	model      string
	poll       PollConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewDashScopeClient creates a new DashScope client with default settings.
func NewDashScopeClient(apiKey string, logger *slog.Logger) *DashScopeClient {
	return NewDashScopeClientWithConfig(apiKey, DefaultDashScopeBaseURL, DefaultDashScopeModel, DefaultPollConfig(), DefaultDashScopeTimeout, logger)
}

// NewDashScopeClientWithConfig creates a DashScope client with custom configuration.
func NewDashScopeClientWithConfig(apiKey, baseURL, model string, poll PollConfig, timeout time.Duration, logger *slog.Logger) *DashScopeClient {
	if baseURL == "" {
		baseURL = DefaultDashScopeBaseURL
	}
	if model == "" {
		model = DefaultDashScopeModel
	}
	return &DashScopeClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		poll:    poll,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type synthesisRequest struct {
	Model string `json:"model"`
	Input struct {
		Prompt string `json:"prompt"`
	} `json:"input"`
	Parameters struct {
		Size string `json:"size"`
		N    int    `json:"n"`
	} `json:"parameters"`
}

type taskResponse struct {
	Output struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
		Message    string `json:"message"`
		Results    []struct {
			URL string `json:"url"`
		} `json:"results"`
	} `json:"output"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// Generate implements ImageGenerator.
func (c *DashScopeClient) Generate(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	taskID, err := c.submit(ctx, req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("image task submitted", "task_id", taskID, "size", req.Size)

	var imageURL string
	err = Poll(ctx, c.poll, func(ctx context.Context, attempt int) (bool, error) {
		status, err := c.status(ctx, taskID)
		if err != nil {
			return true, err
		}

		switch status.Output.TaskStatus {
		case taskSucceeded:
			if len(status.Output.Results) == 0 || status.Output.Results[0].URL == "" {
				return true, &domain.UpstreamError{Provider: "dashscope", Err: fmt.Errorf("task %s succeeded without an image URL", taskID)}
			}
			imageURL = status.Output.Results[0].URL
			return true, nil
		case taskFailed:
			return true, &TaskFailedError{TaskID: taskID, Reason: status.Output.Message}
		default:
			c.logger.Debug("image task pending", "task_id", taskID, "status", status.Output.TaskStatus, "attempt", attempt)
			return false, nil
		}
	})
	if err != nil {
		return nil, err
	}

	return &ImageResult{URL: imageURL, TaskID: taskID, Prompt: req.Prompt}, nil
}

// submit starts an asynchronous synthesis task and returns its id
func (c *DashScopeClient) submit(ctx context.Context, req ImageRequest) (string, error) {
	var payload synthesisRequest
	payload.Model = c.model
	payload.Input.Prompt = req.Prompt
	payload.Parameters.Size = req.Size
	payload.Parameters.N = 1

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+synthesisPath, bytes.NewReader(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-DashScope-Async", "enable")

	var resp taskResponse
	if err := c.do(httpReq, &resp); err != nil {
		return "", err
	}
	if resp.Output.TaskID == "" {
		return "", &domain.UpstreamError{Provider: "dashscope", Err: fmt.Errorf("no task id in response")}
	}

	return resp.Output.TaskID, nil
}

// status fetches the current state of a task
func (c *DashScopeClient) status(ctx context.Context, taskID string) (*taskResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tasksPath+taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	var resp taskResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, fmt.Errorf("check task status: %w", err)
	}
	return &resp, nil
}

func (c *DashScopeClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.UpstreamError{Provider: "dashscope", Err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }() // Error ignored: response consumed

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.UpstreamError{Provider: "dashscope", Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return &domain.UpstreamError{
			Provider: "dashscope",
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &domain.UpstreamError{Provider: "dashscope", Status: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return nil
}
