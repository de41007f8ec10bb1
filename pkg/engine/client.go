package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrUnauthorized indicates the engine rejected the bearer token twice in a
// row; the dispatch is abandoned.
var ErrUnauthorized = errors.New("execution engine rejected credentials")

// DispatchError wraps a non-authorization engine failure (e.g. 5xx). The
// event is considered delivered but not actioned; recovery belongs to the
// at-least-once upstream redelivery.
type DispatchError struct {
	WorkflowID string
	StatusCode int
	Err        error
}

func (e *DispatchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("start workflow %s: engine returned status %d", e.WorkflowID, e.StatusCode)
	}

	return fmt.Sprintf("start workflow %s: %v", e.WorkflowID, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// StartWorkflowRequest asks the execution engine to start one workflow for
// one triggering event.
type StartWorkflowRequest struct {
	WorkflowID string `json:"workflow_id"        validate:"required"`
	TicketID   string `json:"ticket_id,omitempty"`
	ContactID  string `json:"contact_id,omitempty"`
	CompanyID  string `json:"company_id,omitempty"`
}

// Client talks to the external execution engine. StartWorkflow retries
// exactly once on an authorization failure after refreshing credentials; a
// second authorization failure is fatal for the dispatch.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials CredentialProvider
	logger      *slog.Logger
}

func NewClient(baseURL string, credentials CredentialProvider, logger *slog.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		credentials: credentials,
		logger:      logger.With("module", "engine_client"),
	}
}

// StartWorkflow submits a start request. Idempotency across feed redeliveries
// is the engine's responsibility, not this client's.
func (c *Client) StartWorkflow(ctx context.Context, req StartWorkflowRequest) error {
	status, err := c.post(ctx, req)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		c.logger.Warn("Engine rejected token, refreshing credentials",
			"workflow_id", req.WorkflowID)
		c.credentials.Invalidate()

		status, err = c.post(ctx, req)
		if err != nil {
			return err
		}

		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return &DispatchError{WorkflowID: req.WorkflowID, StatusCode: status, Err: ErrUnauthorized}
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return &DispatchError{WorkflowID: req.WorkflowID, StatusCode: status}
	}

	c.logger.Info("Workflow dispatched to execution engine",
		"workflow_id", req.WorkflowID,
		"ticket_id", req.TicketID)

	return nil
}

func (c *Client) post(ctx context.Context, req StartWorkflowRequest) (int, error) {
	token, err := c.credentials.EnsureValid(ctx)
	if err != nil {
		return 0, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return 0, &DispatchError{WorkflowID: req.WorkflowID, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/workflows/start", bytes.NewReader(payload))
	if err != nil {
		return 0, &DispatchError{WorkflowID: req.WorkflowID, Err: err}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, &DispatchError{WorkflowID: req.WorkflowID, Err: err}
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	return resp.StatusCode, nil
}
