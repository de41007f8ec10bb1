package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// ChatbotNotifier tells a chatbot it was assigned to a ticket. Notification
// is fire-and-forget: failures are logged, never retried, and never block the
// assignment itself.
type ChatbotNotifier struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewChatbotNotifier(endpoint string, logger *slog.Logger) *ChatbotNotifier {
	return &ChatbotNotifier{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With("module", "chatbot_notifier"),
	}
}

type notifyRequest struct {
	ChatbotID string `json:"chatbot_id"`
	TicketID  string `json:"ticket_id"`
	Message   string `json:"message"`
}

// Notify sends the assignment notification asynchronously. The spawned call
// is bounded by its own timeout, not the caller's context, so dispatch can
// return immediately.
func (n *ChatbotNotifier) Notify(chatbotID, ticketID, message string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := n.send(ctx, notifyRequest{
			ChatbotID: chatbotID,
			TicketID:  ticketID,
			Message:   message,
		}); err != nil {
			n.logger.Error("Chatbot notification failed",
				"chatbot_id", chatbotID,
				"ticket_id", ticketID,
				"error", err)
		}
	}()
}

func (n *ChatbotNotifier) send(ctx context.Context, req notifyRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(httpReq)
	if err != nil {
		return err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return &DispatchError{StatusCode: resp.StatusCode}
	}

	return nil
}
