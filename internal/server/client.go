package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Client — клиент для API администратора.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient создает новый экземпляр Client.
// Временные ошибки сети и ответы 5xx повторяются.
func NewClient(baseURL, token string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil

	httpClient := rc.StandardClient()
	httpClient.Timeout = 30 * time.Second

	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
	}
}

// APIError — ответ сервера с кодом ошибки.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code: %d", e.Status)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.Status, e.Message)
}

func chatPath(chatID string) string {
	return "/api/v1/chats/" + url.PathEscape(chatID)
}

func warningsPath(chatID, userID string) string {
	return chatPath(chatID) + "/warnings/" + url.PathEscape(userID)
}

// ListChats возвращает чаты реестра.
func (c *Client) ListChats(ctx context.Context) ([]ChatDTO, error) {
	var out []ChatDTO
	if err := c.do(ctx, http.MethodGet, "/api/v1/chats", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListWarnings возвращает всех пользователей чата с предупреждениями.
func (c *Client) ListWarnings(ctx context.Context, chatID string) ([]UserWarningsDTO, error) {
	var out []UserWarningsDTO
	if err := c.do(ctx, http.MethodGet, chatPath(chatID)+"/warnings", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetWarnings возвращает журнал одного пользователя.
func (c *Client) GetWarnings(ctx context.Context, chatID, userID string) (*UserWarningsDTO, error) {
	var out UserWarningsDTO
	if err := c.do(ctx, http.MethodGet, warningsPath(chatID, userID), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Warn выдает предупреждение.
func (c *Client) Warn(ctx context.Context, chatID, userID string, req WarnRequest) (*WarnResponse, error) {
	var out WarnResponse
	if err := c.do(ctx, http.MethodPost, warningsPath(chatID, userID), req, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearWarnings удаляет все предупреждения пользователя.
func (c *Client) ClearWarnings(ctx context.Context, chatID, userID string) error {
	return c.do(ctx, http.MethodDelete, warningsPath(chatID, userID), nil, http.StatusNoContent, nil)
}

// UpdateSettings меняет настройки автоматического контента.
func (c *Client) UpdateSettings(ctx context.Context, chatID string, req SettingsRequest) (*ChatDTO, error) {
	var out ChatDTO
	if err := c.do(ctx, http.MethodPut, chatPath(chatID)+"/settings", req, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Trigger немедленно отправляет контент в чат.
func (c *Client) Trigger(ctx context.Context, chatID, requester string) error {
	return c.do(ctx, http.MethodPost, chatPath(chatID)+"/trigger", TriggerRequest{Requester: requester}, http.StatusAccepted, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var e ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
