// Package rest fetches team chat history and team metadata over the
// backend's REST API. Live traffic goes over the STOMP transport; this
// client only covers the read-side collaborators the chat UI needs
// before the stream is up.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/greenworld/teamchat-sdk/teamchat-sdk-go/teamchat"
)

// ErrNotFound is returned when the backend answers 404, e.g. asking
// for the current team while not being in one.
var ErrNotFound = fmt.Errorf("not found")

// Client provides REST access to the team chat backend.
type Client struct {
	baseURL    string
	token      teamchat.TokenSource
	httpClient *http.Client
}

// NewClient creates a REST client. baseURL is the API root, e.g.
// "https://api.example.com"; token supplies the bearer token per
// request.
func NewClient(baseURL string, token teamchat.TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// GetTeamMessages fetches a team's message history, mapped into the
// canonical ChatMessage shape. Soft-deleted messages are filtered out;
// rows with an unparseable timestamp keep a zero CreatedAt so
// reconciliation sorts them first rather than dropping them.
func (c *Client) GetTeamMessages(ctx context.Context, teamID string) ([]teamchat.ChatMessage, error) {
	var dtos []chatMessageDTO
	if err := c.get(ctx, "/teams/"+teamID+"/messages", &dtos); err != nil {
		return nil, err
	}

	messages := make([]teamchat.ChatMessage, 0, len(dtos))
	for _, dto := range dtos {
		if dto.IsDeleted {
			continue
		}
		messages = append(messages, teamchat.ChatMessage{
			ID:          dto.MessageID,
			TeamID:      strconv.FormatInt(dto.TeamID, 10),
			SenderID:    strconv.FormatInt(dto.SenderID, 10),
			SenderName:  dto.SenderName,
			Text:        dto.MessageText,
			MessageType: dto.MessageType,
			CreatedAt:   parseTimestamp(dto.CreatedAt),
		})
	}
	return messages, nil
}

// GetMyTeam returns the caller's current team, or ErrNotFound when the
// user is not in a team.
func (c *Client) GetMyTeam(ctx context.Context) (*TeamInfo, error) {
	var team TeamInfo
	if err := c.get(ctx, "/teams/my-team", &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// ListTeams returns all joinable teams.
func (c *Client) ListTeams(ctx context.Context) ([]TeamInfo, error) {
	var teams []TeamInfo
	if err := c.get(ctx, "/teams/list", &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return fmt.Errorf("token lookup: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
			return fmt.Errorf("api error (status %d): %s", resp.StatusCode, errResp.Message)
		}
		return fmt.Errorf("http error: %s (status %d)", string(body), resp.StatusCode)
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// parseTimestamp converts the backend's zone-less LocalDateTime (or an
// RFC3339 timestamp) to epoch ms. Zero when unparseable.
func parseTimestamp(s string) int64 {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}
