package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/lorrc/modmail-backend/internal/core/errors"
)

const defaultAPIBase = "https://discord.com/api/v10"

// restClient is a thin rate-limited HTTP client for the Discord REST API.
// A single token bucket fronts every call; Discord's own per-route limits
// are far above what one modmail bot produces.
type restClient struct {
	http    *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter
}

func newRESTClient(token string, rps float64, burst int) *restClient {
	if rps <= 0 {
		rps = 25
	}
	if burst <= 0 {
		burst = int(rps) * 2
	}
	return &restClient{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: defaultAPIBase,
		token:   token,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// apiError is a non-2xx REST response.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("discord api: status %d: %s", e.Status, e.Message)
}

func (c *restClient) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var wire struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &wire)
		return &apiError{Status: resp.StatusCode, Message: wire.Message}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// isNotFound reports whether err is a REST 404.
func isNotFound(err error) bool {
	ae, ok := err.(*apiError)
	return ok && ae.Status == http.StatusNotFound
}

func (c *restClient) getUser(ctx context.Context, userID string) (*wireUser, error) {
	var u wireUser
	if err := c.do(ctx, http.MethodGet, "/users/"+userID, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *restClient) getChannel(ctx context.Context, channelID string) (*wireChannel, error) {
	var ch wireChannel
	if err := c.do(ctx, http.MethodGet, "/channels/"+channelID, nil, &ch); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("channel %s: %w", channelID, apperrors.ErrChannelGone)
		}
		return nil, err
	}
	return &ch, nil
}

func (c *restClient) deleteChannel(ctx context.Context, channelID string) error {
	if err := c.do(ctx, http.MethodDelete, "/channels/"+channelID, nil, nil); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("channel %s: %w", channelID, apperrors.ErrChannelGone)
		}
		return err
	}
	return nil
}

func (c *restClient) getGuildChannels(ctx context.Context, guildID string) ([]wireChannel, error) {
	var channels []wireChannel
	if err := c.do(ctx, http.MethodGet, "/guilds/"+guildID+"/channels", nil, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

type createChannelRequest struct {
	Name                 string                `json:"name"`
	Type                 int                   `json:"type"`
	Topic                string                `json:"topic,omitempty"`
	ParentID             string                `json:"parent_id,omitempty"`
	PermissionOverwrites []permissionOverwrite `json:"permission_overwrites,omitempty"`
}

type permissionOverwrite struct {
	ID    string `json:"id"`
	Type  int    `json:"type"` // 0 = role
	Deny  string `json:"deny"`
	Allow string `json:"allow"`
}

func (c *restClient) createGuildChannel(ctx context.Context, guildID string, req createChannelRequest) (*wireChannel, error) {
	var ch wireChannel
	if err := c.do(ctx, http.MethodPost, "/guilds/"+guildID+"/channels", req, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// isGuildMember checks membership via the guild member endpoint; a 404
// simply means the user is not a member.
func (c *restClient) isGuildMember(ctx context.Context, guildID, userID string) (bool, error) {
	err := c.do(ctx, http.MethodGet, "/guilds/"+guildID+"/members/"+userID, nil, nil)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *restClient) createDMChannel(ctx context.Context, userID string) (*wireChannel, error) {
	var ch wireChannel
	body := map[string]string{"recipient_id": userID}
	if err := c.do(ctx, http.MethodPost, "/users/@me/channels", body, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (c *restClient) createMessage(ctx context.Context, channelID string, payload wireMessagePayload) (*wireMessage, error) {
	var msg wireMessage
	if err := c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages", payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *restClient) editMessage(ctx context.Context, channelID, messageID string, payload wireMessagePayload) error {
	return c.do(ctx, http.MethodPatch, "/channels/"+channelID+"/messages/"+messageID, payload, nil)
}

func (c *restClient) createReaction(ctx context.Context, channelID, messageID, emoji string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s/@me",
		channelID, messageID, url.PathEscape(emoji))
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

type interactionCallback struct {
	Type int                `json:"type"`
	Data wireMessagePayload `json:"data"`
}

func (c *restClient) createInteractionResponse(ctx context.Context, interactionID, token string, callback interactionCallback) error {
	path := fmt.Sprintf("/interactions/%s/%s/callback", interactionID, token)
	return c.do(ctx, http.MethodPost, path, callback, nil)
}
