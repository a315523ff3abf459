// Package kickapi contains minimal helpers to interact with Kick's v2 API:
// resolving the authenticated user's profile, channel and chat connection
// parameters, plus the OAuth code-grant plumbing used to obtain and refresh
// the bearer credential those calls require.
package kickapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const defaultBaseURL = "https://kick.com"

// Profile describes the authenticated user.
type Profile struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// Channel describes the user's channel and its chatroom.
type Channel struct {
	ID       int    `json:"id"`
	Slug     string `json:"slug"`
	Chatroom struct {
		ID int `json:"id"`
	} `json:"chatroom"`
}

// ConnectionParameters carry what a realtime session needs to open and
// authenticate its socket.
type ConnectionParameters struct {
	Endpoint string
	Auth     string
}

// BootstrapResult is the output of the full bootstrap chain.
type BootstrapResult struct {
	Profile Profile
	Channel Channel
	Conn    ConnectionParameters
}

// Client provides the Kick API methods needed before a chat session can open.
type Client struct {
	Creds      CredentialSource
	BaseURL    string
	HTTPClient *http.Client
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	tok, err := c.Creds.Credential(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthenticated
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("kick api %s: %s: %s", path, resp.Status, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetProfile resolves the authenticated user's profile.
func (c *Client) GetProfile(ctx context.Context) (Profile, error) {
	var p Profile
	if err := c.getJSON(ctx, "/api/v2/user/me", &p); err != nil {
		return Profile{}, err
	}
	if p.Username == "" {
		return Profile{}, fmt.Errorf("profile response missing username")
	}
	return p, nil
}

// GetChannel resolves the authenticated user's channel and chatroom ids.
func (c *Client) GetChannel(ctx context.Context) (Channel, error) {
	var ch Channel
	if err := c.getJSON(ctx, "/api/v2/channels/me", &ch); err != nil {
		return Channel{}, err
	}
	if ch.Chatroom.ID == 0 {
		return Channel{}, fmt.Errorf("channel response missing chatroom id")
	}
	return ch, nil
}

// GetChatConnection fetches the websocket endpoint and per-channel auth token
// for a channel's chat.
func (c *Client) GetChatConnection(ctx context.Context, channelID int) (ConnectionParameters, error) {
	var body struct {
		Websocket struct {
			Endpoint string `json:"endpoint"`
			Auth     string `json:"auth"`
		} `json:"websocket"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/api/v2/channels/%d/chat", channelID), &body); err != nil {
		return ConnectionParameters{}, err
	}
	if body.Websocket.Endpoint == "" {
		return ConnectionParameters{}, fmt.Errorf("chat connection response missing endpoint")
	}
	return ConnectionParameters{Endpoint: body.Websocket.Endpoint, Auth: body.Websocket.Auth}, nil
}

// Bootstrap runs the strictly sequential resolution chain:
// profile -> channel -> chat connection parameters. Each step depends on the
// prior one and any failure aborts the whole chain with a BootstrapError
// naming the failed step; partial results are discarded.
func (c *Client) Bootstrap(ctx context.Context) (*BootstrapResult, error) {
	profile, err := c.GetProfile(ctx)
	if err != nil {
		return nil, &BootstrapError{Step: StepProfile, Err: err}
	}
	channel, err := c.GetChannel(ctx)
	if err != nil {
		return nil, &BootstrapError{Step: StepChannel, Err: err}
	}
	conn, err := c.GetChatConnection(ctx, channel.ID)
	if err != nil {
		return nil, &BootstrapError{Step: StepChatConnection, Err: err}
	}
	slog.Info("bootstrap complete",
		slog.String("username", profile.Username),
		slog.String("slug", channel.Slug),
		slog.Int("chatroom_id", channel.Chatroom.ID))
	return &BootstrapResult{Profile: profile, Channel: channel, Conn: conn}, nil
}
