package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrNoGameServer is returned when a player action is attempted without a
// game server to deliver it to
var ErrNoGameServer = errors.New("no game server configured")

// EmptyDirectory is a PlayerDirectory with nobody online
type EmptyDirectory struct{}

func (EmptyDirectory) OnlinePlayers(context.Context) []Player { return nil }

func (EmptyDirectory) Message(context.Context, Player, string) error { return ErrNoGameServer }

func (EmptyDirectory) Kick(context.Context, Player, string) error { return ErrNoGameServer }

// HTTPDirectory reaches the game server through its player API:
//
//	GET  {base}/players                  [{"uuid": "...", "name": "..."}]
//	POST {base}/players/{uuid}/message   {"message": "..."}
//	POST {base}/players/{uuid}/kick      {"message": "..."}
type HTTPDirectory struct {
	base   string
	client *http.Client
	log    *logrus.Logger
}

// NewHTTPDirectory creates a directory for the player API at baseURL
func NewHTTPDirectory(baseURL string, timeout time.Duration, log *logrus.Logger) *HTTPDirectory {
	if log == nil {
		log = logrus.New()
	}
	return &HTTPDirectory{
		base: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: log,
	}
}

// OnlinePlayers lists the players currently online. Failures are logged and
// reported as nobody online.
func (d *HTTPDirectory) OnlinePlayers(ctx context.Context) []Player {
	var players []Player
	if err := d.do(ctx, http.MethodGet, "/players", nil, &players); err != nil {
		d.log.WithError(err).Warn("Failed to list online players")
		return nil
	}
	return players
}

// Message sends a chat message to player
func (d *HTTPDirectory) Message(ctx context.Context, player Player, message string) error {
	return d.action(ctx, player, "message", message)
}

// Kick disconnects player with message
func (d *HTTPDirectory) Kick(ctx context.Context, player Player, message string) error {
	return d.action(ctx, player, "kick", message)
}

func (d *HTTPDirectory) action(ctx context.Context, player Player, action, message string) error {
	if player.UUID == "" {
		return fmt.Errorf("cannot %s player %q without a uuid", action, player.Name)
	}
	body := struct {
		Message string `json:"message"`
	}{Message: message}
	return d.do(ctx, http.MethodPost, "/players/"+url.PathEscape(player.UUID)+"/"+action, body, nil)
}

func (d *HTTPDirectory) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.base+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
