package archipelago

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NeboLoop/archipelago-go-sdk/wire"
)

// DefaultWebHost is the public Archipelago web host.
const DefaultWebHost = "https://archipelago.gg"

// APIClient talks to the Archipelago WebHost REST API. It works
// independently of the websocket Client; no live connection is needed.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a WebHost client. An empty baseURL selects
// DefaultWebHost. A nil httpClient gets a 30 second timeout.
func NewAPIClient(baseURL string, httpClient *http.Client) (*APIClient, error) {
	if baseURL == "" {
		baseURL = DefaultWebHost
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: web host %q", ErrInvalidAddress, baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// BaseURL returns the web host address.
func (c *APIClient) BaseURL() string { return c.baseURL }

// --------------------------------------------------------------------------
// Data packages
// --------------------------------------------------------------------------

// DataPackage fetches one game's data package by checksum.
func (c *APIClient) DataPackage(ctx context.Context, checksum string) (*wire.GameData, error) {
	if checksum == "" {
		return nil, fmt.Errorf("archipelago: empty checksum")
	}
	var gd wire.GameData
	if err := c.doJSON(ctx, "/api/datapackage/"+url.PathEscape(checksum), &gd); err != nil {
		return nil, err
	}
	if gd.Checksum == "" {
		gd.Checksum = checksum
	}
	return &gd, nil
}

// DataPackageChecksums fetches game → checksum for every game the host knows.
func (c *APIClient) DataPackageChecksums(ctx context.Context) (map[string]string, error) {
	var sums map[string]string
	if err := c.doJSON(ctx, "/api/datapackage_checksum", &sums); err != nil {
		return nil, err
	}
	return sums, nil
}

// --------------------------------------------------------------------------
// Rooms
// --------------------------------------------------------------------------

// RoomStatus fetches the public status of a room.
func (c *APIClient) RoomStatus(ctx context.Context, roomID string) (*RoomStatus, error) {
	if roomID == "" {
		return nil, fmt.Errorf("archipelago: empty room id")
	}
	var rs RoomStatus
	if err := c.doJSON(ctx, "/api/room_status/"+url.PathEscape(roomID), &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

// --------------------------------------------------------------------------
// HTTP helpers
// --------------------------------------------------------------------------

func (c *APIClient) doJSON(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
