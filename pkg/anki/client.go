// Package anki is the record store backed by the AnkiConnect add-on.
package anki

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ankispeech/pkg/config"
	"ankispeech/pkg/model"
)

// ErrAnkiConnect is returned when AnkiConnect reports an error in its
// response envelope.
var ErrAnkiConnect = errors.New("ankiconnect error")

// MinVersion is the oldest AnkiConnect API version with every action used here.
const MinVersion = 6

// Poster sends a JSON request and decodes the JSON response.
type Poster interface {
	PostJSON(ctx context.Context, u string, in, out any) error
}

// Client talks to AnkiConnect over JSON-RPC.
type Client struct {
	url     string
	version int
	http    Poster
}

// New creates a client for the configured endpoint.
func New(cfg config.AnkiConfig, p Poster) *Client {
	v := cfg.Version
	if v == 0 {
		v = MinVersion
	}
	return &Client{url: cfg.URL, version: v, http: p}
}

type envelope struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// invoke runs one action and decodes its result into out (may be nil).
func (c *Client) invoke(ctx context.Context, action string, params, out any) error {
	var resp response
	if err := c.http.PostJSON(ctx, c.url, envelope{Action: action, Version: c.version, Params: params}, &resp); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%w: %s: %s", ErrAnkiConnect, action, *resp.Error)
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", action, err)
	}
	return nil
}

// Version returns the AnkiConnect API version.
func (c *Client) Version(ctx context.Context) (int, error) {
	var v int
	err := c.invoke(ctx, "version", nil, &v)
	return v, err
}

// Ping checks that AnkiConnect is reachable and recent enough.
func (c *Client) Ping(ctx context.Context) error {
	v, err := c.Version(ctx)
	if err != nil {
		return fmt.Errorf("anki not reachable at %s: %w", c.url, err)
	}
	if v < MinVersion {
		return fmt.Errorf("%w: api version %d is older than %d", ErrAnkiConnect, v, MinVersion)
	}
	return nil
}

// Find returns the ids of cards matching an Anki search query.
func (c *Client) Find(ctx context.Context, query string) ([]int64, error) {
	var ids []int64
	err := c.invoke(ctx, "findCards", map[string]any{"query": query}, &ids)
	return ids, err
}

// Fetch returns the cards with the given ids, including their note fields.
func (c *Client) Fetch(ctx context.Context, ids []int64) ([]model.Card, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var cards []model.Card
	err := c.invoke(ctx, "cardsInfo", map[string]any{"cards": ids}, &cards)
	return cards, err
}

// Update sets fields on a note. Fields not named are left alone.
func (c *Client) Update(ctx context.Context, noteID int64, fields map[string]string) error {
	params := map[string]any{
		"note": map[string]any{"id": noteID, "fields": fields},
	}
	return c.invoke(ctx, "updateNoteFields", params, nil)
}

// StoreMedia writes a file into the collection's media folder.
func (c *Client) StoreMedia(ctx context.Context, filename string, data []byte) error {
	params := map[string]any{
		"filename": filename,
		"data":     base64.StdEncoding.EncodeToString(data),
	}
	return c.invoke(ctx, "storeMediaFile", params, nil)
}

// DeckNames lists every deck in the collection.
func (c *Client) DeckNames(ctx context.Context) ([]string, error) {
	var names []string
	err := c.invoke(ctx, "deckNames", nil, &names)
	return names, err
}

// DeckQuery returns the search query selecting every card of a deck.
func DeckQuery(deck string) string {
	deck = strings.ReplaceAll(deck, `"`, `\"`)
	return `deck:"` + deck + `"`
}
