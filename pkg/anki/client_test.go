package anki

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ankispeech/pkg/config"
	"ankispeech/pkg/request"
)

type call struct {
	Action  string          `json:"action"`
	Version int             `json:"version"`
	Params  json.RawMessage `json:"params"`
}

// fakeAnki answers AnkiConnect actions from a handler map.
func fakeAnki(t *testing.T, handlers map[string]func(params json.RawMessage) (any, string)) (*Client, *[]call) {
	t.Helper()
	var calls []call
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var c call
		require.NoError(t, json.NewDecoder(r.Body).Decode(&c))
		calls = append(calls, c)

		h, ok := handlers[c.Action]
		if !ok {
			_ = json.NewEncoder(w).Encode(map[string]any{"result": nil, "error": "unsupported action"})
			return
		}
		result, errMsg := h(c.Params)
		resp := map[string]any{"result": result, "error": nil}
		if errMsg != "" {
			resp["error"] = errMsg
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(svr.Close)

	rc := request.New(config.RequestConfig{Retries: 1, Timeout: config.Duration(5 * time.Second)}, nil, nil)
	return New(config.AnkiConfig{URL: svr.URL}, rc), &calls
}

func TestPing(t *testing.T) {
	c, calls := fakeAnki(t, map[string]func(json.RawMessage) (any, string){
		"version": func(json.RawMessage) (any, string) { return 6, "" },
	})
	require.NoError(t, c.Ping(context.Background()))
	require.Len(t, *calls, 1)
	assert.Equal(t, 6, (*calls)[0].Version)

	old, _ := fakeAnki(t, map[string]func(json.RawMessage) (any, string){
		"version": func(json.RawMessage) (any, string) { return 5, "" },
	})
	assert.ErrorIs(t, old.Ping(context.Background()), ErrAnkiConnect)
}

func TestPing_Unreachable(t *testing.T) {
	rc := request.New(config.RequestConfig{Retries: 1, Timeout: config.Duration(time.Second)}, nil, nil)
	c := New(config.AnkiConfig{URL: "http://127.0.0.1:1"}, rc)
	assert.Error(t, c.Ping(context.Background()))
}

func TestFindAndFetch(t *testing.T) {
	c, calls := fakeAnki(t, map[string]func(json.RawMessage) (any, string){
		"findCards": func(p json.RawMessage) (any, string) {
			var params struct{ Query string }
			_ = json.Unmarshal(p, &params)
			if params.Query != `deck:"Words"` {
				return nil, "bad query " + params.Query
			}
			return []int64{11, 12}, ""
		},
		"cardsInfo": func(p json.RawMessage) (any, string) {
			return []map[string]any{
				{"cardId": 11, "note": 101, "deckName": "Words", "fields": map[string]any{
					"Expression": map[string]any{"value": "hello", "order": 0},
				}},
				{"cardId": 12, "note": 102, "deckName": "Words", "fields": map[string]any{}},
			}, ""
		},
	})

	ids, err := c.Find(context.Background(), DeckQuery("Words"))
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 12}, ids)

	cards, err := c.Fetch(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, int64(101), cards[0].NoteID)
	assert.Equal(t, "hello", cards[0].Field("Expression"))
	assert.JSONEq(t, `{"cards":[11,12]}`, string((*calls)[1].Params))
}

func TestFetch_NoIDs(t *testing.T) {
	c, calls := fakeAnki(t, nil)
	cards, err := c.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, cards)
	assert.Empty(t, *calls)
}

func TestUpdateAndStoreMedia(t *testing.T) {
	c, calls := fakeAnki(t, map[string]func(json.RawMessage) (any, string){
		"updateNoteFields": func(json.RawMessage) (any, string) { return nil, "" },
		"storeMediaFile":   func(json.RawMessage) (any, string) { return "speech_x.mp3", "" },
	})

	require.NoError(t, c.StoreMedia(context.Background(), "speech_x.mp3", []byte("ID3data")))
	require.NoError(t, c.Update(context.Background(), 101, map[string]string{"Audio": "[sound:speech_x.mp3]", "Regenerate": ""}))

	require.Len(t, *calls, 2)
	var media struct{ Filename, Data string }
	require.NoError(t, json.Unmarshal((*calls)[0].Params, &media))
	assert.Equal(t, "speech_x.mp3", media.Filename)
	raw, err := base64.StdEncoding.DecodeString(media.Data)
	require.NoError(t, err)
	assert.Equal(t, "ID3data", string(raw))

	assert.JSONEq(t, `{"note":{"id":101,"fields":{"Audio":"[sound:speech_x.mp3]","Regenerate":""}}}`, string((*calls)[1].Params))
}

func TestEnvelopeError(t *testing.T) {
	c, _ := fakeAnki(t, map[string]func(json.RawMessage) (any, string){
		"updateNoteFields": func(json.RawMessage) (any, string) { return nil, "note was not found: 5" },
	})
	err := c.Update(context.Background(), 5, map[string]string{"Audio": ""})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAnkiConnect))
	assert.Contains(t, err.Error(), "note was not found")
}

func TestDeckNames(t *testing.T) {
	c, _ := fakeAnki(t, map[string]func(json.RawMessage) (any, string){
		"deckNames": func(json.RawMessage) (any, string) { return []string{"Default", "Words"}, "" },
	})
	names, err := c.DeckNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Default", "Words"}, names)
}

func TestDeckQuery(t *testing.T) {
	assert.Equal(t, `deck:"Words"`, DeckQuery("Words"))
	assert.Equal(t, `deck:"Fur::Vol 1"`, DeckQuery("Fur::Vol 1"))
	assert.Equal(t, `deck:"say \"hi\""`, DeckQuery(`say "hi"`))
}
