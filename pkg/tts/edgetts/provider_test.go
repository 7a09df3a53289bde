package edgetts

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ankispeech/pkg/config"
	"ankispeech/pkg/tracker"
	"ankispeech/pkg/tts"
)

func TestHandleBinaryMessage(t *testing.T) {
	var buf bytes.Buffer

	header := []byte("info")
	audio := []byte{0x01, 0x02, 0x03, 0x04}
	data := append([]byte{0x00, 0x04}, header...)
	data = append(data, audio...)

	if err := handleBinaryMessage(data, &buf); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if !bytes.Equal(buf.Bytes(), audio) {
		t.Errorf("Expected audio data %v, got %v", audio, buf.Bytes())
	}

	if err := handleBinaryMessage([]byte{0x00}, &buf); err != nil {
		t.Errorf("Too short message should be ignored, got %v", err)
	}
	if err := handleBinaryMessage([]byte{0x00, 0x09, 'x'}, &buf); err != nil {
		t.Errorf("Truncated header should be ignored, got %v", err)
	}
	if buf.Len() != len(audio) {
		t.Errorf("ignored messages must not write, got %d bytes", buf.Len())
	}
}

func TestGenerateSecMSGec(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	token := generateSecMSGec("token", now)
	if len(token) != 64 {
		t.Errorf("Expected token length 64, got %d", len(token))
	}
	if token != strings.ToUpper(token) {
		t.Error("token should be upper-case hex")
	}
	if generateSecMSGec("token", now.Add(10*time.Minute)) == token {
		t.Error("token must roll over after five minutes")
	}
	if generateSecMSGec("other", now) == token {
		t.Error("token must depend on the client token")
	}
}

func TestResolveVoice(t *testing.T) {
	p := NewProvider(config.EdgeTTSConfig{VoiceID: "en-US-AvaMultilingualNeural"}, nil)
	if got := p.resolveVoice("en-GB-SoniaNeural"); got != "en-GB-SoniaNeural" {
		t.Errorf("resolveVoice kept = %q", got)
	}
	if got := p.resolveVoice("Charon"); got != "en-US-AvaMultilingualNeural" {
		t.Errorf("resolveVoice fallback = %q", got)
	}
}

func TestSynthesize_Websocket(t *testing.T) {
	tts.SetLogPath("")
	defer tts.SetLogPath("logs/tts.log")

	audio := bytes.Repeat([]byte{0xAB}, tts.MinAudioSize)
	var gotSSML string

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for i := 0; i < 2; i++ {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if strings.Contains(string(msg), "Path:ssml") {
				gotSSML = string(msg)
			}
		}

		header := []byte("Path:audio\r\n")
		frame := append([]byte{0x00, byte(len(header))}, header...)
		frame = append(frame, audio...)
		_ = conn.WriteMessage(websocket.BinaryMessage, frame)
		_ = conn.WriteMessage(websocket.TextMessage, []byte("X-RequestId:1\r\nPath:turn.end\r\n\r\n{}"))
	}))
	defer srv.Close()

	t.Setenv("EDGE_TTS_ORIGIN", "chrome-extension://test")
	t.Setenv("EDGE_TTS_USER_AGENT", "test-agent")
	t.Setenv("EDGE_TTS_TRUSTED_CLIENT_TOKEN", "token")
	t.Setenv("EDGE_TTS_SEC_MS_GEC_VERSION", "1-0")
	t.Setenv("EDGE_TTS_BASE_URL", "ws"+strings.TrimPrefix(srv.URL, "http"))

	tr := tracker.New()
	p := NewProvider(config.EdgeTTSConfig{VoiceID: "en-US-AvaMultilingualNeural"}, tr)
	got, err := p.Synthesize(context.Background(), "Fish & chips", "Charon")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !bytes.Equal(got.Data, audio) {
		t.Errorf("audio mismatch: %d bytes", len(got.Data))
	}
	if !strings.Contains(gotSSML, "Fish &amp; chips") || !strings.Contains(gotSSML, "en-US-AvaMultilingualNeural") {
		t.Errorf("unexpected ssml: %s", gotSSML)
	}
	if tr.Snapshot()["edge-tts"].APISuccess != 1 {
		t.Error("expected success to be tracked")
	}
}

func TestSynthesize_MissingEnv(t *testing.T) {
	t.Setenv("EDGE_TTS_ORIGIN", "")
	p := NewProvider(config.EdgeTTSConfig{VoiceID: "en-US-AvaMultilingualNeural"}, nil)
	if _, err := p.Synthesize(context.Background(), "hi", ""); err == nil {
		t.Error("expected error without EDGE_TTS_ORIGIN")
	}
}
