package synthesizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/rapidlearn/audiostory/internal/pkg/audio"
)

// ErrEmptyAudio indicates the voice service returned an empty byte stream
var ErrEmptyAudio = errors.New("empty audio received")

const fallbackClipDuration = 2000 * time.Millisecond

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Client calls a remote voice synthesis service
// with no key configured it degrades to a silent clip instead of failing
type Client struct {
	httpclient *http.Client
	url        string
	key        string
	voiceID    string
	model      string
	format     string
	timeout    time.Duration
}

// NewClient creates a voice synthesis client
// key may be empty - the client then always returns the silence fallback
func NewClient(url, key, voiceID, model, format string) (*Client, error) {
	res := Client{}
	if url == "" {
		return nil, fmt.Errorf("no url")
	}
	if voiceID == "" {
		return nil, fmt.Errorf("no voiceID")
	}
	if model == "" {
		return nil, fmt.Errorf("no model")
	}
	res.url = url
	res.key = key
	res.voiceID = voiceID
	res.model = model
	res.format = format
	res.timeout = time.Second * 60
	res.httpclient = &http.Client{Transport: newTransport()}
	return &res, nil
}

// NewClientFromConfig creates a voice synthesis client from voice.* config keys
func NewClientFromConfig(c *viper.Viper) (*Client, error) {
	return NewClient(c.GetString("voice.url"), c.GetString("voice.key"),
		c.GetString("voice.voiceID"), c.GetString("voice.model"), c.GetString("voice.format"))
}

// Synthesize voices the text, returns encoded audio bytes
func (sp *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if sp.key == "" {
		goapp.Log.Warn().Msg("no voice service key, returning silent clip")
		return audio.Silence(fallbackClipDuration), nil
	}

	ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
	defer cancelF()

	b, err := json.Marshal(ttsRequest{Text: text, ModelID: sp.model})
	if err != nil {
		return nil, fmt.Errorf("can't marshal request: %w", err)
	}
	urlStr := fmt.Sprintf("%s/%s?output_format=%s", sp.url, sp.voiceID, sp.format)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("can't prepare request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", sp.key)

	goapp.Log.Info().Str("url", req.URL.String()).Int("textLen", len(text)).Msg("call voice service")
	resp, err := sp.httpclient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("can't synthesize speech: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		goapp.Log.Warn().Int("code", resp.StatusCode).Msg("voice service denied access, returning silent clip")
		return audio.Silence(fallbackClipDuration), nil
	}
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return nil, fmt.Errorf("can't synthesize speech: %w", err)
	}
	br, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("can't read audio: %w", err)
	}
	if len(br) == 0 {
		return nil, ErrEmptyAudio
	}
	goapp.Log.Info().Int("bytes", len(br)).Msg("audio received")
	return br, nil
}

func newTransport() http.RoundTripper {
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 100
	res.MaxIdleConns = 50
	res.MaxIdleConnsPerHost = 50
	res.IdleConnTimeout = 90 * time.Second
	return res
}
