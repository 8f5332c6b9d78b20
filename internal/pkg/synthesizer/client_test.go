package synthesizer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidlearn/audiostory/internal/pkg/audio"
	"github.com/rapidlearn/audiostory/internal/pkg/test"
)

func newTestClient(t *testing.T, key string, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cl, err := NewClient(srv.URL, key, "voice1", "model1", "mp3_44100_128")
	require.Nil(t, err)
	cl.timeout = time.Second * 5
	return cl
}

func Test_Synthesize(t *testing.T) {
	var gotReq ttsRequest
	var gotKey, gotPath string
	cl := newTestClient(t, "key", func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("xi-api-key")
		gotPath = r.URL.Path
		require.Nil(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte("audio bytes"))
	})
	res, err := cl.Synthesize(test.Ctx(t), "olia text")
	assert.Nil(t, err)
	assert.Equal(t, []byte("audio bytes"), res)
	assert.Equal(t, "key", gotKey)
	assert.Equal(t, "/voice1", gotPath)
	assert.Equal(t, "olia text", gotReq.Text)
	assert.Equal(t, "model1", gotReq.ModelID)
}

func Test_Synthesize_NoKey(t *testing.T) {
	calls := 0
	cl := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		calls++
	})
	res, err := cl.Synthesize(test.Ctx(t), "olia")
	assert.Nil(t, err)
	assert.Equal(t, audio.Silence(2*time.Second), res)
	assert.Equal(t, 0, calls)
}

func Test_Synthesize_AuthFailure_Fallback(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		cl := newTestClient(t, "key", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		})
		res, err := cl.Synthesize(test.Ctx(t), "olia")
		assert.Nil(t, err)
		assert.Equal(t, audio.Silence(2*time.Second), res)
	}
}

func Test_Synthesize_Empty_Fails(t *testing.T) {
	cl := newTestClient(t, "key", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	_, err := cl.Synthesize(test.Ctx(t), "olia")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrEmptyAudio)
}

func Test_Synthesize_ServiceError_Fails(t *testing.T) {
	cl := newTestClient(t, "key", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := cl.Synthesize(test.Ctx(t), "olia")
	assert.NotNil(t, err)
}

func Test_NewClient(t *testing.T) {
	type args struct {
		url, key, voiceID, model, format string
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{name: "OK", args: args{url: "http://olia", key: "k", voiceID: "v", model: "m", format: "f"}, wantErr: false},
		{name: "OK no key", args: args{url: "http://olia", voiceID: "v", model: "m", format: "f"}, wantErr: false},
		{name: "no url", args: args{key: "k", voiceID: "v", model: "m", format: "f"}, wantErr: true},
		{name: "no voice", args: args{url: "http://olia", key: "k", model: "m", format: "f"}, wantErr: true},
		{name: "no model", args: args{url: "http://olia", key: "k", voiceID: "v", format: "f"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.args.url, tt.args.key, tt.args.voiceID, tt.args.model, tt.args.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
