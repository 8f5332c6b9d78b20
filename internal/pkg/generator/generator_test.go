package generator

import (
	"context"
	"fmt"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rapidlearn/audiostory/internal/pkg/test"
)

var (
	invokerMock *mockInvoker
	timerMock   *testTimer
	cl          *Client
)

func initTest(t *testing.T) {
	invokerMock = &mockInvoker{}
	timerMock = newTestTimer()
	cl = &Client{client: invokerMock, model: "test-model", timeout: time.Second * 5, timer: timerMock}
}

func Test_Generate(t *testing.T) {
	initTest(t)
	invokerMock.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(chatResp("  A short story...  "), nil)
	res, err := cl.Generate(test.Ctx(t), "Gravity", "Why do things fall?", "easy")
	assert.Nil(t, err)
	assert.Equal(t, "A short story...", res)
	require.Equal(t, 1, len(invokerMock.Calls))
	assert.Equal(t, 0, len(timerMock.waits))
}

func Test_Generate_PassesParams(t *testing.T) {
	initTest(t)
	invokerMock.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(chatResp("olia"), nil)
	_, err := cl.Generate(test.Ctx(t), "Gravity", "Why do things fall?", "easy")
	assert.Nil(t, err)
	req := invokerMock.Calls[0].Arguments[1].(openai.ChatCompletionRequest)
	assert.Equal(t, "test-model", req.Model)
	assert.InDelta(t, 0.7, req.Temperature, 0.0001)
	assert.Equal(t, 500, req.MaxTokens)
	assert.InDelta(t, 0.9, req.TopP, 0.0001)
	require.Equal(t, 2, len(req.Messages))
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, "Gravity")
	assert.Contains(t, req.Messages[1].Content, "Why do things fall?")
	assert.Contains(t, req.Messages[1].Content, "easy")
}

func Test_Generate_RateLimited_Backoff(t *testing.T) {
	initTest(t)
	rlErr := &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}
	invokerMock.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, rlErr).Twice()
	invokerMock.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(chatResp("done"), nil).Once()
	res, err := cl.Generate(test.Ctx(t), "t", "d", "easy")
	assert.Nil(t, err)
	assert.Equal(t, "done", res)
	require.Equal(t, 3, len(invokerMock.Calls))
	require.Equal(t, []time.Duration{4000 * time.Millisecond, 8000 * time.Millisecond}, timerMock.waits)
}

func Test_Generate_Transient_Backoff(t *testing.T) {
	initTest(t)
	invokerMock.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, fmt.Errorf("olia err")).Once()
	invokerMock.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(chatResp("done"), nil).Once()
	res, err := cl.Generate(test.Ctx(t), "t", "d", "easy")
	assert.Nil(t, err)
	assert.Equal(t, "done", res)
	require.Equal(t, []time.Duration{1000 * time.Millisecond}, timerMock.waits)
}

func Test_Generate_Exhausted(t *testing.T) {
	initTest(t)
	invokerMock.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, fmt.Errorf("olia err"))
	_, err := cl.Generate(test.Ctx(t), "t", "d", "easy")
	require.NotNil(t, err)
	var exErr *ExhaustedError
	require.ErrorAs(t, err, &exErr)
	assert.Contains(t, err.Error(), "olia err")
	require.Equal(t, 3, len(invokerMock.Calls))
}

func Test_Generate_EmptyChoices(t *testing.T) {
	initTest(t)
	invokerMock.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, nil)
	res, err := cl.Generate(test.Ctx(t), "t", "d", "easy")
	assert.Nil(t, err)
	assert.Equal(t, "", res)
	require.Equal(t, 1, len(invokerMock.Calls))
}

func Test_NewClient(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		key     string
		model   string
		wantErr bool
	}{
		{name: "OK", url: "http://olia", key: "key", model: "m", wantErr: false},
		{name: "no key", url: "http://olia", key: "", model: "m", wantErr: true},
		{name: "no model", url: "http://olia", key: "key", model: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.url, tt.key, tt.model)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func chatResp(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Content: text}}}}
}

type mockInvoker struct{ mock.Mock }

func (m *mockInvoker) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

// testTimer records requested waits and fires immediately
type testTimer struct {
	waits []time.Duration
	ch    chan time.Time
}

func newTestTimer() *testTimer {
	return &testTimer{ch: make(chan time.Time, 1)}
}

func (t *testTimer) Start(d time.Duration) {
	t.waits = append(t.waits, d)
	t.ch <- time.Now()
}

func (t *testTimer) Stop() {}

func (t *testTimer) C() <-chan time.Time {
	return t.ch
}
