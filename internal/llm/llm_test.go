package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

type stubConverse struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (s *stubConverse) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	s.input = params
	return s.out, s.err
}

func textOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
		}},
		StopReason: brtypes.StopReasonEndTurn,
		Usage: &brtypes.TokenUsage{
			InputTokens:  aws.Int32(10),
			OutputTokens: aws.Int32(4),
			TotalTokens:  aws.Int32(14),
		},
	}
}

func TestBedrockClient_Complete(t *testing.T) {
	stub := &stubConverse{out: textOutput("  hello there ")}
	client := NewBedrockClient(stub, "model-a")

	resp, err := client.Complete(context.Background(), Request{
		System: []string{"be kind"},
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: "extra rule"},
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
			{Role: RoleUser, Content: "   "},
			{Role: RoleUser, Content: "how are you"},
		},
		MaxTokens:   64,
		Temperature: 0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Text)
	assert.Equal(t, "bedrock:model-a", resp.Tier)
	assert.Equal(t, int32(14), resp.Usage.TotalTokens)
	assert.Equal(t, "end_turn", resp.StopReason)

	require.NotNil(t, stub.input)
	assert.Equal(t, "model-a", aws.ToString(stub.input.ModelId))
	assert.Len(t, stub.input.System, 2)
	assert.Len(t, stub.input.Messages, 3)
	assert.Equal(t, int32(64), aws.ToInt32(stub.input.InferenceConfig.MaxTokens))
}

func TestBedrockClient_RequestModelOverrides(t *testing.T) {
	stub := &stubConverse{out: textOutput("ok")}
	client := NewBedrockClient(stub, "model-a")

	_, err := client.Complete(context.Background(), Request{
		Model:       "model-b",
		Messages:    []ChatMessage{{Role: RoleUser, Content: "hi"}},
		Temperature: -1,
	})
	require.NoError(t, err)
	assert.Equal(t, "model-b", aws.ToString(stub.input.ModelId))
	assert.Nil(t, stub.input.InferenceConfig)
}

func TestBedrockClient_Errors(t *testing.T) {
	_, err := NewBedrockClient(&stubConverse{}, "").Complete(context.Background(), Request{})
	assert.Error(t, err)

	_, err = NewBedrockClient(&stubConverse{out: textOutput("x")}, "m").Complete(context.Background(), Request{
		Messages: []ChatMessage{{Role: "tool", Content: "x"}},
	})
	assert.Error(t, err)

	_, err = NewBedrockClient(&stubConverse{out: textOutput("   ")}, "m").Complete(context.Background(), Request{
		Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
	})
	assert.Error(t, err)

	boom := errors.New("throttled")
	_, err = NewBedrockClient(&stubConverse{err: boom}, "m").Complete(context.Background(), Request{
		Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
	})
	assert.ErrorIs(t, err, boom)
}

func TestFallback_WalksTiersInOrder(t *testing.T) {
	var calls []string
	failing := ClientFunc(func(context.Context, Request) (Response, error) {
		calls = append(calls, "primary")
		return Response{}, errors.New("unavailable")
	})
	working := ClientFunc(func(context.Context, Request) (Response, error) {
		calls = append(calls, "secondary")
		return Response{Text: "answer"}, nil
	})

	fb := NewFallback(logging.Discard(),
		Tier{Name: "primary", Client: failing},
		Tier{Name: "nil", Client: nil},
		Tier{Name: "secondary", Client: working},
	)
	assert.Equal(t, 2, fb.Len())

	resp, err := fb.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Text)
	assert.Equal(t, "secondary", resp.Tier)
	assert.Equal(t, []string{"primary", "secondary"}, calls)
}

func TestFallback_AllFail(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	fb := NewFallback(logging.Discard(),
		Tier{Name: "a", Client: ClientFunc(func(context.Context, Request) (Response, error) { return Response{}, first })},
		Tier{Name: "b", Client: ClientFunc(func(context.Context, Request) (Response, error) { return Response{}, second })},
	)
	_, err := fb.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
}

func TestFallback_Empty(t *testing.T) {
	_, err := NewFallback(nil).Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoTiers)

	var nilChain *Fallback
	assert.Equal(t, 0, nilChain.Len())
}

func TestFallback_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	fb := NewFallback(logging.Discard(), Tier{Name: "a", Client: ClientFunc(func(context.Context, Request) (Response, error) {
		called = true
		return Response{}, nil
	})})
	_, err := fb.Complete(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		key   string
		want  string
		err   bool
	}{
		{name: "plain", input: `{"label":"scam"}`, key: "label", want: "scam"},
		{name: "fenced", input: "```json\n{\"label\":\"safe\"}\n```", key: "label", want: "safe"},
		{name: "prose around", input: `Sure! {"label":"scam","confidence":0.9} hope this helps`, key: "confidence", want: "0.9"},
		{name: "no object", input: "I cannot help", err: true},
		{name: "broken", input: `{"label":`, err: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ExtractJSON(tt.input)
			if tt.err {
				assert.ErrorIs(t, err, ErrNoJSON)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Get(tt.key).String())
		})
	}
}
