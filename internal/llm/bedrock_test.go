package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	body  []byte
	err   error
	input *bedrockruntime.InvokeModelInput
}

func (f *fakeInvoker) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestBedrockGenerate(t *testing.T) {
	inv := &fakeInvoker{body: []byte(`{"content":[{"type":"text","text":"{\"insight_title\":"},{"type":"text","text":"\"x\"}"}],"usage":{"input_tokens":10,"output_tokens":4}}`)}
	g := NewBedrockGenerator(inv, "", 0)

	text, err := g.Generate(context.Background(), "analyse this")
	require.NoError(t, err)
	assert.Equal(t, `{"insight_title":"x"}`, text)
	assert.Equal(t, DefaultBedrockModel, aws.ToString(inv.input.ModelId))

	var req bedrockRequest
	require.NoError(t, json.Unmarshal(inv.input.Body, &req))
	assert.Equal(t, "bedrock-2023-05-31", req.AnthropicVersion)
	assert.Equal(t, 1024, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "analyse this", req.Messages[0].Content[0].Text)
}

func TestBedrockGenerateErrors(t *testing.T) {
	_, err := NewBedrockGenerator(&fakeInvoker{err: errors.New("throttled")}, "m", 10).Generate(context.Background(), "p")
	assert.ErrorContains(t, err, "throttled")

	_, err = NewBedrockGenerator(&fakeInvoker{body: []byte(`{"content":[]}`)}, "m", 10).Generate(context.Background(), "p")
	assert.Error(t, err)

	_, err = NewBedrockGenerator(&fakeInvoker{body: []byte(`<html>`)}, "m", 10).Generate(context.Background(), "p")
	assert.Error(t, err)
}
