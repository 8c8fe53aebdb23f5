package llm

import (
	"context"
	"errors"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// fakeMessager stands in for the Messages API
type fakeMessager struct {
	response   *anthropic.Message
	err        error
	gotParams  anthropic.MessageNewParams
	callCount  int
}

func (f *fakeMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.callCount++
	f.gotParams = params
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func TestAnthropicGenerate(t *testing.T) {
	fake := &fakeMessager{
		response: &anthropic.Message{
			Content: []anthropic.ContentBlockUnion{
				{Type: "text", Text: "First part. "},
				{Type: "text", Text: "Second part."},
			},
			Model: "claude-3-5-sonnet-20241022",
			Usage: anthropic.Usage{InputTokens: 12, OutputTokens: 8},
		},
	}
	p := &Anthropic{messages: fake, config: Config{Model: "claude-3-5-sonnet-20241022", Timeout: 5}}

	resp, err := p.Generate(context.Background(), Request{
		System: "Be terse.",
		Prompt: "Summarize the fit.",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if resp.Text != "First part. Second part." {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.TokensUsed != 20 {
		t.Errorf("tokens = %d, want 20", resp.TokensUsed)
	}
	if len(fake.gotParams.System) != 1 || fake.gotParams.System[0].Text != "Be terse." {
		t.Errorf("system param = %+v", fake.gotParams.System)
	}
	if fake.gotParams.Model != "claude-3-5-sonnet-20241022" {
		t.Errorf("model = %s", fake.gotParams.Model)
	}
}

func TestAnthropicGenerateEmptyContent(t *testing.T) {
	fake := &fakeMessager{response: &anthropic.Message{Content: []anthropic.ContentBlockUnion{}}}
	p := &Anthropic{messages: fake, config: Config{Timeout: 5}}

	_, err := p.Generate(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestAnthropicGenerateTransportError(t *testing.T) {
	fake := &fakeMessager{err: errors.New("connection refused")}
	p := &Anthropic{messages: fake, config: Config{Timeout: 5}}

	_, err := p.Generate(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
	if !IsTransient(err) {
		t.Error("transport failure should be transient")
	}
}

func TestNewAnthropicRequiresKey(t *testing.T) {
	_, err := NewAnthropic(Config{})
	if !errors.Is(err, ErrBadRequest) {
		t.Errorf("err = %v, want ErrBadRequest", err)
	}
}
