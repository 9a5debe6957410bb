package generator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/inu9431/qna-archiver/pkg/qna"
	"github.com/inu9431/qna-archiver/pkg/utils"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	// maxAttempts bounds retries for transient rate/quota failures
	maxAttempts = 3

	// initialBackoff is the first retry delay; subsequent delays grow exponentially
	initialBackoff = 2 * time.Second

	defaultModel = "gpt-4o-mini"
)

// completionClient abstracts the chat completion call so tests can inject a fake
type completionClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// openaiCompleter adapts the openai-go client to completionClient
type openaiCompleter struct {
	client openai.Client
}

func (c *openaiCompleter) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}

// Generator produces structured answers for new questions via the OpenAI
// chat completion API. It holds no store references and performs no writes
type Generator struct {
	client     completionClient
	model      string
	prompt     string
	categories *qna.CategorySet
	backoff    time.Duration
}

// New creates a generator from configuration
func New(cfg *utils.Config, categories *qna.CategorySet) (*Generator, error) {
	apiKey := cfg.Get("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not set in config or environment")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	prompt := fallbackPrompt
	if path := cfg.Get("QNA_SYSPROMPT_PATH"); path != "" {
		loaded := utils.LoadPromptWithFallback(path, fallbackPrompt)
		if !validTemplate(loaded) {
			log.Printf("[GENERATOR]: prompt file %s needs exactly two %%s placeholders (category list, question), using the built-in prompt", path)
			loaded = fallbackPrompt
		}
		prompt = loaded
	}

	return &Generator{
		client:     &openaiCompleter{client: client},
		model:      cfg.GetWithDefault("OPENAI_MODEL", defaultModel),
		prompt:     prompt,
		categories: categories,
		backoff:    initialBackoff,
	}, nil
}

// Generate produces a structured answer for the question, retrying transient
// failures up to the attempt bound. The optional image is passed to the model
// as an inline data URL
func (g *Generator) Generate(ctx context.Context, questionText string, image []byte) (*qna.GeneratedAnswer, error) {
	params := g.buildParams(questionText, image)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.backoff

	raw, err := backoff.RetryWithData(func() (string, error) {
		return g.complete(ctx, params)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, maxAttempts-1), ctx))
	if err != nil {
		var genErr *qna.GenerationError
		if errors.As(err, &genErr) {
			return nil, genErr
		}
		return nil, qna.NewGenerationError(qna.GenerationTransient, err)
	}

	return parseAnswer(raw, g.categories)
}

// complete performs one completion attempt and classifies failures
func (g *Generator) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	completion, err := g.client.CreateChatCompletion(ctx, params)
	if err != nil {
		if isTransient(err) {
			return "", qna.NewGenerationError(qna.GenerationTransient, err)
		}
		return "", backoff.Permanent(qna.NewGenerationError(qna.GenerationFailed, err))
	}

	if len(completion.Choices) == 0 {
		return "", backoff.Permanent(qna.NewGenerationError(qna.GenerationParsingFailed, errors.New("completion returned no choices")))
	}

	return completion.Choices[0].Message.Content, nil
}

// buildParams assembles the chat completion request, attaching the image as
// a data URL content part when present
func (g *Generator) buildParams(questionText string, image []byte) openai.ChatCompletionNewParams {
	prompt := fmt.Sprintf(g.prompt, categoryList(g.categories), questionText)

	var message openai.ChatCompletionMessageParamUnion
	if len(image) > 0 {
		dataURL := "data:" + http.DetectContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image)
		message = openai.ChatCompletionMessageParamUnion{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart(prompt),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
					},
				},
			},
		}
	} else {
		message = openai.UserMessage(prompt)
	}

	return openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{message},
	}
}

// validTemplate reports whether the prompt template carries exactly two %s
// verbs (category list, question) and no other formatting verbs, so
// Sprintf cannot leave MISSING/EXTRA artifacts in the prompt
func validTemplate(s string) bool {
	verbs := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i+1 >= len(s) {
			return false
		}
		switch s[i+1] {
		case '%':
			i++
		case 's':
			verbs++
			i++
		default:
			return false
		}
	}
	return verbs == 2
}

// isTransient reports whether the completion failure is a rate/quota/server
// issue worth retrying
func isTransient(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Plain transport errors (connection reset, timeouts) surface as generic
	// url.Error values
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "connection")
}

// categoryList renders the category set for the prompt template
func categoryList(set *qna.CategorySet) string {
	names := make([]string, 0, len(set.List()))
	for _, c := range set.List() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}
