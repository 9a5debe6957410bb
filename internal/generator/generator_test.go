package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/inu9431/qna-archiver/pkg/qna"
	"github.com/inu9431/qna-archiver/pkg/utils"
	"github.com/openai/openai-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validResponse = `제목: ORM 최적화
카테고리: Django
키워드: ORM, N+1
답변: select_related를 사용하세요`

// fakeCompleter returns scripted responses/errors in order
type fakeCompleter struct {
	responses []fakeResult
	calls     int
	params    []openai.ChatCompletionNewParams
}

type fakeResult struct {
	content string
	err     error
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	f.params = append(f.params, params)
	result := f.responses[f.calls]
	f.calls++
	if result.err != nil {
		return nil, result.err
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: result.content}},
		},
	}, nil
}

func newTestGenerator(client completionClient) *Generator {
	return &Generator{
		client:     client,
		model:      defaultModel,
		prompt:     fallbackPrompt,
		categories: qna.DefaultCategories(),
		backoff:    time.Millisecond,
	}
}

func quotaErr() error {
	return &openai.Error{StatusCode: 429}
}

func TestGenerator_Success(t *testing.T) {
	client := &fakeCompleter{responses: []fakeResult{{content: validResponse}}}
	g := newTestGenerator(client)

	answer, err := g.Generate(context.Background(), "Django ORM N+1 문제", nil)
	require.NoError(t, err)

	assert.Equal(t, "ORM 최적화", answer.Title)
	assert.Equal(t, qna.CategoryDjango, answer.Category)
	assert.Equal(t, []string{"ORM", "N+1"}, answer.Keywords)
	assert.Equal(t, "select_related를 사용하세요", answer.AnswerText)
	assert.Equal(t, 1, client.calls)
}

func TestGenerator_RetriesQuotaErrorsThenSucceeds(t *testing.T) {
	client := &fakeCompleter{responses: []fakeResult{
		{err: quotaErr()},
		{err: quotaErr()},
		{content: validResponse},
	}}
	g := newTestGenerator(client)

	answer, err := g.Generate(context.Background(), "질문", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, answer.AnswerText)
	assert.Equal(t, 3, client.calls, "two quota failures then success means exactly three external calls")
}

func TestGenerator_GivesUpAfterMaxAttempts(t *testing.T) {
	client := &fakeCompleter{responses: []fakeResult{
		{err: quotaErr()},
		{err: quotaErr()},
		{err: quotaErr()},
		{err: quotaErr()},
	}}
	g := newTestGenerator(client)

	_, err := g.Generate(context.Background(), "질문", nil)
	require.Error(t, err)

	var genErr *qna.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, qna.GenerationTransient, genErr.Reason)
	assert.Equal(t, maxAttempts, client.calls)
}

func TestGenerator_NonTransientFailureIsNotRetried(t *testing.T) {
	client := &fakeCompleter{responses: []fakeResult{
		{err: &openai.Error{StatusCode: 401}},
	}}
	g := newTestGenerator(client)

	_, err := g.Generate(context.Background(), "질문", nil)
	require.Error(t, err)

	var genErr *qna.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, qna.GenerationFailed, genErr.Reason)
	assert.Equal(t, 1, client.calls)
}

func TestGenerator_UnparsableResponseIsNotRetried(t *testing.T) {
	client := &fakeCompleter{responses: []fakeResult{
		{content: "양식을 무시한 응답"},
	}}
	g := newTestGenerator(client)

	_, err := g.Generate(context.Background(), "질문", nil)
	require.Error(t, err)

	var genErr *qna.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, qna.GenerationParsingFailed, genErr.Reason)
	assert.Equal(t, 1, client.calls)
}

func TestGenerator_ImageBecomesContentPart(t *testing.T) {
	client := &fakeCompleter{responses: []fakeResult{{content: validResponse}}}
	g := newTestGenerator(client)

	// Minimal PNG header so content type detection resolves to image/png
	image := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

	_, err := g.Generate(context.Background(), "스크린샷 참고", image)
	require.NoError(t, err)

	require.Len(t, client.params, 1)
	user := client.params[0].Messages[0].OfUser
	require.NotNil(t, user)
	parts := user.Content.OfArrayOfContentParts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[1].OfImageURL)
	assert.Contains(t, parts[1].OfImageURL.ImageURL.URL, "data:image/png;base64,")
}

func TestNew_PromptTemplateValidation(t *testing.T) {
	tempDir := t.TempDir()

	writePrompt := func(name, content string) string {
		path := filepath.Join(tempDir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	newFromPrompt := func(path string) *Generator {
		g, err := New(utils.NewConfig(map[string]string{
			"OPENAI_API_KEY":     "test-key",
			"QNA_SYSPROMPT_PATH": path,
		}), qna.DefaultCategories())
		require.NoError(t, err)
		return g
	}

	t.Run("custom template with two placeholders is used", func(t *testing.T) {
		path := writePrompt("custom.txt", "카테고리 목록: %s\n질문: %s\n답변을 작성해.")
		g := newFromPrompt(path)
		assert.Contains(t, g.prompt, "답변을 작성해")
	})

	t.Run("escaped percent is allowed", func(t *testing.T) {
		path := writePrompt("escaped.txt", "카테고리: %s\n질문: %s\n정답률 100%%를 목표로 해.")
		g := newFromPrompt(path)
		assert.Contains(t, g.prompt, "100%")
	})

	t.Run("template without placeholders falls back", func(t *testing.T) {
		path := writePrompt("noverbs.txt", "그냥 답변해줘.")
		g := newFromPrompt(path)
		assert.Equal(t, fallbackPrompt, g.prompt)
	})

	t.Run("template with a stray verb falls back", func(t *testing.T) {
		path := writePrompt("strayverb.txt", "카테고리: %s\n질문: %s\n아이디: %d")
		g := newFromPrompt(path)
		assert.Equal(t, fallbackPrompt, g.prompt)
	})

	t.Run("template with too many placeholders falls back", func(t *testing.T) {
		path := writePrompt("toomany.txt", "%s %s %s")
		g := newFromPrompt(path)
		assert.Equal(t, fallbackPrompt, g.prompt)
	})
}
