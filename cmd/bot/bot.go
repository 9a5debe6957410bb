package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/inu9431/qna-archiver/pkg/sdk"
	"github.com/inu9431/qna-archiver/pkg/utils"
)

const (
	// questionPrefix marks a message as a question for the archive
	questionPrefix = "!질문"

	// Discord caps messages at 2000 characters; leave room for framing
	messageChunkSize = 1900

	requestTimeout = 3 * time.Minute
	maxImageBytes  = 8 << 20
)

// Bot listens for prefixed questions and relays them to the archiver backend
type Bot struct {
	dg  *discordgo.Session
	api *sdk.Client

	channelID  string
	boardURL   string
	httpClient *http.Client
}

func NewBot(cfg *utils.Config) (*Bot, error) {
	token := cfg.Get("DISCORD_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN not set in environment")
	}

	baseURL := cfg.Get("BACKEND_BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("BACKEND_BASE_URL not set in environment")
	}

	// Accept raw token; discordgo requires just the raw token with Bot prefix handled by lib.
	dg, err := discordgo.New("Bot " + strings.TrimPrefix(token, "Bot "))
	if err != nil {
		return nil, err
	}

	b := &Bot{
		dg:         dg,
		api:        sdk.NewClient(baseURL, cfg.Get("BACKEND_API_KEY")),
		channelID:  cfg.Get("QNA_CHANNEL_ID"),
		boardURL:   cfg.Get("NOTION_BOARD_URL"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	// Intents
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	// Handlers
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onMessageCreate)

	return b, nil
}

func (b *Bot) Start() error {
	return b.dg.Open()
}

func (b *Bot) Stop() error {
	return b.dg.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("[BOT]: Logged in as: %s#%s", r.User.Username, r.User.Discriminator)
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore messages from the bot itself and from other bots
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	// Only listen in the configured question channel
	if b.channelID != "" && m.ChannelID != b.channelID {
		return
	}

	content := strings.TrimSpace(m.Content)
	if !strings.HasPrefix(content, questionPrefix) {
		return
	}

	question := strings.TrimSpace(strings.TrimPrefix(content, questionPrefix))
	if question == "" {
		b.reply(m, "질문 내용을 함께 적어주세요. 예: `!질문 Django에서 N+1 문제는 어떻게 해결하나요?`")
		return
	}

	go b.handleQuestion(m, question)
}

func (b *Bot) handleQuestion(m *discordgo.MessageCreate, question string) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req := &sdk.SubmitQuestionRequest{QuestionText: question}

	// Attach the first image, if any
	if image, err := b.firstImage(ctx, m.Attachments); err != nil {
		log.Printf("[BOT]: Failed to download attachment: %v", err)
	} else if image != nil {
		req.ImageBase64 = base64.StdEncoding.EncodeToString(image)
	}

	resp, err := b.api.SubmitQuestion(ctx, req)
	if err != nil {
		log.Printf("[BOT]: Failed to submit question: %v", err)
		b.reply(m, "답변을 생성하지 못했어요. 잠시 후 다시 시도해주세요.")
		return
	}

	b.reply(m, b.formatOutcome(resp))
}

// formatOutcome builds the channel reply for a submission outcome
func (b *Bot) formatOutcome(resp *sdk.SubmitQuestionResponse) string {
	switch resp.Status {
	case sdk.OutcomeVerified:
		link := resp.ReferenceURL
		if link == "" {
			link = b.boardURL
		}
		msg := fmt.Sprintf("이미 검증된 답변이 있는 질문이에요. (%d번째 질문)", resp.HitCount)
		if link != "" {
			msg += "\n" + link
		}
		return msg

	case sdk.OutcomeDuplicate:
		return fmt.Sprintf("비슷한 질문이 %d번째로 들어왔어요. 저장된 답변을 보여드릴게요.\n\n**%s**\n%s",
			resp.HitCount, resp.Title, resp.AnswerText)

	default:
		return fmt.Sprintf("**%s**\n%s", resp.Title, resp.AnswerText)
	}
}

// firstImage downloads the first image attachment, if present
func (b *Bot) firstImage(ctx context.Context, attachments []*discordgo.MessageAttachment) ([]byte, error) {
	for _, attachment := range attachments {
		if !strings.HasPrefix(attachment.ContentType, "image/") {
			continue
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, attachment.URL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := b.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("attachment download failed: %d", resp.StatusCode)
		}

		return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	}

	return nil, nil
}

// reply sends the content as a reply to the originating message, chunked to
// fit Discord's message limit
func (b *Bot) reply(m *discordgo.MessageCreate, content string) {
	chunks := chunkString(content, messageChunkSize)
	if len(chunks) == 0 {
		return
	}

	if _, err := b.dg.ChannelMessageSendReply(m.ChannelID, chunks[0], m.Reference()); err != nil {
		log.Printf("[BOT]: Failed to send reply: %v", err)
		return
	}
	for _, chunk := range chunks[1:] {
		if _, err := b.dg.ChannelMessageSend(m.ChannelID, chunk); err != nil {
			log.Printf("[BOT]: Failed to send reply: %v", err)
			return
		}
	}
}
