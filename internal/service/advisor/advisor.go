// Package advisor answers free-form water questions with an LLM. It is
// separate from the keyword chat flow and never feeds intent classification.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"jalsaathi/internal/config"
	"jalsaathi/internal/i18n"
	"jalsaathi/internal/logging"
	"jalsaathi/internal/metrics"
	"jalsaathi/internal/models"
	"jalsaathi/internal/redis"
)

const (
	historyTurns      = 5
	maxQuestionLength = 2000
)

var (
	ErrDisabled      = errors.New("advisor disabled")
	ErrEmptyQuestion = errors.New("question required")
	ErrRateLimited   = errors.New("advisor rate limit exceeded, please retry in a minute")
)

var languageNames = map[i18n.Locale]string{
	i18n.EN: "English",
	i18n.HI: "Hindi",
	i18n.KN: "Kannada",
}

// HistoryStore keeps answered questions per user.
type HistoryStore interface {
	SaveAdvisorExchange(ctx context.Context, ex *models.AdvisorExchange) error
	ListAdvisorHistory(ctx context.Context, userID int64, limit int) ([]*models.AdvisorExchange, error)
}

type Service struct {
	chatModel model.ToolCallingChatModel
	agent     *react.Agent
	history   HistoryStore
	limiter   Limiter
	metrics   *metrics.ChatMetrics
	now       func() time.Time
}

// New wraps a chat model. With tools the model runs inside a ReAct agent.
func New(ctx context.Context, chatModel model.ToolCallingChatModel, tools []tool.BaseTool, history HistoryStore, limiter Limiter, m *metrics.ChatMetrics) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model required")
	}
	if limiter == nil {
		limiter = NewMemoryLimiter(5, time.Minute)
	}
	s := &Service{
		chatModel: chatModel,
		history:   history,
		limiter:   limiter,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if len(tools) > 0 {
		agent, err := react.NewAgent(ctx, &react.AgentConfig{
			ToolCallingModel: chatModel,
			ToolsConfig: compose.ToolsNodeConfig{
				Tools: tools,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("init react agent: %w", err)
		}
		s.agent = agent
	}
	return s, nil
}

// NewFromConfig builds the advisor for cfg.Advisor.Provider. It returns
// ErrDisabled when no provider is configured. cache may be nil, in which case
// rate limits are kept in memory.
func NewFromConfig(ctx context.Context, cfg *config.Config, history HistoryStore, cache *redis.Client, m *metrics.ChatMetrics) (*Service, error) {
	if cfg == nil || cfg.Advisor.Provider == "" {
		return nil, ErrDisabled
	}
	chatModel, err := newChatModel(ctx, cfg.Advisor.Provider, cfg.Providers[cfg.Advisor.Provider])
	if err != nil {
		return nil, err
	}
	var tools []tool.BaseTool
	if cfg.Advisor.EnableSearch {
		if ws := newWebSearch(ctx, cfg.Advisor, cache); ws != nil {
			tools = append(tools, ws)
		}
	}
	window := time.Minute
	var limiter Limiter
	if cache != nil {
		limiter = NewRedisLimiter(cache, cfg.Advisor.RequestsPerMinute, window)
	} else {
		limiter = NewMemoryLimiter(cfg.Advisor.RequestsPerMinute, window)
	}
	return New(ctx, chatModel, tools, history, limiter, m)
}

func newChatModel(ctx context.Context, provider string, provCfg config.ProviderConfig) (model.ToolCallingChatModel, error) {
	switch provider {
	case "openai":
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   provCfg.Model,
			APIKey:  provCfg.APIKey,
		})
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: provCfg.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  provCfg.Model,
		})
	case "claude":
		var baseURL *string
		if provCfg.BaseURL != "" {
			baseURL = &provCfg.BaseURL
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     provCfg.Model,
			BaseURL:   baseURL,
			MaxTokens: 1500,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
}

// Ask answers question for the user and stores the exchange. onChunk, when
// set, receives the accumulated answer as it streams.
func (s *Service) Ask(ctx context.Context, userID int64, question string, locale i18n.Locale, onChunk func(string) error) (*models.AdvisorExchange, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if len([]rune(question)) > maxQuestionLength {
		question = string([]rune(question)[:maxQuestionLength])
	}
	locale = i18n.Normalize(locale)

	allowed, err := s.limiter.Allow(ctx, fmt.Sprintf("advisor:user:%d", userID))
	if err != nil {
		logging.L().WithError(err).Warn("advisor limiter unavailable, allowing request")
		allowed = true
	}
	if !allowed {
		s.metrics.ObserveAdvisor("rate_limited")
		return nil, ErrRateLimited
	}

	messages := s.buildMessages(ctx, userID, question, locale)
	answer, err := s.stream(withRequester(ctx, userID), messages, onChunk)
	if err != nil {
		s.metrics.ObserveAdvisor("error")
		return nil, err
	}
	s.metrics.ObserveAdvisor("ok")

	ex := &models.AdvisorExchange{
		UserID:    userID,
		Query:     question,
		Response:  answer,
		Locale:    string(locale),
		CreatedAt: s.now(),
	}
	if s.history != nil {
		if err := s.history.SaveAdvisorExchange(ctx, ex); err != nil {
			logging.L().WithError(err).WithField("user", userID).Warn("save advisor exchange failed")
		}
	}
	return ex, nil
}

func (s *Service) buildMessages(ctx context.Context, userID int64, question string, locale i18n.Locale) []*schema.Message {
	messages := []*schema.Message{schema.SystemMessage(systemPrompt(locale))}
	if s.history != nil {
		past, err := s.history.ListAdvisorHistory(ctx, userID, historyTurns)
		if err != nil {
			logging.L().WithError(err).WithField("user", userID).Warn("load advisor history failed")
		}
		for _, ex := range past {
			messages = append(messages, schema.UserMessage(ex.Query), schema.AssistantMessage(ex.Response, nil))
		}
	}
	return append(messages, schema.UserMessage(question))
}

func (s *Service) stream(ctx context.Context, messages []*schema.Message, onChunk func(string) error) (string, error) {
	var (
		reader *schema.StreamReader[*schema.Message]
		err    error
	)
	if s.agent != nil {
		reader, err = s.agent.Stream(ctx, messages)
	} else {
		reader, err = s.chatModel.Stream(ctx, messages)
	}
	if err != nil {
		return "", fmt.Errorf("advisor stream: %w", err)
	}
	defer reader.Close()

	var full strings.Builder
	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("advisor stream recv: %w", err)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		full.WriteString(chunk.Content)
		if onChunk != nil {
			if err := onChunk(full.String()); err != nil {
				return "", err
			}
		}
	}
	answer := strings.TrimSpace(full.String())
	if answer == "" {
		return "", errors.New("advisor returned an empty answer")
	}
	return answer, nil
}

func systemPrompt(locale i18n.Locale) string {
	return "You are Jal Saathi, a water-services assistant for citizens of Bangalore. " +
		"Answer questions about water quality, supply, flooding and how to report issues to BWSSB. " +
		"Keep answers short and practical, and advise contacting the Water Emergency Helpline (1800-425-2255) for emergencies. " +
		"Reply in " + languageNames[locale] + "."
}
