package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/errs"
	"github.com/drujensen/researchagent/internal/domain/interfaces"
	"github.com/drujensen/researchagent/internal/domain/tokens"
	"github.com/drujensen/researchagent/internal/impl/telemetry"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/packages/ssestream"
	"github.com/openai/openai-go/v2/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	IterationLimitMessage = "Agent stopped due to iteration limit or time limit."
	CanceledNote          = entities.CanceledNote

	maxAttempts = 3
)

// AIModelIntegration runs the tool-calling agent loop against any
// OpenAI-compatible chat completions endpoint.
type AIModelIntegration struct {
	client     openai.Client
	baseURL    string
	model      string
	logger     *zap.Logger
	lastUsage  *entities.Usage
	retryDelay time.Duration
}

// NewAIModelIntegration creates a new integration for baseURL
func NewAIModelIntegration(baseURL, apiKey, model string, logger *zap.Logger) (*AIModelIntegration, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL cannot be empty")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey cannot be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: 300 * time.Second}),
		option.WithMaxRetries(0),
	)

	return &AIModelIntegration{
		client:     client,
		baseURL:    baseURL,
		model:      model,
		logger:     logger,
		lastUsage:  &entities.Usage{},
		retryDelay: time.Second,
	}, nil
}

// ModelName returns the name of the model being used
func (m *AIModelIntegration) ModelName() string {
	return m.model
}

// ProviderType returns the type of provider
func (m *AIModelIntegration) ProviderType() entities.ProviderType {
	return entities.ProviderGeneric
}

// GetUsage returns the token usage of the last run
func (m *AIModelIntegration) GetUsage() (*entities.Usage, error) {
	return m.lastUsage, nil
}

// convertMessages converts message entities to chat completion params
func convertMessages(messages []*entities.Message) []openai.ChatCompletionMessageParamUnion {
	apiMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case entities.RoleSystem:
			apiMessages = append(apiMessages, openai.SystemMessage(msg.Content))
		case entities.RoleUser:
			apiMessages = append(apiMessages, openai.UserMessage(msg.Content))
		case entities.RoleTool:
			apiMessages = append(apiMessages, openai.ToolMessage(msg.Content, msg.ToolCallID))
		case entities.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				apiMessages = append(apiMessages, openai.AssistantMessage(msg.Content))
				continue
			}
			apiMessages = append(apiMessages, assistantToolCallMessage(msg.Content, msg.ToolCalls))
		}
	}
	return apiMessages
}

func assistantToolCallMessage(content string, toolCalls []entities.ToolCall) openai.ChatCompletionMessageParamUnion {
	assistant := &openai.ChatCompletionAssistantMessageParam{}
	if content != "" {
		assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: param.NewOpt(content),
		}
	}
	for _, tc := range toolCalls {
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: assistant}
}

func convertTools(toolList []entities.Tool) []openai.ChatCompletionToolUnionParam {
	apiTools := make([]openai.ChatCompletionToolUnionParam, 0, len(toolList))
	for _, tool := range toolList {
		apiTools = append(apiTools, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        tool.Name(),
					Description: param.NewOpt(tool.Description()),
					Parameters:  openai.FunctionParameters(entities.Schema(tool)),
					Strict:      param.NewOpt(false),
				},
			},
		})
	}
	return apiTools
}

// turn is one streamed completion.
type turn struct {
	content      string
	toolCalls    []entities.ToolCall
	finishReason string
	usage        *entities.Usage
}

func (m *AIModelIntegration) GenerateResponse(ctx context.Context, messages []*entities.Message, toolList []entities.Tool, options map[string]any, handler entities.StreamHandler) ([]*entities.Message, error) {
	m.lastUsage = &entities.Usage{}

	ctx, span := telemetry.Tracer().Start(ctx, "agent.invoke")
	span.SetAttributes(
		attribute.String("llm.model", m.model),
		attribute.Int("agent.tools", len(toolList)),
	)
	defer span.End()

	if errors.Is(ctx.Err(), context.Canceled) {
		return m.canceled(nil, "")
	}

	toolsByName := make(map[string]entities.Tool, len(toolList))
	toolNames := make([]string, 0, len(toolList))
	for _, tool := range toolList {
		toolsByName[tool.Name()] = tool
		toolNames = append(toolNames, tool.Name())
	}

	params := openai.ChatCompletionNewParams{
		Model:    m.model,
		Messages: convertMessages(messages),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if len(toolList) > 0 {
		params.Tools = convertTools(toolList)
	}
	applyOptions(&params, options)

	maxIterations := intOption(options, "max_iterations", entities.DefaultMaxIterations)

	var newMessages []*entities.Message
	// partial is the assistant text of the latest turn
	var partial string
	for iteration := 1; ; iteration++ {
		if errors.Is(ctx.Err(), context.Canceled) {
			m.logger.Info("Processing canceled by user", zap.Int("iteration", iteration))
			return m.canceled(newMessages, partial)
		}
		if iteration > maxIterations {
			m.logger.Warn("Agent reached iteration limit", zap.Int("max_iterations", maxIterations))
			newMessages = append(newMessages, m.finalMessage(IterationLimitMessage))
			break
		}

		m.logger.Info("Starting AI processing iteration", zap.Int("iteration", iteration))

		result, err := m.streamTurn(ctx, params, iteration, handler)
		if result != nil {
			m.lastUsage.Add(result.usage)
			partial = result.content
		} else {
			partial = ""
		}
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				m.logger.Info("Processing canceled by user", zap.Int("iteration", iteration))
				return m.canceled(newMessages, partial)
			}
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				m.logger.Warn("Agent reached time limit", zap.Int("iteration", iteration))
				newMessages = append(newMessages, m.finalMessage(IterationLimitMessage))
				break
			}
			telemetry.RecordError(span, err)
			return ensureToolCallResponses(newMessages, m.logger), err
		}

		toolCalls := result.toolCalls
		finishReason := result.finishReason

		m.logger.Info("AI response analysis",
			zap.String("finishReason", finishReason),
			zap.Int("toolCallsCount", len(toolCalls)),
			zap.Bool("hasContent", result.content != ""),
			zap.Int("iteration", iteration))

		if len(toolCalls) == 0 {
			finalContent := result.content
			switch finishReason {
			case "stop", "tool_calls":
				m.logger.Info("AI finished - ending processing")
			case "length":
				m.logger.Warn("AI finished due to length limit - ending processing")
				finalContent += "\n\n[Response truncated due to length limit]"
			case "content_filter":
				m.logger.Warn("AI finished due to content filter - ending processing")
				finalContent += "\n\n[Response filtered by content policy]"
			default:
				m.logger.Warn("Unknown finish_reason - treating as completion",
					zap.String("finishReason", finishReason))
			}
			newMessages = append(newMessages, m.finalMessage(finalContent))
			break
		}

		toolCallMessage := entities.NewMessage(entities.RoleAssistant, result.content)
		toolCallMessage.ToolCalls = toolCalls
		newMessages = append(newMessages, toolCallMessage)
		params.Messages = append(params.Messages, assistantToolCallMessage(result.content, toolCalls))

		for _, toolCall := range toolCalls {
			if errors.Is(ctx.Err(), context.Canceled) {
				m.logger.Info("Processing canceled by user", zap.Int("iteration", iteration))
				return m.canceled(newMessages, partial)
			}

			toolMessage := m.executeToolCall(ctx, toolCall, toolsByName, toolNames, iteration, handler)
			newMessages = append(newMessages, toolMessage)
			params.Messages = append(params.Messages, openai.ToolMessage(toolMessage.Content, toolCall.ID))
		}

		m.logger.Info("Completed iteration, preparing for next AI call",
			zap.Int("iteration", iteration),
			zap.Int("totalMessages", len(params.Messages)))
	}

	if len(newMessages) > 0 {
		usage := *m.lastUsage
		newMessages[len(newMessages)-1].Usage = &usage
	}
	span.SetAttributes(
		attribute.Int("llm.usage.prompt_tokens", m.lastUsage.PromptTokens),
		attribute.Int("llm.usage.completion_tokens", m.lastUsage.CompletionTokens),
	)

	return ensureToolCallResponses(newMessages, m.logger), nil
}

func (m *AIModelIntegration) finalMessage(content string) *entities.Message {
	return entities.NewMessage(entities.RoleAssistant, content)
}

// canceled closes a stopped run: pending tool calls get a response and the
// run ends on an assistant answer carrying the partial text and CanceledNote.
func (m *AIModelIntegration) canceled(newMessages []*entities.Message, partial string) ([]*entities.Message, error) {
	newMessages = ensureToolCallResponses(newMessages, m.logger)
	answer := m.finalMessage(entities.CanceledAnswer(partial))
	usage := *m.lastUsage
	answer.Usage = &usage
	newMessages = append(newMessages, answer)
	return newMessages, errs.CanceledErrorf("operation canceled by user")
}

// streamTurn streams one completion, forwarding content deltas as tokens.
// On error the partial turn is still returned.
func (m *AIModelIntegration) streamTurn(ctx context.Context, params openai.ChatCompletionNewParams, iteration int, handler entities.StreamHandler) (*turn, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "llm.call")
	span.SetAttributes(
		attribute.String("llm.model", m.model),
		attribute.Int("agent.iteration", iteration),
	)
	defer span.End()

	stream, ok, err := m.openStream(ctx, params)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer stream.Close()

	result := &turn{}
	var content strings.Builder
	var reasoning bool
	pending := make(map[int64]*entities.ToolCall)

	for ; ok; ok = stream.Next() {
		chunk := stream.Current()
		if chunk.Usage.TotalTokens > 0 {
			result.usage = &entities.Usage{
				PromptTokens:     int(chunk.Usage.PromptTokens),
				CompletionTokens: int(chunk.Usage.CompletionTokens),
				TotalTokens:      int(chunk.Usage.TotalTokens),
			}
		}

		for _, choice := range chunk.Choices {
			if choice.FinishReason != "" {
				result.finishReason = choice.FinishReason
			}

			if delta := reasoningDelta(choice.Delta.RawJSON()); delta != "" {
				if !reasoning {
					reasoning = true
					delta = "<think>" + delta
				}
				content.WriteString(delta)
				handler.Emit(entities.StreamEvent{Type: entities.StreamToken, Content: delta, Iteration: iteration})
			}

			if choice.Delta.Content != "" || len(choice.Delta.ToolCalls) > 0 {
				if reasoning {
					reasoning = false
					content.WriteString("</think>\n")
					handler.Emit(entities.StreamEvent{Type: entities.StreamToken, Content: "</think>\n", Iteration: iteration})
				}
			}

			if choice.Delta.Content != "" {
				content.WriteString(choice.Delta.Content)
				handler.Emit(entities.StreamEvent{Type: entities.StreamToken, Content: choice.Delta.Content, Iteration: iteration})
			}

			for _, delta := range choice.Delta.ToolCalls {
				tc, exists := pending[delta.Index]
				if !exists {
					tc = &entities.ToolCall{Type: "function"}
					pending[delta.Index] = tc
				}
				if delta.ID != "" {
					tc.ID = delta.ID
				}
				if delta.Function.Name != "" {
					tc.Function.Name = delta.Function.Name
				}
				tc.Function.Arguments += delta.Function.Arguments
			}
		}
	}
	if reasoning {
		content.WriteString("</think>\n")
	}

	result.content = content.String()
	result.toolCalls = orderedToolCalls(pending)

	if err := stream.Err(); err != nil && !errors.Is(err, io.EOF) {
		telemetry.RecordError(span, err)
		return result, fmt.Errorf("error streaming response: %w", err)
	}

	if result.usage == nil {
		result.usage = m.estimateUsage(params, result)
	}
	return result, nil
}

// openStream starts a streaming completion and reads the first chunk.
// Failures before the first chunk are retried with linear backoff.
func (m *AIModelIntegration) openStream(ctx context.Context, params openai.ChatCompletionNewParams) (*ssestream.Stream[openai.ChatCompletionChunk], bool, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		stream := m.client.Chat.Completions.NewStreaming(ctx, params)
		if stream.Next() {
			return stream, true, nil
		}

		err := stream.Err()
		if err == nil || errors.Is(err, io.EOF) {
			return stream, false, nil
		}
		stream.Close()
		lastErr = err

		if ctx.Err() != nil || !retryable(err) || attempt == maxAttempts-1 {
			break
		}

		m.logger.Warn("Error making request, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * m.retryDelay):
		}
	}

	var apiErr *openai.Error
	if errors.As(lastErr, &apiErr) {
		m.logger.Error("Unexpected status code", zap.Int("status", apiErr.StatusCode), zap.Error(lastErr))
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return nil, false, fmt.Errorf("rate limit exceeded: %w", lastErr)
		}
		if apiErr.StatusCode == http.StatusUnauthorized {
			return nil, false, errs.UnauthorizedErrorf("the API key was rejected by the provider")
		}
	}
	return nil, false, fmt.Errorf("error making request: %w", lastErr)
}

func retryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return true
}

// reasoningDelta extracts reasoning text that some providers stream beside
// the content.
func reasoningDelta(raw string) string {
	if raw == "" {
		return ""
	}
	var data struct {
		Reasoning        string `json:"reasoning"`
		ReasoningContent string `json:"reasoning_content"`
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return ""
	}
	if data.ReasoningContent != "" {
		return data.ReasoningContent
	}
	return data.Reasoning
}

func orderedToolCalls(pending map[int64]*entities.ToolCall) []entities.ToolCall {
	indexes := make([]int64, 0, len(pending))
	for index := range pending {
		indexes = append(indexes, index)
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })

	toolCalls := make([]entities.ToolCall, 0, len(pending))
	for _, index := range indexes {
		tc := pending[index]
		if tc.Function.Name == "" {
			continue
		}
		if tc.ID == "" {
			tc.ID = fmt.Sprintf("call_%d", index)
		}
		toolCalls = append(toolCalls, *tc)
	}
	return toolCalls
}

// executeToolCall runs one tool call and returns the tool message carrying
// the observation. Failures become observations so the loop can continue.
func (m *AIModelIntegration) executeToolCall(ctx context.Context, toolCall entities.ToolCall, toolsByName map[string]entities.Tool, toolNames []string, iteration int, handler entities.StreamHandler) *entities.Message {
	toolName := toolCall.Function.Name

	ctx, span := telemetry.Tracer().Start(ctx, "tool.execute")
	span.SetAttributes(
		attribute.String("tool.name", toolName),
		attribute.Int("agent.iteration", iteration),
	)
	defer span.End()

	handler.Emit(entities.StreamEvent{
		Type:       entities.StreamToolStart,
		ToolCallID: toolCall.ID,
		ToolName:   toolName,
		Arguments:  toolCall.Function.Arguments,
		Iteration:  iteration,
	})

	start := time.Now()
	arguments := toolCall.Function.Arguments
	var observation, toolError string

	tool, exists := toolsByName[toolName]
	switch {
	case !exists:
		m.logger.Warn("Tool not found", zap.String("toolName", toolName))
		observation = fmt.Sprintf("%s is not a valid tool, try one of [%s].", toolName, strings.Join(toolNames, ", "))
		toolError = observation
	default:
		repaired, err := repairArguments(arguments)
		if err != nil {
			m.logger.Warn("Could not repair tool arguments",
				zap.String("toolName", toolName),
				zap.String("arguments", arguments),
				zap.Error(err))
			observation = fmt.Sprintf("Invalid arguments for tool %s: %v", toolName, err)
			toolError = observation
			break
		}
		if repaired != arguments {
			m.logger.Debug("Repaired tool arguments", zap.String("toolName", toolName), zap.String("arguments", repaired))
			arguments = repaired
		}

		m.logger.Info("Executing tool", zap.String("toolName", toolName))
		result, err := tool.Execute(ctx, arguments)
		if err != nil {
			m.logger.Error("Tool execution failed", zap.String("toolName", toolName), zap.Error(err))
			observation = fmt.Sprintf("Tool %s failed with error: %v", toolName, err)
			toolError = err.Error()
			telemetry.RecordError(span, err)
		} else {
			m.logger.Info("Tool executed successfully",
				zap.String("toolName", toolName),
				zap.Int("resultLength", len(result)))
			observation = result
		}
	}

	toolEvent := entities.NewToolCallEvent(toolCall.ID, toolName, arguments, observation, toolError, nil)
	toolEvent.Duration = time.Since(start)

	if toolError != "" {
		handler.Emit(entities.StreamEvent{
			Type:       entities.StreamToolError,
			ToolCallID: toolCall.ID,
			ToolName:   toolName,
			Arguments:  arguments,
			Error:      toolError,
			Iteration:  iteration,
		})
	} else {
		handler.Emit(entities.StreamEvent{
			Type:       entities.StreamToolEnd,
			ToolCallID: toolCall.ID,
			ToolName:   toolName,
			Arguments:  arguments,
			Result:     observation,
			Iteration:  iteration,
		})
	}

	toolMessage := entities.NewMessage(entities.RoleTool, observation)
	toolMessage.ToolCallID = toolCall.ID
	toolMessage.ToolCallEvents = []entities.ToolCallEvent{*toolEvent}
	return toolMessage
}

// repairArguments returns valid JSON arguments, repairing them when the
// model produced malformed JSON.
func repairArguments(arguments string) (string, error) {
	trimmed := strings.TrimSpace(arguments)
	if trimmed == "" {
		return "{}", nil
	}
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}
	repaired, err := jsonrepair.RepairJSON(trimmed)
	if err != nil {
		return "", err
	}
	if !json.Valid([]byte(repaired)) {
		return "", fmt.Errorf("arguments are not valid JSON: %s", arguments)
	}
	return repaired, nil
}

// estimateUsage counts tokens locally when the provider reports no usage.
func (m *AIModelIntegration) estimateUsage(params openai.ChatCompletionNewParams, result *turn) *entities.Usage {
	prompt := 0
	if body, err := json.Marshal(params.Messages); err == nil {
		prompt = tokens.Count(string(body))
	}

	completion := tokens.Count(result.content)
	for _, tc := range result.toolCalls {
		completion += tokens.Count(tc.Function.Name) + tokens.Count(tc.Function.Arguments)
	}

	return &entities.Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
		Estimated:        true,
	}
}

func applyOptions(params *openai.ChatCompletionNewParams, options map[string]any) {
	if temperature, ok := options["temperature"].(float64); ok {
		params.Temperature = param.NewOpt(temperature)
	}
	if maxTokens := intOption(options, "max_tokens", 0); maxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(maxTokens))
	}
}

func intOption(options map[string]any, key string, fallback int) int {
	switch v := options[key].(type) {
	case int:
		if v > 0 {
			return v
		}
	case int64:
		if v > 0 {
			return int(v)
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return fallback
}

// ensureToolCallResponses validates that every tool call has a corresponding response
// and creates error responses for any orphaned tool calls
func ensureToolCallResponses(messages []*entities.Message, logger *zap.Logger) []*entities.Message {
	answered := make(map[string]bool)
	var order []string
	for _, msg := range messages {
		if msg.Role == entities.RoleAssistant {
			for _, toolCall := range msg.ToolCalls {
				if _, seen := answered[toolCall.ID]; !seen {
					answered[toolCall.ID] = false
					order = append(order, toolCall.ID)
				}
			}
		}
	}

	for _, msg := range messages {
		if msg.Role == entities.RoleTool && msg.ToolCallID != "" {
			if _, exists := answered[msg.ToolCallID]; exists {
				answered[msg.ToolCallID] = true
			}
		}
	}

	for _, toolCallID := range order {
		if !answered[toolCallID] {
			logger.Warn("Found orphaned tool call without response", zap.String("tool_call_id", toolCallID))
			errorMessage := entities.NewMessage(entities.RoleTool, "Tool execution failed: No response generated")
			errorMessage.ToolCallID = toolCallID
			messages = append(messages, errorMessage)
		}
	}

	return messages
}

var _ interfaces.AIModelIntegration = (*AIModelIntegration)(nil)
