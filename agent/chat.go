package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/internal/util"
	"github.com/hupe1980/agentlink/logging"
	"github.com/hupe1980/agentlink/memory"
	"github.com/hupe1980/agentlink/model"
	"github.com/hupe1980/agentlink/tool"
)

// DefaultInputKey is the resolved input consumed as the user task when no
// override is configured.
const DefaultInputKey = "task"

// ChatAgent is a runnable that drives an LLM conversation. Each invocation
// takes its task from the resolved binding inputs, renders the instruction
// template against those inputs, runs the model (executing requested tool
// calls in a turn loop until a plain assistant response arrives) and commits
// the final text as the node output.
type ChatAgent struct {
	node         *core.Node
	model        model.Model
	instructions string
	inputKey     string
	tools        []tool.Tool
	toolIndex    map[string]tool.Tool
	history      memory.Store
	convID       string
	maxCalls     int
	stream       bool
	logger       logging.Logger
}

// Options configure a ChatAgent.
type Options struct {
	// Instructions is the system prompt. It may contain text/template markup
	// rendered against the resolved inputs of each invocation.
	Instructions string
	// InputKey selects which resolved input carries the user task.
	InputKey string
	// Tools the model may call.
	Tools []tool.Tool
	// Memory persists conversation history across invocations. Nil disables history.
	Memory memory.Store
	// ConversationID keys the history in Memory. Defaults to the node id.
	ConversationID string
	// MaxModelCalls bounds the tool-execution turn loop. 0 means unlimited.
	MaxModelCalls int
	// Stream makes Perform return a chunk stream instead of a single value.
	Stream bool
	// OutputKey overrides where the final text is committed.
	OutputKey string
	// Logger receives invocation and tool telemetry.
	Logger logging.Logger
}

// NewChatAgent constructs a chat agent node.
func NewChatAgent(name string, m model.Model, optFns ...func(o *Options)) *ChatAgent {
	opts := Options{
		InputKey:      DefaultInputKey,
		MaxModelCalls: 10,
		OutputKey:     core.DefaultOutputKey,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	node := core.NewNode(name, func(o *core.NodeOptions) {
		o.OutputKey = opts.OutputKey
	})

	convID := opts.ConversationID
	if convID == "" {
		convID = node.ID()
	}

	toolIndex := make(map[string]tool.Tool, len(opts.Tools))
	for _, t := range opts.Tools {
		toolIndex[t.Name()] = t
	}

	return &ChatAgent{
		node:         node,
		model:        m,
		instructions: opts.Instructions,
		inputKey:     opts.InputKey,
		tools:        opts.Tools,
		toolIndex:    toolIndex,
		history:      opts.Memory,
		convID:       convID,
		maxCalls:     opts.MaxModelCalls,
		stream:       opts.Stream,
		logger:       opts.Logger,
	}
}

// Node returns the binding graph node backing this agent.
func (a *ChatAgent) Node() *core.Node { return a.node }

// Model returns the underlying model implementation.
func (a *ChatAgent) Model() model.Model { return a.model }

// Tools returns the registered tools.
func (a *ChatAgent) Tools() []tool.Tool { return a.tools }

// Perform runs the conversation turn loop. In stream mode the returned
// output is a core.Stream of assistant text chunks; errors occurring after
// streaming has begun are delivered on the stream's error channel, so the
// invocation adapter reports them and skips the commit.
func (a *ChatAgent) Perform(ctx context.Context, inputs map[string]any) (core.Output, error) {
	messages, err := a.buildMessages(inputs)
	if err != nil {
		return nil, err
	}

	instructions, err := util.RenderTemplate(a.instructions, inputs)
	if err != nil {
		return nil, fmt.Errorf("agent %s: instruction template: %w", a.node.Name(), err)
	}

	if !a.stream {
		text, err := a.runTurns(ctx, instructions, messages, nil)
		if err != nil {
			return nil, err
		}
		return core.Value{V: text}, nil
	}

	out := make(chan any, 32)
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		defer close(out)
		if _, err := a.runTurns(ctx, instructions, messages, out); err != nil {
			errCh <- err
		}
	}()
	return core.Stream{Ch: out, Err: errCh}, nil
}

// buildMessages assembles history plus the current task as the model input.
func (a *ChatAgent) buildMessages(inputs map[string]any) ([]model.Message, error) {
	var messages []model.Message

	if a.history != nil {
		past, err := a.history.Messages(a.convID)
		if err != nil {
			return nil, fmt.Errorf("agent %s: load history: %w", a.node.Name(), err)
		}
		messages = past
	}

	task, ok := inputs[a.inputKey]
	if !ok || task == nil {
		if len(messages) == 0 {
			return nil, fmt.Errorf("agent %s: no %q input bound and no history", a.node.Name(), a.inputKey)
		}
		return messages, nil
	}

	userMsg := model.UserMessage(fmt.Sprintf("%v", task))
	messages = append(messages, userMsg)
	if a.history != nil {
		if err := a.history.Append(a.convID, userMsg); err != nil {
			return nil, fmt.Errorf("agent %s: persist history: %w", a.node.Name(), err)
		}
	}
	return messages, nil
}

// runTurns drives model turns until a response without tool calls arrives.
// When chunks is non-nil, partial assistant text is forwarded to it.
func (a *ChatAgent) runTurns(
	ctx context.Context,
	instructions string,
	messages []model.Message,
	chunks chan<- any,
) (string, error) {
	turns := 0

	for {
		turns++
		if a.maxCalls > 0 && turns > a.maxCalls {
			return "", fmt.Errorf("agent %s: exceeded max model calls: %d", a.node.Name(), a.maxCalls)
		}

		final, streamed, err := a.oneModelTurn(ctx, instructions, messages, chunks)
		if err != nil {
			return "", err
		}

		messages = append(messages, final)
		if a.history != nil {
			if err := a.history.Append(a.convID, final); err != nil {
				return "", fmt.Errorf("agent %s: persist history: %w", a.node.Name(), err)
			}
		}

		if len(final.ToolCalls) == 0 {
			// Models that do not stream partials still deliver their text.
			if chunks != nil && !streamed && final.Text != "" {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case chunks <- final.Text:
				}
			}
			return final.Text, nil
		}

		toolMsg := a.executeToolCalls(ctx, final.ToolCalls)
		messages = append(messages, toolMsg)
		if a.history != nil {
			if err := a.history.Append(a.convID, toolMsg); err != nil {
				return "", fmt.Errorf("agent %s: persist history: %w", a.node.Name(), err)
			}
		}
	}
}

// oneModelTurn performs a single Generate call and returns the final message
// plus whether any partial text was forwarded to chunks.
func (a *ChatAgent) oneModelTurn(
	ctx context.Context,
	instructions string,
	messages []model.Message,
	chunks chan<- any,
) (model.Message, bool, error) {
	req := model.Request{
		Instructions: instructions,
		Messages:     messages,
		Stream:       chunks != nil,
	}
	for _, t := range a.tools {
		req.Tools = append(req.Tools, tool.Definition(t))
	}

	start := time.Now()
	respCh, errCh := a.model.Generate(ctx, req)

	var final model.Message
	haveFinal := false
	streamed := false
	for resp := range respCh {
		if resp.Partial {
			if chunks != nil && resp.Message.Text != "" {
				select {
				case <-ctx.Done():
					return model.Message{}, streamed, ctx.Err()
				case chunks <- resp.Message.Text:
					streamed = true
				}
			}
			continue
		}
		final = resp.Message
		haveFinal = true
	}
	if err := <-errCh; err != nil {
		return model.Message{}, streamed, fmt.Errorf("agent %s: model call: %w", a.node.Name(), err)
	}
	if !haveFinal {
		return model.Message{}, streamed, fmt.Errorf("agent %s: model returned no final response", a.node.Name())
	}

	a.logger.Debug("agent.model.called",
		"agent", a.node.Name(),
		"model", a.model.Info().Name,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return final, streamed, nil
}

// executeToolCalls runs each requested tool and collects the responses into a
// single tool-role message. Tool failures become error-flagged responses fed
// back to the model rather than aborting the turn loop.
func (a *ChatAgent) executeToolCalls(ctx context.Context, calls []model.ToolCall) model.Message {
	msg := model.Message{Role: "tool"}

	for _, call := range calls {
		start := time.Now()
		content, isErr := a.executeToolCall(ctx, call)
		a.logger.Info("agent.tool.executed",
			"agent", a.node.Name(),
			"tool", call.Name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", isErr,
		)
		msg.ToolResponses = append(msg.ToolResponses, model.ToolResponse{
			ID:      call.ID,
			Name:    call.Name,
			Content: content,
			IsError: isErr,
		})
	}

	return msg
}

func (a *ChatAgent) executeToolCall(ctx context.Context, call model.ToolCall) (content string, isErr bool) {
	t, ok := a.toolIndex[call.Name]
	if !ok {
		return fmt.Sprintf("unknown tool: %s", call.Name), true
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return fmt.Sprintf("invalid tool arguments: %v", err), true
		}
	}

	result, err := t.Call(ctx, args)
	if err != nil {
		return err.Error(), true
	}

	switch v := result.(type) {
	case string:
		return v, false
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v), false
		}
		return string(encoded), false
	}
}
