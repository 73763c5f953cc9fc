package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/stock-analyst/internal/llm"
	"github.com/ashureev/stock-analyst/internal/tools"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const markdownInstruction = "Use markdown to format your answers."

// Agent is a configured model plus toolset. Runs on one Agent are serialized.
type Agent struct {
	cfg      Config
	registry *tools.Registry
	prompt   string

	mu sync.Mutex
}

// New validates cfg and builds an Agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Provider == nil {
		return nil, errors.New("agent: model provider is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("agent: model id is required")
	}
	if cfg.MaxTurns == 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.MaxTurns < 0 {
		return nil, errors.Errorf("agent: max turns must be positive, got %d", cfg.MaxTurns)
	}

	registry, err := tools.NewRegistry(cfg.Tools...)
	if err != nil {
		return nil, errors.Wrap(err, "agent: register tools")
	}

	return &Agent{
		cfg:      cfg,
		registry: registry,
		prompt:   buildSystemPrompt(cfg.Instructions, cfg.Markdown),
	}, nil
}

// Model returns the configured model id.
func (a *Agent) Model() string { return a.cfg.Model }

// ToolNames returns the names of the registered tools, sorted.
func (a *Agent) ToolNames() []string {
	defs := a.registry.Definitions()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

// SystemPrompt returns the system message sent at the start of every run.
func (a *Agent) SystemPrompt() string { return a.prompt }

func buildSystemPrompt(instructions []string, markdown bool) string {
	lines := make([]string, 0, len(instructions)+1)
	for _, in := range instructions {
		if s := strings.TrimSpace(in); s != "" {
			lines = append(lines, s)
		}
	}
	if markdown {
		lines = append(lines, markdownInstruction)
	}
	if len(lines) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Instructions\n")
	for _, l := range lines {
		sb.WriteString("- ")
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Run sends query to the model and executes tool calls until the model
// answers or the turn budget is spent. Errors from the model abort the run;
// tool failures are reported back to the model instead.
func (a *Agent) Run(ctx context.Context, query string) (*RunResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	resp := &RunResponse{
		RunID:     uuid.NewString(),
		Agent:     a.cfg.Name,
		Model:     a.cfg.Model,
		CreatedAt: time.Now().UTC(),
	}
	log := slog.With("run_id", resp.RunID, "model", a.cfg.Model)
	start := time.Now()

	if a.prompt != "" {
		resp.Messages = append(resp.Messages, llm.Message{Role: llm.RoleSystem, Content: a.prompt})
	}
	resp.Messages = append(resp.Messages, llm.Message{Role: llm.RoleUser, Content: query})

	defs := a.registry.Definitions()
	var running []string

	for resp.Turns < a.cfg.MaxTurns {
		resp.Turns++
		msg, err := a.cfg.Provider.Complete(ctx, a.cfg.Model, resp.Messages, defs)
		if err != nil {
			log.Error("Agent run failed", "turn", resp.Turns, "error", err)
			return nil, errors.Wrapf(err, "agent run %s: model call on turn %d", resp.RunID, resp.Turns)
		}
		if msg.Role == "" {
			msg.Role = llm.RoleAssistant
		}
		resp.Messages = append(resp.Messages, msg)

		if len(msg.ToolCalls) == 0 {
			resp.Completed = true
			resp.Content = msg.Content
			if a.cfg.ShowToolCalls && len(running) > 0 {
				resp.Content = formatRunning(running) + resp.Content
			}
			log.Info("Agent run completed",
				"turns", resp.Turns,
				"tool_calls", len(resp.ToolCalls),
				"duration_ms", time.Since(start).Milliseconds())
			return resp, nil
		}

		for _, call := range msg.ToolCalls {
			running = append(running, FormatToolCall(call.Name, call.Arguments))
			exec := a.executeTool(ctx, log, call)
			resp.ToolCalls = append(resp.ToolCalls, exec)

			content := exec.Result
			if exec.Error != "" {
				content = "Error: " + exec.Error
			}
			resp.Messages = append(resp.Messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    content,
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}
	}

	log.Warn("Agent run stopped at turn limit",
		"max_turns", a.cfg.MaxTurns,
		"tool_calls", len(resp.ToolCalls),
		"duration_ms", time.Since(start).Milliseconds())
	return resp, nil
}

func (a *Agent) executeTool(ctx context.Context, log *slog.Logger, call llm.ToolCall) (exec ToolExecution) {
	exec = ToolExecution{ID: call.ID, Name: call.Name, Arguments: call.Arguments}
	start := time.Now()
	defer func() { exec.DurationMs = time.Since(start).Milliseconds() }()

	tool, err := a.registry.Get(call.Name)
	if err != nil {
		exec.Error = err.Error()
		log.Warn("Model requested unknown tool", "tool", call.Name)
		return exec
	}

	result, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		exec.Error = err.Error()
		log.Warn("Tool call failed", "tool", call.Name, "error", err, "duration_ms", time.Since(start).Milliseconds())
		return exec
	}
	exec.Result = result
	log.Info("Tool call succeeded", "tool", call.Name, "result_length", len(result), "duration_ms", time.Since(start).Milliseconds())
	return exec
}

// FormatToolCall renders a call as name(key=value, ...) with keys sorted.
// Arguments that are not a JSON object are shown verbatim.
func FormatToolCall(name, argsJSON string) string {
	trimmed := strings.TrimSpace(argsJSON)
	if trimmed == "" {
		return name + "()"
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
		return name + "(" + trimmed + ")"
	}
	if len(args) == 0 {
		return name + "()"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, args[k])
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

func formatRunning(calls []string) string {
	var sb strings.Builder
	for _, c := range calls {
		sb.WriteString(" - Running: ")
		sb.WriteString(c)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}
