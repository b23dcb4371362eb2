package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	lunamcp "github.com/mbocsi/lunalink/mcp"
	"github.com/mbocsi/lunalink/proto"
)

const Prompt = "Enter command (START_VIDEO, STOP_VIDEO, STOP): "

// LineOperator reads one command per line. The reader runs on its own
// goroutine so ReadCommand can give up when ctx is cancelled.
type LineOperator struct {
	in     io.Reader
	prompt io.Writer

	once  sync.Once
	lines chan string
	err   error
}

func NewStdinOperator() *LineOperator {
	return NewLineOperator(os.Stdin, os.Stdout)
}

// NewLineOperator reads from in. prompt may be nil.
func NewLineOperator(in io.Reader, prompt io.Writer) *LineOperator {
	return &LineOperator{in: in, prompt: prompt, lines: make(chan string)}
}

func (o *LineOperator) ReadCommand(ctx context.Context) (string, error) {
	o.once.Do(o.start)
	if o.prompt != nil {
		fmt.Fprint(o.prompt, Prompt)
	}
	select {
	case line, ok := <-o.lines:
		if !ok {
			return "", o.err
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (o *LineOperator) start() {
	go func() {
		defer close(o.lines)
		scanner := bufio.NewScanner(o.in)
		for scanner.Scan() {
			o.lines <- scanner.Text()
		}
		o.err = scanner.Err()
		if o.err == nil {
			o.err = io.EOF
		}
	}()
}

type ScriptStep struct {
	Wait    time.Duration // pause before the command is issued
	Command string
}

// ParseScript turns entries like "START_VIDEO", "wait:3s", "STOP" into steps.
// A wait applies to the command that follows it.
func ParseScript(entries []string) ([]ScriptStep, error) {
	var steps []ScriptStep
	var wait time.Duration
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if d, ok := strings.CutPrefix(entry, "wait:"); ok {
			dur, err := time.ParseDuration(d)
			if err != nil {
				return nil, fmt.Errorf("invalid script wait %q: %w", entry, err)
			}
			wait += dur
			continue
		}
		steps = append(steps, ScriptStep{Wait: wait, Command: entry})
		wait = 0
	}
	if wait > 0 {
		steps = append(steps, ScriptStep{Wait: wait})
	}
	return steps, nil
}

// ScriptOperator replays a fixed list of steps, then reports io.EOF.
type ScriptOperator struct {
	steps []ScriptStep
	next  int
}

func NewScriptOperator(steps []ScriptStep) *ScriptOperator {
	return &ScriptOperator{steps: steps}
}

func (o *ScriptOperator) ReadCommand(ctx context.Context) (string, error) {
	if o.next >= len(o.steps) {
		return "", io.EOF
	}
	step := o.steps[o.next]
	o.next++
	if !proto.Delay(ctx, step.Wait) {
		return "", ctx.Err()
	}
	return step.Command, nil
}

// MCPOperator takes commands from MCP tool calls.
type MCPOperator struct {
	commands chan string
}

// NewMCPOperator registers the command tools on s. If stats is non-nil a
// link_stats tool reports its result.
func NewMCPOperator(s *lunamcp.MCPServer, stats func() any) *MCPOperator {
	o := &MCPOperator{commands: make(chan string, 8)}

	s.AddTool(mcp.NewTool("start_video", mcp.WithDescription("Ask the rover to start streaming video")), o.handler(proto.CommandStartVideo))
	s.AddTool(mcp.NewTool("stop_video", mcp.WithDescription("Ask the rover to stop streaming video")), o.handler(proto.CommandStopVideo))
	s.AddTool(mcp.NewTool("stop", mcp.WithDescription("End the session; the rover closes the connection")), o.handler(proto.CommandStop))

	if stats != nil {
		s.AddTool(mcp.NewTool("link_stats", mcp.WithDescription("Commands sent and frames shown, dropped and diagnosed on this earth link")),
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return lunamcp.JSONResult(stats())
			})
	}
	return o
}

func (o *MCPOperator) handler(cmd proto.Command) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		select {
		case o.commands <- string(cmd):
			return mcp.NewToolResultText(fmt.Sprintf("%s queued; the rover acts on it after the link latency", cmd)), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (o *MCPOperator) ReadCommand(ctx context.Context) (string, error) {
	select {
	case cmd := <-o.commands:
		return cmd, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
