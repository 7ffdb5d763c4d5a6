// Package hook speaks the JSON hook protocol of the session host: one event
// document on stdin, one decision document on stdout.
package hook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/lkarlslund/usageguard/pkg/usage"
)

type Event string

const (
	EventPreToolUse Event = "PreToolUse"
	EventStop       Event = "Stop"
)

// Input is the subset of the event document this tool looks at. The rest is
// read and discarded.
type Input struct {
	SessionID      string          `json:"session_id,omitempty"`
	TranscriptPath string          `json:"transcript_path,omitempty"`
	Cwd            string          `json:"cwd,omitempty"`
	HookEventName  string          `json:"hook_event_name,omitempty"`
	ToolName       string          `json:"tool_name,omitempty"`
	ToolInput      json.RawMessage `json:"tool_input,omitempty"`
}

type SpecificOutput struct {
	HookEventName      string `json:"hookEventName"`
	PermissionDecision string `json:"permissionDecision"`
}

// Output marshals to {} when nothing is set, which the host reads as allow.
type Output struct {
	HookSpecificOutput *SpecificOutput `json:"hookSpecificOutput,omitempty"`
	Decision           string          `json:"decision,omitempty"`
	Reason             string          `json:"reason,omitempty"`
	SystemMessage      string          `json:"systemMessage,omitempty"`
}

func ReadInput(r io.Reader) (Input, error) {
	var in Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		if errors.Is(err, io.EOF) {
			return in, errors.New("empty hook input")
		}
		return in, fmt.Errorf("decode hook input: %w", err)
	}
	return in, nil
}

func PreToolUse(s usage.Snapshot) Output {
	switch s.Status {
	case usage.StatusBlocked:
		return Output{
			HookSpecificOutput: &SpecificOutput{HookEventName: string(EventPreToolUse), PermissionDecision: "deny"},
			SystemMessage:      s.Message,
		}
	case usage.StatusWarning:
		return Output{SystemMessage: s.Message}
	default:
		return Output{}
	}
}

func Stop(s usage.Snapshot, windowHours int) Output {
	switch s.Status {
	case usage.StatusBlocked:
		return Output{
			Decision: "block",
			Reason: fmt.Sprintf("USAGE GUARD: %d-hour window budget exhausted (%.0f%% of $%.2f). Resets in %d minutes (at %s). STOP working. Do NOT attempt further tool calls.",
				windowHours, s.ThresholdPct, s.MaxCost, s.RemainingMinutes(), s.ResetClock()),
		}
	case usage.StatusWarning:
		return Output{SystemMessage: fmt.Sprintf("USAGE GUARD WARNING: %.0f%% of budget used. Consider wrapping up soon.", s.ThresholdPct)}
	default:
		return Output{}
	}
}

func Write(w io.Writer, o Output) error {
	b, err := json.Marshal(o)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

// Evaluation yields the snapshot to decide on plus the configured window
// length. An error means the guard is unavailable and the call is allowed.
type Evaluation func() (usage.Snapshot, int, error)

// Run handles one hook invocation. Every failure before the decision is
// logged and answered with {}; the returned error only reports a failed
// write to out.
func Run(ev Event, in io.Reader, out io.Writer, evaluate Evaluation) error {
	decision, err := decide(ev, in, evaluate)
	if err != nil {
		slog.Error("usage guard hook failed, allowing", "event", ev, "error", err)
		decision = Output{}
	}
	return Write(out, decision)
}

func decide(ev Event, in io.Reader, evaluate Evaluation) (out Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	input, err := ReadInput(in)
	if err != nil {
		return Output{}, err
	}
	if input.HookEventName != "" && input.HookEventName != string(ev) {
		slog.Debug("hook event name mismatch", "expected", ev, "got", input.HookEventName)
	}
	snap, hours, err := evaluate()
	if err != nil {
		return Output{}, err
	}
	slog.Debug("usage guard decision", "event", ev, "status", snap.Status, "cost", snap.Cost, "tool", input.ToolName)
	switch ev {
	case EventPreToolUse:
		return PreToolUse(snap), nil
	case EventStop:
		return Stop(snap, hours), nil
	default:
		return Output{}, fmt.Errorf("unsupported hook event %q", ev)
	}
}
