package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ClockTool reports the current time, optionally in a named location.
type ClockTool struct {
	now func() time.Time
}

// NewClockTool creates a clock tool.
func NewClockTool() *ClockTool {
	return &ClockTool{now: time.Now}
}

func (t *ClockTool) Name() string { return "clock" }

func (t *ClockTool) Description() string {
	return "Get the current date and time, optionally in an IANA timezone"
}

func (t *ClockTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"timezone": map[string]any{
				"type":        "string",
				"description": "IANA timezone name, e.g. 'Europe/Berlin'. Defaults to UTC.",
			},
		},
	}
}

type clockArgs struct {
	Timezone string `json:"timezone"`
}

// Invoke formats the current time in RFC 3339.
func (t *ClockTool) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	var a clockArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
	}
	loc := time.UTC
	if a.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(a.Timezone)
		if err != nil {
			return "", fmt.Errorf("unknown timezone %q: %w", a.Timezone, err)
		}
	}
	return t.now().In(loc).Format(time.RFC3339), nil
}
