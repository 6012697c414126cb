// Package command provides the text command language shared by the HTTP API,
// the CLI and the terminal UI.
package command

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/thereceipt/parcel-receipt/internal/desk"
)

// Executor executes commands
type Executor struct {
	desk *desk.Desk
	lg   *zap.Logger
}

// NewExecutor creates a new command executor
func NewExecutor(d *desk.Desk, lg *zap.Logger) *Executor {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Executor{
		desk: d,
		lg:   lg,
	}
}

// Result represents the result of executing a command
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func failure(format string, args ...any) *Result {
	return &Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Execute executes a command string and returns a result
func (e *Executor) Execute(ctx context.Context, cmdStr string) *Result {
	parts := parseCommand(cmdStr)
	if len(parts) == 0 {
		return failure("empty command")
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	e.lg.Debug("Executing command", zap.String("command", command), zap.Int("args", len(args)))

	switch command {
	case "customer":
		return e.handleCustomer(args)
	case "item":
		return e.handleItem(args)
	case "totals":
		return e.handleTotals()
	case "receipt":
		return e.handleReceipt(ctx, args)
	case "print":
		return e.handlePrint(ctx, args)
	case "printer":
		return e.handlePrinter(args)
	case "job":
		return e.handleJob(args)
	case "help":
		return e.handleHelp()
	default:
		return failure("unknown command: %s. Type 'help' for available commands", command)
	}
}

// parseCommand splits a command string on spaces, keeping quoted strings together
func parseCommand(cmdStr string) []string {
	cmdStr = strings.TrimSpace(cmdStr)
	if cmdStr == "" {
		return []string{}
	}

	var parts []string
	var current strings.Builder
	inQuotes := false
	quoted := false
	quoteChar := byte(0)

	for i := 0; i < len(cmdStr); i++ {
		char := cmdStr[i]

		switch {
		case (char == '"' || char == '\'') && !inQuotes:
			inQuotes = true
			quoted = true
			quoteChar = char
		case inQuotes && char == quoteChar:
			inQuotes = false
			quoteChar = 0
		case (char == ' ' || char == '\t') && !inQuotes:
			if current.Len() > 0 || quoted {
				parts = append(parts, current.String())
				current.Reset()
				quoted = false
			}
		default:
			current.WriteByte(char)
		}
	}

	if current.Len() > 0 || quoted {
		parts = append(parts, current.String())
	}

	return parts
}
