package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	defaultServerURL = "http://localhost:12212"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	receiptStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

func main() {
	var serverURL string
	flag.StringVar(&serverURL, "server", defaultServerURL, "Server URL")
	flag.StringVar(&serverURL, "s", defaultServerURL, "Server URL (short)")
	flag.Parse()

	if flag.NArg() == 0 {
		printUsage()
		os.Exit(1)
	}

	command := joinArgs(flag.Args())
	result := executeCommand(&http.Client{Timeout: 30 * time.Second}, serverURL, command)

	if result.Success {
		printSuccess(os.Stdout, command, result)
		os.Exit(0)
	}
	printError(os.Stderr, result)
	os.Exit(1)
}

// joinArgs rebuilds the command line, quoting arguments the shell already split.
func joinArgs(args []string) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		if arg == "" || strings.ContainsAny(arg, " \t") {
			if key, value, ok := strings.Cut(arg, "="); ok && !strings.ContainsAny(key, " \t") {
				arg = key + `="` + value + `"`
			} else {
				arg = `"` + arg + `"`
			}
		}
		parts[i] = arg
	}
	return strings.Join(parts, " ")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Parcel Receipt CLI

Usage:
  receipt-cli [flags] <command>

Flags:
  -s, -server <url>    Server URL (default: %s)

Commands:
  customer <name>
    Set the customer name

  item add <name> [key=value...]
    Add an item. Keys: shipping, packaging, other, discount,
    receiver, company, province

  item update <id> [key=value...]
  item remove <id>
  item list
  totals

  receipt number
    Reserve and show today's receipt number
  receipt show [width]
    Show the receipt as text
  receipt reset
    Start a new receipt

  print <printer-id>
    Print the current receipt

  printer list | scan
  job list | status <id> | clear
  help

Examples:
  receipt-cli customer "Nok Shop"
  receipt-cli item add Box A shipping=50 packaging=10 company=thailand-post
  receipt-cli item add Envelope shipping=30 discount=5 receiver="Somchai K"
  receipt-cli receipt show
  receipt-cli print counter
  receipt-cli -s http://localhost:8080 job list

`, defaultServerURL)
}

type CommandResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func executeCommand(client *http.Client, serverURL, command string) *CommandResult {
	url := strings.TrimSuffix(serverURL, "/") + "/command"

	jsonData, err := json.Marshal(map[string]string{"command": command})
	if err != nil {
		return &CommandResult{Error: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return &CommandResult{Error: fmt.Sprintf("failed to connect to server: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &CommandResult{Error: fmt.Sprintf("failed to read response: %v", err)}
	}

	var result CommandResult
	if err := json.Unmarshal(body, &result); err != nil {
		return &CommandResult{Error: fmt.Sprintf("failed to parse response (HTTP %d): %v", resp.StatusCode, err)}
	}
	return &result
}

func printSuccess(w io.Writer, command string, result *CommandResult) {
	if result.Message == "" {
		fmt.Fprintln(w, successStyle.Render("OK"))
		return
	}

	if strings.HasPrefix(command, "receipt show") {
		fmt.Fprintln(w, receiptStyle.Render(result.Message))
		return
	}

	fmt.Fprintln(w, successStyle.Render(result.Message))
	if number, ok := result.Data["receipt_number"].(string); ok && number != "" && !strings.Contains(result.Message, number) {
		fmt.Fprintln(w, keyStyle.Render("Receipt: ")+number)
	}
	if jobID, ok := result.Data["job_id"].(string); ok {
		fmt.Fprintln(w, keyStyle.Render("Job: ")+jobID)
	}
}

func printError(w io.Writer, result *CommandResult) {
	msg := result.Error
	if msg == "" {
		msg = "unknown error"
	}
	fmt.Fprintln(w, errorStyle.Render("Error: ")+msg)
}
