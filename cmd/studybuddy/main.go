package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	daemonAddr = "http://127.0.0.1:7433"
	pidFile    = "studybuddyd.pid"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = cmdInit()
	case "start":
		err = cmdStart()
	case "stop":
		err = cmdStop()
	case "status":
		err = cmdStatus()
	case "logs":
		err = cmdLogs()
	case "doctor":
		err = cmdDoctor()
	case "config":
		err = cmdConfig()
	case "provider":
		err = cmdProvider(os.Args[2:])
	case "chat":
		err = cmdChat(os.Args[2:])
	case "upload":
		err = cmdUpload(os.Args[2:])
	case "ingest":
		err = cmdIngest(os.Args[2:])
	case "quiz":
		err = cmdQuiz(os.Args[2:])
	case "submit":
		err = cmdSubmit(os.Args[2:])
	case "revision":
		err = cmdRevision(os.Args[2:])
	case "profile":
		err = cmdProfile(os.Args[2:])
	case "history":
		err = cmdHistory(os.Args[2:])
	case "reset":
		err = cmdReset(os.Args[2:])
	case "mcp":
		err = cmdMCP()
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("studybuddy %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Studybuddy - Personalized AI Tutoring

Usage:
  studybuddy <command> [arguments]

Setup Commands:
  init            Initialize studybuddy (first-time setup)
  doctor          Check system requirements
  config          Show current configuration
  provider        Manage LLM providers

Daemon Commands:
  start           Start the studybuddy daemon
  stop            Stop the studybuddy daemon
  status          Show daemon status
  logs            View daemon logs

Tutoring Commands:
  chat            Ask the tutor a question
  upload          Upload a file to study from
  ingest          Index study materials for retrieval
  profile         Show a learner's mastery profile
  history         Show archived sessions
  reset           Start a fresh session (progress archived)

Assessment Commands:
  quiz            Generate a quiz batch (mcq or qa)
  submit          Submit an answer for grading
  revision        Generate revision material for topics

Integration Commands:
  mcp             Start MCP server (for editor integration)

Other:
  help            Show this help message
  version         Show version information

Examples:
  studybuddy start                        # Start daemon
  studybuddy chat alice "What is a mutex?"
  studybuddy quiz alice mcq Slices Maps   # 5-question MCQ batch
  studybuddy submit alice <question-id> 2
  studybuddy profile alice`)
}

// postJSON posts a JSON body to the daemon and decodes the JSON response
func postJSON(path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	resp, err := http.Post(daemonAddr+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("daemon not reachable (run 'studybuddy start'): %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			if apiErr.Details != "" {
				return fmt.Errorf("%s: %s", apiErr.Error, apiErr.Details)
			}
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// getJSON fetches a daemon endpoint and decodes the JSON response
func getJSON(path string, out interface{}) error {
	resp, err := http.Get(daemonAddr + path)
	if err != nil {
		return fmt.Errorf("daemon not reachable (run 'studybuddy start'): %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// renderProgressBar creates a visual mastery bar
func renderProgressBar(value float64, width int) string {
	filled := int(value * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	empty := width - filled

	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", empty) + "]"
}
