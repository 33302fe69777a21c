package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// cmdChat sends one chat turn and streams the answer to the terminal
func cmdChat(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: studybuddy chat <user> <message>")
	}
	userID := args[0]
	message := strings.Join(args[1:], " ")

	body, err := json.Marshal(map[string]interface{}{
		"user_id": userID,
		"message": message,
		"stream":  true,
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	resp, err := http.Post(daemonAddr+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("daemon not reachable (run 'studybuddy start'): %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	return printSSE(resp.Body)
}

// printSSE renders a server-sent event stream of content chunks. Data
// continuation lines within one event join with a newline.
func printSSE(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	event := ""
	firstData := true
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
			firstData = true
		case strings.HasPrefix(line, "data: "):
			data := strings.TrimPrefix(line, "data: ")
			switch event {
			case "content":
				if !firstData {
					fmt.Println()
				}
				fmt.Print(data)
				firstData = false
			case "error":
				fmt.Println()
				return fmt.Errorf("stream error: %s", data)
			}
		}
	}
	fmt.Println()
	return scanner.Err()
}

// cmdUpload uploads a file; subsequent chat turns answer from its content
func cmdUpload(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: studybuddy upload <user> <file>")
	}
	userID := args[0]
	path := args[1]

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("create form: %w", err)
	}
	if _, err := io.Copy(fw, file); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	mw.Close()

	resp, err := http.Post(daemonAddr+"/upload?user_id="+userID, mw.FormDataContentType(), &buf)
	if err != nil {
		return fmt.Errorf("daemon not reachable (run 'studybuddy start'): %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Filename      string `json:"filename"`
		Message       string `json:"message"`
		ContentLength int    `json:"content_length"`
		Error         string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload failed: %s", result.Error)
	}

	fmt.Printf("✓ %s uploaded (%d characters extracted)\n", result.Filename, result.ContentLength)
	fmt.Println(result.Message)
	return nil
}

// cmdProfile shows a learner's mastery profile
func cmdProfile(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: studybuddy profile <user>")
	}
	userID := args[0]

	var p struct {
		UserID                string   `json:"user_id"`
		KnowledgeLevel        string   `json:"knowledge_level"`
		ExplanationPreference string   `json:"explanation_preference"`
		ConfidenceScore       float64  `json:"confidence_score"`
		KnownConcepts         []string `json:"known_concepts"`
		WeakAreas             []string `json:"weak_areas"`
		Topics                map[string]struct {
			Mastery   float64 `json:"mastery"`
			Attempted int     `json:"attempted"`
			Status    string  `json:"status"`
		} `json:"topics"`
	}
	if err := getJSON("/user/"+userID+"/profile", &p); err != nil {
		return err
	}

	fmt.Printf("Profile: %s\n", p.UserID)
	fmt.Printf("  Level:      %s\n", p.KnowledgeLevel)
	fmt.Printf("  Preference: %s\n", p.ExplanationPreference)
	fmt.Printf("  Confidence: %.2f %s\n", p.ConfidenceScore, renderProgressBar(p.ConfidenceScore, 20))

	if len(p.KnownConcepts) > 0 {
		fmt.Printf("  Known:      %s\n", strings.Join(p.KnownConcepts, ", "))
	}
	if len(p.WeakAreas) > 0 {
		fmt.Printf("  Weak:       %s\n", strings.Join(p.WeakAreas, ", "))
	}

	if len(p.Topics) > 0 {
		fmt.Println("\nTopic Mastery:")
		names := make([]string, 0, len(p.Topics))
		for name := range p.Topics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			t := p.Topics[name]
			fmt.Printf("  %-24s %.2f %s (%d attempts, %s)\n",
				name, t.Mastery, renderProgressBar(t.Mastery, 20), t.Attempted, t.Status)
		}
	}

	return nil
}

// cmdHistory lists archived sessions
func cmdHistory(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: studybuddy history <user>")
	}
	userID := args[0]

	var result struct {
		Sessions []struct {
			SessionID string `json:"session_id"`
			Messages  []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			CreatedAt time.Time `json:"created_at"`
		} `json:"sessions"`
	}
	if err := getJSON("/history/"+userID, &result); err != nil {
		return err
	}

	if len(result.Sessions) == 0 {
		fmt.Println("No archived sessions.")
		return nil
	}

	for _, sess := range result.Sessions {
		fmt.Printf("%s  %s  (%d messages)\n",
			sess.CreatedAt.Format("2006-01-02 15:04"), sess.SessionID, len(sess.Messages))
	}
	return nil
}

// cmdReset starts a fresh session for a learner
func cmdReset(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: studybuddy reset <user>")
	}
	userID := args[0]

	var result struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := postJSON("/user/"+userID+"/reset", map[string]string{}, &result); err != nil {
		return err
	}

	fmt.Println(result.Message)
	return nil
}
