package main

import (
	"fmt"
	"strconv"
	"strings"
)

type quizQuestion struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Topic     string   `json:"topic"`
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	KeyPoints string   `json:"suggested_answer_key_points"`
}

// cmdQuiz generates an assessment batch and prints the questions
func cmdQuiz(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: studybuddy quiz <user> [mcq|qa] [topic ...]")
	}
	userID := args[0]
	format := "mcq"
	topics := []string{}
	rest := args[1:]
	if len(rest) > 0 {
		switch strings.ToLower(rest[0]) {
		case "mcq", "qa":
			format = strings.ToLower(rest[0])
			rest = rest[1:]
		}
	}
	topics = append(topics, rest...)

	req := map[string]interface{}{"user_id": userID}
	if len(topics) > 0 {
		req["topics"] = topics
	}

	var result struct {
		Questions []quizQuestion `json:"questions"`
	}
	if err := postJSON("/assessment/"+format+"/generate", req, &result); err != nil {
		return err
	}

	if len(result.Questions) == 0 {
		fmt.Println("No questions generated. Try again or chat about a topic first.")
		return nil
	}

	for i, q := range result.Questions {
		fmt.Printf("\n%d. [%s] %s\n", i+1, q.Topic, q.Question)
		for j, opt := range q.Options {
			fmt.Printf("   %d) %s\n", j, opt)
		}
		fmt.Printf("   id: %s\n", q.ID)
	}
	fmt.Println("\nAnswer with: studybuddy submit <user> <question-id> <answer>")
	return nil
}

// cmdSubmit grades one answer. A bare number selects an MCQ option;
// anything else is graded as a free-text answer.
func cmdSubmit(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: studybuddy submit <user> <question-id> <answer>")
	}
	userID := args[0]
	questionID := args[1]
	answer := strings.Join(args[2:], " ")

	if selected, err := strconv.Atoi(answer); err == nil {
		var grade struct {
			IsCorrect     bool   `json:"is_correct"`
			CorrectOption int    `json:"correct_option"`
			Explanation   string `json:"explanation"`
		}
		req := map[string]interface{}{
			"user_id":         userID,
			"question_id":     questionID,
			"selected_answer": selected,
		}
		if err := postJSON("/assessment/mcq/submit", req, &grade); err != nil {
			return err
		}
		if grade.IsCorrect {
			fmt.Println("✓ Correct!")
		} else {
			fmt.Printf("✗ Incorrect. The right answer was option %d.\n", grade.CorrectOption)
		}
		if grade.Explanation != "" {
			fmt.Println(grade.Explanation)
		}
		return nil
	}

	var result struct {
		CorrectnessScore  float64 `json:"correctness_score"`
		CompletenessScore float64 `json:"completeness_score"`
		ClarityScore      float64 `json:"clarity_score"`
		TotalScore        float64 `json:"total_score"`
		Feedback          string  `json:"feedback"`
	}
	req := map[string]interface{}{
		"user_id":     userID,
		"question_id": questionID,
		"answer":      answer,
	}
	if err := postJSON("/assessment/qa/submit", req, &result); err != nil {
		return err
	}

	fmt.Printf("Score: %.1f/10  (correctness %.1f, completeness %.1f, clarity %.1f)\n",
		result.TotalScore, result.CorrectnessScore, result.CompletenessScore, result.ClarityScore)
	if result.Feedback != "" {
		fmt.Println(result.Feedback)
	}
	return nil
}

// cmdRevision prints a revision sheet targeting weak areas
func cmdRevision(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: studybuddy revision <user> [topic ...]")
	}
	userID := args[0]

	req := map[string]interface{}{"user_id": userID}
	if len(args) > 1 {
		req["topics"] = args[1:]
	}

	var result struct {
		RevisionMaterial string `json:"revision_material"`
	}
	if err := postJSON("/assessment/revision", req, &result); err != nil {
		return err
	}

	fmt.Println(result.RevisionMaterial)
	return nil
}
