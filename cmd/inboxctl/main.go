// inboxctl is the command-line client for a running inboxpilot server.
//
//	inboxctl run "How many unread emails do I have?"
//	inboxctl tools
//	inboxctl history
//	inboxctl status
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/inboxpilot/inboxpilot/pkg/models"
)

var (
	serverURL string
	maxSteps  int
)

func main() {
	root := &cobra.Command{
		Use:   "inboxctl",
		Short: "Client for the inboxpilot goal-dispatch server",
	}
	root.PersistentFlags().StringVar(&serverURL, "server", envOr("INBOXPILOT_SERVER", "http://localhost:8080"), "server base URL")

	runCmd := &cobra.Command{
		Use:   "run <goal>",
		Short: "Execute a free-form goal",
		Args:  cobra.MinimumNArgs(1),
		Run:   runGoal,
	}
	runCmd.Flags().IntVar(&maxSteps, "max-steps", 0, "tool execution budget (0 = server default)")

	root.AddCommand(
		runCmd,
		&cobra.Command{
			Use:   "tools",
			Short: "List registered tools",
			Run:   runTools,
		},
		&cobra.Command{
			Use:   "history",
			Short: "Show recorded tasks",
			Run:   runHistory,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show agent status",
			Run:   runStatus,
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Clear the task history",
			Run:   runReset,
		},
		&cobra.Command{
			Use:   "export <path>",
			Short: "Export the task history to a JSON file on the server",
			Args:  cobra.ExactArgs(1),
			Run:   runExport,
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGoal(_ *cobra.Command, args []string) {
	goal := strings.Join(args, " ")
	body := map[string]any{"goal": goal}
	if maxSteps > 0 {
		body["max_steps"] = maxSteps
	}

	var result models.TaskResult
	if err := call(http.MethodPost, "/api/v1/tasks", body, &result); err != nil {
		fail(err)
	}

	if result.OK {
		fmt.Printf("✔ task %d done (%d step(s))\n", result.TaskID, result.StepsExecuted)
	} else {
		fmt.Printf("✘ task %d failed (%d step(s))\n", result.TaskID, result.StepsExecuted)
	}
	if result.Result != nil {
		pretty, _ := json.MarshalIndent(result.Result, "", "  ")
		fmt.Println(string(pretty))
	}
	if len(result.SuggestedTools) > 0 {
		fmt.Println("suggested tools:")
		for _, s := range result.SuggestedTools {
			fmt.Printf("  - %s\n", s)
		}
	}
	if !result.OK {
		os.Exit(1)
	}
}

func runTools(_ *cobra.Command, _ []string) {
	var resp struct {
		Tools map[string]string `json:"tools"`
	}
	if err := call(http.MethodGet, "/api/v1/tools", nil, &resp); err != nil {
		fail(err)
	}
	names := make([]string, 0, len(resp.Tools))
	for name := range resp.Tools {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-20s %s\n", name, resp.Tools[name])
	}
}

func runHistory(_ *cobra.Command, _ []string) {
	var records []models.TaskRecord
	if err := call(http.MethodGet, "/api/v1/tasks", nil, &records); err != nil {
		fail(err)
	}
	if len(records) == 0 {
		fmt.Println("no tasks recorded")
		return
	}
	for _, r := range records {
		mark := "✔"
		if r.Error != "" {
			mark = "✘"
		}
		fmt.Printf("%s #%d  %s  (%d step(s))\n", mark, r.ID, r.Goal, len(r.Steps))
		if r.Error != "" {
			fmt.Printf("     error: %s\n", r.Error)
		}
	}
}

func runStatus(_ *cobra.Command, _ []string) {
	var status models.AgentStatus
	if err := call(http.MethodGet, "/api/v1/status", nil, &status); err != nil {
		fail(err)
	}
	fmt.Printf("status:     %s\n", status.Status)
	fmt.Printf("tasks:      %d total, %d ok, %d failed\n",
		status.TotalTasks, status.SuccessfulTasks, status.FailedTasks)
	fmt.Printf("tools:      %d (%s)\n", status.AvailableTools, strings.Join(status.Tools, ", "))
}

func runReset(_ *cobra.Command, _ []string) {
	if err := call(http.MethodDelete, "/api/v1/tasks", nil, nil); err != nil {
		fail(err)
	}
	fmt.Println("task history cleared")
}

func runExport(_ *cobra.Command, args []string) {
	if err := call(http.MethodPost, "/api/v1/tasks/export", map[string]any{"path": args[0]}, nil); err != nil {
		fail(err)
	}
	fmt.Printf("history exported to %s\n", args[0])
}

// call performs one JSON request against the server.
func call(method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, serverURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach server at %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server error: %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
