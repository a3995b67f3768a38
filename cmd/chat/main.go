package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func main() {
	server := flag.String("server", "http://localhost:8080", "Relay server URL")
	agentID := flag.String("agent", "", "Agent ID to chat with")
	trace := flag.Bool("trace", false, "Print the thinking trace after each reply")
	flag.Parse()

	fmt.Println("Relay CLI Chat")
	fmt.Printf("Server: %s\n", *server)
	fmt.Println("Type 'exit' or 'quit' to leave.")
	fmt.Println("Commands: /agents, /tools, /trace")
	fmt.Println("---")

	if *agentID == "" {
		fetchAgents(*server)
		fmt.Println("Pass -agent <id> to start chatting.")
	}

	history := []message{}
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Bye!")
			return
		}
		if input == "/agents" {
			fetchAgents(*server)
			continue
		}
		if input == "/tools" {
			fetchTools(*server)
			continue
		}
		if input == "/trace" {
			*trace = !*trace
			fmt.Printf("Trace printing: %v\n", *trace)
			continue
		}

		reply := sendMessage(*server, *agentID, input, history, *trace)
		if reply != "" {
			history = append(history,
				message{Role: "user", Content: input},
				message{Role: "assistant", Content: reply})
		}
	}
}

func fetchAgents(server string) {
	resp, err := http.Get(server + "/api/agents")
	if err != nil {
		printError("Failed to fetch agents: %v", err)
		return
	}
	defer resp.Body.Close()

	var agents []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Kind  string `json:"kind"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&agents); err != nil {
		printError("Failed to parse agents: %v", err)
		return
	}
	if len(agents) == 0 {
		fmt.Println("No agents registered yet.")
		return
	}
	fmt.Println("Available agents:")
	for _, a := range agents {
		fmt.Printf("  %s  %s (%s, %s)\n", a.ID, a.Name, a.Kind, a.Model)
	}
}

func fetchTools(server string) {
	resp, err := http.Get(server + "/api/tools")
	if err != nil {
		printError("Failed to fetch tools: %v", err)
		return
	}
	defer resp.Body.Close()

	var tools []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tools); err != nil {
		printError("Failed to parse tools: %v", err)
		return
	}
	fmt.Println("Registered tools:")
	for _, t := range tools {
		fmt.Printf("  %s — %s\n", t.Name, t.Description)
	}
}

func sendMessage(server, agentID, content string, history []message, trace bool) string {
	if agentID == "" {
		printError("No agent selected; restart with -agent <id>")
		return ""
	}

	body, _ := json.Marshal(map[string]any{
		"message": content,
		"history": history,
	})

	client := &http.Client{Timeout: 180 * time.Second}
	resp, err := client.Post(
		server+"/api/agents/"+agentID+"/chat",
		"application/json",
		bytes.NewReader(body),
	)
	if err != nil {
		printError("Request failed: %v", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		printError("Server error (%d): %s", resp.StatusCode, string(data))
		return ""
	}

	var result struct {
		FinalText string `json:"final_text"`
		Steps     []struct {
			Kind      string `json:"step_kind"`
			Reasoning string `json:"reasoning"`
		} `json:"thinking_process"`
		ToolsUsed []struct {
			ToolName string `json:"tool_name"`
			Success  bool   `json:"success"`
		} `json:"tools_used"`
		Usage struct {
			TotalTokens int     `json:"total_tokens"`
			Cost        float64 `json:"cost"`
		} `json:"token_usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		printError("Failed to parse response: %v", err)
		return ""
	}

	if trace {
		for _, s := range result.Steps {
			fmt.Printf("\033[90m  [%s] %s\033[0m\n", s.Kind, s.Reasoning)
		}
		for _, t := range result.ToolsUsed {
			icon := "\033[32m✓\033[0m"
			if !t.Success {
				icon = "\033[31m✗\033[0m"
			}
			fmt.Printf("\033[90m  tool %s %s\033[0m\n", t.ToolName, icon)
		}
		fmt.Printf("\033[90m  tokens=%d cost=$%.6f\033[0m\n", result.Usage.TotalTokens, result.Usage.Cost)
	}

	fmt.Printf("\033[36m[%s]\033[0m %s\n", agentID, result.FinalText)
	return result.FinalText
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\033[31m"+format+"\033[0m\n", args...)
}
