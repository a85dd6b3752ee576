// Command parleyctl is the CLI client for a running parleyd.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parley-io/parley/internal/config"
	"github.com/parley-io/parley/pkg/protocol"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "health":
		cmdHealth()
	case "agents":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: parleyctl agents <list|show>")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "list":
			cmdAgentsList()
		case "show":
			if len(os.Args) < 4 {
				fmt.Fprintln(os.Stderr, "usage: parleyctl agents show <id>")
				os.Exit(1)
			}
			cmdAgentsShow(os.Args[3])
		default:
			fmt.Fprintf(os.Stderr, "unknown agents subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "conversations":
		cmdConversationsList()
	case "chat":
		cmdChat(os.Args[2:])
	case "turn":
		if len(os.Args) < 4 || os.Args[2] != "show" {
			fmt.Fprintln(os.Stderr, "usage: parleyctl turn show <id>")
			os.Exit(1)
		}
		cmdTurnShow(os.Args[3])
	case "watch":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: parleyctl watch <turn-id>")
			os.Exit(1)
		}
		cmdWatch(os.Args[2])
	case "logs":
		cmdLogs(os.Args[2:])
	case "config":
		if len(os.Args) < 4 || os.Args[2] != "validate" {
			fmt.Fprintln(os.Stderr, "usage: parleyctl config validate <path>")
			os.Exit(1)
		}
		cmdConfigValidate(os.Args[3])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func cmdHealth() {
	body, err := apiGet("/api/health")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(body))
}

func cmdAgentsList() {
	body, err := apiGet("/api/agents")
	if err != nil {
		fatal(err)
	}
	var agents []protocol.AgentDescriptor
	json.Unmarshal(body, &agents)
	for _, a := range agents {
		fmt.Printf("%-14s %-12s %s\n", a.ID, a.State.Status, a.Name)
	}
}

func cmdAgentsShow(id string) {
	body, err := apiGet("/api/agents/" + id)
	if err != nil {
		fatal(err)
	}
	fmt.Println(prettyJSON(body))
}

func cmdConversationsList() {
	body, err := apiGet("/api/conversations")
	if err != nil {
		fatal(err)
	}
	var convs []protocol.Conversation
	json.Unmarshal(body, &convs)
	for _, c := range convs {
		fmt.Printf("%-38s %-12s %2d msgs  %s\n", c.ID, c.AgentID, len(c.Messages), c.Title)
	}
}

// cmdChat sends one message; without --conversation it creates a fresh
// conversation first.
func cmdChat(args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	convID := fs.String("conversation", "", "Existing conversation ID")
	agentID := fs.String("agent", "researcher", "Agent persona for new conversations")
	showSteps := fs.Bool("steps", false, "Print the turn's protocol steps after the reply")
	fs.Parse(args)

	text := strings.Join(fs.Args(), " ")
	if text == "" {
		fmt.Fprintln(os.Stderr, "usage: parleyctl chat [--conversation id] [--agent id] <message>")
		os.Exit(1)
	}

	if *convID == "" {
		body, err := apiPost("/api/conversations", map[string]string{
			"title":    firstWords(text, 6),
			"agent_id": *agentID,
		})
		if err != nil {
			fatal(err)
		}
		var conv protocol.Conversation
		json.Unmarshal(body, &conv)
		*convID = conv.ID
		fmt.Printf("conversation: %s\n", conv.ID)
	}

	body, err := apiPost("/api/conversations/"+*convID+"/messages", map[string]string{"content": text})
	if err != nil {
		fatal(err)
	}
	var reply protocol.Message
	json.Unmarshal(body, &reply)
	fmt.Println(reply.Content)

	if *showSteps && reply.TurnID != "" {
		fmt.Println()
		cmdTurnShow(reply.TurnID)
	}
}

func cmdTurnShow(id string) {
	body, err := apiGet("/api/turns/" + id)
	if err != nil {
		fatal(err)
	}
	var turn protocol.Turn
	json.Unmarshal(body, &turn)
	for _, s := range turn.Steps {
		printStep(s)
	}
}

// cmdWatch streams a turn's timeline live over the websocket feed.
func cmdWatch(turnID string) {
	base := envOr("PARLEY_API_URL", "http://localhost:8080")
	u, err := url.Parse(base)
	if err != nil {
		fatal(err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/turns/" + turnID + "/watch"
	if key := os.Getenv("PARLEY_API_KEY"); key != "" {
		u.RawQuery = "token=" + url.QueryEscape(key)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		fatal(fmt.Errorf("dial %s: %w", u.String(), err))
	}
	defer conn.Close()

	seen := 0
	for {
		var turn protocol.Turn
		if err := conn.ReadJSON(&turn); err != nil {
			return
		}
		for _, s := range turn.Steps[seen:] {
			printStep(s)
		}
		seen = len(turn.Steps)
	}
}

func cmdLogs(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	level := fs.String("level", "", "Minimum level (info|warn|error)")
	limit := fs.Int("limit", 50, "Max entries")
	fs.Parse(args)

	query := fmt.Sprintf("?limit=%d", *limit)
	if *level != "" {
		query += "&level=" + *level
	}
	body, err := apiGet("/api/logs" + query)
	if err != nil {
		fatal(err)
	}
	fmt.Println(prettyJSON(body))
}

func cmdConfigValidate(path string) {
	if _, err := config.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("config is valid")
}

// --- Helpers ---

func printStep(s protocol.ProtocolStep) {
	note := ""
	if s.Output != nil && s.Output.Text != "" {
		note = s.Output.Text
	} else if s.Note != "" {
		note = s.Note
	}
	fmt.Printf("%-10s %-12s %s\n", s.Kind, s.Actor.Name, note)
}

func apiGet(path string) ([]byte, error) {
	req, err := http.NewRequest("GET", apiBase()+path, nil)
	if err != nil {
		return nil, err
	}
	return apiDo(req)
}

func apiPost(path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest("POST", apiBase()+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return apiDo(req)
}

func apiDo(req *http.Request) ([]byte, error) {
	if key := os.Getenv("PARLEY_API_KEY"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func apiBase() string {
	return envOr("PARLEY_API_URL", "http://localhost:8080")
}

func prettyJSON(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	return string(out)
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Println("parleyctl — parley daemon CLI")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  health                     Check daemon health")
	fmt.Println("  agents list                List agents and their live status")
	fmt.Println("  agents show <id>           Show agent details")
	fmt.Println("  conversations              List conversations")
	fmt.Println("  chat [flags] <message>     Send a message (--conversation, --agent, --steps)")
	fmt.Println("  turn show <id>             Show a turn's protocol steps")
	fmt.Println("  watch <turn-id>            Stream a turn's steps live")
	fmt.Println("  logs                       Show recent daemon logs (--level, --limit)")
	fmt.Println("  config validate <path>     Validate a config file")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  PARLEY_API_URL   Daemon URL (default: http://localhost:8080)")
	fmt.Println("  PARLEY_API_KEY   API key for authentication")
}
