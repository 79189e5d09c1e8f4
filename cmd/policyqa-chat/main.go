package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"policyqa/internal/tui"
)

// apiClient asks questions one at a time over the server's batch endpoint.
type apiClient struct {
	baseURL string
	token   string
	docURL  string
	client  *http.Client
}

func (c *apiClient) Ask(question string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"documents": c.docURL,
		"questions": []string{question},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/run", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return "", fmt.Errorf("server: %s", apiErr.Error)
		}
		return "", fmt.Errorf("server: %s", resp.Status)
	}
	var out struct {
		Answers []string `json:"answers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Answers) == 0 {
		return "", fmt.Errorf("server returned no answers")
	}
	return out.Answers[0], nil
}

func main() {
	_ = godotenv.Load()

	var serverURL string
	flag.StringVar(&serverURL, "server", "http://localhost:8080", "Base URL of the policyqa server")
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		fmt.Println("Usage: policyqa-chat [--server=http://localhost:8080] <document-url>")
		os.Exit(1)
	}

	client := &apiClient{
		baseURL: serverURL,
		token:   os.Getenv("POLICYQA_API_TOKEN"),
		docURL:  args[0],
		client:  &http.Client{Timeout: 5 * time.Minute},
	}

	p := tea.NewProgram(tui.New(client, args[0]), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
