package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/vovakirdan/wirehook/internal/proto"
	"github.com/vovakirdan/wirehook/internal/signature"
)

func main() {
	if err := run(); err != nil {
		log.Printf("webhook_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("addr", "http://localhost:8000", "server base URL")
	secret := flag.String("secret", os.Getenv("WEBHOOK_SECRET"), "shared webhook secret")
	id := flag.String("id", fmt.Sprintf("smoke-%d", time.Now().UnixNano()), "message_id to deliver")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	if *secret == "" {
		return fmt.Errorf("secret is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	client := &http.Client{}

	ts := time.Now().UTC().Format(time.RFC3339)
	body, err := json.Marshal(map[string]string{
		"message_id": *id,
		"from":       "+15550001",
		"to":         "+15550002",
		"ts":         ts,
		"text":       *text,
	})
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	sig := signature.Sign([]byte(*secret), body)

	// Deliver twice; both must be accepted.
	for attempt := 1; attempt <= 2; attempt++ {
		status, respBody, err := do(ctx, client, http.MethodPost, *base+"/webhook", body, sig)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("delivery %d: status %d: %s", attempt, status, respBody)
		}
		fmt.Printf("delivery %d accepted\n", attempt)
	}

	status, _, err := do(ctx, client, http.MethodPost, *base+"/webhook", body, "bad")
	if err != nil {
		return err
	}
	if status != http.StatusUnauthorized {
		return fmt.Errorf("bad signature: expected 401, got %d", status)
	}

	status, respBody, err := do(ctx, client, http.MethodGet, *base+"/messages?from="+url.QueryEscape("+15550001")+"&since="+url.QueryEscape(ts)+"&limit=100", nil, "")
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("list: status %d: %s", status, respBody)
	}
	var list proto.MessageList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return fmt.Errorf("decode list: %w", err)
	}
	found := 0
	for _, m := range list.Data {
		if m.MessageID == *id {
			found++
		}
	}
	if found != 1 {
		return fmt.Errorf("expected message %s exactly once, found %d", *id, found)
	}

	status, respBody, err = do(ctx, client, http.MethodGet, *base+"/stats", nil, "")
	if err != nil {
		return err
	}
	fmt.Printf("stats (%d): %s\n", status, respBody)
	return nil
}

func do(ctx context.Context, client *http.Client, method, target string, body []byte, sig string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sig != "" {
		req.Header.Set(signature.Header, sig)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}
