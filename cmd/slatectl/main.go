// slatectl posts candidate slates from a JSON file to a running Equilibrium
// API and prints the response.
//
// Usage:
//
//	slatectl -file candidates.json -api http://localhost:8700 -request-id demo-1
//	slatectl -outcome -file slate.json
//
// The file holds either {"candidates": [[item...]...]} or a bare array of
// slates. With -outcome it holds one slate, bare or as {"slate": [...]}.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

type selectRequest struct {
	RequestID  string            `json:"request_id,omitempty"`
	Candidates []json.RawMessage `json:"candidates"`
}

type outcomeRequest struct {
	Slate []json.RawMessage `json:"slate"`
}

func main() {
	apiURL := flag.String("api", "http://localhost:8700", "Equilibrium API base URL")
	file := flag.String("file", "", "path to candidates JSON file (- for stdin)")
	requestID := flag.String("request-id", "", "request ID recorded with the selection")
	clientID := flag.String("client", "slatectl", "X-Client-ID header value")
	outcome := flag.Bool("outcome", false, "score a single slate instead of selecting")
	timeout := flag.Duration("timeout", 30*time.Second, "HTTP timeout")
	flag.Parse()

	if *file == "" {
		log.Fatal("-file is required")
	}

	data, err := readInput(*file)
	if err != nil {
		log.Fatalf("read %s: %v", *file, err)
	}

	var path string
	var body []byte
	if *outcome {
		path = "/api/v1/slates/outcome"
		body, err = buildOutcome(data)
	} else {
		path = "/api/v1/slates/select"
		body, err = buildSelect(data, *requestID)
	}
	if err != nil {
		log.Fatalf("parse %s: %v", *file, err)
	}

	req, err := http.NewRequest("POST", *apiURL+path, bytes.NewReader(body))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-ID", *clientID)

	client := &http.Client{Timeout: *timeout}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("post %s: %v", path, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("read response: %v", err)
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, out, "", "  ") == nil {
		out = pretty.Bytes()
	}
	fmt.Println(string(out))

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("request failed: status %d", resp.StatusCode)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func buildSelect(data []byte, requestID string) ([]byte, error) {
	req := selectRequest{RequestID: requestID}
	if err := json.Unmarshal(data, &req.Candidates); err != nil {
		var wrapped selectRequest
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, err
		}
		if wrapped.Candidates == nil {
			return nil, fmt.Errorf("no candidates array found")
		}
		req.Candidates = wrapped.Candidates
		if req.RequestID == "" {
			req.RequestID = wrapped.RequestID
		}
	}
	log.Printf("posting %d candidate slates", len(req.Candidates))
	return json.Marshal(req)
}

func buildOutcome(data []byte) ([]byte, error) {
	var req outcomeRequest
	if err := json.Unmarshal(data, &req.Slate); err != nil {
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		if req.Slate == nil {
			return nil, fmt.Errorf("no slate array found")
		}
	}
	return json.Marshal(req)
}
