//go:build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ── HTTP helpers ──────────────────────────────────────────────────────────────

var httpClient = &http.Client{Timeout: 30 * time.Second}

// get performs a GET request with optional extra headers.
func get(url string, headers ...map[string]string) *http.Response {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		panic(fmt.Sprintf("e2e: failed to create GET request: %v", err))
	}
	for _, h := range headers {
		for k, v := range h {
			req.Header.Set(k, v)
		}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		panic(fmt.Sprintf("e2e: GET %s failed: %v", url, err))
	}
	return resp
}

// ── JSON helpers ──────────────────────────────────────────────────────────────

type metadata struct {
	Views     uint64 `json:"views"`
	Comments  uint64 `json:"comments"`
	Reactions uint64 `json:"reactions"`
}

func decode(resp *http.Response, out interface{}) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		panic(fmt.Sprintf("e2e: failed to read response body: %v", err))
	}
	if err := json.Unmarshal(body, out); err != nil {
		panic(fmt.Sprintf("e2e: failed to parse JSON: %v\nbody: %s", err, string(body)))
	}
}

func parseMetadata(resp *http.Response) metadata {
	var md metadata
	decode(resp, &md)
	return md
}

func parseMetadataMap(resp *http.Response) map[string]metadata {
	var all map[string]metadata
	decode(resp, &all)
	return all
}

func parseJSONObject(resp *http.Response) map[string]interface{} {
	var obj map[string]interface{}
	decode(resp, &obj)
	return obj
}

// ── URL helpers ───────────────────────────────────────────────────────────────

// serviceURL builds a full URL from a path.
func serviceURL(path string) string {
	return strings.TrimRight(serviceBase, "/") + path
}
