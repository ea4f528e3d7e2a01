package agent

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Per-assistant JSON-line session protocols (spec.md §4.4's table). A
// single shared scanner (mirroring internal/llm/output.go's ParseStream
// buffer sizing) reads either live stdout or a completed worker.log file,
// so detached-mode runs can still recover the session id after the fact.
const (
	initScanBufSize = 64 * 1024
	maxScanBufSize  = 1024 * 1024
)

// ExtractSessionID scans r line by line for the session-id shape specific
// to kind, returning the first match. claude and manual never appear here:
// claude's id is pre-generated, manual has no session concept.
func ExtractSessionID(r io.Reader, kind Kind) (string, bool) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, initScanBufSize)
	scanner.Buffer(buf, maxScanBufSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] != '{' {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			continue
		}
		if id, ok := sessionIDFromObject(obj, kind); ok {
			return id, true
		}
	}
	return "", false
}

func sessionIDFromObject(obj map[string]any, kind Kind) (string, bool) {
	switch kind {
	case KindOpencode:
		if v, ok := obj["sessionID"].(string); ok && v != "" {
			return v, true
		}
	case KindCodex:
		if t, _ := obj["type"].(string); t == "thread.started" {
			if id, ok := obj["thread_id"].(string); ok && id != "" {
				return id, true
			}
		}
	case KindGemini:
		if t, _ := obj["type"].(string); t == "init" {
			if id, ok := obj["session_id"].(string); ok && id != "" {
				return id, true
			}
		}
	case KindAmp:
		if id, ok := obj["session_id"].(string); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

// ExtractSessionIDFromFile opens path (typically worker.log) and scans it
// for the session id, for recovering the id from a completed detached run.
func ExtractSessionIDFromFile(path string, kind Kind) (string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer f.Close()
	id, ok := ExtractSessionID(f, kind)
	return id, ok, nil
}

// GenerateSessionID produces a fresh UUID. Required up front for claude
// (the only strictly-required pre-generation per spec.md §4.4); optional
// fallback for amp when no session_id appears in its output.
func GenerateSessionID() string {
	return uuid.NewString()
}

// ResumeArgs returns the CLI arguments that resume a prior session for the
// given assistant kind, per spec.md §4.4's resume-syntax table. Returns
// (nil, false) for assistants with no resume syntax.
func ResumeArgs(kind Kind, sessionID string) ([]string, bool) {
	switch kind {
	case KindOpencode:
		return []string{"--session", sessionID}, true
	case KindCodex:
		return []string{"exec", "resume", sessionID}, true
	case KindClaude:
		return []string{"--resume", sessionID}, true
	case KindGemini:
		return []string{"--resume", sessionID}, true
	case KindAmp:
		return []string{"threads", "continue"}, true
	default:
		return nil, false
	}
}
