package agent

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGetReturnsAllKinds(t *testing.T) {
	kinds := []Kind{KindCodex, KindOpencode, KindClaude, KindGemini, KindAmp, KindManual}
	for _, k := range kinds {
		a, err := Get(k)
		if err != nil {
			t.Fatalf("Get(%s): %v", k, err)
		}
		if a.Name() != k {
			t.Errorf("Name() = %s, want %s", a.Name(), k)
		}
	}
}

func TestManualExecuteReturnsSentinelError(t *testing.T) {
	a, _ := Get(KindManual)
	_, err := a.Execute(context.Background(), ExecuteOptions{})
	if err != ErrManualRequiresOperator {
		t.Errorf("err = %v, want ErrManualRequiresOperator", err)
	}
}

func TestRequiresPregeneratedSessionID(t *testing.T) {
	if !RequiresPregeneratedSessionID(KindClaude) {
		t.Error("claude should require a pre-generated session id")
	}
	if RequiresPregeneratedSessionID(KindCodex) {
		t.Error("codex should not require a pre-generated session id")
	}
}

func TestResumeArgs(t *testing.T) {
	args, ok := ResumeArgs(KindClaude, "abc-123")
	if !ok || strings.Join(args, " ") != "--resume abc-123" {
		t.Errorf("ResumeArgs(claude) = %v", args)
	}
	args, ok = ResumeArgs(KindCodex, "abc-123")
	if !ok || strings.Join(args, " ") != "exec resume abc-123" {
		t.Errorf("ResumeArgs(codex) = %v", args)
	}
	if _, ok := ResumeArgs(KindManual, "x"); ok {
		t.Error("manual should not support resume")
	}
}

func TestExtractSessionIDPerKind(t *testing.T) {
	cases := []struct {
		kind Kind
		line string
		want string
	}{
		{KindOpencode, `{"sessionID":"op-1"}`, "op-1"},
		{KindCodex, `{"type":"thread.started","thread_id":"cx-1"}`, "cx-1"},
		{KindGemini, `{"type":"init","session_id":"ge-1"}`, "ge-1"},
		{KindAmp, `{"session_id":"am-1"}`, "am-1"},
	}
	for _, c := range cases {
		id, ok := ExtractSessionID(strings.NewReader(c.line+"\nnot json\n"), c.kind)
		if !ok || id != c.want {
			t.Errorf("%s: ExtractSessionID = %q,%v want %q", c.kind, id, ok, c.want)
		}
	}
}

func TestExtractSessionIDFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "worker.log")
	if err := os.WriteFile(path, []byte("noise\n{\"session_id\":\"am-2\"}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	id, ok, err := ExtractSessionIDFromFile(path, KindAmp)
	if err != nil || !ok || id != "am-2" {
		t.Fatalf("ExtractSessionIDFromFile = %q,%v,%v", id, ok, err)
	}
}

func TestSpawnDetachedAndWaitForCompletion(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	result, err := spawnDetached(context.Background(), dir, "true", nil)
	if err != nil {
		t.Fatalf("spawnDetached: %v", err)
	}
	cr, err := WaitForCompletion(context.Background(), result, 5*time.Second)
	if err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
	if cr.Outcome != CompletionFound {
		t.Errorf("Outcome = %v, want found", cr.Outcome)
	}
}

func TestBuildCommandLineExpandsPromptUnquoted(t *testing.T) {
	line := buildCommandLine("echo", []string{"-p", promptSubstitutionToken}, "/tmp/worker.prompt")
	if !strings.Contains(line, "$(cat '/tmp/worker.prompt')") {
		t.Errorf("buildCommandLine = %q, want unquoted prompt substitution", line)
	}
}

func TestMaterializePrompt(t *testing.T) {
	dir := t.TempDir()
	path, err := materializePrompt(dir, "hello world")
	if err != nil {
		t.Fatalf("materializePrompt: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "hello world" {
		t.Errorf("materializePrompt wrote %q, err=%v", data, err)
	}
}
