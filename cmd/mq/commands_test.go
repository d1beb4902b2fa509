package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zulandar/marquee/internal/accesslog"
	"github.com/zulandar/marquee/internal/telegram"
)

const testSeed = `
actors:
  - id: a1
    name_ko: 제인
staff:
  - name: Kim
    telegram_token: "123:abc"
    telegram_chat_id: "555"
  - name: Lee
assignments:
  - actor_id: a1
    staff: Kim
    type: sales
  - actor_id: a1
    staff: Lee
    type: advertising
`

// writeTestConfig writes a sqlite-backed config into a temp dir and returns
// its path. apiBase points the Telegram client at a fake server.
func writeTestConfig(t *testing.T, apiBase string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`
database:
  driver: sqlite
  dsn: %s
telegram:
  api_base: %s
  timeout_sec: 2
digest:
  telegram_token: "999:ops"
  telegram_chat_id: "-100"
`, filepath.Join(dir, "marquee.db"), apiBase)
	path := filepath.Join(dir, "marquee.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// fakeBotAPI records sendMessage calls.
type fakeBotAPI struct {
	mu    sync.Mutex
	paths []string
	msgs  []telegram.Message
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var msg telegram.Message
	json.NewDecoder(r.Body).Decode(&msg)
	f.paths = append(f.paths, r.URL.Path)
	f.msgs = append(f.msgs, msg)
	w.Write([]byte(`{"ok":true}`))
}

func setupCLI(t *testing.T) (string, *fakeBotAPI) {
	t.Helper()
	api := &fakeBotAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	configPath := writeTestConfig(t, srv.URL)
	if out, err := runCmd(t, "db", "init", "-c", configPath); err != nil {
		t.Fatalf("db init: %v\n%s", err, out)
	}
	seedPath := filepath.Join(filepath.Dir(configPath), "seed.yaml")
	if err := os.WriteFile(seedPath, []byte(testSeed), 0o644); err != nil {
		t.Fatal(err)
	}
	if out, err := runCmd(t, "seed", "-c", configPath, "-f", seedPath); err != nil {
		t.Fatalf("seed: %v\n%s", err, out)
	}
	return configPath, api
}

func TestDBInit(t *testing.T) {
	configPath := writeTestConfig(t, "http://127.0.0.1:1")
	out, err := runCmd(t, "db", "init", "-c", configPath)
	if err != nil {
		t.Fatalf("db init: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Connected to sqlite database") || !strings.Contains(out, "Migrated 5 tables") {
		t.Errorf("output = %q", out)
	}
}

func TestDBInit_MissingConfig(t *testing.T) {
	_, err := runCmd(t, "db", "init", "-c", filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Errorf("err = %v, want load config error", err)
	}
}

func TestSeed_PrintsCounts(t *testing.T) {
	configPath := writeTestConfig(t, "http://127.0.0.1:1")
	runCmd(t, "db", "init", "-c", configPath)
	seedPath := filepath.Join(t.TempDir(), "seed.yaml")
	os.WriteFile(seedPath, []byte(testSeed), 0o644)

	out, err := runCmd(t, "seed", "-c", configPath, "-f", seedPath)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	for _, want := range []string{"Actors: 1", "Staff: 2", "Assignments: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestSeed_RequiresFile(t *testing.T) {
	if _, err := runCmd(t, "seed", "-c", "marquee.yaml"); err == nil {
		t.Error("expected error without --file")
	}
}

func TestInquirySend(t *testing.T) {
	configPath, api := setupCLI(t)

	out, err := runCmd(t, "inquiry", "send", "-c", configPath,
		"--actor", "a1", "--actor-name", "Jane", "--from", "Alice", "--org", "Studio", "-m", "Casting call")
	if err != nil {
		t.Fatalf("inquiry send: %v\n%s", err, out)
	}
	for _, want := range []string{"Stored inquiry", "Kim (sales): sent", "Lee (advertising): skipped-no-endpoint"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.paths) != 1 || api.paths[0] != "/bot123:abc/sendMessage" {
		t.Errorf("paths = %v", api.paths)
	}
	if !strings.Contains(api.msgs[0].Text, "Alice / Studio") {
		t.Errorf("text = %q", api.msgs[0].Text)
	}
}

func TestInquirySend_ValidationError(t *testing.T) {
	configPath, api := setupCLI(t)
	_, err := runCmd(t, "inquiry", "send", "-c", configPath, "--actor", "a1", "--from", " ", "-m", "hi")
	if err == nil || !strings.Contains(err.Error(), "sender_name") {
		t.Errorf("err = %v, want sender_name validation error", err)
	}
	if len(api.paths) != 0 {
		t.Errorf("sent %d messages, want 0", len(api.paths))
	}
}

func TestLogsTimelineAndSummary(t *testing.T) {
	configPath, _ := setupCLI(t)

	out, err := runCmd(t, "logs", "timeline", "-c", configPath)
	if err != nil {
		t.Fatalf("logs timeline: %v", err)
	}
	if !strings.Contains(out, "No access logs found.") {
		t.Errorf("empty timeline output = %q", out)
	}

	out, err = runCmd(t, "logs", "summary", "-c", configPath)
	if err != nil {
		t.Fatalf("logs summary: %v", err)
	}
	if !strings.Contains(out, "No access logs found.") {
		t.Errorf("empty summary output = %q", out)
	}
}

func TestDigestSend_SkipsWithoutActivity(t *testing.T) {
	configPath, api := setupCLI(t)

	out, err := runCmd(t, "digest", "send", "-c", configPath)
	if err != nil {
		t.Fatalf("digest send: %v\n%s", err, out)
	}
	if !strings.Contains(out, "digest skipped") {
		t.Errorf("output = %q", out)
	}
	if len(api.paths) != 0 {
		t.Errorf("sent %d messages, want 0", len(api.paths))
	}
}

func TestDigestSend_AfterInquiry(t *testing.T) {
	configPath, api := setupCLI(t)
	if _, err := runCmd(t, "inquiry", "send", "-c", configPath, "--actor", "a1", "--from", "Alice", "-m", "hi"); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, "digest", "send", "-c", configPath)
	if err != nil {
		t.Fatalf("digest send: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Digest sent.") {
		t.Errorf("output = %q", out)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	last := api.msgs[len(api.msgs)-1]
	if api.paths[len(api.paths)-1] != "/bot999:ops/sendMessage" || last.ChatID != "-100" {
		t.Errorf("digest went to %s chat %s", api.paths[len(api.paths)-1], last.ChatID)
	}
	if !strings.Contains(last.Text, "문의 1건") {
		t.Errorf("digest text = %q", last.Text)
	}
}

func TestRunProbe(t *testing.T) {
	var mu sync.Mutex
	var creates, exits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.URL.Query().Get("id") != "" {
			exits++
			w.WriteHeader(http.StatusNoContent)
			return
		}
		creates++
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(accesslog.CreateResponse{ID: "row-1"})
	}))
	defer srv.Close()

	buf := new(bytes.Buffer)
	transport := accesslog.NewHTTPTransport(srv.URL, time.Second)
	if err := runProbe(context.Background(), buf, transport, "a1", 10*time.Millisecond, time.Second); err != nil {
		t.Fatalf("runProbe: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if creates != 1 || exits != 1 {
		t.Errorf("creates = %d, exits = %d, want 1/1", creates, exits)
	}
	if !strings.Contains(buf.String(), "Exit beacon sent") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRenderTable(t *testing.T) {
	got := renderTable([]string{"ACTOR", "VIEWS"}, [][]string{{"제인", "3"}, {"short"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"ACTOR", "VIEWS", "제인", "short"} {
		if !strings.Contains(got, want) {
			t.Errorf("table missing %q:\n%s", want, got)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("renderTable with no headers should be empty")
	}
}
