// Package e2e runs the launcherd binary as a subprocess against a local
// content server and drives it over its HTTP API.
package e2e

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

const (
	startupTimeout = 10 * time.Second
	pollInterval   = 100 * time.Millisecond
)

// lockedBuffer is a thread-safe wrapper around bytes.Buffer.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (lb *lockedBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buf.Write(p)
}

func (lb *lockedBuffer) String() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buf.String()
}

var (
	builtBinary string
	buildOnce   sync.Once
	buildErr    error
)

func getBinary(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "launcherd-e2e-*")
		if err != nil {
			buildErr = err
			return
		}
		binary := filepath.Join(dir, "launcherd")
		cmd := exec.Command("go", "build", "-o", binary, "./cmd/launcherd")
		cmd.Dir = findRepoRoot(t)
		out, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("go build failed: %w\n%s", err, out)
			return
		}
		builtBinary = binary
	})
	if buildErr != nil {
		t.Fatal(buildErr)
	}
	return builtBinary
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("go.mod not found above working directory")
		}
		dir = parent
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// serverProc holds the running launcherd subprocess and its output.
type serverProc struct {
	cmd    *exec.Cmd
	stdout *lockedBuffer
	url    string
}

// startServer launches the binary against the given work dir and catalog,
// and waits for /healthz to answer.
func startServer(t *testing.T, catalogPath, workDir string) *serverProc {
	t.Helper()
	binary := getBinary(t)
	port := freePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	stdout := &lockedBuffer{}
	cmd := exec.Command(binary)
	cmd.Env = append(os.Environ(),
		"LAUNCHERD_LISTEN_ADDR="+addr,
		"LAUNCHERD_DB_PATH="+filepath.Join(workDir, "launcherd.db"),
		"LAUNCHERD_CATALOG_PATH="+catalogPath,
		"LAUNCHERD_INSTALL_DIR="+filepath.Join(workDir, "games"),
	)
	cmd.Stdout = stdout
	cmd.Stderr = stdout
	if err := cmd.Start(); err != nil {
		t.Fatalf("start launcherd: %v", err)
	}

	proc := &serverProc{cmd: cmd, stdout: stdout, url: "http://" + addr}
	t.Cleanup(func() {
		proc.cmd.Process.Kill()
		proc.cmd.Wait()
	})

	deadline := time.Now().Add(startupTimeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(proc.url + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return proc
			}
		}
		time.Sleep(pollInterval)
	}
	t.Fatalf("launcherd did not become healthy; output:\n%s", stdout.String())
	return nil
}

// writeCatalog writes a one-title catalog pointing at the content server.
func writeCatalog(t *testing.T, cdnURL string) string {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "games.json")
	catalog := fmt.Sprintf(`{"games":[{"id":"demo","name":"Demo","manifest_url":"%s/manifest.json","executable_path":"bin/demo","version":"1.0"}]}`, cdnURL)
	if err := os.WriteFile(catalogPath, []byte(catalog), 0o644); err != nil {
		t.Fatal(err)
	}
	return catalogPath
}

func newContentServer(t *testing.T) *httptest.Server {
	t.Helper()
	content := []byte("demo game binary")
	sum := sha256.Sum256(content)

	mux := http.NewServeMux()
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		manifest := map[string]any{
			"manifestVersion": "1",
			"gameVersion":     "1.0",
			"files": []map[string]any{{
				"path":        "bin/demo",
				"size":        len(content),
				"hash":        hex.EncodeToString(sum[:]),
				"downloadUrl": "http://" + r.Host + "/files/demo",
			}},
		}
		json.NewEncoder(w).Encode(manifest)
	})
	mux.HandleFunc("/files/demo", func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string) map[string]any {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s response: %v", url, err)
	}
	if resp.StatusCode >= 400 {
		t.Fatalf("POST %s returned %d: %v", url, resp.StatusCode, body)
	}
	return body
}

func waitForTitleState(t *testing.T, baseURL, titleID, state string) {
	t.Helper()
	deadline := time.Now().Add(startupTimeout)
	var last string
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/v1/titles/" + titleID)
		if err == nil {
			var body map[string]any
			json.NewDecoder(resp.Body).Decode(&body)
			resp.Body.Close()
			last, _ = body["state"].(string)
			if last == state {
				return
			}
		}
		time.Sleep(pollInterval)
	}
	t.Fatalf("title %s never reached state %q, last was %q", titleID, state, last)
}

func TestInstallVerifyFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	cdn := newContentServer(t)
	catalogPath := writeCatalog(t, cdn.URL)
	proc := startServer(t, catalogPath, t.TempDir())

	// Fresh server: the title is known but not installed.
	waitForTitleState(t, proc.url, "demo", "not_installed")

	postJSON(t, proc.url+"/v1/titles/demo/install")
	waitForTitleState(t, proc.url, "demo", "installed")

	postJSON(t, proc.url+"/v1/titles/demo/verify")
	waitForTitleState(t, proc.url, "demo", "installed")

	// Both operations are on record.
	resp, err := http.Get(proc.url + "/v1/tasks/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var history struct {
		Total int `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatal(err)
	}
	if history.Total != 2 {
		t.Fatalf("history total = %d, want 2", history.Total)
	}
}

func TestInstallSurvivesRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	cdn := newContentServer(t)
	catalogPath := writeCatalog(t, cdn.URL)
	workDir := t.TempDir()

	proc := startServer(t, catalogPath, workDir)
	body := postJSON(t, proc.url+"/v1/titles/demo/install")
	if _, ok := body["task_id"]; !ok {
		t.Fatalf("install response missing task_id: %v", body)
	}
	waitForTitleState(t, proc.url, "demo", "installed")

	proc.cmd.Process.Kill()
	proc.cmd.Wait()

	// The local manifest on disk makes the title installed again at boot.
	proc = startServer(t, catalogPath, workDir)
	waitForTitleState(t, proc.url, "demo", "installed")
}
