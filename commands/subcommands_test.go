package commands

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/penwyp/go-timeline-chat/internal/chat"
	"github.com/penwyp/go-timeline-chat/internal/config"
	"github.com/penwyp/go-timeline-chat/internal/store"
	"github.com/penwyp/go-timeline-chat/internal/testing/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedCompleter struct {
	mu      sync.Mutex
	replies []string
}

func (s *scriptedCompleter) Complete(_ context.Context, _ []chat.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return "", errors.New("script exhausted")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func useCompleter(t *testing.T, c chat.Completer) {
	t.Helper()
	orig := newCompleter
	newCompleter = func(config.ChatConfig) (chat.Completer, error) { return c, nil }
	t.Cleanup(func() { newCompleter = orig })
}

func TestMapCommand(t *testing.T) {
	isolate(t)
	dir := generatedDir(t)

	out, err := executeCommand(t, "map", "--dir", dir)
	require.NoError(t, err)
	records := readCSV(t, out)
	assert.Equal(t, []string{"LAT", "LON"}, records[0])
	assert.Len(t, records, 6)

	out, err = executeCommand(t, "map", "--dir", dir, "--year", "2020")
	require.NoError(t, err)
	assert.Len(t, readCSV(t, out), 3)

	out, err = executeCommand(t, "map", "--dir", dir, "--year", "2018")
	require.NoError(t, err)
	assert.Len(t, readCSV(t, out), 1, "a year without visits gives only the header")

	out, err = executeCommand(t, "map", "--dir", dir, "--format", "geojson")
	require.NoError(t, err)
	assert.Contains(t, out, `"FeatureCollection"`)
}

func TestMapCommandPNG(t *testing.T) {
	isolate(t)
	dir := generatedDir(t)

	_, err := executeCommand(t, "map", "--dir", dir, "--format", "png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--out")

	path := filepath.Join(t.TempDir(), "maps", "visits.png")
	out, err := executeCommand(t, "map", "--dir", dir, "--format", "png", "--out", path, "--width", "320", "--height", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 5 points")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")))

	_, err = executeCommand(t, "map", "--dir", dir, "--format", "svg")
	assert.Error(t, err)
}

func TestQueryCommand(t *testing.T) {
	isolate(t)
	dir := generatedDir(t)

	out, err := executeCommand(t, "query", "--dir", dir, "--output", "csv",
		"SELECT visit_start_year AS year, COUNT(*) AS n FROM visits GROUP BY visit_start_year ORDER BY year")
	require.NoError(t, err)
	assert.Equal(t, "year,n\n2019,3\n2020,2\n", out)

	out, err = executeCommand(t, "query", "--dir", dir, "--output", "csv", "--max-rows", "1",
		"SELECT * FROM journeys;")
	require.NoError(t, err)
	assert.Contains(t, out, "Only the first 1 rows are shown")

	_, err = executeCommand(t, "query", "--dir", dir, "DELETE FROM visits")
	assert.ErrorIs(t, err, store.ErrNotReadOnly)

	_, err = executeCommand(t, "query", "--dir", dir, "--output", "summary", "SELECT 1")
	assert.Error(t, err)

	_, err = executeCommand(t, "query", "--dir", dir)
	assert.Error(t, err, "a query is required")
}

func TestAskCommandOneShot(t *testing.T) {
	isolate(t)
	dir := generatedDir(t)
	useCompleter(t, &scriptedCompleter{replies: []string{
		"```sql\nSELECT COUNT(*) AS n FROM visits\n```",
		"ANSWER: You made 5 visits.",
	}})

	out, err := executeCommand(t, "ask", "--dir", dir, "--show-queries", "How", "many", "visits?")
	require.NoError(t, err)
	assert.Contains(t, out, "-- SELECT COUNT(*) AS n FROM visits")
	assert.Contains(t, out, "You made 5 visits.\n")
}

func TestAskCommandStepLimit(t *testing.T) {
	isolate(t)
	dir := generatedDir(t)
	query := "```sql\nSELECT 1\n```"
	useCompleter(t, &scriptedCompleter{replies: []string{query, query, query, query}})

	_, err := executeCommand(t, "ask", "--dir", dir, "Where?")
	assert.ErrorIs(t, err, chat.ErrNoAnswer)
}

func TestAskCommandLoop(t *testing.T) {
	isolate(t)
	dir := generatedDir(t)
	useCompleter(t, &scriptedCompleter{replies: []string{
		"ANSWER: Two years.",
		"ANSWER: Three visits.",
	}})

	resetFlags(rootCmd)
	var out syncBuffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader("Which years?\n\n/new\nAnd in 2019?\n/exit\nignored\n"))
	rootCmd.SetArgs([]string{"ask", "--dir", dir})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Ask about your location history.")
	assert.Contains(t, text, "Two years.\n")
	assert.Contains(t, text, "Started a new conversation.\n")
	assert.Contains(t, text, "Three visits.\n")
	assert.NotContains(t, text, "Error:")
}

func TestAskCommandWithoutKey(t *testing.T) {
	isolate(t)
	dir := generatedDir(t)

	_, err := executeCommand(t, "ask", "--dir", dir, "Where?")
	assert.ErrorIs(t, err, chat.ErrNoAPIKey)
}

func TestWatchCommandReloads(t *testing.T) {
	isolate(t)
	dir := generatedDir(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- executeCommandContext(ctx, &out, "watch", "--dir", dir, "--debounce", "100ms")
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Files: 2")
	}, 10*time.Second, 50*time.Millisecond)
	// Let the watcher register before the tree changes
	time.Sleep(200 * time.Millisecond)

	_, err := fixtures.NewExportGenerator(dir, 7).GenerateMonth(2019, time.June, 2, 1)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Files: 3")
	}, 10*time.Second, 50*time.Millisecond)
	assert.Contains(t, out.String(), "--- reloaded at")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestServeCommand(t *testing.T) {
	isolate(t)
	dir := generatedDir(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- executeCommandContext(ctx, &out, "serve", "--dir", dir, "--addr", addr)
	}()

	var status int
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/api/v1/visits?year=2020")
		if err != nil {
			return false
		}
		resp.Body.Close()
		status = resp.StatusCode
		return true
	}, 10*time.Second, 50*time.Millisecond)
	assert.Equal(t, http.StatusOK, status)

	resp, err := http.Post("http://"+addr+"/api/v1/chat", "application/json", strings.NewReader(`{"question":"hi"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, "chat is disabled without an API key")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
	assert.Contains(t, out.String(), "Serving 5 visits and 4 journeys")
}
