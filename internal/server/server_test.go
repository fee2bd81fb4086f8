package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-timeline-chat/internal/analyzer"
	"github.com/penwyp/go-timeline-chat/internal/chat"
	"github.com/penwyp/go-timeline-chat/internal/config"
	"github.com/penwyp/go-timeline-chat/internal/core/model"
	"github.com/penwyp/go-timeline-chat/internal/data/normalizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAsker struct {
	err error
}

func (f *fakeAsker) Ask(_ context.Context, conv, question string) (*chat.Answer, error) {
	if f.err != nil {
		return nil, f.err
	}
	if conv == "" {
		conv = "new-conversation"
	}
	return &chat.Answer{ConversationID: conv, Text: "You asked: " + question, Steps: 1}, nil
}

func testDataset() *analyzer.Dataset {
	start := time.Date(2019, 4, 5, 8, 0, 0, 0, time.UTC)
	d := 1500.0
	return &analyzer.Dataset{
		Files: []string{"2019/2019_APRIL.json", "2020/2020_MAY.json"},
		Visits: model.VisitTable{
			{PlaceID: "p1", Name: "Home", Home: true, Country: "United Kingdom",
				Location: &model.Coordinates{Latitude: 51.36, Longitude: -0.19},
				Timing:   normalizer.NewTiming(start, start.Add(time.Hour))},
			{PlaceID: "p2", Name: "Museu Picasso", Country: "Spain",
				Location: &model.Coordinates{Latitude: 41.38, Longitude: 2.18},
				Timing:   normalizer.NewTiming(start.AddDate(1, 0, 0), start.AddDate(1, 0, 0).Add(time.Hour))},
			{PlaceID: "p3", Name: "Park Güell", Country: "Spain",
				Timing: normalizer.NewTiming(start.AddDate(1, 0, 1), start.AddDate(1, 0, 1).Add(time.Hour))},
		},
		Journeys: model.JourneyTable{
			{Mode: model.KnownMode("walking"), DistanceMeters: &d, Timing: normalizer.NewTiming(start, start.Add(20*time.Minute))},
		},
		Report:      normalizer.Report{Segments: 4},
		Fingerprint: "0123456789abcdef0123456789abcdef",
	}
}

func newTestServer(asker Asker) *httptest.Server {
	s := New(config.ServerConfig{CORSOrigins: []string{"https://maps.example"}}, testDataset(), asker)
	return httptest.NewServer(s.Routes())
}

func get(t *testing.T, url string, header ...string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestHealth(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	resp, body := get(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]any
	require.NoError(t, sonic.Unmarshal(body, &out))
	assert.Equal(t, "ok", out["status"])
	assert.EqualValues(t, 3, out["visits"])
}

func TestVisitsEndpoint(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	resp, body := get(t, ts.URL+"/api/v1/visits?year=2020")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"0123456789abcdef0123456789abcdef"`, resp.Header.Get("ETag"))

	var rows []map[string]any
	require.NoError(t, sonic.Unmarshal(body, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Museu Picasso", rows[0]["location name"])
	assert.Nil(t, rows[1]["location latitude"])
	assert.True(t, strings.Index(string(body), `"activity type"`) < strings.Index(string(body), `"placeId"`))

	_, body = get(t, ts.URL+"/api/v1/visits?year=2019,2020&limit=1")
	require.NoError(t, sonic.Unmarshal(body, &rows))
	assert.Len(t, rows, 1)

	resp, _ = get(t, ts.URL+"/api/v1/visits?year=last")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = get(t, ts.URL+"/api/v1/visits?limit=-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestETagNotModified(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	resp, body := get(t, ts.URL+"/api/v1/journeys", "If-None-Match", `"0123456789abcdef0123456789abcdef"`)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
	assert.Empty(t, body)

	resp, body = get(t, ts.URL+"/api/v1/journeys", "If-None-Match", `"stale"`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"journey transport activity mode type":"walking"`)
}

func TestYearsAndSummary(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	_, body := get(t, ts.URL+"/api/v1/years")
	var years map[string][]int
	require.NoError(t, sonic.Unmarshal(body, &years))
	assert.Equal(t, []int{2019, 2020}, years["years"])
	assert.Equal(t, []int{2019}, years["journey_years"])

	_, body = get(t, ts.URL+"/api/v1/summary")
	var summary map[string]any
	require.NoError(t, sonic.Unmarshal(body, &summary))
	assert.EqualValues(t, 3, summary["visits"])
	assert.EqualValues(t, 1.5, summary["distance_km"])
	assert.EqualValues(t, 2, summary["files"])
}

func TestMapEndpoint(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	resp, body := get(t, ts.URL+"/api/v1/map")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))
	var fc struct {
		Features []any `json:"features"`
	}
	require.NoError(t, sonic.Unmarshal(body, &fc))
	assert.Len(t, fc.Features, 2, "visits without coordinates are not mapped")

	_, body = get(t, ts.URL+"/api/v1/map?year=2019&year=2021")
	require.NoError(t, sonic.Unmarshal(body, &fc))
	assert.Len(t, fc.Features, 1)
}

func TestChatEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		asker  Asker
		body   string
		status int
	}{
		{"answer", &fakeAsker{}, `{"question":"Where was I?"}`, http.StatusOK},
		{"bad json", &fakeAsker{}, `{"question":`, http.StatusBadRequest},
		{"empty question", &fakeAsker{err: chat.ErrEmptyQuestion}, `{}`, http.StatusBadRequest},
		{"unknown conversation", &fakeAsker{err: chat.ErrUnknownConversation}, `{"conversation_id":"x","question":"hi"}`, http.StatusNotFound},
		{"no answer", &fakeAsker{err: chat.ErrNoAnswer}, `{"question":"hi"}`, http.StatusUnprocessableEntity},
		{"upstream failure", &fakeAsker{err: errors.New("rate limited")}, `{"question":"hi"}`, http.StatusBadGateway},
		{"not configured", nil, `{"question":"hi"}`, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(tt.asker)
			defer ts.Close()

			resp, err := http.Post(ts.URL+"/api/v1/chat", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)

			if tt.status == http.StatusOK {
				var ans chat.Answer
				require.NoError(t, sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&ans))
				assert.Equal(t, "new-conversation", ans.ConversationID)
				assert.Equal(t, "You asked: Where was I?", ans.Text)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	resp, _ := get(t, ts.URL+"/health", "Origin", "https://maps.example")
	assert.Equal(t, "https://maps.example", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, _ = get(t, ts.URL+"/health", "Origin", "https://evil.example")
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://maps.example")
	preflight, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	preflight.Body.Close()
	assert.Equal(t, http.StatusNoContent, preflight.StatusCode)
}

func TestNoDataset(t *testing.T) {
	s := New(config.ServerConfig{}, nil, nil)
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	resp, _ := get(t, ts.URL+"/api/v1/visits")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	s.SetDataset(testDataset())
	resp, _ = get(t, ts.URL+"/api/v1/visits")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListenAndServeShutsDown(t *testing.T) {
	s := New(config.ServerConfig{Addr: "127.0.0.1:0"}, testDataset(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
