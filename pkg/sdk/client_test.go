package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// recorded is what the fake server saw of the last request.
type recorded struct {
	method string
	path   string
	header http.Header
	body   map[string]any
}

func newServer(t *testing.T, h func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method, rec.path, rec.header = r.Method, r.URL.RequestURI(), r.Header.Clone()
		rec.body = nil
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func jsonReply(status int, body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	if _, err := New("localhost:8080"); err == nil {
		t.Fatal("expected error for a base url without scheme")
	}
}

func TestAsk(t *testing.T) {
	srv, rec := newServer(t, jsonReply(http.StatusOK,
		`{"success":true,"response":"La norme NF S 61-937.","mode":"responses","model":"gpt-4.1-mini","webSearch":true,"ragUsed":false}`))

	c, err := New(srv.URL+"/", WithAPIKey("k1"), WithUser("u-1", RolePremium))
	if err != nil {
		t.Fatal(err)
	}
	off := false
	ans, err := c.Ask(context.Background(), AskRequest{
		Message:      "Quelle norme ?",
		UseWebSearch: &off,
		History:      []Turn{{Role: "user", Content: "Bonjour"}},
	})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !ans.Success || ans.Response != "La norme NF S 61-937." || ans.Mode != "responses" || !ans.WebSearch {
		t.Errorf("answer = %+v", ans)
	}

	if rec.method != http.MethodPost || rec.path != "/api/ai" {
		t.Errorf("request = %s %s", rec.method, rec.path)
	}
	if got := rec.header.Get("Authorization"); got != "Bearer k1" {
		t.Errorf("Authorization = %q", got)
	}
	if rec.header.Get(headerUserID) != "u-1" || rec.header.Get(headerUserRole) != "premium" {
		t.Errorf("identity headers = %v", rec.header)
	}
	if rec.body["message"] != "Quelle norme ?" || rec.body["useWebSearch"] != false {
		t.Errorf("body = %v", rec.body)
	}
	if turns, _ := rec.body["history"].([]any); len(turns) != 1 {
		t.Errorf("history = %v", rec.body["history"])
	}
}

func TestAsk_AnonymousSendsNoIdentity(t *testing.T) {
	srv, rec := newServer(t, jsonReply(http.StatusOK, `{"response":"ok"}`))
	c, _ := New(srv.URL)

	if _, err := c.Ask(context.Background(), AskRequest{Message: "q"}); err != nil {
		t.Fatal(err)
	}
	if rec.header.Get(headerUserID) != "" || rec.header.Get("Authorization") != "" {
		t.Errorf("unexpected headers: %v", rec.header)
	}
	if _, ok := rec.body["useWebSearch"]; ok {
		t.Error("useWebSearch must be omitted so the server default applies")
	}
}

func TestAPIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"validation", 400, `{"error":"Message requis"}`, ErrBadRequest},
		{"unauthorized", 401, `{"error":"Clé API invalide"}`, ErrUnauthorized},
		{"quota", 429, `{"error":"Limite atteinte","quota":{"currentUsage":20,"limit":20,"remaining":0,"kind":"messages"}}`, ErrQuotaExceeded},
		{"provider rate limit", 429, `{"error":"Trop de requêtes"}`, ErrRateLimited},
		{"quota store down", 503, `{"error":"Service indisponible"}`, ErrUnavailable},
		{"tool failure", 500, `{"error":"Erreur outil","details":"web_search failed"}`, ErrServer},
		{"plain text body", 502, "bad gateway", ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, jsonReply(tt.status, tt.body))
			c, _ := New(srv.URL)

			_, err := c.Ask(context.Background(), AskRequest{Message: "q"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != tt.status || apiErr.Message == "" {
				t.Errorf("api error = %+v", apiErr)
			}
		})
	}
}

func TestIsQuotaExceeded(t *testing.T) {
	srv, _ := newServer(t, jsonReply(429,
		`{"error":"Limite atteinte","quota":{"currentUsage":1000,"limit":1000,"remaining":0,"kind":"tokens"}}`))
	c, _ := New(srv.URL)

	_, err := c.Ask(context.Background(), AskRequest{Message: "q"})
	q, ok := IsQuotaExceeded(err)
	if !ok || q.Kind != "tokens" || q.Limit != 1000 {
		t.Fatalf("quota = %+v, ok = %v", q, ok)
	}
	if _, ok := IsQuotaExceeded(errors.New("other")); ok {
		t.Error("plain error must not be a quota rejection")
	}
}

func sseReply(frames ...string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range frames {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", f)
		}
	}
}

func TestStream(t *testing.T) {
	srv, rec := newServer(t, sseReply(
		`{"type":"start","model":"gpt-4.1-mini"}`,
		`{"type":"delta","text":"Voir "}`,
		`{"type":"delta","text":"fin."}`,
		`{"type":"done","text":"Voir fin."}`,
	))
	c, _ := New(srv.URL)

	var got []Event
	err := c.Stream(context.Background(), AskRequest{Message: "q"}, func(ev Event) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if rec.path != "/api/ai/stream" || rec.header.Get("Accept") != "text/event-stream" {
		t.Errorf("request = %s, accept %q", rec.path, rec.header.Get("Accept"))
	}
	if len(got) != 4 || got[0].Type != EventStart || got[0].Model != "gpt-4.1-mini" || got[3].Text != "Voir fin." {
		t.Errorf("events = %+v", got)
	}
}

func TestStream_ErrorEvent(t *testing.T) {
	srv, _ := newServer(t, sseReply(
		`{"type":"start","model":"m"}`,
		`{"type":"error","error":"Le service est saturé"}`,
	))
	c, _ := New(srv.URL)

	var last Event
	err := c.Stream(context.Background(), AskRequest{Message: "q"}, func(ev Event) error {
		last = ev
		return nil
	})
	var se *StreamError
	if !errors.As(err, &se) || se.Message != "Le service est saturé" {
		t.Fatalf("expected StreamError, got %v", err)
	}
	if last.Type != EventError {
		t.Errorf("terminal event not delivered: %+v", last)
	}
}

func TestStream_ErrorBeforeStart(t *testing.T) {
	srv, _ := newServer(t, jsonReply(429, `{"error":"Limite","quota":{"kind":"messages","limit":20,"currentUsage":20}}`))
	c, _ := New(srv.URL)

	called := false
	err := c.Stream(context.Background(), AskRequest{Message: "q"}, func(Event) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrQuotaExceeded) || called {
		t.Fatalf("err = %v, callback called = %v", err, called)
	}
}

func TestStream_Truncated(t *testing.T) {
	srv, _ := newServer(t, sseReply(`{"type":"start"}`, `{"type":"delta","text":"a"}`))
	c, _ := New(srv.URL)

	err := c.Stream(context.Background(), AskRequest{Message: "q"}, func(Event) error { return nil })
	if !errors.Is(err, ErrStreamTruncated) {
		t.Fatalf("expected ErrStreamTruncated, got %v", err)
	}
}

func TestStream_CallbackStops(t *testing.T) {
	srv, _ := newServer(t, sseReply(`{"type":"start"}`, `{"type":"delta","text":"a"}`, `{"type":"done","text":"a"}`))
	c, _ := New(srv.URL)
	stop := errors.New("stop")

	n := 0
	err := c.Stream(context.Background(), AskRequest{Message: "q"}, func(Event) error {
		n++
		return stop
	})
	if !errors.Is(err, stop) || n != 1 {
		t.Fatalf("err = %v after %d events", err, n)
	}
}

func TestUsage(t *testing.T) {
	srv, rec := newServer(t, jsonReply(http.StatusOK, `{"role":"free",
		"messages":{"used":3,"limit":20,"remaining":17,"resetsAt":"2026-10-16T00:00:00Z"},
		"tokens":{"used":0,"limit":-1,"remaining":-1,"resetsAt":"2026-11-01T00:00:00Z"}}`))
	c, _ := New(srv.URL, WithUser("u-1", RoleFree))

	rep, err := c.Usage(context.Background())
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if rec.path != "/api/usage" || rep.Role != RoleFree || rep.Messages.Remaining != 17 {
		t.Errorf("report = %+v", rep)
	}
	if rep.Messages.Unlimited() || !rep.Tokens.Unlimited() {
		t.Error("unlimited flags wrong")
	}
	if rep.Messages.ResetsAt.Day() != 16 {
		t.Errorf("resetsAt = %v", rep.Messages.ResetsAt)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		healthy bool
		wantErr bool
	}{
		{"ok", 200, `{"status":"ok","checks":{"database":"ok"}}`, true, false},
		{"degraded", 503, `{"status":"degraded","checks":{"database":"error","llm":"missing_credential"}}`, false, false},
		{"unexpected", 401, `{"error":"Clé API invalide"}`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, jsonReply(tt.status, tt.body))
			c, _ := New(srv.URL)

			hs, err := c.Health(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if hs.Healthy() != tt.healthy {
				t.Errorf("status = %+v", hs)
			}
		})
	}
}

func TestSources(t *testing.T) {
	srv, rec := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			jsonReply(200, `{"sources":[{"id":"src_1","url":"https://blog.example.com","status":"pending"}],"total":1}`)(w, r)
		case strings.HasSuffix(r.URL.Path, "/approve"):
			jsonReply(200, `{"id":"src_1","status":"approved"}`)(w, r)
		case strings.HasSuffix(r.URL.Path, "/reject"):
			jsonReply(404, `{"error":"Source introuvable"}`)(w, r)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	c, _ := New(srv.URL, WithUser("admin-1", RoleAdmin))
	ctx := context.Background()

	list, err := c.Sources(ctx, "pending")
	if err != nil || len(list) != 1 || list[0].ID != "src_1" {
		t.Fatalf("Sources = %+v, %v", list, err)
	}
	if rec.path != "/api/admin/sources?status=pending" {
		t.Errorf("path = %s", rec.path)
	}

	src, err := c.ApproveSource(ctx, "src_1")
	if err != nil || src.Status != "approved" || rec.path != "/api/admin/sources/src_1/approve" {
		t.Errorf("approve = %+v, %v (%s)", src, err, rec.path)
	}

	if _, err := c.RejectSource(ctx, "absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("reject: expected ErrNotFound, got %v", err)
	}

	if err := c.DeleteSource(ctx, "src_1"); err != nil || rec.method != http.MethodDelete {
		t.Errorf("delete: %v (%s)", err, rec.method)
	}
	if err := c.ClearSources(ctx); err != nil || rec.path != "/api/admin/sources/clear" {
		t.Errorf("clear: %v (%s)", err, rec.path)
	}
}

func TestObserver_RecordsMetrics(t *testing.T) {
	srv, _ := newServer(t, jsonReply(http.StatusOK, `{"response":"ok"}`))
	reg := prometheus.NewRegistry()
	c, err := New(srv.URL, WithPrometheus(reg))
	if err != nil {
		t.Fatal(err)
	}

	_, _ = c.Ask(context.Background(), AskRequest{Message: "q"})
	_, _ = c.Ask(context.Background(), AskRequest{Message: "q"})

	if got := testutil.ToFloat64(c.obs.metrics.calls.WithLabelValues("ask", "ok")); got != 2 {
		t.Errorf("ask ok = %v, want 2", got)
	}

	// A second client on the same registry reuses the collectors.
	c2, err := New(srv.URL, WithPrometheus(reg))
	if err != nil {
		t.Fatalf("second client: %v", err)
	}
	if c2.obs.metrics.calls != c.obs.metrics.calls {
		t.Error("collectors not reused")
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&APIError{StatusCode: http.StatusTooManyRequests, Quota: &QuotaInfo{Kind: "messages"}}, "quota_exceeded"},
		{&APIError{StatusCode: http.StatusTooManyRequests}, "rate_limited"},
		{&APIError{StatusCode: http.StatusBadGateway}, "server_error"},
		{&APIError{StatusCode: http.StatusNotFound}, "client_error"},
		{&StreamError{Message: "boom"}, "stream_error"},
		{ErrStreamTruncated, "truncated"},
		{context.Canceled, "canceled"},
		{errors.New("connection reset"), "transport"},
	}
	for _, tt := range tests {
		if got := outcome(tt.err); got != tt.want {
			t.Errorf("outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
