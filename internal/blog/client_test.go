package blog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/donia1222/remix-crypto-sub000/internal/model"
	"github.com/donia1222/remix-crypto-sub000/internal/poller"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchPosts(t *testing.T) {
	body := `{"success":true,"data":[
		{"id":12,"title":"Bitcoin halving explained","excerpt":"What changes","post_date":"2024-04-20","image_url":"https://img/1.png","category":"Education","content":"<p>...</p>"},
		{"id":"13","title":"Weekly outlook","post_date":"2024-04-22","category":"Markets"},
		{"id":14,"title":"   "},
		{"title":"no id"}
	]}`
	server := serve(t, http.StatusOK, body)

	posts, err := NewClient(server.URL).FetchPosts(context.Background())
	if err != nil {
		t.Fatalf("FetchPosts failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("len(posts) = %d, want 2", len(posts))
	}
	if posts[0].ID != "12" || posts[0].Category != "Education" {
		t.Errorf("posts[0] = %+v", posts[0])
	}
	if posts[1].ID != "13" || posts[1].Title != "Weekly outlook" {
		t.Errorf("posts[1] = %+v", posts[1])
	}
}

func TestFetchPosts_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{"success false", http.StatusOK, `{"success":false,"message":"db offline"}`, ErrFeedFailed, "db offline"},
		{"success missing", http.StatusOK, `{"data":[]}`, ErrFeedFailed, ""},
		{"http error", http.StatusBadGateway, `bad gateway`, nil, "status 502"},
		{"invalid json", http.StatusOK, `not json`, nil, "unmarshal posts"},
		{"invalid id", http.StatusOK, `{"success":true,"data":[{"id":true,"title":"x"}]}`, nil, "unmarshal posts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := serve(t, tt.status, tt.body)

			_, err := NewClient(server.URL).FetchPosts(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestCache(t *testing.T) {
	c := NewCache()

	posts, at := c.Posts()
	if len(posts) != 0 || !at.IsZero() {
		t.Fatalf("empty cache = %v, %v", posts, at)
	}

	in := []model.BlogPost{{ID: "1", Title: "a"}}
	if err := c.Handle(in); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	in[0].Title = "mutated"

	posts, at = c.Posts()
	if len(posts) != 1 || posts[0].Title != "a" {
		t.Errorf("posts = %+v, want copy of original", posts)
	}
	if at.IsZero() {
		t.Error("updatedAt should be set")
	}
}

func TestPolledCacheKeepsLastGoodList(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.Write([]byte(`{"success":false,"message":"maintenance"}`))
			return
		}
		w.Write([]byte(`{"success":true,"data":[{"id":1,"title":"first"}]}`))
	}))
	defer server.Close()

	cache := NewCache()
	client := NewClient(server.URL)
	p := poller.New[[]model.BlogPost]("blog",
		poller.Config{Interval: time.Hour, Timeout: time.Second},
		poller.FetcherFunc[[]model.BlogPost](client.FetchPosts),
		cache, nil)

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Immediate poll on start.
	time.Sleep(100 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	posts, _ := cache.Posts()
	if len(posts) != 1 || posts[0].Title != "first" {
		t.Fatalf("posts = %+v, want first", posts)
	}

	// A failed fetch leaves the cache alone.
	fail.Store(true)
	if _, err := client.FetchPosts(ctx); !errors.Is(err, ErrFeedFailed) {
		t.Fatalf("expected ErrFeedFailed, got %v", err)
	}
	posts, _ = cache.Posts()
	if len(posts) != 1 {
		t.Errorf("posts = %+v after failure, want previous list", posts)
	}
}
