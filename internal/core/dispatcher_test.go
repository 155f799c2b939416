package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"movienight/internal/chat"
	"movienight/pkg/movielink"
)

type fakeFrontend struct {
	sent       []string
	reactions  []chat.Reaction
	history    []chat.Message
	historyErr error
}

func (f *fakeFrontend) Start(context.Context) error { return nil }

func (f *fakeFrontend) Listen(ctx context.Context, _ func(*chat.Message)) error {
	<-ctx.Done()
	return nil
}

func (f *fakeFrontend) SendText(_ context.Context, _, _, text string) (string, error) {
	f.sent = append(f.sent, text)
	return "sent-1", nil
}

func (f *fakeFrontend) React(_ context.Context, _, _ string, r chat.Reaction) error {
	f.reactions = append(f.reactions, r)
	return nil
}

func (f *fakeFrontend) History(_ context.Context, _ string, _ int) ([]chat.Message, error) {
	return f.history, f.historyErr
}

type fakeResolver struct {
	movies map[string]*Movie // keyed by IMDb ID
	calls  int
}

func (f *fakeResolver) Resolve(_ context.Context, link movielink.Link) (*Movie, bool) {
	f.calls++
	if link.Source == movielink.SourceNetflix {
		return nil, false
	}
	movie, ok := f.movies[link.IMDbID]
	if !ok {
		return nil, false
	}
	clone := *movie
	return &clone, true
}

type fakeStore struct {
	movies map[int64]Movie
	addErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{movies: make(map[int64]Movie)}
}

func (f *fakeStore) Add(_ context.Context, movie *Movie) error {
	if f.addErr != nil {
		return f.addErr
	}
	movie.ID = int64(len(f.movies) + 1)
	f.movies[movie.TMDBID] = *movie
	return nil
}

func (f *fakeStore) Exists(_ context.Context, tmdbID int64) (bool, error) {
	_, ok := f.movies[tmdbID]
	return ok, nil
}

func (f *fakeStore) GetByTMDBID(_ context.Context, tmdbID int64) (*Movie, error) {
	movie, ok := f.movies[tmdbID]
	if !ok {
		return nil, errors.New("not found")
	}
	return &movie, nil
}

func (f *fakeStore) All(context.Context) ([]Movie, error) {
	var out []Movie
	for _, m := range f.movies {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeStore) Recent(_ context.Context, limit int) ([]Movie, error) {
	all, _ := f.All(context.Background())
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeStore) Count(context.Context) (int, error) { return len(f.movies), nil }

func (f *fakeStore) Genres(context.Context) ([]string, error) { return nil, nil }

func (f *fakeStore) Search(context.Context, string) ([]Movie, error) { return nil, nil }

func (f *fakeStore) Delete(context.Context, int64) error { return nil }

func (f *fakeStore) ToggleSeen(context.Context, int64) (*Movie, error) { return nil, nil }

func (f *fakeStore) SetSeen(context.Context, int64, bool) (*Movie, error) { return nil, nil }

func (f *fakeStore) AllTMDBIDs(context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(f.movies))
	for id := range f.movies {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeDedup struct {
	ids map[int64]struct{}
}

func newFakeDedup() *fakeDedup { return &fakeDedup{ids: make(map[int64]struct{})} }

func (f *fakeDedup) Has(id int64) bool { _, ok := f.ids[id]; return ok }
func (f *fakeDedup) Add(id int64)      { f.ids[id] = struct{}{} }
func (f *fakeDedup) Remove(id int64)   { delete(f.ids, id) }
func (f *fakeDedup) Load(ids []int64) {
	f.ids = make(map[int64]struct{})
	for _, id := range ids {
		f.ids[id] = struct{}{}
	}
}
func (f *fakeDedup) Size() int { return len(f.ids) }

type testHarness struct {
	dispatcher *Dispatcher
	frontend   *fakeFrontend
	resolver   *fakeResolver
	store      *fakeStore
	dedup      *fakeDedup
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	frontend := &fakeFrontend{}
	resolver := &fakeResolver{movies: map[string]*Movie{
		"tt0133093": {TMDBID: 603, Title: "The Matrix", Year: 1999},
		"tt1375666": {TMDBID: 27205, Title: "Inception", Year: 2010},
	}}
	store := newFakeStore()
	dedup := newFakeDedup()

	dispatcher := NewDispatcher(
		DefaultConfig(),
		frontend,
		resolver,
		store,
		dedup,
		nil,
		zap.NewNop(),
	)

	return &testHarness{
		dispatcher: dispatcher,
		frontend:   frontend,
		resolver:   resolver,
		store:      store,
		dedup:      dedup,
	}
}

func linkMessage(text string) *chat.Message {
	return &chat.Message{
		ID:     "msg-1",
		ChatID: "chat-1",
		Sender: "@alice",
		Text:   text,
	}
}

func TestProcessLinksAddsMovie(t *testing.T) {
	h := newTestHarness(t)
	msg := linkMessage("check this out https://www.imdb.com/title/tt0133093/")

	added, skipped, failed := h.dispatcher.processLinks(context.Background(), msg, false)

	if added != 1 || skipped != 0 || failed != 0 {
		t.Fatalf("got added=%d skipped=%d failed=%d, want 1/0/0", added, skipped, failed)
	}

	saved, ok := h.store.movies[603]
	if !ok {
		t.Fatal("movie was not saved to the store")
	}
	if saved.AddedBy != "@alice" {
		t.Errorf("AddedBy = %q, want @alice", saved.AddedBy)
	}
	if saved.SourceURL != "https://www.imdb.com/title/tt0133093" {
		t.Errorf("SourceURL = %q", saved.SourceURL)
	}
	if !h.dedup.Has(603) {
		t.Error("dedup cache was not updated")
	}
	if len(h.frontend.reactions) != 1 || h.frontend.reactions[0] != chat.ReactionEyes {
		t.Errorf("reactions = %v, want [%s]", h.frontend.reactions, chat.ReactionEyes)
	}
}

func TestProcessLinksDuplicate(t *testing.T) {
	h := newTestHarness(t)
	h.dedup.Add(603)
	msg := linkMessage("https://www.imdb.com/title/tt0133093/")

	added, skipped, failed := h.dispatcher.processLinks(context.Background(), msg, false)

	if added != 0 || skipped != 1 || failed != 0 {
		t.Fatalf("got added=%d skipped=%d failed=%d, want 0/1/0", added, skipped, failed)
	}
	if _, ok := h.store.movies[603]; ok {
		t.Error("duplicate must not be stored again")
	}
	if len(h.frontend.reactions) != 1 || h.frontend.reactions[0] != chat.ReactionCheckmark {
		t.Errorf("reactions = %v, want [%s]", h.frontend.reactions, chat.ReactionCheckmark)
	}
}

func TestProcessLinksStoreDuplicate(t *testing.T) {
	// Movie exists in the store but not in the cache (e.g. after restart
	// before preload).
	h := newTestHarness(t)
	h.store.movies[603] = Movie{TMDBID: 603, Title: "The Matrix"}
	msg := linkMessage("https://www.imdb.com/title/tt0133093/")

	_, skipped, _ := h.dispatcher.processLinks(context.Background(), msg, false)

	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
}

func TestProcessLinksNotFound(t *testing.T) {
	h := newTestHarness(t)
	msg := linkMessage("https://www.imdb.com/title/tt9999999/")

	added, skipped, failed := h.dispatcher.processLinks(context.Background(), msg, false)

	if added != 0 || skipped != 0 || failed != 1 {
		t.Fatalf("got added=%d skipped=%d failed=%d, want 0/0/1", added, skipped, failed)
	}
	if len(h.frontend.sent) != 1 {
		t.Fatalf("sent = %v, want one not-found reply", h.frontend.sent)
	}
	if !strings.Contains(h.frontend.sent[0], "https://www.imdb.com/title/tt9999999") {
		t.Errorf("not-found reply %q must quote the failing URL", h.frontend.sent[0])
	}
}

func TestProcessLinksNetflixSkippedSilently(t *testing.T) {
	h := newTestHarness(t)
	msg := linkMessage("https://www.netflix.com/title/80057281")

	added, skipped, failed := h.dispatcher.processLinks(context.Background(), msg, false)

	if added != 0 || skipped != 0 || failed != 0 {
		t.Fatalf("got added=%d skipped=%d failed=%d, want all zero", added, skipped, failed)
	}
	if h.resolver.calls != 0 {
		t.Error("Netflix links must not reach the resolver")
	}
	if len(h.frontend.sent) != 0 {
		t.Errorf("no reply expected for Netflix links, got %v", h.frontend.sent)
	}
}

func TestProcessLinksContinuesAfterFailure(t *testing.T) {
	h := newTestHarness(t)
	msg := linkMessage(
		"https://www.imdb.com/title/tt9999999/ and https://www.imdb.com/title/tt1375666/")

	added, _, failed := h.dispatcher.processLinks(context.Background(), msg, false)

	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1; a failing link must not abort siblings", added)
	}
	if _, ok := h.store.movies[27205]; !ok {
		t.Error("second movie should have been stored despite first failing")
	}
}

func TestHandleStats(t *testing.T) {
	h := newTestHarness(t)
	h.store.movies[603] = Movie{TMDBID: 603}
	h.store.movies[604] = Movie{TMDBID: 604}

	h.dispatcher.handleStats(context.Background(), linkMessage("/stats"))

	if len(h.frontend.sent) != 1 {
		t.Fatalf("sent = %v, want one reply", h.frontend.sent)
	}
	if !strings.Contains(h.frontend.sent[0], "2") {
		t.Errorf("stats reply %q should contain the collection size", h.frontend.sent[0])
	}
}

func TestHandleRecentEmpty(t *testing.T) {
	h := newTestHarness(t)

	h.dispatcher.handleRecent(context.Background(), linkMessage("/recent"))

	if len(h.frontend.sent) != 1 {
		t.Fatalf("sent = %v, want one reply", h.frontend.sent)
	}
	if !strings.Contains(h.frontend.sent[0], "No movies") {
		t.Errorf("empty reply = %q", h.frontend.sent[0])
	}
}

func TestHandleRecent(t *testing.T) {
	h := newTestHarness(t)
	h.store.movies[603] = Movie{TMDBID: 603, Title: "The Matrix", Year: 1999, AddedBy: "@alice"}

	h.dispatcher.handleRecent(context.Background(), linkMessage("/recent"))

	if len(h.frontend.sent) != 1 {
		t.Fatalf("sent = %v, want one reply", h.frontend.sent)
	}
	reply := h.frontend.sent[0]
	if !strings.Contains(reply, "The Matrix") || !strings.Contains(reply, "1999") {
		t.Errorf("recent reply = %q", reply)
	}
}

func TestHandleScanUnsupported(t *testing.T) {
	h := newTestHarness(t)
	h.frontend.historyErr = chat.ErrHistoryUnsupported

	h.dispatcher.handleScan(context.Background(), linkMessage("/scan"))

	// First reply announces the scan, second reports the limitation.
	if len(h.frontend.sent) != 2 {
		t.Fatalf("sent = %v, want two replies", h.frontend.sent)
	}
	if !strings.Contains(h.frontend.sent[1], "can't read old messages") {
		t.Errorf("unsupported reply = %q", h.frontend.sent[1])
	}
}

func TestHandleScanProcessesHistory(t *testing.T) {
	h := newTestHarness(t)
	old := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	h.frontend.history = []chat.Message{
		{ID: "old-1", ChatID: "chat-1", Sender: "@bob",
			Text: "https://www.imdb.com/title/tt0133093/", Timestamp: old},
		{ID: "old-2", ChatID: "chat-1", Sender: "@bob", Text: "no links here"},
	}

	h.dispatcher.handleScan(context.Background(), linkMessage("/scan"))

	saved, ok := h.store.movies[603]
	if !ok {
		t.Fatal("scan should have added the movie from history")
	}
	if !saved.AddedAt.Equal(old) {
		t.Errorf("AddedAt = %v, want backdated to %v", saved.AddedAt, old)
	}

	last := h.frontend.sent[len(h.frontend.sent)-1]
	if !strings.Contains(last, "Added: 1") {
		t.Errorf("scan summary = %q", last)
	}
}

func TestParseLimit(t *testing.T) {
	h := newTestHarness(t)

	tests := []struct {
		name string
		args []string
		def  int
		max  int
		want int
	}{
		{"no args uses default", nil, 5, 10, 5},
		{"explicit value", []string{"7"}, 5, 10, 7},
		{"clamped to max", []string{"500"}, 5, 10, 10},
		{"non-numeric ignored", []string{"abc"}, 5, 10, 5},
		{"zero ignored", []string{"0"}, 5, 10, 5},
		{"negative ignored", []string{"-3"}, 5, 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.dispatcher.parseLimit(tt.args, tt.def, tt.max); got != tt.want {
				t.Errorf("parseLimit(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}
