package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/donia1222/remix-crypto-sub000/internal/account"
	"github.com/donia1222/remix-crypto-sub000/internal/model"
	"github.com/donia1222/remix-crypto-sub000/internal/storage"
)

// fakeFetcher serves fixed account data, optionally failing one endpoint.
type fakeFetcher struct {
	failPositions atomic.Bool
	calls         atomic.Int32
	gate          chan struct{} // If set, GetBalance blocks until closed
	balance       decimal.Decimal
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{balance: decimal.RequireFromString("1000")}
}

func (f *fakeFetcher) GetBalance(ctx context.Context) (model.Balance, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return model.Balance{}, ctx.Err()
		}
	}
	return model.Balance{Asset: "USDT", Balance: f.balance}, nil
}

func (f *fakeFetcher) GetPnL(ctx context.Context) ([]model.IncomeEntry, error) {
	return []model.IncomeEntry{
		{IncomeType: "REALIZED_PNL", Income: decimal.RequireFromString("12.5")},
		{IncomeType: "REALIZED_PNL", Income: decimal.RequireFromString("-2.5")},
	}, nil
}

func (f *fakeFetcher) GetFees(ctx context.Context) ([]model.IncomeEntry, error) {
	return []model.IncomeEntry{{IncomeType: "TRADING_FEE", Income: decimal.RequireFromString("-0.5")}}, nil
}

func (f *fakeFetcher) GetPositions(ctx context.Context) ([]model.Position, error) {
	if f.failPositions.Load() {
		return nil, &account.UpstreamError{Path: "/positions", Code: 100400, Msg: "api key expired"}
	}
	return []model.Position{{Symbol: "BTC-USDT", Side: "LONG"}}, nil
}

var fixedNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, f Fetcher, store storage.Store, retryAfter time.Duration) *Service {
	t.Helper()
	s := New(Config{RetryAfter: retryAfter, FetchTimeout: time.Second}, f, store, nil,
		WithClock(func() time.Time { return fixedNow }))
	t.Cleanup(s.Stop)
	return s
}

func TestRefresh_Success(t *testing.T) {
	store := storage.NewMemoryStore()
	s := newTestService(t, newFakeFetcher(), store, time.Hour)

	v, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if v.Snapshot == nil || v.Stale || v.Error != "" || v.RetryAt != nil {
		t.Fatalf("view = %+v, want fresh snapshot", v)
	}
	if !v.Snapshot.TotalPnL().Equal(decimal.RequireFromString("10")) {
		t.Errorf("TotalPnL = %s, want 10", v.Snapshot.TotalPnL())
	}
	if !v.Snapshot.Timestamp.Equal(fixedNow) {
		t.Errorf("Timestamp = %v, want %v", v.Snapshot.Timestamp, fixedNow)
	}

	var persisted model.CachedSnapshot
	if err := storage.GetJSON(context.Background(), store, storage.AccountSnapshotKey, &persisted); err != nil {
		t.Fatalf("snapshot not persisted: %v", err)
	}
	if persisted.ID != v.Snapshot.ID || len(persisted.Positions) != 1 {
		t.Errorf("persisted = %+v", persisted)
	}
}

func TestRefresh_FailureWithoutCache(t *testing.T) {
	f := newFakeFetcher()
	f.failPositions.Store(true)
	s := newTestService(t, f, storage.NewMemoryStore(), time.Hour)

	v, err := s.Refresh(context.Background())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("error = %v, want ErrNoData", err)
	}
	if !strings.Contains(err.Error(), "api key expired") {
		t.Errorf("error = %q, want upstream message", err)
	}
	if v.Snapshot != nil {
		t.Error("snapshot should be nil")
	}
	if v.Error != "api key expired" {
		t.Errorf("view error = %q", v.Error)
	}
}

func TestRefresh_FailureKeepsCache(t *testing.T) {
	f := newFakeFetcher()
	store := storage.NewMemoryStore()
	s := newTestService(t, f, store, time.Hour)
	ctx := context.Background()

	first, err := s.Refresh(ctx)
	if err != nil {
		t.Fatalf("first Refresh failed: %v", err)
	}

	f.failPositions.Store(true)
	f.balance = decimal.RequireFromString("1")

	v, err := s.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh with cache returned error: %v", err)
	}
	if v.Snapshot == nil || v.Snapshot.ID != first.Snapshot.ID {
		t.Fatalf("snapshot = %+v, want previous one", v.Snapshot)
	}
	if !v.Snapshot.Balance.Balance.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("balance = %s, want cached 1000", v.Snapshot.Balance.Balance)
	}
	if !v.Stale || v.Error == "" {
		t.Errorf("view = %+v, want stale with error", v)
	}
	if v.RetryAt == nil || !v.RetryAt.Equal(fixedNow.Add(time.Hour)) {
		t.Errorf("RetryAt = %v, want %v", v.RetryAt, fixedNow.Add(time.Hour))
	}

	// Stored snapshot is not overwritten by the failed attempt.
	var persisted model.CachedSnapshot
	storage.GetJSON(ctx, store, storage.AccountSnapshotKey, &persisted)
	if persisted.ID != first.Snapshot.ID {
		t.Errorf("persisted ID = %v, want %v", persisted.ID, first.Snapshot.ID)
	}
}

func TestRefresh_SingleRetryPending(t *testing.T) {
	f := newFakeFetcher()
	f.failPositions.Store(true)
	s := newTestService(t, f, storage.NewMemoryStore(), time.Hour)
	ctx := context.Background()

	s.Refresh(ctx)
	first := s.View().RetryAt
	s.Refresh(ctx)
	s.Refresh(ctx)

	s.mu.Lock()
	pending := s.retry != nil
	s.mu.Unlock()
	if !pending {
		t.Fatal("expected a pending retry")
	}
	if got := s.View().RetryAt; got == nil || !got.Equal(*first) {
		t.Errorf("RetryAt moved from %v to %v", first, got)
	}
}

func TestRefresh_RetryRecovers(t *testing.T) {
	f := newFakeFetcher()
	f.failPositions.Store(true)
	s := newTestService(t, f, storage.NewMemoryStore(), 50*time.Millisecond)

	if _, err := s.Refresh(context.Background()); !errors.Is(err, ErrNoData) {
		t.Fatalf("error = %v, want ErrNoData", err)
	}

	f.failPositions.Store(false)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v := s.View(); v.Snapshot != nil && !v.Stale {
			if v.RetryAt != nil {
				t.Errorf("RetryAt = %v after recovery, want nil", v.RetryAt)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scheduled retry did not refresh the snapshot")
}

func TestRefresh_ConcurrentCallsShareFetch(t *testing.T) {
	f := newFakeFetcher()
	f.gate = make(chan struct{})
	s := newTestService(t, f, storage.NewMemoryStore(), time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Refresh(context.Background()); err != nil {
				t.Errorf("Refresh failed: %v", err)
			}
		}()
	}

	// Let every caller join the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	if got := f.calls.Load(); got != 1 {
		t.Errorf("GetBalance calls = %d, want 1", got)
	}
}

func TestRefresh_CallerCancelDoesNotFailOthers(t *testing.T) {
	f := newFakeFetcher()
	f.gate = make(chan struct{})
	s := newTestService(t, f, storage.NewMemoryStore(), time.Hour)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := s.Refresh(ctxA)
		errA <- err
	}()

	var (
		vB   View
		errB error
		done = make(chan struct{})
	)
	go func() {
		defer close(done)
		vB, errB = s.Refresh(context.Background())
	}()

	// Both callers share the fetch, then the first one goes away.
	time.Sleep(50 * time.Millisecond)
	cancelA()

	select {
	case err := <-errA:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("canceled caller error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("canceled caller did not return")
	}

	close(f.gate)
	<-done

	if errB != nil {
		t.Fatalf("other caller failed: %v", errB)
	}
	if vB.Snapshot == nil || vB.Stale || vB.Error != "" || vB.RetryAt != nil {
		t.Errorf("view = %+v, want fresh snapshot", vB)
	}
	if got := f.calls.Load(); got != 1 {
		t.Errorf("GetBalance calls = %d, want 1", got)
	}
}

func TestRefresh_FetchTimeout(t *testing.T) {
	f := newFakeFetcher()
	f.gate = make(chan struct{})
	defer close(f.gate)
	s := New(Config{RetryAfter: time.Hour, FetchTimeout: 50 * time.Millisecond}, f, storage.NewMemoryStore(), nil)
	defer s.Stop()

	_, err := s.Refresh(context.Background())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("error = %v, want ErrNoData", err)
	}
	if v := s.View(); v.RetryAt == nil {
		t.Error("expected a scheduled retry after the timeout")
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	s := newTestService(t, newFakeFetcher(), store, time.Hour)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load on empty store failed: %v", err)
	}
	if s.View().Snapshot != nil {
		t.Fatal("expected no snapshot")
	}

	saved := model.CachedSnapshot{
		Balance:   model.Balance{Asset: "USDT", Balance: decimal.RequireFromString("42")},
		Timestamp: fixedNow,
	}
	if err := storage.SetJSON(ctx, store, storage.AccountSnapshotKey, saved); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}

	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	v := s.View()
	if v.Snapshot == nil || !v.Snapshot.Balance.Balance.Equal(decimal.RequireFromString("42")) {
		t.Fatalf("snapshot = %+v, want loaded one", v.Snapshot)
	}
	if !v.Stale {
		t.Error("loaded snapshot should be stale until refreshed")
	}
}

func TestLoad_CorruptBlob(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	store.Set(ctx, storage.AccountSnapshotKey, []byte("{not json"))

	s := newTestService(t, newFakeFetcher(), store, time.Hour)
	if err := s.Load(ctx); err == nil {
		t.Fatal("expected error for corrupt snapshot")
	}
}

func TestStopCancelsRetry(t *testing.T) {
	f := newFakeFetcher()
	f.failPositions.Store(true)
	s := New(Config{RetryAfter: 20 * time.Millisecond}, f, storage.NewMemoryStore(), nil)

	s.Refresh(context.Background())
	s.Stop()
	calls := f.calls.Load()

	time.Sleep(80 * time.Millisecond)
	if got := f.calls.Load(); got != calls {
		t.Errorf("calls = %d after Stop, want %d", got, calls)
	}
	if s.View().RetryAt != nil {
		t.Error("RetryAt should be cleared after Stop")
	}
}
