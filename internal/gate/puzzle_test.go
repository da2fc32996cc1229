package gate

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tigar/puzzle2rsvp/internal/models"
	"github.com/tigar/puzzle2rsvp/internal/store"
	"github.com/tigar/puzzle2rsvp/internal/verifier"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func answerIs(want string) verifier.Verifier {
	return verifier.VerifierFunc(func(submission json.RawMessage) (bool, error) {
		var req struct {
			Answer string `json:"answer"`
		}
		if err := json.Unmarshal(submission, &req); err != nil {
			return false, err
		}
		return req.Answer == want, nil
	})
}

func newSolveFixture(t *testing.T) (*PuzzleGate, *store.MemoryInviteStore, *models.Invite, *int) {
	t.Helper()

	invites := store.NewMemoryInviteStore()
	registry := verifier.NewRegistry()
	require.NoError(t, registry.Register("gala", answerIs("sunflower")))

	solves := 0
	gate := NewPuzzleGate(invites, registry, testLogger(), func(models.Invite) {
		solves++
	})
	gate.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	invite, err := invites.Create(context.Background(), "gala", "Ada", time.Unix(1_699_999_000, 0))
	require.NoError(t, err)

	return gate, invites, invite, &solves
}

func TestAttemptLatchScenario(t *testing.T) {
	gate, invites, invite, solves := newSolveFixture(t)
	ctx := context.Background()

	// Wrong answer: no state change
	solved, err := gate.Attempt(ctx, "gala", invite.Token, json.RawMessage(`{"answer":"wrong"}`))
	require.NoError(t, err)
	require.False(t, solved)

	got, _ := invites.Get(ctx, invite.Token)
	require.False(t, got.PuzzleSolved)
	require.Nil(t, got.SolvedAt)
	require.Zero(t, *solves)

	// Right answer: latch flips, hook fires
	solved, err = gate.Attempt(ctx, "gala", invite.Token, json.RawMessage(`{"answer":"sunflower"}`))
	require.NoError(t, err)
	require.True(t, solved)

	got, _ = invites.Get(ctx, invite.Token)
	require.True(t, got.PuzzleSolved)
	require.NotNil(t, got.SolvedAt)
	firstSolvedAt := *got.SolvedAt
	require.Equal(t, 1, *solves)

	// Wrong answer after the latch: still reports solved, nothing re-fires
	solved, err = gate.Attempt(ctx, "gala", invite.Token, json.RawMessage(`{"answer":"wrong"}`))
	require.NoError(t, err)
	require.True(t, solved, "latch holds regardless of submission")

	got, _ = invites.Get(ctx, invite.Token)
	require.Equal(t, firstSolvedAt, *got.SolvedAt, "solved_at is set exactly once")
	require.Equal(t, 1, *solves, "hook fires only on the flip")
}

func TestAttemptConcurrentSolvesFlipOnce(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "invites.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Invite{}))
	invites := store.NewInviteDB(db)

	registry := verifier.NewRegistry()
	require.NoError(t, registry.Register("gala", answerIs("sunflower")))

	var solves atomic.Int32
	gate := NewPuzzleGate(invites, registry, testLogger(), func(models.Invite) {
		solves.Add(1)
	})

	ctx := context.Background()
	invite, err := invites.Create(ctx, "gala", "Ada", time.Unix(1_700_000_000, 0))
	require.NoError(t, err)

	// Racing correct attempts: everyone sees solved, the latch flips once
	const attempts = 16
	var wg sync.WaitGroup
	results := make([]bool, attempts)
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = gate.Attempt(ctx, "gala", invite.Token, json.RawMessage(`{"answer":"sunflower"}`))
		}(i)
	}
	wg.Wait()

	for i := 0; i < attempts; i++ {
		require.NoError(t, errs[i], "attempt %d", i)
		require.True(t, results[i], "attempt %d", i)
	}
	require.Equal(t, int32(1), solves.Load(), "hook fires exactly once under contention")

	got, err := invites.Get(ctx, invite.Token)
	require.NoError(t, err)
	require.True(t, got.PuzzleSolved)
	require.NotNil(t, got.SolvedAt)
}

func TestAttemptSkipsVerifierOnceSolved(t *testing.T) {
	invites := store.NewMemoryInviteStore()
	registry := verifier.NewRegistry()

	calls := 0
	require.NoError(t, registry.Register("gala", verifier.VerifierFunc(func(json.RawMessage) (bool, error) {
		calls++
		return true, nil
	})))

	gate := NewPuzzleGate(invites, registry, testLogger(), nil)
	ctx := context.Background()

	invite, err := invites.Create(ctx, "gala", "Ada", time.Unix(1_700_000_000, 0))
	require.NoError(t, err)

	_, err = gate.Attempt(ctx, "gala", invite.Token, json.RawMessage(`{}`))
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	_, err = gate.Attempt(ctx, "gala", invite.Token, json.RawMessage(`{}`))
	require.NoError(t, err)
	require.Equal(t, 1, calls, "solved invite must not invoke the verifier")
}

func TestAttemptCrossEventIsNotFound(t *testing.T) {
	gate, invites, invite, _ := newSolveFixture(t)
	ctx := context.Background()

	// Right answer, wrong event: same error as an unknown token
	_, err := gate.Attempt(ctx, "other-event", invite.Token, json.RawMessage(`{"answer":"sunflower"}`))
	require.ErrorIs(t, err, store.ErrInviteNotFound)

	got, _ := invites.Get(ctx, invite.Token)
	require.False(t, got.PuzzleSolved, "cross-event attempt must not change state")
}

func TestAttemptUnknownToken(t *testing.T) {
	gate, _, _, _ := newSolveFixture(t)

	_, err := gate.Attempt(context.Background(), "gala", "ghost", json.RawMessage(`{"answer":"sunflower"}`))
	require.ErrorIs(t, err, store.ErrInviteNotFound)
}

func TestAttemptUnregisteredEvent(t *testing.T) {
	invites := store.NewMemoryInviteStore()
	registry := verifier.NewRegistry()
	gate := NewPuzzleGate(invites, registry, testLogger(), nil)
	ctx := context.Background()

	invite, err := invites.Create(ctx, "gala", "Ada", time.Unix(1_700_000_000, 0))
	require.NoError(t, err)

	_, err = gate.Attempt(ctx, "gala", invite.Token, json.RawMessage(`{}`))
	require.ErrorIs(t, err, verifier.ErrUnknownEvent)
}

func TestAttemptFailsClosedOnVerifierPanic(t *testing.T) {
	invites := store.NewMemoryInviteStore()
	registry := verifier.NewRegistry()
	require.NoError(t, registry.Register("gala", verifier.VerifierFunc(func(json.RawMessage) (bool, error) {
		panic("bad verifier")
	})))

	gate := NewPuzzleGate(invites, registry, testLogger(), nil)
	ctx := context.Background()

	invite, err := invites.Create(ctx, "gala", "Ada", time.Unix(1_700_000_000, 0))
	require.NoError(t, err)

	solved, err := gate.Attempt(ctx, "gala", invite.Token, json.RawMessage(`{}`))
	require.NoError(t, err)
	require.False(t, solved, "a panicking verifier must never grant access")

	got, _ := invites.Get(ctx, invite.Token)
	require.False(t, got.PuzzleSolved)
}

func TestAttemptFailsClosedOnVerifierError(t *testing.T) {
	invites := store.NewMemoryInviteStore()
	registry := verifier.NewRegistry()
	require.NoError(t, registry.Register("gala", verifier.VerifierFunc(func(json.RawMessage) (bool, error) {
		return true, json.Unmarshal([]byte("broken"), &struct{}{})
	})))

	gate := NewPuzzleGate(invites, registry, testLogger(), nil)
	ctx := context.Background()

	invite, err := invites.Create(ctx, "gala", "Ada", time.Unix(1_700_000_000, 0))
	require.NoError(t, err)

	solved, err := gate.Attempt(ctx, "gala", invite.Token, json.RawMessage(`{}`))
	require.NoError(t, err)
	require.False(t, solved, "verifier errors count as a wrong answer")
}
