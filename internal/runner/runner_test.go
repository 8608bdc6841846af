package runner

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/michaelbrown/explorer/internal/sandbox"
	"github.com/michaelbrown/explorer/internal/storage"
	"github.com/michaelbrown/explorer/internal/storage/sqlite"
)

func testRunner(t *testing.T) (*Runner, *sqlite.SQLiteStore, *observer.ObservedLogs) {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	core, logs := observer.New(zap.InfoLevel)
	sb := sandbox.NewStarlarkSandbox(sandbox.DefaultPolicy())
	return New(sb, store, zap.New(core)), store, logs
}

func TestRunRecordsSuccess(t *testing.T) {
	r, store, logs := testRunner(t)
	ctx := context.Background()

	run := r.Run(ctx, `print("hello")`, nil)
	if run.Outcome != sandbox.OutcomeSuccess || run.Output != "hello\n" {
		t.Fatalf("run = %+v", run)
	}
	if run.ID == "" || run.Backend != "starlark" || run.CreatedAt.IsZero() {
		t.Errorf("run metadata not set: %+v", run)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Source != `print("hello")` || got.Output != "hello\n" {
		t.Errorf("stored run = %+v", got)
	}

	entries := logs.FilterMessage("run finished").All()
	if len(entries) != 1 {
		t.Fatalf("got %d 'run finished' log entries, want 1", len(entries))
	}
	if entries[0].ContextMap()["run_id"] != run.ID {
		t.Errorf("log run_id = %v, want %s", entries[0].ContextMap()["run_id"], run.ID)
	}
}

func TestRunRecordsFailure(t *testing.T) {
	r, store, logs := testRunner(t)
	ctx := context.Background()

	run := r.Run(ctx, "print(1/0)", nil)
	if run.Outcome != sandbox.OutcomeFailure || run.Message == "" {
		t.Fatalf("run = %+v", run)
	}

	runs, err := store.ListRuns(ctx, storage.RunListOptions{Outcome: sandbox.OutcomeFailure})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("got %d failed runs, want 1", len(runs))
	}
	if logs.FilterMessage("run failed").Len() != 1 {
		t.Error("expected a 'run failed' log entry")
	}
}

func TestRunStreamsOutput(t *testing.T) {
	r, _, _ := testRunner(t)

	var streamed string
	run := r.Run(context.Background(), "print(1)\nprint(2)", func(chunk string) { streamed += chunk })
	if streamed != run.Output {
		t.Errorf("streamed %q, output %q", streamed, run.Output)
	}
}

type failingStore struct{ storage.Discard }

func (failingStore) RecordRun(context.Context, *storage.Run) error {
	return errors.New("disk full")
}

func TestRunSurvivesJournalFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := New(sandbox.NewStarlarkSandbox(sandbox.DefaultPolicy()), failingStore{}, zap.New(core))

	run := r.Run(context.Background(), `print("ok")`, nil)
	if run.Outcome != sandbox.OutcomeSuccess {
		t.Fatalf("journal failure changed the result: %+v", run)
	}
	if logs.FilterMessage("recording run").Len() != 1 {
		t.Error("expected journal failure to be logged")
	}
}

func TestNewDefaults(t *testing.T) {
	r := New(sandbox.NewStarlarkSandbox(sandbox.Policy{}), nil, nil)
	if run := r.Run(context.Background(), "", nil); run.Outcome != sandbox.OutcomeSuccess {
		t.Errorf("empty run = %+v", run)
	}
	if r.Backend() != "starlark" {
		t.Errorf("Backend() = %q", r.Backend())
	}
}
