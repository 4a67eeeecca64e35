package export

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/karaexport/pkg/capture"
	"github.com/user/karaexport/pkg/mocks"
	"github.com/user/karaexport/pkg/ports"
)

// batchFactory starts a fresh fake encoder per job. Jobs whose ID is in
// failing exit with an error.
func batchFactory(failing map[string]bool, active, peak *atomic.Int32) CoordinatorFactory {
	return func(jobID string, obs Observer) *Coordinator {
		runner := &mocks.ProcessRunner{
			StartFunc: func(ctx context.Context, name string, args ...string) (ports.Process, error) {
				proc := mocks.NewProcess()
				n := active.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				code := 0
				if failing[jobID] {
					code = 1
				}
				proc.ConsumeAndExit(code, "frame=2", "progress=end")
				return proc, nil
			},
		}
		return New(runner,
			WithCapabilities(testCaps()),
			WithExportID(jobID),
			WithObserver(obs),
			WithObserver(ObserverFuncs{
				Completed: func(string, Result) { active.Add(-1) },
				Failed:    func(string, error, []string) { active.Add(-1) },
			}),
		)
	}
}

func slowSource(n int) FrameSource {
	i := 0
	return func() (*capture.CapturedFrame, bool) {
		if i >= n {
			return nil, false
		}
		time.Sleep(5 * time.Millisecond)
		i++
		return rgbaFrame(uint64(i - 1)), true
	}
}

func TestBatch_RunsAllJobs(t *testing.T) {
	var active, peak atomic.Int32
	var mu sync.Mutex
	var updates int
	b := NewBatch(batchFactory(nil, &active, &peak),
		WithMaxConcurrent(2),
		WithBatchProgress(func(BatchProgress) {
			mu.Lock()
			updates++
			mu.Unlock()
		}),
	)

	var ids []string
	for i := 0; i < 4; i++ {
		id, err := b.Add(Job{Settings: testSettings(), Source: slowSource(2), TotalFrames: 2})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency %d, want <= 2", peak.Load())
	}
	for _, id := range ids {
		st, ok := b.Status(id)
		if !ok || st.Status != JobCompleted || st.Percent != 100 || st.Result == nil {
			t.Errorf("job %s = %+v", id, st)
		}
		if st.Duration() <= 0 {
			t.Errorf("job %s has no duration", id)
		}
	}
	p := b.Progress()
	if p.Completed != 4 || p.Percent != 100 || p.Active != 0 || p.Pending != 0 {
		t.Errorf("progress = %+v", p)
	}
	mu.Lock()
	if updates == 0 {
		t.Error("no progress updates")
	}
	mu.Unlock()

	if err := b.ClearCompleted(); err != nil {
		t.Fatal(err)
	}
	if len(b.Jobs()) != 0 {
		t.Errorf("jobs after clear = %d", len(b.Jobs()))
	}
}

func TestBatch_FailedJobReported(t *testing.T) {
	var active, peak atomic.Int32
	b := NewBatch(batchFactory(map[string]bool{"bad": true}, &active, &peak))
	b.Add(Job{ID: "good", Settings: testSettings(), Source: countingSource(2), TotalFrames: 2})
	b.Add(Job{ID: "bad", Settings: testSettings(), Source: countingSource(2), TotalFrames: 2})

	err := b.Run(context.Background())
	if !errors.Is(err, ErrBatchFailed) {
		t.Fatalf("Run = %v, want ErrBatchFailed", err)
	}
	good, _ := b.Status("good")
	bad, _ := b.Status("bad")
	if good.Status != JobCompleted || bad.Status != JobFailed || bad.Error == "" {
		t.Errorf("good = %+v, bad = %+v", good, bad)
	}
}

func TestBatch_CancelAll(t *testing.T) {
	var active, peak atomic.Int32
	b := NewBatch(batchFactory(nil, &active, &peak))
	b.Add(Job{ID: "first", Settings: testSettings(), Source: slowSource(1000), TotalFrames: 1000})
	b.Add(Job{ID: "second", Settings: testSettings(), Source: slowSource(1000), TotalFrames: 1000})

	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()

	deadline := time.After(2 * time.Second)
	for {
		st, _ := b.Status("first")
		if st.Status == JobRunning {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first job never started")
		case <-time.After(5 * time.Millisecond):
		}
	}
	b.CancelAll()

	select {
	case err := <-done:
		if !errors.Is(err, ErrBatchFailed) {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not stop")
	}
	for _, st := range b.Jobs() {
		if st.Status != JobCancelled {
			t.Errorf("job %s = %s, want cancelled", st.ID, st.Status)
		}
	}
	if b.IsRunning() {
		t.Error("IsRunning after cancel")
	}
}

func TestBatch_CancelAllWhileJobStarting(t *testing.T) {
	var b *Batch
	factory := func(jobID string, obs Observer) *Coordinator {
		runner := &mocks.ProcessRunner{
			StartFunc: func(ctx context.Context, name string, args ...string) (ports.Process, error) {
				b.CancelAll()
				proc := mocks.NewProcess()
				proc.Hang()
				return proc, nil
			},
		}
		return New(runner,
			WithCapabilities(testCaps()),
			WithExportID(jobID),
			WithObserver(obs),
			WithTimeouts(time.Second, time.Second, time.Second),
		)
	}
	b = NewBatch(factory)
	b.Add(Job{ID: "only", Settings: testSettings(), Source: slowSource(1000), TotalFrames: 1000})

	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrBatchFailed) {
			t.Errorf("Run = %v, want ErrBatchFailed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("job kept running after CancelAll")
	}
	st, _ := b.Status("only")
	if st.Status != JobCancelled {
		t.Errorf("job = %s, want cancelled", st.Status)
	}
}

func TestBatch_AddValidation(t *testing.T) {
	b := NewBatch(func(string, Observer) *Coordinator { return New(&mocks.ProcessRunner{}) })
	if err := b.Run(context.Background()); !errors.Is(err, ErrNoJobs) {
		t.Errorf("Run on empty batch = %v", err)
	}
	if _, err := b.Add(Job{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Add(Job{ID: "a"}); err == nil {
		t.Error("duplicate id accepted")
	}
}
