package ingest

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/poggufanz/polymarket-sniper/internal/domain"
	"github.com/poggufanz/polymarket-sniper/internal/narrative"
	"github.com/poggufanz/polymarket-sniper/internal/observability"
	"github.com/poggufanz/polymarket-sniper/internal/solana"
)

// Stream is one resilient program-log subscription.
type Stream interface {
	Run(ctx context.Context) error
	Notifications() <-chan solana.LogNotification
}

// PipelineRunner executes the validation pipeline for one candidate.
type PipelineRunner interface {
	Run(ctx context.Context, candidate domain.CandidateEvent)
}

// SourceConfig binds one launch source to its stream and parser.
type SourceConfig struct {
	Source domain.Source
	Stream Stream
	Parser Parser
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Sources    []SourceConfig
	Narratives *narrative.Index
	Pipeline   PipelineRunner
	Logger     *log.Logger
	Now        func() time.Time
}

// Manager supervises the per-source stream tasks, filters decoded candidates
// against the active narrative set, enforces in-flight dedup by mint, and
// launches one pipeline task per surviving candidate. Ingestion never blocks
// on pipeline execution.
type Manager struct {
	sources    []SourceConfig
	narratives *narrative.Index
	pipeline   PipelineRunner
	log        *log.Logger
	now        func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

// NewManager creates an ingestion manager.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		sources:    opts.Sources,
		narratives: opts.Narratives,
		pipeline:   opts.Pipeline,
		log:        opts.Logger,
		now:        opts.Now,
	}
}

// Run supervises all stream tasks until ctx is cancelled, then waits for
// in-flight pipelines to finish.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	m.inFlight = make(map[string]struct{})
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range m.sources {
		src := src
		g.Go(func() error {
			return src.Stream.Run(gctx)
		})
		g.Go(func() error {
			m.consume(gctx, src)
			return nil
		})
	}

	err := g.Wait()
	m.wg.Wait()
	return err
}

// consume drains one stream's notifications until the stream closes.
func (m *Manager) consume(ctx context.Context, src SourceConfig) {
	for notif := range src.Stream.Notifications() {
		m.handle(ctx, src, notif)
	}
}

func (m *Manager) handle(ctx context.Context, src SourceConfig, notif solana.LogNotification) {
	observability.RecordLogEvent(string(src.Source))

	// Failed transactions never created a pool.
	if notif.Err != nil {
		return
	}

	candidate, ok := src.Parser.Parse(notif, m.now())
	if !ok {
		return
	}
	observability.RecordCandidateDetected(string(src.Source))

	matched := m.narratives.Active().Match(candidate.MetadataText())
	if len(matched) == 0 {
		return
	}
	candidate.Keywords = matched
	observability.RecordCandidateMatched(string(src.Source))

	if !m.claim(candidate.Mint) {
		observability.RecordDuplicateDropped()
		return
	}

	m.log.Printf("[ingest] candidate %s (%s) from %s, narratives %v",
		candidate.Symbol, candidate.Mint, candidate.Source, matched)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.release(candidate.Mint)
		m.pipeline.Run(ctx, candidate)
	}()
}

// claim marks mint in flight; returns false if a pipeline is already running.
func (m *Manager) claim(mint string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.inFlight[mint]; exists {
		return false
	}
	m.inFlight[mint] = struct{}{}
	return true
}

func (m *Manager) release(mint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, mint)
}

// InFlight returns the number of running pipelines, for tests and metrics.
func (m *Manager) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inFlight)
}
