package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbrief/internal/chunk"
	"gridbrief/internal/core"
	"gridbrief/internal/llm"
)

func TestTriggerAsyncRejectsConcurrentRuns(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(store, &fakeFeeds{}, &fakeExtractor{}, nil, Options{})
	s := NewScheduler(p, time.Hour)

	s.running.Store(true)
	assert.ErrorIs(t, s.TriggerAsync(), ErrRunInProgress)
	s.running.Store(false)

	require.NoError(t, s.TriggerAsync())
	s.wg.Wait()
	assert.False(t, s.Running())
}

func TestSchedulerImmediateFirstRun(t *testing.T) {
	store := newMemStore(core.Source{ID: 1, Name: "Feed", Kind: core.SourceRSS, Locator: "https://f.example.com/rss", Enabled: true})
	p := New(store, &fakeFeeds{}, emptyScrapers{}, &fakeExtractor{}, chunk.New(), llm.NewFakeEmbedder(8), nil, Options{})
	s := NewScheduler(p, time.Hour)

	require.NoError(t, s.Start())
	s.wg.Wait() // first run fires immediately
	s.Stop()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.NotEmpty(t, store.runs)
}
