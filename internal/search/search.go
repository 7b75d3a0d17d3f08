// Package search ranks clips against a fuzzy query and guards against
// stale results when queries are issued faster than they complete.
package search

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/yiblet/ammo/internal/store"
)

// source adapts a clip slice to fuzzy.Source.
type source []store.Clip

func (s source) String(i int) string {
	if s[i].Kind == store.KindImage {
		return s[i].Label
	}
	return s[i].Contents
}

func (s source) Len() int { return len(s) }

// Rank returns the IDs of clips matching query, most relevant first. Equal
// scores keep the order of clips.
func Rank(query string, clips []store.Clip) []string {
	matches := fuzzy.FindFrom(query, source(clips))
	slices.SortStableFunc(matches, func(a, b fuzzy.Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = clips[m.Index].ID
	}
	return ids
}

// Result is the outcome of one search. Active is false when no filter
// applies, which differs from an active filter that matched nothing.
type Result struct {
	Generation uint64
	Query      string
	Active     bool
	IDs        []string
}

// Request is a search that has been issued but not yet run.
type Request struct {
	Generation uint64
	Query      string

	ctx   context.Context
	clips []store.Clip
}

// Searcher issues requests tagged with a generation. Starting a new request
// cancels the previous one, and only results of the newest generation are
// accepted.
type Searcher struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewSearcher returns an idle Searcher.
func NewSearcher() *Searcher {
	return &Searcher{}
}

// Start supersedes any in-flight request with a search for query over clips.
func (s *Searcher) Start(query string, clips []store.Clip) Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.gen++

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	return Request{
		Generation: s.gen,
		Query:      query,
		ctx:        ctx,
		clips:      slices.Clone(clips),
	}
}

// Run executes req. A blank query yields an inactive result without
// searching. A cancelled request returns an active result with no IDs,
// which Accept will reject.
func Run(req Request) Result {
	res := Result{Generation: req.Generation, Query: req.Query}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return res
	}

	res.Active = true
	if req.ctx != nil && req.ctx.Err() != nil {
		return res
	}
	res.IDs = Rank(query, req.clips)
	return res
}

// Accept reports whether res belongs to the most recent request.
func (s *Searcher) Accept(res Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return res.Generation == s.gen
}

// Generation returns the generation of the most recent request.
func (s *Searcher) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Cancel abandons the in-flight request, if any. Results already running
// will no longer be accepted.
func (s *Searcher) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}
