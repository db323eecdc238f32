// Package storetest provides in-process store.Client implementations for
// tests of code built on top of the store.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"socialgraph/backend/internal/query"
	"socialgraph/backend/internal/store"
	apperrors "socialgraph/backend/pkg/errors"
)

type edgeKey struct {
	from, to string
}

// Memory is a store.Client that interprets statements against an in-memory
// graph keyed by raw profile ids. Each Submit is atomic, like a single
// conditional traversal on a real server.
type Memory struct {
	mu       sync.Mutex
	profiles map[string]bool
	edges    map[edgeKey]time.Time
	calls    map[query.Operation]int
	closes   int

	// FailOn makes Submit return the mapped error for that operation
	FailOn map[query.Operation]error
}

// NewMemory returns an empty graph
func NewMemory() *Memory {
	return &Memory{
		profiles: make(map[string]bool),
		edges:    make(map[edgeKey]time.Time),
		calls:    make(map[query.Operation]int),
		FailOn:   make(map[query.Operation]error),
	}
}

func (m *Memory) Submit(ctx context.Context, stmt query.Statement) ([]store.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStoreUnavailable("memory", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls[stmt.Op]++
	if err, ok := m.FailOn[stmt.Op]; ok {
		return nil, err
	}
	if err := checkScript(stmt); err != nil {
		return nil, apperrors.NewQueryFailed(string(stmt.Op), 400, err)
	}

	src := stmt.Source.ProfileID.Raw()
	dst := stmt.Target.ProfileID.Raw()

	switch stmt.Op {
	case query.OpEnsureProfile:
		m.profiles[src] = true
		return nil, nil
	case query.OpUpsertFollow:
		if !m.profiles[src] || !m.profiles[dst] {
			return nil, nil
		}
		key := edgeKey{src, dst}
		createdAt, ok := m.edges[key]
		if !ok {
			createdAt = stmt.CreatedAt.UTC()
			m.edges[key] = createdAt
		}
		if createdAt.IsZero() {
			createdAt = stmt.CreatedAt.UTC()
		}
		return []store.Row{store.NewRow(query.FormatTime(createdAt))}, nil
	case query.OpDeleteFollow:
		delete(m.edges, edgeKey{src, dst})
		return nil, nil
	case query.OpFollowers, query.OpFollowing:
		var rows []store.Row
		for key := range m.edges {
			switch {
			case stmt.Op == query.OpFollowers && key.to == src:
				rows = append(rows, store.NewRow(key.from))
			case stmt.Op == query.OpFollowing && key.from == src:
				rows = append(rows, store.NewRow(key.to))
			}
		}
		return rows, nil
	case query.OpCountFollowers, query.OpCountFollowing:
		var n int64
		for key := range m.edges {
			if (stmt.Op == query.OpCountFollowers && key.to == src) ||
				(stmt.Op == query.OpCountFollowing && key.from == src) {
				n++
			}
		}
		return []store.Row{store.NewRow(n)}, nil
	case query.OpIsFollowing:
		var n int64
		if _, ok := m.edges[edgeKey{src, dst}]; ok {
			n = 1
		}
		return []store.Row{store.NewRow(n)}, nil
	case query.OpPing, query.OpSchema:
		return nil, nil
	}
	return nil, apperrors.NewQueryFailed(string(stmt.Op), 400, fmt.Errorf("unsupported operation"))
}

func (m *Memory) Ping(ctx context.Context) error {
	_, err := m.Submit(ctx, query.Statement{Op: query.OpPing})
	return err
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

// Calls returns how many times an operation was submitted
func (m *Memory) Calls(op query.Operation) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// TotalCalls returns the number of statements submitted
func (m *Memory) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// Closes returns how many times Close ran
func (m *Memory) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// EdgeCount returns the number of follows edges from one profile to another
func (m *Memory) EdgeCount(from, to string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.edges[edgeKey{from, to}]; ok {
		return 1
	}
	return 0
}

// AddEdgeWithoutTimestamp stores a follows edge that carries no createdAtUtc,
// as written by older versions of the data model
func (m *Memory) AddEdgeWithoutTimestamp(from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[from] = true
	m.profiles[to] = true
	m.edges[edgeKey{from, to}] = time.Time{}
}

// HasProfile reports whether a profile vertex exists
func (m *Memory) HasProfile(profileID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[profileID]
}

// Unreachable is a store.Client that fails the test on any use
type Unreachable struct {
	T testing.TB
}

func (u Unreachable) Submit(_ context.Context, stmt query.Statement) ([]store.Row, error) {
	u.T.Errorf("unexpected store call: %s", stmt.Op)
	return nil, apperrors.NewStoreUnavailable("unreachable", fmt.Errorf("unexpected call"))
}

func (u Unreachable) Ping(context.Context) error {
	u.T.Errorf("unexpected store ping")
	return apperrors.NewStoreUnavailable("unreachable", fmt.Errorf("unexpected call"))
}

func (u Unreachable) Close() error { return nil }

// checkScript rejects an inline Gremlin script whose literals do not carry the
// statement's vertex ids verbatim, which is what a broken escape looks like to
// a real server. Parameterised statements are not inspected.
func checkScript(stmt query.Statement) error {
	if stmt.Params != nil || !strings.HasPrefix(stmt.Text, "g.") {
		return nil
	}

	literals, err := scriptLiterals(stmt.Text)
	if err != nil {
		return err
	}
	found := make(map[string]bool, len(literals))
	for _, lit := range literals {
		found[lit] = true
	}

	want := []string{stmt.Source.ID.Raw(), stmt.Source.PartitionKey.Raw()}
	if id := stmt.Target.ID.Raw(); id != "" {
		want = append(want, id)
	}
	for _, w := range want {
		if !found[w] {
			return fmt.Errorf("script has no literal %q: %s", w, stmt.Text)
		}
	}
	return nil
}

// scriptLiterals returns the unescaped single-quoted literals of a script
func scriptLiterals(script string) ([]string, error) {
	var literals []string
	var lit strings.Builder
	inside := false
	for i := 0; i < len(script); i++ {
		c := script[i]
		if !inside {
			if c == '\'' {
				inside = true
				lit.Reset()
			}
			continue
		}
		switch c {
		case '\\':
			if i+1 == len(script) {
				return nil, fmt.Errorf("dangling escape: %s", script)
			}
			i++
			lit.WriteByte(script[i])
		case '\'':
			inside = false
			literals = append(literals, lit.String())
		default:
			lit.WriteByte(c)
		}
	}
	if inside {
		return nil, fmt.Errorf("unterminated literal: %s", script)
	}
	return literals, nil
}
