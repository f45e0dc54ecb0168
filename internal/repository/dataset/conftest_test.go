package dataset

import (
	"context"
	"testing"

	"github.com/kailas-cloud/knowwho/internal/db"
	"github.com/kailas-cloud/knowwho/internal/domain/network"
)

const testPrefix = "kwtest:"

// mockStore is an in-memory implementation of the consumer interface with
// optional error injection.
type mockStore struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	delErr  error
	scanErr error
	existsE error
}

func newMockStore() *mockStore {
	return &mockStore{data: map[string][]byte{}}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *mockStore) Del(_ context.Context, key string) error {
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.data, key)
	return nil
}

func (m *mockStore) Exists(_ context.Context, key string) (bool, error) {
	if m.existsE != nil {
		return false, m.existsE
	}
	_, ok := m.data[key]
	return ok, nil
}

func (m *mockStore) Scan(_ context.Context, _ string) ([]string, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func makeDataset(t *testing.T, queryID string) *network.Dataset {
	t.Helper()
	return &network.Dataset{
		Query: network.QueryContext{QueryID: queryID, CenterNodeID: "C"},
		Nodes: []network.Node{{ID: "C", Name: "Center"}, {ID: "A", Name: "Alice"}},
		Edges: []network.Edge{{Source: "C", Target: "A", Type: network.EdgeOrg, Weight: 1}},
	}
}
