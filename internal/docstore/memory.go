package docstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory keeps documents in process. Used by tests and the default dev setup.
type Memory struct {
	mu    sync.Mutex
	store map[string]map[string]Fields // collection -> id -> fields
}

func NewMemory() *Memory {
	return &Memory{
		store: make(map[string]map[string]Fields),
	}
}

func (m *Memory) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	if err := checkCollection(collection); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docs, ok := m.store[collection]
	if !ok {
		docs = make(map[string]Fields)
		m.store[collection] = docs
	}
	id := uuid.NewString()
	docs[id] = cloneFields(fields)
	return id, nil
}

func (m *Memory) Create(ctx context.Context, docPath string, fields Fields) error {
	collection, id, err := SplitDocPath(docPath)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docs, ok := m.store[collection]
	if !ok {
		docs = make(map[string]Fields)
		m.store[collection] = docs
	}
	if _, taken := docs[id]; taken {
		return ErrAlreadyExists
	}
	docs[id] = cloneFields(fields)
	return nil
}

func (m *Memory) Get(ctx context.Context, docPath string) (Document, error) {
	collection, id, err := SplitDocPath(docPath)
	if err != nil {
		return Document{}, err
	}
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.store[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Fields: cloneFields(f)}, nil
}

func (m *Memory) List(ctx context.Context, collection string) ([]Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.store[collection]
	out := make([]Document, 0, len(docs))
	for id, f := range docs {
		out = append(out, Document{ID: id, Fields: cloneFields(f)})
	}
	return out, nil
}

func (m *Memory) Update(ctx context.Context, docPath string, fields Fields) error {
	collection, id, err := SplitDocPath(docPath)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.store[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		cur[k] = v
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, docPath string) error {
	collection, id, err := SplitDocPath(docPath)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.store[collection], id)
	return nil
}
