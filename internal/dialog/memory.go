package dialog

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory хранилище состояний в памяти: когда Postgres не настроен, и в тестах.
type Memory struct {
	mu    sync.Mutex
	items map[int64][]byte
	state map[int64]State
}

func NewMemory() *Memory {
	return &Memory{items: map[int64][]byte{}, state: map[int64]State{}}
}

func (m *Memory) Get(_ context.Context, chatID int64) (*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.state[chatID]
	if !ok {
		return &Item{ChatID: chatID, State: StateIdle, Payload: Payload{}}, nil
	}
	p := Payload{}
	_ = json.Unmarshal(m.items[chatID], &p)
	return &Item{ChatID: chatID, State: st, Payload: p}, nil
}

// Set payload проходит через JSON, как и в Postgres.
func (m *Memory) Set(_ context.Context, chatID int64, state State, payload Payload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.state[chatID] = state
	m.items[chatID] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) Reset(_ context.Context, chatID int64) error {
	m.mu.Lock()
	delete(m.state, chatID)
	delete(m.items, chatID)
	m.mu.Unlock()
	return nil
}
