package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrCorruptPayload payload в базе не разбирается как JSON-объект.
var ErrCorruptPayload = errors.New("dialog payload is corrupt")

// DB то, что нужно хранилищу от пула; *pgxpool.Pool подходит.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	selectState = `SELECT state, payload, updated_at FROM dialog_states WHERE chat_id = $1`
	upsertState = `
		INSERT INTO dialog_states (chat_id, state, payload, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (chat_id) DO UPDATE
		SET state = EXCLUDED.state, payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
	deleteState = `DELETE FROM dialog_states WHERE chat_id = $1`
)

// Repo состояние диалогов в Postgres. Сессия, которую не трогали дольше ttl,
// считается брошенной: чат начинает с главного меню, черновик изделия теряется.
type Repo struct {
	db  DB
	ttl time.Duration
	now func() time.Time
}

// NewRepo ttl <= 0 отключает истечение сессий.
func NewRepo(db DB, ttl time.Duration) *Repo {
	return &Repo{db: db, ttl: ttl, now: time.Now}
}

func idle(chatID int64) *Item {
	return &Item{ChatID: chatID, State: StateIdle, Payload: Payload{}}
}

func (r *Repo) Get(ctx context.Context, chatID int64) (*Item, error) {
	var (
		state   string
		raw     []byte
		updated time.Time
	)
	err := r.db.QueryRow(ctx, selectState, chatID).Scan(&state, &raw, &updated)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return idle(chatID), nil
	case err != nil:
		return nil, fmt.Errorf("load dialog %d: %w", chatID, err)
	}

	if r.ttl > 0 && r.now().Sub(updated) > r.ttl {
		return idle(chatID), nil
	}

	p := Payload{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("chat %d: %w: %v", chatID, ErrCorruptPayload, err)
		}
		if p == nil {
			p = Payload{}
		}
	}
	return &Item{ChatID: chatID, State: State(state), Payload: p}, nil
}

func (r *Repo) Set(ctx context.Context, chatID int64, state State, payload Payload) error {
	if payload == nil {
		payload = Payload{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode dialog %d: %w", chatID, err)
	}
	if _, err := r.db.Exec(ctx, upsertState, chatID, string(state), raw); err != nil {
		return fmt.Errorf("save dialog %d: %w", chatID, err)
	}
	return nil
}

func (r *Repo) Reset(ctx context.Context, chatID int64) error {
	if _, err := r.db.Exec(ctx, deleteState, chatID); err != nil {
		return fmt.Errorf("reset dialog %d: %w", chatID, err)
	}
	return nil
}
