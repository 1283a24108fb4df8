package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/survey-hub/survey-hub/internal/domain/flow"
)

// FlowRepository persists flow documents edited outside this service.
type FlowRepository struct {
	pool *pgxpool.Pool
}

func NewFlowRepository(pool *pgxpool.Pool) *FlowRepository {
	return &FlowRepository{pool: pool}
}

// LoadDocument reads a complete flow. It returns nil when the flow does not exist.
func (r *FlowRepository) LoadDocument(ctx context.Context, name string) (*flow.Document, error) {
	doc := &flow.Document{Name: name}
	err := r.pool.QueryRow(ctx, `SELECT root_step_id FROM flows WHERE name=$1`, name).Scan(&doc.Root)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT step_id, prompt, terminal
		FROM flow_steps WHERE flow_name=$1
		ORDER BY position, step_id
	`, name)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	for rows.Next() {
		var s flow.Step
		if err := rows.Scan(&s.ID, &s.Prompt, &s.Terminal); err != nil {
			rows.Close()
			return nil, err
		}
		index[s.ID] = len(doc.Steps)
		doc.Steps = append(doc.Steps, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT step_id, label, value, next_step_id, condition
		FROM flow_choices WHERE flow_name=$1
		ORDER BY step_id, position
	`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var stepID string
		var c flow.Choice
		if err := rows.Scan(&stepID, &c.Label, &c.Value, &c.NextStepID, &c.When); err != nil {
			return nil, err
		}
		i, ok := index[stepID]
		if !ok {
			return nil, fmt.Errorf("choice references unknown step %s in flow %s", stepID, name)
		}
		doc.Steps[i].Choices = append(doc.Steps[i].Choices, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

// SaveDocument replaces a flow in a single transaction.
func (r *FlowRepository) SaveDocument(ctx context.Context, doc *flow.Document) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO flows (name, root_step_id, updated_at) VALUES ($1,$2,$3)
		ON CONFLICT (name) DO UPDATE SET root_step_id=EXCLUDED.root_step_id, updated_at=EXCLUDED.updated_at
	`, doc.Name, doc.Root, time.Now().UTC()); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM flow_choices WHERE flow_name=$1`, doc.Name); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM flow_steps WHERE flow_name=$1`, doc.Name); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for pos, s := range doc.Steps {
		batch.Queue(`
			INSERT INTO flow_steps (flow_name, step_id, prompt, terminal, position)
			VALUES ($1,$2,$3,$4,$5)
		`, doc.Name, s.ID, s.Prompt, s.Terminal, pos)
		for cpos, c := range s.Choices {
			batch.Queue(`
				INSERT INTO flow_choices (flow_name, step_id, position, label, value, next_step_id, condition)
				VALUES ($1,$2,$3,$4,$5,$6,$7)
			`, doc.Name, s.ID, cpos, c.Label, c.Value, c.NextStepID, c.When)
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpdatedAt returns when a flow was last saved, for cheap change polling.
func (r *FlowRepository) UpdatedAt(ctx context.Context, name string) (time.Time, error) {
	var ts time.Time
	err := r.pool.QueryRow(ctx, `SELECT updated_at FROM flows WHERE name=$1`, name).Scan(&ts)
	if err == pgx.ErrNoRows {
		return time.Time{}, nil
	}
	return ts, err
}

// FlowSource adapts a FlowRepository to one named flow for reloading.
type FlowSource struct {
	repo *FlowRepository
	name string
}

func NewFlowSource(repo *FlowRepository, name string) *FlowSource {
	return &FlowSource{repo: repo, name: name}
}

func (s *FlowSource) Version(ctx context.Context) (string, error) {
	ts, err := s.repo.UpdatedAt(ctx, s.name)
	if err != nil {
		return "", err
	}
	if ts.IsZero() {
		return "", fmt.Errorf("flow %s not found", s.name)
	}
	return ts.UTC().Format(time.RFC3339Nano), nil
}

func (s *FlowSource) Load(ctx context.Context) (*flow.Document, error) {
	doc, err := s.repo.LoadDocument(ctx, s.name)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("flow %s not found", s.name)
	}
	return doc, nil
}
