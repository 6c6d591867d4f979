package pg

import (
	"context"
	"encoding/json"
	"time"

	"sopline.io/internal/flow"
)

// sceneArg binds a scene field: nil keeps the column (coalesce with the
// current value), a JSON null clears it.
func sceneArg(raw json.RawMessage) (value any, keep bool) {
	switch {
	case raw == nil:
		return nil, true
	case flow.IsNull(raw):
		return nil, false
	default:
		return []byte(raw), false
	}
}

func (s *Store) ListBoards(ctx context.Context, orgID, ownerID string) ([]flow.Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, organization_id, owner_id, name, created_at, updated_at
		from flow_boards
		where organization_id = $1 and owner_id = $2
		order by updated_at desc, id desc
	`, orgID, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []flow.Board{}
	for rows.Next() {
		var b flow.Board
		if err := rows.Scan(&b.ID, &b.OrganizationID, &b.OwnerID, &b.Name, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) CreateBoard(ctx context.Context, b flow.Board) (flow.Board, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into flow_boards (id, organization_id, owner_id, name, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6)
	`, b.ID, b.OrganizationID, b.OwnerID, b.Name, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return flow.Board{}, mapError(err, flowErrors)
	}
	return b, nil
}

func (s *Store) GetBoard(ctx context.Context, orgID, ownerID, id string) (flow.Board, error) {
	var (
		b                         flow.Board
		elements, appState, files []byte
	)
	err := s.db.QueryRowContext(ctx, `
		select id, organization_id, owner_id, name, elements, app_state, files, created_at, updated_at
		from flow_boards
		where organization_id = $1 and owner_id = $2 and id = $3
	`, orgID, ownerID, id).Scan(&b.ID, &b.OrganizationID, &b.OwnerID, &b.Name, &elements, &appState, &files, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return flow.Board{}, mapError(err, flowErrors)
	}
	if elements != nil {
		b.Elements = json.RawMessage(elements)
	}
	if appState != nil {
		b.AppState = json.RawMessage(appState)
	}
	if files != nil {
		b.Files = json.RawMessage(files)
	}
	return b, nil
}

func (s *Store) SaveScene(ctx context.Context, orgID, ownerID, id string, scene flow.Scene, at time.Time) error {
	elements, keepElements := sceneArg(scene.Elements)
	appState, keepAppState := sceneArg(scene.AppState)
	files, keepFiles := sceneArg(scene.Files)
	res, err := s.db.ExecContext(ctx, `
		update flow_boards set
			elements = case when $4 then elements else $5::jsonb end,
			app_state = case when $6 then app_state else $7::jsonb end,
			files = case when $8 then files else $9::jsonb end,
			updated_at = $10
		where organization_id = $1 and owner_id = $2 and id = $3
	`, orgID, ownerID, id, keepElements, elements, keepAppState, appState, keepFiles, files, at)
	return affectedOne(res, err, flowErrors)
}

func (s *Store) RenameBoard(ctx context.Context, orgID, ownerID, id, name string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update flow_boards set name = $4, updated_at = $5
		where organization_id = $1 and owner_id = $2 and id = $3
	`, orgID, ownerID, id, name, at)
	return affectedOne(res, err, flowErrors)
}

func (s *Store) DeleteBoard(ctx context.Context, orgID, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from flow_boards where organization_id = $1 and owner_id = $2 and id = $3
	`, orgID, ownerID, id)
	return affectedOne(res, err, flowErrors)
}
