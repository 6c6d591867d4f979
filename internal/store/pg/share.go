package pg

import (
	"context"
	"database/sql"

	"sopline.io/internal/share"
)

const linkColumns = `id, organization_id, kind, target_id, token, enabled, password_hash, created_at, updated_at`

func scanLink(row scanner) (share.Link, error) {
	var (
		l    share.Link
		kind string
		hash sql.NullString
	)
	if err := row.Scan(&l.ID, &l.OrganizationID, &kind, &l.TargetID, &l.Token, &l.Enabled, &hash, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return share.Link{}, mapError(err, shareErrors)
	}
	l.Kind = share.Kind(kind)
	l.PasswordHash = hash.String
	return l, nil
}

func (s *Store) GetLink(ctx context.Context, kind share.Kind, targetID string) (share.Link, error) {
	return scanLink(s.db.QueryRowContext(ctx, `
		select `+linkColumns+` from share_links where kind = $1 and target_id = $2
	`, string(kind), targetID))
}

func (s *Store) GetLinkByToken(ctx context.Context, kind share.Kind, token string) (share.Link, error) {
	return scanLink(s.db.QueryRowContext(ctx, `
		select `+linkColumns+` from share_links where kind = $1 and token = $2
	`, string(kind), token))
}

// CreateLink maps both the per-target and the token unique constraint to
// share.ErrConflict.
func (s *Store) CreateLink(ctx context.Context, l share.Link) (share.Link, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into share_links (`+linkColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, l.ID, l.OrganizationID, string(l.Kind), l.TargetID, l.Token, l.Enabled, nullIfEmpty(l.PasswordHash), l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return share.Link{}, mapError(err, shareErrors)
	}
	return l, nil
}

func (s *Store) UpdateLink(ctx context.Context, id string, enabled bool, passwordHash string) (share.Link, error) {
	return scanLink(s.db.QueryRowContext(ctx, `
		update share_links set enabled = $2, password_hash = $3, updated_at = $4
		where id = $1
		returning `+linkColumns, id, enabled, nullIfEmpty(passwordHash), s.stamp()))
}

func (s *Store) SetLinkToken(ctx context.Context, id, token string) (share.Link, error) {
	return scanLink(s.db.QueryRowContext(ctx, `
		update share_links set token = $2, updated_at = $3
		where id = $1
		returning `+linkColumns, id, token, s.stamp()))
}
