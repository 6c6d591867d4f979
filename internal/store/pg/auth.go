package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"sopline.io/internal/auth"
	"sopline.io/internal/rbac"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, organization_id, name, email, avatar_url, role, password_hash, created_at, updated_at`

func scanUser(row scanner) (auth.User, error) {
	var (
		u      auth.User
		avatar sql.NullString
		role   string
	)
	if err := row.Scan(&u.ID, &u.OrganizationID, &u.Name, &u.Email, &avatar, &role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return auth.User{}, err
	}
	u.AvatarURL = avatar.String
	u.Role = rbac.Role(role)
	u.DepartmentIDs = []string{}
	return u, nil
}

// withDepartments loads the memberships of users in one query.
func withDepartments(ctx context.Context, q querier, users []auth.User) error {
	if len(users) == 0 {
		return nil
	}
	args := make([]any, len(users))
	index := make(map[string]int, len(users))
	for i, u := range users {
		args[i] = u.ID
		index[u.ID] = i
	}
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`
		select user_id, department_id
		from user_departments
		where user_id in (%s)
		order by user_id, department_id
	`, placeholders(1, len(args))), args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var userID, deptID string
		if err := rows.Scan(&userID, &deptID); err != nil {
			return err
		}
		if i, ok := index[userID]; ok {
			users[i].DepartmentIDs = append(users[i].DepartmentIDs, deptID)
		}
	}
	return rows.Err()
}

func (s *Store) oneUser(ctx context.Context, where string, args ...any) (auth.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where `+where, args...))
	if err != nil {
		return auth.User{}, mapError(err, authErrors)
	}
	users := []auth.User{u}
	if err := withDepartments(ctx, s.db, users); err != nil {
		return auth.User{}, err
	}
	return users[0], nil
}

func insertUser(ctx context.Context, tx *sql.Tx, u auth.User) error {
	if _, err := tx.ExecContext(ctx, `
		insert into users (`+userColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, u.ID, u.OrganizationID, u.Name, u.Email, nullIfEmpty(u.AvatarURL), string(u.Role), u.PasswordHash, u.CreatedAt, u.UpdatedAt); err != nil {
		return err
	}
	return setMemberships(ctx, tx, u.ID, u.DepartmentIDs)
}

func setMemberships(ctx context.Context, tx *sql.Tx, userID string, deptIDs []string) error {
	if _, err := tx.ExecContext(ctx, `delete from user_departments where user_id = $1`, userID); err != nil {
		return err
	}
	for _, id := range deptIDs {
		if _, err := tx.ExecContext(ctx, `
			insert into user_departments (user_id, department_id) values ($1, $2)
			on conflict do nothing
		`, userID, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Register(ctx context.Context, reg auth.Registration) error {
	org := reg.Organization
	err := s.inTx(ctx, nil, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			insert into organizations (id, name, slug, created_at, updated_at)
			values ($1, $2, $3, $4, $5)
		`, org.ID, org.Name, org.Slug, org.CreatedAt, org.UpdatedAt); err != nil {
			return err
		}
		for _, d := range reg.Departments {
			if _, err := tx.ExecContext(ctx, `
				insert into departments (id, organization_id, name, created_at)
				values ($1, $2, $3, $4)
			`, d.ID, org.ID, d.Name, org.CreatedAt); err != nil {
				return err
			}
		}
		return insertUser(ctx, tx, reg.Owner)
	})
	return mapError(err, authErrors)
}

func (s *Store) OrganizationExists(ctx context.Context, name, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists (select 1 from organizations where lower(name) = lower($1) or slug = $2)
	`, name, slug).Scan(&exists)
	return exists, err
}

func (s *Store) GetOrganization(ctx context.Context, id string) (auth.Organization, error) {
	var org auth.Organization
	err := s.db.QueryRowContext(ctx, `
		select id, name, slug, created_at, updated_at
		from organizations
		where id = $1
	`, id).Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return auth.Organization{}, mapError(err, authErrors)
	}
	return org, nil
}

func (s *Store) RenameOrganization(ctx context.Context, id, name string) (auth.Organization, error) {
	var org auth.Organization
	err := s.db.QueryRowContext(ctx, `
		update organizations set name = $2, updated_at = $3
		where id = $1
		returning id, name, slug, created_at, updated_at
	`, id, name, s.stamp()).Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return auth.Organization{}, mapError(err, authErrors)
	}
	return org, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (auth.User, error) {
	return s.oneUser(ctx, `id = $1`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (auth.User, error) {
	return s.oneUser(ctx, `lower(email) = lower($1)`, email)
}

func (s *Store) GetOrgUser(ctx context.Context, orgID, id string) (auth.User, error) {
	return s.oneUser(ctx, `organization_id = $1 and id = $2`, orgID, id)
}

func (s *Store) ListUsers(ctx context.Context, orgID string) ([]auth.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+userColumns+`
		from users
		where organization_id = $1
		order by created_at, id
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []auth.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := withDepartments(ctx, s.db, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) CreateUser(ctx context.Context, u auth.User) (auth.User, error) {
	err := s.inTx(ctx, nil, func(tx *sql.Tx) error {
		return insertUser(ctx, tx, u)
	})
	if err != nil {
		return auth.User{}, mapError(err, authErrors)
	}
	if u.DepartmentIDs == nil {
		u.DepartmentIDs = []string{}
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, orgID, id string, upd auth.UserUpdate) (auth.User, error) {
	sets := []string{"updated_at = $3"}
	args := []any{orgID, id, s.stamp()}
	if upd.Name != nil {
		args = append(args, *upd.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if upd.AvatarURL != nil {
		args = append(args, nullIfEmpty(*upd.AvatarURL))
		sets = append(sets, fmt.Sprintf("avatar_url = $%d", len(args)))
	}
	if upd.Role != nil {
		args = append(args, string(*upd.Role))
		sets = append(sets, fmt.Sprintf("role = $%d", len(args)))
	}
	err := s.inTx(ctx, nil, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `update users set `+strings.Join(sets, ", ")+` where organization_id = $1 and id = $2`, args...)
		if err := affectedOne(res, err, authErrors); err != nil {
			return err
		}
		if upd.DepartmentIDs != nil {
			return setMemberships(ctx, tx, id, *upd.DepartmentIDs)
		}
		return nil
	})
	if err != nil {
		return auth.User{}, mapError(err, authErrors)
	}
	return s.GetOrgUser(ctx, orgID, id)
}

// DeleteUser relies on cascades for memberships, comments with their
// replies, boards and reset tokens.
func (s *Store) DeleteUser(ctx context.Context, orgID, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where organization_id = $1 and id = $2`, orgID, id)
	return affectedOne(res, err, authErrors)
}

func (s *Store) CountDepartments(ctx context.Context, orgID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{orgID}
	for _, id := range ids {
		args = append(args, id)
	}
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		select count(*) from departments where organization_id = $1 and id in (%s)
	`, placeholders(2, len(ids))), args...).Scan(&n)
	return n, err
}

func (s *Store) ReplacePasswordReset(ctx context.Context, r auth.PasswordReset) error {
	err := s.inTx(ctx, nil, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `delete from password_resets where user_id = $1`, r.UserID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			insert into password_resets (id, user_id, token_hash, expires_at, created_at)
			values ($1, $2, $3, $4, $5)
		`, r.ID, r.UserID, r.TokenHash, r.ExpiresAt, r.CreatedAt)
		return err
	})
	return mapError(err, authErrors)
}

func (s *Store) ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time, passwordHash string) error {
	err := s.inTx(ctx, nil, func(tx *sql.Tx) error {
		var userID string
		if err := tx.QueryRowContext(ctx, `
			update password_resets set used_at = $2
			where token_hash = $1 and used_at is null and expires_at > $2
			returning user_id
		`, tokenHash, now).Scan(&userID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `update users set password_hash = $2, updated_at = $3 where id = $1`, userID, passwordHash, now)
		return affectedOne(res, err, authErrors)
	})
	return mapError(err, authErrors)
}
