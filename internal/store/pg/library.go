package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"sopline.io/internal/library"
	"sopline.io/internal/ordering"
	"sopline.io/internal/rbac"
	"sopline.io/internal/share"
)

const (
	sectionColumns = `id, organization_id, department_id, title, position, created_at`
	sopColumns     = `id, organization_id, department_id, section_id, title, summary, video_type, video_url, video_id, published, position, created_at, updated_at`
	stepColumns    = `id, sop_id, heading, body, video_seconds, position, created_at`
	commentSelect  = `
		select c.id, c.sop_id, c.parent_id, c.body, c.video_seconds, c.created_at, c.edited_at,
			u.id, u.name, u.email, u.avatar_url
		from comments c
		join users u on u.id = c.author_id`
)

func (s *Store) ListDepartments(ctx context.Context, orgID string) ([]library.Department, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, organization_id, name, created_at
		from departments
		where organization_id = $1
		order by name, id
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []library.Department{}
	for rows.Next() {
		var d library.Department
		if err := rows.Scan(&d.ID, &d.OrganizationID, &d.Name, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) GetDepartment(ctx context.Context, orgID, id string) (library.Department, error) {
	var d library.Department
	err := s.db.QueryRowContext(ctx, `
		select id, organization_id, name, created_at
		from departments
		where organization_id = $1 and id = $2
	`, orgID, id).Scan(&d.ID, &d.OrganizationID, &d.Name, &d.CreatedAt)
	if err != nil {
		return library.Department{}, mapError(err, libraryErrors)
	}
	return d, nil
}

func (s *Store) CreateDepartment(ctx context.Context, d library.Department) (library.Department, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into departments (id, organization_id, name, created_at)
		values ($1, $2, $3, $4)
	`, d.ID, d.OrganizationID, d.Name, d.CreatedAt)
	if err != nil {
		return library.Department{}, mapError(err, libraryErrors)
	}
	return d, nil
}

func (s *Store) RenameDepartment(ctx context.Context, orgID, id, name string) (library.Department, error) {
	var d library.Department
	err := s.db.QueryRowContext(ctx, `
		update departments set name = $3
		where organization_id = $1 and id = $2
		returning id, organization_id, name, created_at
	`, orgID, id, name).Scan(&d.ID, &d.OrganizationID, &d.Name, &d.CreatedAt)
	if err != nil {
		return library.Department{}, mapError(err, libraryErrors)
	}
	return d, nil
}

// DeleteDepartment removes the department with its sections, their share
// links and every membership. It refuses while SOPs remain.
func (s *Store) DeleteDepartment(ctx context.Context, orgID, id string) error {
	err := s.inTx(ctx, nil, func(tx *sql.Tx) error {
		if err := rowExists(ctx, tx, `select 1 from departments where organization_id = $1 and id = $2 for update`, orgID, id); err != nil {
			return err
		}
		var n int
		if err := tx.QueryRowContext(ctx, `select count(*) from sops where department_id = $1`, id).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: department has %d SOPs", library.ErrConflict, n)
		}
		if _, err := tx.ExecContext(ctx, `
			delete from share_links
			where kind = $1 and target_id in (select id from sections where department_id = $2)
		`, string(share.KindSection), id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `delete from departments where id = $1`, id)
		return err
	})
	return mapError(err, libraryErrors)
}

// rowExists returns ErrNotFound unless query yields a row.
func rowExists(ctx context.Context, q querier, query string, args ...any) error {
	var one int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&one); err != nil {
		return mapError(err, libraryErrors)
	}
	return nil
}

func (s *Store) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func (s *Store) CountDepartmentSOPs(ctx context.Context, orgID, departmentID string) (int, error) {
	return s.count(ctx, `select count(*) from sops where organization_id = $1 and department_id = $2`, orgID, departmentID)
}

func scanSection(row scanner) (library.Section, error) {
	var sec library.Section
	err := row.Scan(&sec.ID, &sec.OrganizationID, &sec.DepartmentID, &sec.Title, &sec.Order, &sec.CreatedAt)
	return sec, err
}

func (s *Store) ListSections(ctx context.Context, scope rbac.Scope) ([]library.Section, error) {
	out := []library.Section{}
	where, args, ok := scopeWhere(scope, "organization_id", "department_id", nil)
	if !ok {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+sectionColumns+`
		from sections
		where `+where+`
		order by department_id, position, created_at
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

func (s *Store) GetSection(ctx context.Context, orgID, id string) (library.Section, error) {
	sec, err := scanSection(s.db.QueryRowContext(ctx, `
		select `+sectionColumns+` from sections where organization_id = $1 and id = $2
	`, orgID, id))
	if err != nil {
		return library.Section{}, mapError(err, libraryErrors)
	}
	return sec, nil
}

func (s *Store) CreateSection(ctx context.Context, sec library.Section) (library.Section, error) {
	err := s.inTx(ctx, nil, func(tx *sql.Tx) error {
		if err := rowExists(ctx, tx, `select 1 from departments where organization_id = $1 and id = $2 for update`, sec.OrganizationID, sec.DepartmentID); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, `
			select coalesce(max(position) + 1, $2) from sections where department_id = $1
		`, sec.DepartmentID, ordering.ListBase).Scan(&sec.Order); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			insert into sections (`+sectionColumns+`)
			values ($1, $2, $3, $4, $5, $6)
		`, sec.ID, sec.OrganizationID, sec.DepartmentID, sec.Title, sec.Order, sec.CreatedAt)
		return err
	})
	if err != nil {
		return library.Section{}, mapError(err, libraryErrors)
	}
	return sec, nil
}

func (s *Store) RenameSection(ctx context.Context, orgID, id, title string) (library.Section, error) {
	sec, err := scanSection(s.db.QueryRowContext(ctx, `
		update sections set title = $3
		where organization_id = $1 and id = $2
		returning `+sectionColumns, orgID, id, title))
	if err != nil {
		return library.Section{}, mapError(err, libraryErrors)
	}
	return sec, nil
}

func (s *Store) DeleteSection(ctx context.Context, orgID, id string) error {
	err := s.inTx(ctx, nil, func(tx *sql.Tx) error {
		if err := rowExists(ctx, tx, `select 1 from sections where organization_id = $1 and id = $2 for update`, orgID, id); err != nil {
			return err
		}
		var n int
		if err := tx.QueryRowContext(ctx, `select count(*) from sops where section_id = $1`, id).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: section has %d SOPs", library.ErrConflict, n)
		}
		if _, err := tx.ExecContext(ctx, `delete from share_links where kind = $1 and target_id = $2`, string(share.KindSection), id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `delete from sections where id = $1`, id)
		return err
	})
	return mapError(err, libraryErrors)
}

func (s *Store) CountSectionSOPs(ctx context.Context, orgID, sectionID string) (int, error) {
	return s.count(ctx, `select count(*) from sops where organization_id = $1 and section_id = $2`, orgID, sectionID)
}

// setOrder runs one positional update per item inside a transaction. query
// binds args first, then the item's position and id. Every update must hit
// exactly one row.
func (s *Store) setOrder(ctx context.Context, kind, query string, items []ordering.Item, args ...any) error {
	err := s.inTx(ctx, nil, func(tx *sql.Tx) error {
		for _, it := range items {
			res, err := tx.ExecContext(ctx, query, append(args[:len(args):len(args)], it.Order, it.ID)...)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n != 1 {
				return fmt.Errorf("%w: %s %s", library.ErrNotFound, kind, it.ID)
			}
		}
		return nil
	})
	return mapError(err, libraryErrors)
}

func (s *Store) SetSectionOrder(ctx context.Context, orgID, departmentID string, items []ordering.Item) error {
	return s.setOrder(ctx, "section", `
		update sections set position = $3
		where id = $4 and organization_id = $1 and department_id = $2
	`, items, orgID, departmentID)
}

func scanSOP(row scanner) (library.SOP, error) {
	var (
		sop       library.SOP
		sectionID sql.NullString
		summary   sql.NullString
		videoType string
	)
	err := row.Scan(&sop.ID, &sop.OrganizationID, &sop.DepartmentID, &sectionID, &sop.Title, &summary,
		&videoType, &sop.VideoURL, &sop.VideoID, &sop.Published, &sop.Order, &sop.CreatedAt, &sop.UpdatedAt)
	sop.SectionID = sectionID.String
	sop.Summary = summary.String
	sop.VideoType = library.VideoType(videoType)
	return sop, err
}

// likePattern quotes the LIKE wildcards of text and wraps it in %.
func likePattern(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(text) + "%"
}

func bucketWhere(b library.Bucket, args []any) (string, []any) {
	args = append(args, b.DepartmentID)
	cond := fmt.Sprintf("department_id = $%d", len(args))
	if b.SectionID == "" {
		return cond + " and section_id is null", args
	}
	args = append(args, b.SectionID)
	return cond + fmt.Sprintf(" and section_id = $%d", len(args)), args
}

func (s *Store) ListSOPs(ctx context.Context, q library.SOPQuery) ([]library.SOP, error) {
	out := []library.SOP{}
	where, args, ok := scopeWhere(q.Scope, "organization_id", "department_id", nil)
	if !ok {
		return out, nil
	}
	conds := []string{where}
	if q.Bucket != nil {
		var cond string
		cond, args = bucketWhere(*q.Bucket, args)
		conds = append(conds, cond)
	}
	if q.PublishedOnly {
		conds = append(conds, "published")
	}
	if q.Text != "" {
		args = append(args, likePattern(q.Text))
		conds = append(conds, fmt.Sprintf("(title ilike $%d or coalesce(summary, '') ilike $%d)", len(args), len(args)))
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+sopColumns+`
		from sops
		where `+strings.Join(conds, " and ")+`
		order by position, updated_at desc, id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		sop, err := scanSOP(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sop)
	}
	return out, rows.Err()
}

func (s *Store) GetSOP(ctx context.Context, orgID, id string) (library.SOP, error) {
	sop, err := scanSOP(s.db.QueryRowContext(ctx, `
		select `+sopColumns+` from sops where organization_id = $1 and id = $2
	`, orgID, id))
	if err != nil {
		return library.SOP{}, mapError(err, libraryErrors)
	}
	return sop, nil
}

// checkBucket verifies the department belongs to orgID and the optional
// section belongs to the department.
func checkBucket(ctx context.Context, tx *sql.Tx, orgID string, b library.Bucket) error {
	if err := rowExists(ctx, tx, `select 1 from departments where organization_id = $1 and id = $2`, orgID, b.DepartmentID); err != nil {
		return err
	}
	if b.SectionID == "" {
		return nil
	}
	return rowExists(ctx, tx, `select 1 from sections where department_id = $1 and id = $2`, b.DepartmentID, b.SectionID)
}

func nextSOPPosition(ctx context.Context, tx *sql.Tx, b library.Bucket, skip string) (int, error) {
	where, args := bucketWhere(b, []any{skip})
	var next int
	err := tx.QueryRowContext(ctx, fmt.Sprintf(`
		select coalesce(max(position) + 1, %d) from sops where id <> $1 and %s
	`, ordering.ListBase, where), args...).Scan(&next)
	return next, err
}

func (s *Store) CreateSOP(ctx context.Context, sop library.SOP) (library.SOP, error) {
	b := library.Bucket{DepartmentID: sop.DepartmentID, SectionID: sop.SectionID}
	err := s.inTx(ctx, nil, func(tx *sql.Tx) error {
		if err := checkBucket(ctx, tx, sop.OrganizationID, b); err != nil {
			return err
		}
		pos, err := nextSOPPosition(ctx, tx, b, sop.ID)
		if err != nil {
			return err
		}
		sop.Order = pos
		_, err = tx.ExecContext(ctx, `
			insert into sops (`+sopColumns+`)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, sop.ID, sop.OrganizationID, sop.DepartmentID, nullIfEmpty(sop.SectionID), sop.Title, nullIfEmpty(sop.Summary),
			string(sop.VideoType), sop.VideoURL, sop.VideoID, sop.Published, sop.Order, sop.CreatedAt, sop.UpdatedAt)
		return err
	})
	if err != nil {
		return library.SOP{}, mapError(err, libraryErrors)
	}
	return sop, nil
}

// UpdateSOP applies upd. An SOP that changes bucket is appended to the new one.
func (s *Store) UpdateSOP(ctx context.Context, orgID, id string, upd library.SOPUpdate) (library.SOP, error) {
	var sop library.SOP
	err := s.inTx(ctx, nil, func(tx *sql.Tx) error {
		cur, err := scanSOP(tx.QueryRowContext(ctx, `
			select `+sopColumns+` from sops where organization_id = $1 and id = $2 for update
		`, orgID, id))
		if err != nil {
			return err
		}
		sop = cur
		prev := library.Bucket{DepartmentID: sop.DepartmentID, SectionID: sop.SectionID}
		if upd.Title != nil {
			sop.Title = *upd.Title
		}
		if upd.Summary != nil {
			sop.Summary = *upd.Summary
		}
		if upd.DepartmentID != nil {
			sop.DepartmentID = *upd.DepartmentID
		}
		if upd.SectionID != nil {
			sop.SectionID = *upd.SectionID
		}
		if upd.VideoType != nil {
			sop.VideoType = *upd.VideoType
		}
		if upd.VideoURL != nil {
			sop.VideoURL = *upd.VideoURL
		}
		if upd.VideoID != nil {
			sop.VideoID = *upd.VideoID
		}
		if upd.Published != nil {
			sop.Published = *upd.Published
		}
		next := library.Bucket{DepartmentID: sop.DepartmentID, SectionID: sop.SectionID}
		if next != prev {
			if err := checkBucket(ctx, tx, orgID, next); err != nil {
				return err
			}
			if sop.Order, err = nextSOPPosition(ctx, tx, next, sop.ID); err != nil {
				return err
			}
		}
		sop.UpdatedAt = s.stamp()
		_, err = tx.ExecContext(ctx, `
			update sops set department_id = $2, section_id = $3, title = $4, summary = $5, video_type = $6,
				video_url = $7, video_id = $8, published = $9, position = $10, updated_at = $11
			where id = $1
		`, sop.ID, sop.DepartmentID, nullIfEmpty(sop.SectionID), sop.Title, nullIfEmpty(sop.Summary), string(sop.VideoType),
			sop.VideoURL, sop.VideoID, sop.Published, sop.Order, sop.UpdatedAt)
		return err
	})
	if err != nil {
		return library.SOP{}, mapError(err, libraryErrors)
	}
	return sop, nil
}

// DeleteSOP removes the SOP and its share link; steps and comments cascade.
func (s *Store) DeleteSOP(ctx context.Context, orgID, id string) error {
	err := s.inTx(ctx, nil, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `delete from sops where organization_id = $1 and id = $2`, orgID, id)
		if err := affectedOne(res, err, libraryErrors); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `delete from share_links where kind = $1 and target_id = $2`, string(share.KindSOP), id)
		return err
	})
	return mapError(err, libraryErrors)
}

func (s *Store) SetSOPOrder(ctx context.Context, orgID string, bucket library.Bucket, items []ordering.Item) error {
	where, args := bucketWhere(bucket, []any{orgID})
	n := len(args)
	return s.setOrder(ctx, "sop", fmt.Sprintf(`
		update sops set position = $%d
		where id = $%d and organization_id = $1 and %s
	`, n+1, n+2, where), items, args...)
}

func scanStep(row scanner) (library.Step, error) {
	var (
		st   library.Step
		body sql.NullString
	)
	err := row.Scan(&st.ID, &st.SOPID, &st.Heading, &body, &st.Timestamp, &st.Order, &st.CreatedAt)
	st.Body = body.String
	return st, err
}

func (s *Store) ListSteps(ctx context.Context, sopID string) ([]library.Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+stepColumns+` from steps where sop_id = $1 order by position, id
	`, sopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []library.Step{}
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) GetStep(ctx context.Context, orgID, id string) (library.Step, error) {
	st, err := scanStep(s.db.QueryRowContext(ctx, `
		select st.id, st.sop_id, st.heading, st.body, st.video_seconds, st.position, st.created_at
		from steps st
		join sops so on so.id = st.sop_id
		where so.organization_id = $1 and st.id = $2
	`, orgID, id))
	if err != nil {
		return library.Step{}, mapError(err, libraryErrors)
	}
	return st, nil
}

// AppendStep reads the last position and inserts in one serializable
// transaction. A concurrent append surfaces as library.ErrRetryable, either
// as a serialization failure or through the deferred (sop_id, position)
// unique constraint at commit.
func (s *Store) AppendStep(ctx context.Context, st library.Step) (library.Step, error) {
	err := s.inTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(tx *sql.Tx) error {
		if err := rowExists(ctx, tx, `select 1 from sops where id = $1`, st.SOPID); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, `
			select coalesce(max(position) + 1, $2) from steps where sop_id = $1
		`, st.SOPID, ordering.StepBase).Scan(&st.Order); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			insert into steps (`+stepColumns+`)
			values ($1, $2, $3, $4, $5, $6, $7)
		`, st.ID, st.SOPID, st.Heading, nullIfEmpty(st.Body), st.Timestamp, st.Order, st.CreatedAt)
		return err
	})
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation && pgErr.ConstraintName == "steps_position_key" {
		return library.Step{}, library.ErrRetryable
	}
	if err != nil {
		return library.Step{}, mapError(err, libraryErrors)
	}
	return st, nil
}

func (s *Store) UpdateStep(ctx context.Context, id string, upd library.StepUpdate) (library.Step, error) {
	sets := []string{}
	args := []any{id}
	if upd.Heading != nil {
		args = append(args, *upd.Heading)
		sets = append(sets, fmt.Sprintf("heading = $%d", len(args)))
	}
	if upd.Body != nil {
		args = append(args, nullIfEmpty(*upd.Body))
		sets = append(sets, fmt.Sprintf("body = $%d", len(args)))
	}
	if upd.Timestamp != nil {
		args = append(args, *upd.Timestamp)
		sets = append(sets, fmt.Sprintf("video_seconds = $%d", len(args)))
	}
	if len(sets) == 0 {
		st, err := scanStep(s.db.QueryRowContext(ctx, `select `+stepColumns+` from steps where id = $1`, id))
		return st, mapError(err, libraryErrors)
	}
	st, err := scanStep(s.db.QueryRowContext(ctx, `
		update steps set `+strings.Join(sets, ", ")+`
		where id = $1
		returning `+stepColumns, args...))
	if err != nil {
		return library.Step{}, mapError(err, libraryErrors)
	}
	return st, nil
}

func (s *Store) DeleteStep(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from steps where id = $1`, id)
	return affectedOne(res, err, libraryErrors)
}

func (s *Store) SetStepOrder(ctx context.Context, sopID string, items []ordering.Item) error {
	return s.setOrder(ctx, "step", `
		update steps set position = $2 where id = $3 and sop_id = $1
	`, items, sopID)
}

func scanComment(row scanner) (library.Comment, error) {
	var (
		c        library.Comment
		parentID sql.NullString
		seconds  sql.NullInt64
		editedAt sql.NullTime
		avatar   sql.NullString
	)
	err := row.Scan(&c.ID, &c.SOPID, &parentID, &c.Body, &seconds, &c.CreatedAt, &editedAt,
		&c.Author.ID, &c.Author.Name, &c.Author.Email, &avatar)
	if err != nil {
		return library.Comment{}, err
	}
	c.ParentID = parentID.String
	c.Author.AvatarURL = avatar.String
	if seconds.Valid {
		v := int(seconds.Int64)
		c.Timestamp = &v
	}
	if editedAt.Valid {
		t := editedAt.Time
		c.EditedAt = &t
	}
	return c, nil
}

func (s *Store) ListComments(ctx context.Context, sopID string) ([]library.Comment, error) {
	rows, err := s.db.QueryContext(ctx, commentSelect+`
		where c.sop_id = $1
		order by c.created_at, c.id
	`, sopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []library.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetComment(ctx context.Context, sopID, id string) (library.Comment, error) {
	c, err := scanComment(s.db.QueryRowContext(ctx, commentSelect+`
		where c.sop_id = $1 and c.id = $2
	`, sopID, id))
	if err != nil {
		return library.Comment{}, mapError(err, libraryErrors)
	}
	return c, nil
}

func (s *Store) CreateComment(ctx context.Context, c library.Comment) (library.Comment, error) {
	var seconds sql.NullInt64
	if c.Timestamp != nil {
		seconds = sql.NullInt64{Int64: int64(*c.Timestamp), Valid: true}
	}
	err := s.inTx(ctx, nil, func(tx *sql.Tx) error {
		if c.ParentID != "" {
			if err := rowExists(ctx, tx, `select 1 from comments where sop_id = $1 and id = $2`, c.SOPID, c.ParentID); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			insert into comments (id, sop_id, parent_id, author_id, body, video_seconds, created_at)
			values ($1, $2, $3, $4, $5, $6, $7)
		`, c.ID, c.SOPID, nullIfEmpty(c.ParentID), c.Author.ID, c.Body, seconds, c.CreatedAt)
		return err
	})
	if err != nil {
		return library.Comment{}, mapError(err, libraryErrors)
	}
	return s.GetComment(ctx, c.SOPID, c.ID)
}

func (s *Store) UpdateComment(ctx context.Context, sopID, id, body string, editedAt time.Time) (library.Comment, error) {
	res, err := s.db.ExecContext(ctx, `
		update comments set body = $3, edited_at = $4 where sop_id = $1 and id = $2
	`, sopID, id, body, editedAt)
	if err := affectedOne(res, err, libraryErrors); err != nil {
		return library.Comment{}, err
	}
	return s.GetComment(ctx, sopID, id)
}

// DeleteComment relies on the parent_id cascade to remove replies.
func (s *Store) DeleteComment(ctx context.Context, sopID, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from comments where sop_id = $1 and id = $2`, sopID, id)
	return affectedOne(res, err, libraryErrors)
}
