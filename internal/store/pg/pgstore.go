package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"sitedesk.org/internal/auth"
	"sitedesk.org/internal/ids"
	"sitedesk.org/internal/registry"
)

// Store implements the review registry and the employee directory on
// PostgreSQL.
type Store struct {
	db *sql.DB
}

var (
	_ registry.Service = (*Store)(nil)
	_ auth.Directory   = (*Store)(nil)
)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// --- employee directory ---

const employeeColumns = `id, full_name, email, role, status, password_hash, created_at`

func (s *Store) FindByUsername(username string) (auth.Employee, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return auth.Employee{}, auth.ErrNotFound
	}
	row := s.db.QueryRowContext(context.Background(), `
		select `+employeeColumns+` from employees where lower(email) = lower($1)
	`, username)
	return scanEmployee(row)
}

func (s *Store) FindByID(id string) (auth.Employee, error) {
	row := s.db.QueryRowContext(context.Background(), `
		select `+employeeColumns+` from employees where id = $1
	`, id)
	return scanEmployee(row)
}

func scanEmployee(row *sql.Row) (auth.Employee, error) {
	var e auth.Employee
	err := row.Scan(&e.ID, &e.FullName, &e.Email, &e.Role, &e.Status, &e.PasswordHash, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Employee{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Employee{}, err
	}
	return e, nil
}

// --- reviews ---

const reviewSelect = `
	select r.id, r.site_id, r.status, r.priority, r.created_at,
	       coalesce(r.assignee_employee_id, ''),
	       s.house_no, s.street, s.nearest_landmark, s.additional_directions,
	       s.pin_lat, s.pin_lng, s.pin_accuracy_m, s.pin_captured_at,
	       coalesce(a.id, 0), coalesce(a.name, ''),
	       coalesce(b.id, 0), coalesce(b.name, '')
	from reviews r
	join sites s on s.id = r.site_id
	left join areas a on a.id = s.area_id
	left join blocks b on b.id = s.block_id`

func (s *Store) PendingReviews(ctx context.Context) ([]registry.Review, error) {
	rows, err := s.db.QueryContext(ctx, reviewSelect+`
		where r.status in ($1, $2)
		order by r.created_at asc
	`, registry.StatusPendingReview, registry.StatusUnderReview)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []registry.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetReview(ctx context.Context, id string) (registry.Review, error) {
	row := s.db.QueryRowContext(ctx, reviewSelect+` where r.id = $1`, id)
	r, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Review{}, registry.ErrReviewNotFound
	}
	if err != nil {
		return registry.Review{}, err
	}

	if r.AssigneeEmployeeID != "" {
		var name string
		err := s.db.QueryRowContext(ctx, `select full_name from employees where id = $1`,
			r.AssigneeEmployeeID).Scan(&name)
		if err == nil {
			r.Assignee = &registry.Assignee{ID: r.AssigneeEmployeeID, FullName: name}
		} else if !errors.Is(err, sql.ErrNoRows) {
			return registry.Review{}, err
		}
	}

	if r.Site.Documents, err = s.siteDocuments(ctx, r.SiteID); err != nil {
		return registry.Review{}, err
	}
	if r.Site.Memberships, err = s.siteMemberships(ctx, r.SiteID); err != nil {
		return registry.Review{}, err
	}
	if r.Site.CreatedBy, err = s.siteCreator(ctx, r.SiteID); err != nil {
		return registry.Review{}, err
	}
	if r.Events, err = s.reviewEvents(ctx, id); err != nil {
		return registry.Review{}, err
	}
	return r, nil
}

func (s *Store) ApplyAction(ctx context.Context, id, action, notes, actorID string) (registry.Review, error) {
	action = strings.TrimSpace(strings.ToLower(action))
	if !registry.KnownAction(action) {
		return registry.Review{}, fmt.Errorf("%w: %q", registry.ErrInvalidAction, action)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return registry.Review{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	var assignee sql.NullString
	err = tx.QueryRowContext(ctx, `
		select status, assignee_employee_id from reviews where id = $1 for update
	`, id).Scan(&status, &assignee)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Review{}, registry.ErrReviewNotFound
	}
	if err != nil {
		return registry.Review{}, err
	}
	if !registry.ValidTransition(action, status) {
		return registry.Review{}, fmt.Errorf("%w: %s from %s", registry.ErrInvalidTransition, action, status)
	}

	target := registry.TargetStatus(action)
	newAssignee := assignee.String
	if actorID != "" && newAssignee == "" {
		newAssignee = actorID
	}
	if _, err := tx.ExecContext(ctx, `
		update reviews set status = $2, assignee_employee_id = nullif($3, '') where id = $1
	`, id, target, newAssignee); err != nil {
		return registry.Review{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		insert into review_events (id, review_id, action, from_status, to_status, note, actor_employee_id, created_at)
		values ($1, $2, $3, $4, $5, $6, nullif($7, ''), $8)
	`, ids.New(), id, action, status, target, notes, actorID, time.Now().UTC()); err != nil {
		return registry.Review{}, err
	}
	if err := tx.Commit(); err != nil {
		return registry.Review{}, err
	}
	return s.GetReview(ctx, id)
}

func (s *Store) UpdateSiteDetails(ctx context.Context, siteID string, upd registry.SiteUpdate) (registry.Site, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return registry.Site{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var currentArea, currentBlock sql.NullInt64
	err = tx.QueryRowContext(ctx, `select area_id, block_id from sites where id = $1 for update`, siteID).
		Scan(&currentArea, &currentBlock)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Site{}, registry.ErrSiteNotFound
	}
	if err != nil {
		return registry.Site{}, err
	}

	targetArea := int(currentArea.Int64)
	if upd.AreaID != nil {
		var exists bool
		if err := tx.QueryRowContext(ctx, `select exists(select 1 from areas where id = $1)`,
			*upd.AreaID).Scan(&exists); err != nil {
			return registry.Site{}, err
		}
		if !exists {
			return registry.Site{}, registry.ErrAreaNotFound
		}
		targetArea = *upd.AreaID
	}
	// Whichever block the site ends up with must belong to whichever area it
	// ends up in.
	effectiveBlock := currentBlock
	if upd.BlockID != nil {
		effectiveBlock = sql.NullInt64{Int64: int64(*upd.BlockID), Valid: true}
	}
	if effectiveBlock.Valid && (upd.AreaID != nil || upd.BlockID != nil) {
		var blockArea int
		err := tx.QueryRowContext(ctx, `select area_id from blocks where id = $1`, effectiveBlock.Int64).
			Scan(&blockArea)
		if errors.Is(err, sql.ErrNoRows) {
			if upd.BlockID != nil {
				return registry.Site{}, registry.ErrBlockNotFound
			}
		} else if err != nil {
			return registry.Site{}, err
		} else if blockArea != targetArea {
			return registry.Site{}, fmt.Errorf("%w: block %d is outside area %d",
				registry.ErrInvalidInput, effectiveBlock.Int64, targetArea)
		}
	}

	sets, args := buildSiteUpdate(upd)
	if len(sets) > 0 {
		args = append(args, siteID)
		query := fmt.Sprintf(`update sites set %s where id = $%d`,
			strings.Join(sets, ", "), len(args))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return registry.Site{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return registry.Site{}, err
	}
	return s.getSite(ctx, siteID)
}

// buildSiteUpdate turns the non-nil patch fields into set clauses with
// positional args.
func buildSiteUpdate(upd registry.SiteUpdate) ([]string, []any) {
	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.HouseNo != nil {
		add("house_no", *upd.HouseNo)
	}
	if upd.Street != nil {
		add("street", *upd.Street)
	}
	if upd.AreaID != nil {
		add("area_id", *upd.AreaID)
	}
	if upd.BlockID != nil {
		add("block_id", *upd.BlockID)
	}
	if upd.NearestLandmark != nil {
		add("nearest_landmark", *upd.NearestLandmark)
	}
	if upd.AdditionalDirections != nil {
		add("additional_directions", *upd.AdditionalDirections)
	}
	if upd.PinLat != nil {
		add("pin_lat", *upd.PinLat)
	}
	if upd.PinLng != nil {
		add("pin_lng", *upd.PinLng)
	}
	if upd.PinAccuracyM != nil {
		add("pin_accuracy_m", *upd.PinAccuracyM)
	}
	return sets, args
}

func (s *Store) Metrics(ctx context.Context) (registry.Metrics, error) {
	var m registry.Metrics
	err := s.db.QueryRowContext(ctx, `
		select
			(select count(*) from reviews where status in ($1, $2)),
			(select count(*) from reviews where status in ($1, $2) and assignee_employee_id is not null),
			(select count(*) from reviews where status = $2),
			(select count(*) from review_events where to_status in ($3, $4) and created_at >= date_trunc('day', now())),
			(select count(distinct user_id) from site_memberships),
			(select count(distinct user_id) from site_memberships where is_active)
	`, registry.StatusPendingReview, registry.StatusUnderReview,
		registry.StatusApproved, registry.StatusRejected).
		Scan(&m.PendingReviews, &m.AssignedReviews, &m.PendingTickets,
			&m.ResolvedToday, &m.TotalUsers, &m.ActiveUsers)
	if err != nil {
		return registry.Metrics{}, err
	}
	return m, nil
}

func (s *Store) RecentActivity(ctx context.Context, limit int) ([]registry.Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		select type, message, site_id, created_at from (
			select 'review_created' as type,
			       'Review opened for ' || s.house_no || ', ' || s.street as message,
			       r.site_id, r.created_at
			from reviews r
			join sites s on s.id = r.site_id
			union all
			select 'review_' || e.action,
			       'Site ' || s.house_no || ', ' || s.street || ' ' || lower(e.to_status),
			       r.site_id, e.created_at
			from review_events e
			join reviews r on r.id = e.review_id
			join sites s on s.id = r.site_id
		) feed
		order by created_at desc
		limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []registry.Activity
	for rows.Next() {
		var a registry.Activity
		if err := rows.Scan(&a.Type, &a.Message, &a.SiteID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- geo ---

func (s *Store) ListAreas(ctx context.Context) ([]registry.Area, error) {
	rows, err := s.db.QueryContext(ctx, `select id, name from areas order by name asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []registry.Area
	for rows.Next() {
		var a registry.Area
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ListBlocksByArea(ctx context.Context, areaID int) ([]registry.Block, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `select exists(select 1 from areas where id = $1)`,
		areaID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, registry.ErrAreaNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		select id, area_id, name from blocks where area_id = $1 order by name asc
	`, areaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []registry.Block
	for rows.Next() {
		var b registry.Block
		if err := rows.Scan(&b.ID, &b.AreaID, &b.Name); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) CreateOrUpdateBlock(ctx context.Context, areaID int, name string) (registry.Block, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return registry.Block{}, fmt.Errorf("%w: block name is required", registry.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return registry.Block{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx, `select exists(select 1 from areas where id = $1)`,
		areaID).Scan(&exists); err != nil {
		return registry.Block{}, err
	}
	if !exists {
		return registry.Block{}, registry.ErrAreaNotFound
	}

	b := registry.Block{AreaID: areaID, Name: name}
	// Match by name case-insensitively so re-submitting "block a" freshens
	// the canonical casing instead of duplicating the row.
	err = tx.QueryRowContext(ctx, `
		update blocks set name = $2 where area_id = $1 and lower(name) = lower($2) returning id
	`, areaID, name).Scan(&b.ID)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.QueryRowContext(ctx, `
			insert into blocks (area_id, name) values ($1, $2) returning id
		`, areaID, name).Scan(&b.ID)
	}
	if err != nil {
		return registry.Block{}, err
	}
	if err := tx.Commit(); err != nil {
		return registry.Block{}, err
	}
	return b, nil
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (registry.Review, error) {
	var r registry.Review
	var pinLat, pinLng, pinAcc sql.NullFloat64
	var pinAt sql.NullTime
	err := row.Scan(&r.ID, &r.SiteID, &r.Status, &r.Priority, &r.CreatedAt,
		&r.AssigneeEmployeeID,
		&r.Site.HouseNo, &r.Site.Street, &r.Site.NearestLandmark, &r.Site.AdditionalDirections,
		&pinLat, &pinLng, &pinAcc, &pinAt,
		&r.Site.Area.ID, &r.Site.Area.Name,
		&r.Site.Block.ID, &r.Site.Block.Name)
	if err != nil {
		return registry.Review{}, err
	}
	r.Site.ID = r.SiteID
	if pinLat.Valid {
		r.Site.PinLat = &pinLat.Float64
	}
	if pinLng.Valid {
		r.Site.PinLng = &pinLng.Float64
	}
	if pinAcc.Valid {
		r.Site.PinAccuracyM = &pinAcc.Float64
	}
	if pinAt.Valid {
		t := pinAt.Time
		r.Site.PinCapturedAt = &t
	}
	return r, nil
}

func (s *Store) getSite(ctx context.Context, siteID string) (registry.Site, error) {
	row := s.db.QueryRowContext(ctx, `
		select s.id, s.house_no, s.street, s.nearest_landmark, s.additional_directions,
		       s.pin_lat, s.pin_lng, s.pin_accuracy_m, s.pin_captured_at,
		       coalesce(a.id, 0), coalesce(a.name, ''),
		       coalesce(b.id, 0), coalesce(b.name, '')
		from sites s
		left join areas a on a.id = s.area_id
		left join blocks b on b.id = s.block_id
		where s.id = $1
	`, siteID)

	var site registry.Site
	var pinLat, pinLng, pinAcc sql.NullFloat64
	var pinAt sql.NullTime
	err := row.Scan(&site.ID, &site.HouseNo, &site.Street, &site.NearestLandmark,
		&site.AdditionalDirections,
		&pinLat, &pinLng, &pinAcc, &pinAt,
		&site.Area.ID, &site.Area.Name,
		&site.Block.ID, &site.Block.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Site{}, registry.ErrSiteNotFound
	}
	if err != nil {
		return registry.Site{}, err
	}
	if pinLat.Valid {
		site.PinLat = &pinLat.Float64
	}
	if pinLng.Valid {
		site.PinLng = &pinLng.Float64
	}
	if pinAcc.Valid {
		site.PinAccuracyM = &pinAcc.Float64
	}
	if pinAt.Valid {
		t := pinAt.Time
		site.PinCapturedAt = &t
	}
	return site, nil
}

func (s *Store) siteDocuments(ctx context.Context, siteID string) ([]registry.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		select d.id, d.doc_type, d.file_uri, d.uploaded_at,
		       coalesce(u.id, ''), coalesce(u.first_name, ''), coalesce(u.last_name, '')
		from site_documents d
		left join users u on u.id = d.uploaded_by
		where d.site_id = $1
		order by d.uploaded_at asc nulls last
	`, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []registry.Document
	for rows.Next() {
		var d registry.Document
		var uploadedAt sql.NullTime
		var uid, first, last string
		if err := rows.Scan(&d.ID, &d.Type, &d.FileURI, &uploadedAt, &uid, &first, &last); err != nil {
			return nil, err
		}
		if uploadedAt.Valid {
			t := uploadedAt.Time
			d.UploadedAt = &t
		}
		if uid != "" {
			d.UploadedBy = &registry.User{ID: uid, FirstName: first, LastName: last}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) siteMemberships(ctx context.Context, siteID string) ([]registry.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		select m.id, m.role, m.is_active,
		       u.id, u.first_name, u.last_name, u.email, u.primary_phone, u.cnic
		from site_memberships m
		join users u on u.id = m.user_id
		where m.site_id = $1
		order by m.id asc
	`, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []registry.Membership
	for rows.Next() {
		var m registry.Membership
		if err := rows.Scan(&m.ID, &m.Role, &m.IsActive,
			&m.User.ID, &m.User.FirstName, &m.User.LastName,
			&m.User.Email, &m.User.PrimaryPhone, &m.User.CNIC); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) siteCreator(ctx context.Context, siteID string) (*registry.User, error) {
	var u registry.User
	err := s.db.QueryRowContext(ctx, `
		select u.id, u.first_name, u.last_name, u.email, u.primary_phone, u.cnic
		from sites s
		join users u on u.id = s.created_by_user_id
		where s.id = $1
	`, siteID).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PrimaryPhone, &u.CNIC)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) reviewEvents(ctx context.Context, reviewID string) ([]registry.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, action, from_status, to_status, note, created_at
		from review_events
		where review_id = $1
		order by created_at asc
	`, reviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []registry.Event
	for rows.Next() {
		var e registry.Event
		if err := rows.Scan(&e.ID, &e.Action, &e.FromStatus, &e.ToStatus, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
