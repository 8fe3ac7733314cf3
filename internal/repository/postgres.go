package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coastwatch-systems/coastwatch/internal/models"
)

const reportColumns = `
	r.id, r.user_id, r.event_type, r.description,
	ST_X(r.geom) AS longitude, ST_Y(r.geom) AS latitude,
	r.location_name, r.media_urls, r.verified, r.verified_by, r.verified_at,
	r.timestamp, r.created_at, r.updated_at`

// PostgresRepository stores reports and users in Postgres with PostGIS
// geometry for report positions.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// Ping checks database connectivity, for health reporting.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) CreateReport(ctx context.Context, report *models.Report) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO reports (id, user_id, event_type, description, geom, location_name, media_urls, timestamp)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326), $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		report.ID,
		report.UserID,
		string(report.EventType),
		report.Description,
		report.Longitude,
		report.Latitude,
		nullIfEmpty(report.LocationName),
		report.MediaURLs,
		report.Timestamp,
	).Scan(&report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetReportByID(ctx context.Context, id string) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT ` + reportColumns + `, u.name AS reporter_name
		FROM reports r
		JOIN users u ON r.user_id = u.id
		WHERE r.id = $1`

	report, err := scanReport(r.pool.QueryRow(ctx, query, id), true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

func (r *PostgresRepository) ListReports(ctx context.Context, filters models.ReportFilters) ([]*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `
		SELECT ` + reportColumns + `, u.name AS reporter_name
		FROM reports r
		JOIN users u ON r.user_id = u.id
		WHERE 1=1`
	var args []any

	if filters.BBox != nil {
		b := filters.BBox
		query += fmt.Sprintf(" AND ST_Within(r.geom, ST_MakeEnvelope($%d, $%d, $%d, $%d, 4326))",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4)
		args = append(args, b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
	}
	if filters.EventType != "" {
		query += fmt.Sprintf(" AND r.event_type = $%d", len(args)+1)
		args = append(args, string(filters.EventType))
	}
	if filters.Verified != nil {
		query += fmt.Sprintf(" AND r.verified = $%d", len(args)+1)
		args = append(args, *filters.Verified)
	}
	if filters.StartDate != nil {
		query += fmt.Sprintf(" AND r.timestamp >= $%d", len(args)+1)
		args = append(args, *filters.StartDate)
	}
	if filters.EndDate != nil {
		query += fmt.Sprintf(" AND r.timestamp <= $%d", len(args)+1)
		args = append(args, *filters.EndDate)
	}

	query += " ORDER BY r.timestamp DESC, r.id"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, filters.Limit)
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, filters.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	return collectReports(rows, true)
}

func (r *PostgresRepository) ListReportsByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `
		SELECT ` + reportColumns + `
		FROM reports r
		WHERE r.user_id = $1
		ORDER BY r.timestamp DESC, r.id
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list user reports: %w", err)
	}
	defer rows.Close()

	return collectReports(rows, false)
}

func (r *PostgresRepository) VerifyReport(ctx context.Context, id, verifierID string) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// verified_by/verified_at are immutable once set; the verified = false
	// guard makes the immutability check race-free.
	query := `
		UPDATE reports r
		SET verified = true, verified_by = $1, verified_at = NOW(), updated_at = NOW()
		WHERE r.id = $2 AND r.verified = false
		RETURNING ` + reportColumns

	report, err := scanReport(r.pool.QueryRow(ctx, query, verifierID, id), false)
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to verify report: %w", err)
	}

	// Distinguish missing from already verified.
	var verified bool
	err = r.pool.QueryRow(ctx, `SELECT verified FROM reports WHERE id = $1`, id).Scan(&verified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to verify report: %w", err)
	}
	return nil, ErrAlreadyVerified
}

func (r *PostgresRepository) DeleteReport(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (r *PostgresRepository) CountReports(ctx context.Context, pred models.ReportPredicate) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `SELECT COUNT(*) FROM reports WHERE 1=1`
	var args []any

	if pred.Verified != nil {
		query += fmt.Sprintf(" AND verified = $%d", len(args)+1)
		args = append(args, *pred.Verified)
	}
	if pred.ObservedSince != nil {
		query += fmt.Sprintf(" AND timestamp >= $%d", len(args)+1)
		args = append(args, *pred.ObservedSince)
	}
	if pred.ObservedBefore != nil {
		query += fmt.Sprintf(" AND timestamp < $%d", len(args)+1)
		args = append(args, *pred.ObservedBefore)
	}

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) CountReportsByType(ctx context.Context) (map[models.EventType]int, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT event_type, COUNT(*) FROM reports GROUP BY event_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to count reports by type: %w", err)
	}
	defer rows.Close()

	out := make(map[models.EventType]int)
	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, fmt.Errorf("failed to scan type count: %w", err)
		}
		out[models.EventType(typ)] = count
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ReportPositions(ctx context.Context, since time.Time) ([]models.ReportPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `
		SELECT id, event_type, ST_X(geom), ST_Y(geom)
		FROM reports
		WHERE timestamp >= $1`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load report positions: %w", err)
	}
	defer rows.Close()

	var out []models.ReportPoint
	for rows.Next() {
		var p models.ReportPoint
		var typ string
		if err := rows.Scan(&p.ID, &typ, &p.Longitude, &p.Latitude); err != nil {
			return nil, fmt.Errorf("failed to scan report position: %w", err)
		}
		p.EventType = models.EventType(typ)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ReportTimeSeries(ctx context.Context, since time.Time) ([]models.TimeSeriesBucket, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `
		SELECT DATE(timestamp), event_type, COUNT(*)
		FROM reports
		WHERE timestamp >= $1
		GROUP BY DATE(timestamp), event_type
		ORDER BY DATE(timestamp), event_type`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load report time series: %w", err)
	}
	defer rows.Close()

	var out []models.TimeSeriesBucket
	for rows.Next() {
		var b models.TimeSeriesBucket
		var typ string
		if err := rows.Scan(&b.Date, &typ, &b.Count); err != nil {
			return nil, fmt.Errorf("failed to scan time series bucket: %w", err)
		}
		b.EventType = models.EventType(typ)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO users (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, string(user.Role),
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, `WHERE id = $1`, id)
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, `WHERE email = $1`, email)
}

func (r *PostgresRepository) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT id, name, email, password_hash, role, created_at, updated_at FROM users ` + where

	var user models.User
	var role string
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &role,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Role = models.Role(role)
	return &user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner, withReporter bool) (*models.Report, error) {
	var report models.Report
	var typ string
	var locationName *string

	dest := []any{
		&report.ID, &report.UserID, &typ, &report.Description,
		&report.Longitude, &report.Latitude,
		&locationName, &report.MediaURLs, &report.Verified,
		&report.VerifiedBy, &report.VerifiedAt,
		&report.Timestamp, &report.CreatedAt, &report.UpdatedAt,
	}
	if withReporter {
		dest = append(dest, &report.ReporterName)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	report.EventType = models.EventType(typ)
	if locationName != nil {
		report.LocationName = *locationName
	}
	if report.MediaURLs == nil {
		report.MediaURLs = []string{}
	}
	return &report, nil
}

func collectReports(rows pgx.Rows, withReporter bool) ([]*models.Report, error) {
	var out []*models.Report
	for rows.Next() {
		report, err := scanReport(rows, withReporter)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
