package mediastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the sqlite-backed Store implementation, grounded on the
// teacher's internal/library.Store (WAL-mode DSN, inline migration schema,
// upsert-within-transaction pattern).
type SQLiteStore struct {
	db *sql.DB

	// claimMu serializes ClaimPending against itself: the sanctioned
	// process-wide-mutex fallback per §4.1 ("an application-level mutex"),
	// since modernc.org/sqlite's single-writer model makes row-level
	// locking primitives like SELECT ... FOR UPDATE SKIP LOCKED unavailable.
	claimMu sync.Mutex
}

// NewSQLiteStore opens (creating if absent) a WAL-mode sqlite database at
// path and ensures the schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: single writer, avoid SQLITE_BUSY storms

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS media_files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	inode INTEGER NOT NULL,
	device_id INTEGER NOT NULL,
	original_filepath TEXT NOT NULL,
	original_filename TEXT NOT NULL,
	file_size INTEGER NOT NULL,
	status TEXT NOT NULL,
	llm_guess TEXT,
	tmdb_id INTEGER,
	media_type TEXT,
	processed_data TEXT,
	new_filepath TEXT,
	error_message TEXT,
	retry_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE(inode, device_id)
);
CREATE INDEX IF NOT EXISTS idx_media_files_status ON media_files(status);
CREATE INDEX IF NOT EXISTS idx_media_files_filename_lower ON media_files(original_filename COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS config_items (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	description TEXT,
	updated_at TIMESTAMP NOT NULL
);
`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Insert(ctx context.Context, m *MediaFile) error {
	now := time.Now().UTC()
	m.Status = StatusPending
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO media_files (inode, device_id, original_filepath, original_filename, file_size, status, retry_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		m.Inode, m.DeviceID, m.OriginalFilepath, m.OriginalFilename, m.FileSize, m.Status, now, now)
	if err != nil {
		return fmt.Errorf("insert media file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = id
	m.CreatedAt = now
	m.UpdatedAt = now
	return nil
}

const mediaFileColumns = `id, inode, device_id, original_filepath, original_filename, file_size, status, llm_guess, tmdb_id, media_type, processed_data, new_filepath, error_message, retry_count, created_at, updated_at`

func scanMediaFile(row interface{ Scan(...any) error }) (*MediaFile, error) {
	m := &MediaFile{}
	if err := row.Scan(&m.ID, &m.Inode, &m.DeviceID, &m.OriginalFilepath, &m.OriginalFilename, &m.FileSize,
		&m.Status, &m.LLMGuess, &m.TMDBID, &m.MediaType, &m.ProcessedData, &m.NewFilepath, &m.ErrorMessage,
		&m.RetryCount, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (*MediaFile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mediaFileColumns+` FROM media_files WHERE id = ?`, id)
	m, err := scanMediaFile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media file by id: %w", err)
	}
	return m, nil
}

func (s *SQLiteStore) GetByInodeDevice(ctx context.Context, inode, device uint64) (*MediaFile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mediaFileColumns+` FROM media_files WHERE inode = ? AND device_id = ?`, inode, device)
	m, err := scanMediaFile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media file by inode/device: %w", err)
	}
	return m, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter, sort Sort, skip, limit int) ([]*MediaFile, int, error) {
	where, args := buildWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM media_files` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count media files: %w", err)
	}

	field := sort.Field
	if field == "" {
		field = SortCreatedAt
	}
	direction := sort.Direction
	if direction == "" {
		direction = SortDesc
	}

	query := fmt.Sprintf(`SELECT %s FROM media_files%s ORDER BY %s %s LIMIT ? OFFSET ?`,
		mediaFileColumns, where, sqlColumnFor(field), strings.ToUpper(string(direction)))
	args = append(args, limit, skip)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list media files: %w", err)
	}
	defer rows.Close()

	var out []*MediaFile
	for rows.Next() {
		m, err := scanMediaFile(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan media file row: %w", err)
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func sqlColumnFor(f SortField) string {
	switch f {
	case SortUpdatedAt:
		return "updated_at"
	case SortFilename:
		return "original_filename"
	case SortStatus:
		return "status"
	default:
		return "created_at"
	}
}

func buildWhere(filter Filter) (string, []any) {
	var clauses []string
	var args []any

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	for _, token := range filter.Search {
		clauses = append(clauses, "(original_filename LIKE ? ESCAPE '\\' OR original_filepath LIKE ? ESCAPE '\\')")
		pattern := "%" + escapeLike(token) + "%"
		args = append(args, pattern, pattern)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}

func (s *SQLiteStore) DistinctFilenames(ctx context.Context, prefix string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT original_filename FROM media_files
		WHERE original_filename LIKE ? ESCAPE '\' COLLATE NOCASE
		ORDER BY original_filename
		LIMIT ?`, escapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("distinct filenames: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GroupByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM media_files GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("group by status: %w", err)
	}
	defer rows.Close()

	out := make(map[Status]int)
	for rows.Next() {
		var st string
		var count int
		if err := rows.Scan(&st, &count); err != nil {
			return nil, err
		}
		out[Status(st)] = count
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateFields(ctx context.Context, id int64, status Status, errorMessage *string, patch Patch) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE media_files SET
			status = ?,
			error_message = ?,
			llm_guess = COALESCE(?, llm_guess),
			tmdb_id = COALESCE(?, tmdb_id),
			media_type = COALESCE(?, media_type),
			processed_data = COALESCE(?, processed_data),
			new_filepath = COALESCE(?, new_filepath),
			updated_at = ?
		WHERE id = ?`,
		status, errorMessage, patch.LLMGuess, patch.TMDBID, patch.MediaType, patch.ProcessedData, patch.NewFilepath,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update media file fields: %w", err)
	}
	return nil
}

// Delete removes a media file row outright, for the Control API's
// batch-delete endpoint.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM media_files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete media file: %w", err)
	}
	return nil
}

// ClaimPending implements the §4.1 atomic claim primitive as a process-wide
// mutex guarding a SELECT ... then UPDATE ... WHERE id IN (...) pair, the
// sanctioned fallback when row-level SKIP LOCKED isn't available.
func (s *SQLiteStore) ClaimPending(ctx context.Context, limit int) ([]int64, error) {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM media_files WHERE status = ? ORDER BY id LIMIT ?`, StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, tx.Commit()
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, string(StatusQueued))
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	query := fmt.Sprintf(`UPDATE media_files SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id IN (%s)`, strings.Join(placeholders, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("flip claimed rows to queued: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim tx: %w", err)
	}
	return ids, nil
}

// ResetStaleRows implements I4: a row in QUEUED or PROCESSING at startup is
// stale, since the in-memory queue holding it did not survive the restart.
func (s *SQLiteStore) ResetStaleRows(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE media_files SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE status IN (?, ?)`,
		StatusPending, StatusQueued, StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("reset stale rows: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) GetAllConfigItems(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM config_items`)
	if err != nil {
		return nil, fmt.Errorf("list config items: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertConfigItems(ctx context.Context, items map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin config upsert tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for key, value := range items {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode config value for %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO config_items (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, string(encoded), now); err != nil {
			return fmt.Errorf("upsert config item %s: %w", key, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteConfigItemsNotIn(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		res, err := s.db.ExecContext(ctx, `DELETE FROM config_items`)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		return int(n), err
	}
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = "?"
		args[i] = k
	}
	query := fmt.Sprintf(`DELETE FROM config_items WHERE key NOT IN (%s)`, strings.Join(placeholders, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("cleanup stale config items: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
