package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/smfc/matchday/internal/domain/model"
	"github.com/smfc/matchday/pkg/logger"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// SQLStore persists club data in a SQLite file.
type SQLStore struct {
	db     *sql.DB
	opts   options
	logger logger.Logger
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore opens (or creates) the database at path and migrates it.
func NewSQLStore(ctx context.Context, path string, opts ...Option) (*SQLStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("store")
	}
	o.logger.Info(ctx, "opening database", logger.String("path", path))

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: pragmas are per connection and SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLStore{db: db, opts: o, logger: o.logger}
	if err := s.applyPragmas(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) applyPragmas(ctx context.Context) error {
	pragmas := []struct {
		name  string
		value string
	}{
		{"journal_mode", "WAL"},
		{"synchronous", "NORMAL"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "ON"},
		{"temp_store", "MEMORY"},
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("set PRAGMA %s: %w", p.name, err)
		}
		s.logger.Debug(ctx, "sqlite pragma set", logger.String("pragma", p.name), logger.String("value", p.value))
	}
	return nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) ReplaceRoster(ctx context.Context, players []model.RatedPlayer) (err error) {
	defer observe("replace_roster", time.Now(), &err)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM players`); err != nil {
		return fmt.Errorf("clear roster: %w", err)
	}
	for _, p := range players {
		if p.Name == "" {
			return fmt.Errorf("%w: player without a name", ErrInvalidInput)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO players (name, position, pace, shooting, passing, dribbling, defending, physicality, star_rating)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				position = excluded.position, pace = excluded.pace, shooting = excluded.shooting,
				passing = excluded.passing, dribbling = excluded.dribbling, defending = excluded.defending,
				physicality = excluded.physicality, star_rating = excluded.star_rating`,
			p.Name, string(p.Position), p.Pace, p.Shooting, p.Passing, p.Dribbling, p.Defending, p.Physicality, p.StarRating)
		if err != nil {
			return fmt.Errorf("insert player %q: %w", p.Name, err)
		}
	}
	return tx.Commit()
}

const playerColumns = `name, position, pace, shooting, passing, dribbling, defending, physicality, star_rating`

func scanPlayer(row interface{ Scan(...any) error }) (model.RatedPlayer, error) {
	var (
		p   model.RatedPlayer
		pos string
	)
	err := row.Scan(&p.Name, &pos, &p.Pace, &p.Shooting, &p.Passing, &p.Dribbling, &p.Defending, &p.Physicality, &p.StarRating)
	p.Position = model.Position(pos)
	return p, err
}

func (s *SQLStore) Roster(ctx context.Context) ([]model.RatedPlayer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+playerColumns+` FROM players ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	out := make([]model.RatedPlayer, 0)
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) Player(ctx context.Context, name string) (model.RatedPlayer, error) {
	p, err := scanPlayer(s.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return model.RatedPlayer{}, fmt.Errorf("player %q: %w", name, ErrNotFound)
	}
	return p, err
}

func (s *SQLStore) SaveMatch(ctx context.Context, m model.MatchResult) (out model.MatchResult, err error) {
	defer observe("save_match", time.Now(), &err)

	if m.ID == "" {
		m.ID = s.opts.newID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.opts.now()
	}
	m = normalizeMatch(m)

	red, err := json.Marshal(m.RedTeam)
	if err != nil {
		return model.MatchResult{}, err
	}
	blue, err := json.Marshal(m.BlueTeam)
	if err != nil {
		return model.MatchResult{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO matches (id, date, venue, kickoff, format, red_team, blue_team, status,
			score_red, score_blue, comments, allow_predictions, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date, venue = excluded.venue, kickoff = excluded.kickoff,
			format = excluded.format, red_team = excluded.red_team, blue_team = excluded.blue_team,
			status = excluded.status, score_red = excluded.score_red, score_blue = excluded.score_blue,
			comments = excluded.comments, allow_predictions = excluded.allow_predictions,
			created_by = excluded.created_by, created_at = excluded.created_at`,
		m.ID, m.Date, m.Venue, m.Kickoff, m.Format, string(red), string(blue), string(m.Status),
		goalsArg(m.ScoreRed), goalsArg(m.ScoreBlue), m.Comments, m.AllowPredictions, m.CreatedBy, m.CreatedAt.UnixNano())
	if err != nil {
		return model.MatchResult{}, fmt.Errorf("save match %q: %w", m.ID, err)
	}
	return m, nil
}

const matchColumns = `id, date, venue, kickoff, format, red_team, blue_team, status,
	score_red, score_blue, comments, allow_predictions, created_by, created_at`

func scanMatch(row interface{ Scan(...any) error }) (model.MatchResult, error) {
	var (
		m                   model.MatchResult
		red, blue           string
		status              string
		scoreRed, scoreBlue sql.NullInt64
		createdAt           int64
	)
	if err := row.Scan(&m.ID, &m.Date, &m.Venue, &m.Kickoff, &m.Format, &red, &blue, &status,
		&scoreRed, &scoreBlue, &m.Comments, &m.AllowPredictions, &m.CreatedBy, &createdAt); err != nil {
		return model.MatchResult{}, err
	}
	if err := json.Unmarshal([]byte(red), &m.RedTeam); err != nil {
		return model.MatchResult{}, fmt.Errorf("decode red team of %q: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(blue), &m.BlueTeam); err != nil {
		return model.MatchResult{}, fmt.Errorf("decode blue team of %q: %w", m.ID, err)
	}
	m.Status = model.MatchStatus(status)
	m.ScoreRed = nullGoals(scoreRed)
	m.ScoreBlue = nullGoals(scoreBlue)
	m.CreatedAt = time.Unix(0, createdAt).UTC()
	return normalizeMatch(m), nil
}

func (s *SQLStore) Match(ctx context.Context, id string) (model.MatchResult, error) {
	m, err := scanMatch(s.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.MatchResult{}, fmt.Errorf("match %q: %w", id, ErrNotFound)
	}
	return m, err
}

func (s *SQLStore) Matches(ctx context.Context) ([]model.MatchResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY created_at, seq`)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	out := make([]model.MatchResult, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteMatch(ctx context.Context, id string) (err error) {
	defer observe("delete_match", time.Now(), &err)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete match %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("match %q: %w", id, ErrNotFound)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM predictions WHERE match_id = ?`, id); err != nil {
		return fmt.Errorf("delete predictions of %q: %w", id, err)
	}
	return tx.Commit()
}

func (s *SQLStore) UpsertPrediction(ctx context.Context, p model.Prediction) (out model.Prediction, err error) {
	defer observe("upsert_prediction", time.Now(), &err)
	if err := validatePrediction(p); err != nil {
		return model.Prediction{}, err
	}

	if p.ID == "" {
		p.ID = s.opts.newID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.opts.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Prediction{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		status string
		allow  bool
	)
	err = tx.QueryRowContext(ctx, `SELECT status, allow_predictions FROM matches WHERE id = ?`, p.MatchID).Scan(&status, &allow)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return model.Prediction{}, fmt.Errorf("match %q: %w", p.MatchID, ErrNotFound)
	case err != nil:
		return model.Prediction{}, fmt.Errorf("read match %q: %w", p.MatchID, err)
	}
	if !(model.MatchResult{Status: model.MatchStatus(status), AllowPredictions: allow}).AcceptsPredictions() {
		return model.Prediction{}, fmt.Errorf("match %q: %w", p.MatchID, ErrPredictionsClosed)
	}

	var createdAt int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO predictions (id, match_id, player_name, prediction, pred_goals_red, pred_goals_blue, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(match_id, player_name) DO UPDATE SET
			prediction = excluded.prediction,
			pred_goals_red = excluded.pred_goals_red,
			pred_goals_blue = excluded.pred_goals_blue
		RETURNING id, created_at`,
		p.ID, p.MatchID, p.PlayerName, string(p.Winner), goalsArg(p.ScoreRed), goalsArg(p.ScoreBlue), p.CreatedAt.UnixNano(),
	).Scan(&p.ID, &createdAt)
	if err != nil {
		return model.Prediction{}, fmt.Errorf("upsert prediction %s/%s: %w", p.MatchID, p.PlayerName, err)
	}
	if err = tx.Commit(); err != nil {
		return model.Prediction{}, fmt.Errorf("commit prediction %s/%s: %w", p.MatchID, p.PlayerName, err)
	}
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	return p, nil
}

const predictionColumns = `id, match_id, player_name, prediction, pred_goals_red, pred_goals_blue, created_at`

func (s *SQLStore) queryPredictions(ctx context.Context, query string, args ...any) ([]model.Prediction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	out := make([]model.Prediction, 0)
	for rows.Next() {
		var (
			p         model.Prediction
			winner    string
			red, blue sql.NullInt64
			createdAt int64
		)
		if err := rows.Scan(&p.ID, &p.MatchID, &p.PlayerName, &winner, &red, &blue, &createdAt); err != nil {
			return nil, err
		}
		p.Winner = model.Outcome(winner)
		p.ScoreRed, p.ScoreBlue = nullGoals(red), nullGoals(blue)
		p.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) Predictions(ctx context.Context) ([]model.Prediction, error) {
	return s.queryPredictions(ctx, `SELECT `+predictionColumns+` FROM predictions ORDER BY seq`)
}

func (s *SQLStore) PredictionsForMatch(ctx context.Context, matchID string) ([]model.Prediction, error) {
	return s.queryPredictions(ctx, `SELECT `+predictionColumns+` FROM predictions WHERE match_id = ? ORDER BY seq`, matchID)
}

func (s *SQLStore) DeletePrediction(ctx context.Context, matchID, playerName string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM predictions WHERE match_id = ? AND player_name = ?`, matchID, playerName)
	if err != nil {
		return fmt.Errorf("delete prediction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("prediction %s/%s: %w", matchID, playerName, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM players), (SELECT COUNT(*) FROM matches), (SELECT COUNT(*) FROM predictions)`,
	).Scan(&c.Players, &c.Matches, &c.Predictions)
	return c, err
}

func nullGoals(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	return model.Goals(int(n.Int64))
}

func goalsArg(n *int) any {
	if n == nil {
		return nil
	}
	return int64(*n)
}
