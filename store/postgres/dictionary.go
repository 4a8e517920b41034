package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avfomichev/slovobot/game"
)

// CreateWord adds a word (or a confirmed non-word when isCorrect is false).
// Title is assumed already case-folded to lower by the caller.
func (p *Postgres) CreateWord(ctx context.Context, title string, isCorrect bool) error {
	return p.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO words (title, is_correct) VALUES ($1, $2)`, title, isCorrect)
		return translateErr(err)
	})
}

// GetWordByTitle looks a word up by its (already lower-cased) title.
func (p *Postgres) GetWordByTitle(ctx context.Context, title string) (*game.Word, error) {
	const q = `SELECT id, title, is_correct FROM words WHERE title = $1`
	row, cancel := p.query(ctx, q, title)
	defer cancel()
	var w game.Word
	if err := row.Scan(&w.ID, &w.Title, &w.IsCorrect); err != nil {
		return nil, fmt.Errorf("reading word %q: %w", title, translateErr(err))
	}
	return &w, nil
}

// ListWords returns words, optionally filtered by is_correct.
func (p *Postgres) ListWords(ctx context.Context, isCorrect *bool) ([]game.Word, error) {
	q := `SELECT id, title, is_correct FROM words WHERE ($1::BOOLEAN IS NULL OR is_correct = $1) ORDER BY id`
	var arg interface{}
	if isCorrect != nil {
		arg = *isCorrect
	}
	rows, cancel, err := p.queryRows(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("listing words: %w", err)
	}
	defer cancel()
	defer rows.Close()
	var out []game.Word
	for rows.Next() {
		var w game.Word
		if err := rows.Scan(&w.ID, &w.Title, &w.IsCorrect); err != nil {
			return nil, fmt.Errorf("scanning word: %w", translateErr(err))
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetCityByTitle looks a city up by its canonical capitalized title; the
// caller capitalizes first.
func (p *Postgres) GetCityByTitle(ctx context.Context, title string) (*game.City, error) {
	const q = `SELECT id, title, id_region, id_country FROM cities WHERE title = $1`
	row, cancel := p.query(ctx, q, title)
	defer cancel()
	var c game.City
	if err := row.Scan(&c.ID, &c.Title, &c.IDRegion, &c.IDCountry); err != nil {
		return nil, fmt.Errorf("reading city %q: %w", title, translateErr(err))
	}
	return &c, nil
}

// ListCities returns every city.
func (p *Postgres) ListCities(ctx context.Context) ([]game.City, error) {
	const q = `SELECT id, title, id_region, id_country FROM cities ORDER BY id`
	rows, cancel, err := p.queryRows(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing cities: %w", err)
	}
	defer cancel()
	defer rows.Close()
	var out []game.City
	for rows.Next() {
		var c game.City
		if err := rows.Scan(&c.ID, &c.Title, &c.IDRegion, &c.IDCountry); err != nil {
			return nil, fmt.Errorf("scanning city: %w", translateErr(err))
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetSettingByTitle looks a game mode up by its title ("слова"/"города").
func (p *Postgres) GetSettingByTitle(ctx context.Context, title game.SettingTitle) (*game.Setting, error) {
	const q = `SELECT id, title, timeout FROM settings WHERE title = $1`
	row, cancel := p.query(ctx, q, string(title))
	defer cancel()
	var s game.Setting
	var timeoutSeconds int64
	if err := row.Scan(&s.ID, &s.Title, &timeoutSeconds); err != nil {
		return nil, fmt.Errorf("reading setting %q: %w", title, translateErr(err))
	}
	s.Timeout = secondsToDuration(timeoutSeconds)
	return &s, nil
}
