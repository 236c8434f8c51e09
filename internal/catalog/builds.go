package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"audiosurvey/internal/survey"
)

// Build is one recorded content build.
type Build struct {
	RunID       string          `json:"run_id"`
	Identity    survey.Identity `json:"-"`
	Survey      string          `json:"survey"`
	ArchivePath string          `json:"archive_path"`
	ItemCount   int             `json:"item_count"`
	KeySize     int             `json:"key_size"`
	Skipped     []survey.Skip   `json:"skipped,omitempty"`
	BuiltAt     time.Time       `json:"built_at"`
}

// Entry is one recorded item or pair of a build.
type Entry struct {
	Index   int             `json:"index"`
	PairKey string          `json:"pair_key,omitempty"`
	Audio   survey.AudioRef `json:"audio"`
	Options []survey.Option `json:"options,omitempty"`
}

// timestampLayout keeps a fixed width so built_at sorts chronologically as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const buildColumns = "run_id, survey_kind, stage, archive_path, item_count, key_size, skipped_json, built_at"

// RecordBuild stores a finished build and its item rows in one transaction.
func (s *Store) RecordBuild(ctx context.Context, data *survey.StageData, archivePath string) error {
	if data == nil {
		return errors.New("stage data is nil")
	}
	if data.RunID == "" {
		return errors.New("stage data has no run id")
	}

	var skipped any
	if len(data.Skipped) > 0 {
		raw, err := json.Marshal(data.Skipped)
		if err != nil {
			return fmt.Errorf("marshal skipped: %w", err)
		}
		skipped = string(raw)
	}
	builtAt := data.BuiltAt
	if builtAt.IsZero() {
		builtAt = time.Now()
	}

	entries, err := entriesFor(data)
	if err != nil {
		return err
	}

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin build tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO builds (`+buildColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			data.RunID,
			int(data.Identity.Kind),
			string(data.Identity.Stage),
			archivePath,
			data.Len(),
			len(data.Key),
			skipped,
			builtAt.UTC().Format(timestampLayout),
		); err != nil {
			return fmt.Errorf("insert build: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO build_items (run_id, item_index, pair_key, audio, options_json) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare item insert: %w", err)
		}
		defer stmt.Close()
		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, data.RunID, e.index, e.pairKey, e.audio, e.options); err != nil {
				return fmt.Errorf("insert item %d: %w", e.index, err)
			}
		}
		return tx.Commit()
	})
}

type entryRow struct {
	index   int
	pairKey any
	audio   string
	options any
}

func entriesFor(data *survey.StageData) ([]entryRow, error) {
	if data.Identity.Kind == survey.KindQualityPairs {
		rows := make([]entryRow, 0, len(data.Pairs))
		for _, p := range data.Pairs {
			opts, err := json.Marshal(p.Options)
			if err != nil {
				return nil, fmt.Errorf("marshal pair options: %w", err)
			}
			rows = append(rows, entryRow{index: p.Index, pairKey: p.Key, audio: string(p.Options[0].Audio), options: string(opts)})
		}
		return rows, nil
	}
	rows := make([]entryRow, 0, len(data.Items))
	for _, item := range data.Items {
		row := entryRow{index: item.Index, audio: string(item.Audio)}
		if len(item.Options) > 0 {
			opts, err := json.Marshal(item.Options)
			if err != nil {
				return nil, fmt.Errorf("marshal item options: %w", err)
			}
			row.options = string(opts)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// List returns the most recent builds, newest first. A non-positive limit
// returns every build.
func (s *Store) List(ctx context.Context, limit int) ([]*Build, error) {
	query := `SELECT ` + buildColumns + ` FROM builds ORDER BY built_at DESC, run_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	var builds []*Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}
	return builds, nil
}

// Latest returns the newest build for id, or nil when none was recorded.
func (s *Store) Latest(ctx context.Context, id survey.Identity) (*Build, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+buildColumns+` FROM builds WHERE survey_kind = ? AND stage = ? ORDER BY built_at DESC LIMIT 1`,
		int(id.Kind), string(id.Stage))
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest build: %w", err)
	}
	return b, nil
}

// Entries returns the recorded items of a build in index order.
func (s *Store) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_index, pair_key, audio, options_json FROM build_items WHERE run_id = ? ORDER BY item_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			pairKey sql.NullString
			audio   string
			options sql.NullString
		)
		if err := rows.Scan(&e.Index, &pairKey, &audio, &options); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.PairKey = pairKey.String
		e.Audio = survey.AudioRef(audio)
		if options.Valid && options.String != "" {
			if err := json.Unmarshal([]byte(options.String), &e.Options); err != nil {
				return nil, fmt.Errorf("decode entry options: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

func scanBuild(scanner interface{ Scan(dest ...any) error }) (*Build, error) {
	var (
		b        Build
		kind     int
		stage    string
		skipped  sql.NullString
		builtRaw string
	)
	if err := scanner.Scan(&b.RunID, &kind, &stage, &b.ArchivePath, &b.ItemCount, &b.KeySize, &skipped, &builtRaw); err != nil {
		return nil, err
	}
	b.Identity = survey.Identity{Kind: survey.Kind(kind), Stage: survey.Stage(stage)}
	b.Survey = b.Identity.String()
	if skipped.Valid && skipped.String != "" {
		if err := json.Unmarshal([]byte(skipped.String), &b.Skipped); err != nil {
			return nil, fmt.Errorf("decode skipped: %w", err)
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, builtRaw); err == nil {
		b.BuiltAt = ts
	}
	return &b, nil
}
