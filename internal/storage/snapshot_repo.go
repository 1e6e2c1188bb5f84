package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xtding233/packpicker/internal/pack"
	"github.com/xtding233/packpicker/internal/picker"
)

// DefaultLastRefresh is the ledger timestamp of a user who never refreshed.
var DefaultLastRefresh = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// ErrRefreshConflict is returned when another writer advanced last_refresh
// between reading the ledger and committing.
var ErrRefreshConflict = errors.New("refresh ledger changed concurrently")

// Ledger is a user's refresh bookkeeping.
type Ledger struct {
	UserID       string
	LastRefresh  time.Time
	RefreshCount int

	stamp string // stored last_refresh, compared verbatim on commit
}

// SnapshotRepository persists the latest pack picker result per user.
type SnapshotRepository interface {
	// GetLedger returns the user's ledger, or the default ledger when the user
	// never refreshed.
	GetLedger(ctx context.Context, userID string) (Ledger, error)

	// GetSnapshot returns the stored per-booster results ordered by chance_new
	// descending. It is empty when nothing was stored yet.
	GetSnapshot(ctx context.Context, userID string) ([]picker.BoosterStats, error)

	// UpsertSnapshot stores one booster's result, replacing its previous
	// booster and rarity rows.
	UpsertSnapshot(ctx context.Context, userID string, stats picker.BoosterStats) error

	// GetAndSetLastRefresh advances last_refresh to now if it still equals the
	// value read in prev; otherwise it returns ErrRefreshConflict.
	GetAndSetLastRefresh(ctx context.Context, prev Ledger, now time.Time) (Ledger, error)

	// CommitRefresh replaces the user's whole snapshot and advances
	// last_refresh in one transaction, under the same compare-and-set as
	// GetAndSetLastRefresh. On any error nothing is written.
	CommitRefresh(ctx context.Context, prev Ledger, now time.Time, stats []picker.BoosterStats) (Ledger, error)
}

type snapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new snapshot repository.
func NewSnapshotRepository(db *DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) GetLedger(ctx context.Context, userID string) (Ledger, error) {
	return getLedger(ctx, r.db.conn, userID)
}

func getLedger(ctx context.Context, q querier, userID string) (Ledger, error) {
	l := Ledger{UserID: userID}
	err := q.QueryRowContext(ctx,
		`SELECT last_refresh, refresh_count FROM pack_picker_data WHERE user_id = ?`, userID,
	).Scan(&l.stamp, &l.RefreshCount)
	if errors.Is(err, sql.ErrNoRows) {
		l.LastRefresh = DefaultLastRefresh
		l.RefreshCount = 1
		l.stamp = formatTime(DefaultLastRefresh)
		return l, nil
	}
	if err != nil {
		return Ledger{}, fmt.Errorf("failed to get refresh ledger: %w", err)
	}
	if l.LastRefresh, err = parseTime(l.stamp); err != nil {
		return Ledger{}, err
	}
	return l, nil
}

func (r *snapshotRepository) GetSnapshot(ctx context.Context, userID string) ([]picker.BoosterStats, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT pb.id, `+boosterColumns+`,
			pb.chance_new, pb.expected_new, pb.missing_count, pb.total_count,
			pb.base_chance_new, pb.base_expected_new, pb.base_missing_count, pb.base_total_count,
			pb.rare_chance_new, pb.rare_expected_new, pb.rare_missing_count, pb.rare_total_count
		FROM pack_picker_boosters pb
		JOIN boosters b ON b.id = pb.booster_id
		WHERE pb.user_id = ?
		ORDER BY pb.chance_new DESC, b.tcg_id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []picker.BoosterStats
	index := map[int64]int{}
	for rows.Next() {
		var id int64
		var bs picker.BoosterStats
		b := &bs.Booster
		if err := rows.Scan(&id,
			&b.ID, &b.TCGID, &b.Name, &b.GodPackProb, &b.SixthCardProb, &b.SetTCGID,
			&bs.Overall.ChanceNew, &bs.Overall.ExpectedNew, &bs.Overall.MissingCount, &bs.Overall.TotalCount,
			&bs.Base.ChanceNew, &bs.Base.ExpectedNew, &bs.Base.MissingCount, &bs.Base.TotalCount,
			&bs.Rare.ChanceNew, &bs.Rare.ExpectedNew, &bs.Rare.MissingCount, &bs.Rare.TotalCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot booster: %w", err)
		}
		bs.Rarities = map[pack.Rarity]picker.Stat{}
		index[id] = len(out)
		out = append(out, bs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot boosters: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}

	rrows, err := r.db.conn.QueryContext(ctx, `
		SELECT pr.picker_booster_id, pr.rarity, pr.chance_new, pr.expected_new, pr.missing_count, pr.total_count
		FROM pack_picker_rarities pr
		JOIN pack_picker_boosters pb ON pb.id = pr.picker_booster_id
		WHERE pb.user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot rarities: %w", err)
	}
	defer func() { _ = rrows.Close() }()

	for rrows.Next() {
		var id int64
		var name string
		var st picker.Stat
		if err := rrows.Scan(&id, &name, &st.ChanceNew, &st.ExpectedNew, &st.MissingCount, &st.TotalCount); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot rarity: %w", err)
		}
		rarity, err := pack.ParseRarity(name)
		if err != nil {
			continue
		}
		if i, ok := index[id]; ok {
			out[i].Rarities[rarity] = st
		}
	}
	if err := rrows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rarities: %w", err)
	}
	return out, nil
}

func (r *snapshotRepository) UpsertSnapshot(ctx context.Context, userID string, stats picker.BoosterStats) error {
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := ensureLedger(ctx, tx, userID); err != nil {
			return err
		}
		return upsertBooster(ctx, tx, userID, stats)
	})
}

func (r *snapshotRepository) GetAndSetLastRefresh(ctx context.Context, prev Ledger, now time.Time) (Ledger, error) {
	var l Ledger
	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		l, err = advanceLedger(ctx, tx, prev, now)
		return err
	})
	return l, err
}

func (r *snapshotRepository) CommitRefresh(ctx context.Context, prev Ledger, now time.Time, stats []picker.BoosterStats) (Ledger, error) {
	var l Ledger
	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		if l, err = advanceLedger(ctx, tx, prev, now); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM pack_picker_boosters WHERE user_id = ?`, prev.UserID); err != nil {
			return fmt.Errorf("failed to clear snapshot: %w", err)
		}
		for _, bs := range stats {
			if err := upsertBooster(ctx, tx, prev.UserID, bs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Ledger{}, err
	}
	return l, nil
}

func ensureLedger(ctx context.Context, q querier, userID string) error {
	if err := ensureUser(ctx, q, userID); err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO pack_picker_data (user_id) VALUES (?) ON CONFLICT(user_id) DO NOTHING`, userID,
	); err != nil {
		return fmt.Errorf("failed to create refresh ledger: %w", err)
	}
	return nil
}

func advanceLedger(ctx context.Context, q querier, prev Ledger, now time.Time) (Ledger, error) {
	if err := ensureLedger(ctx, q, prev.UserID); err != nil {
		return Ledger{}, err
	}
	stamp := prev.stamp
	if stamp == "" {
		stamp = formatTime(prev.LastRefresh)
	}
	res, err := q.ExecContext(ctx, `
		UPDATE pack_picker_data
		SET last_refresh = ?, refresh_count = refresh_count + 1
		WHERE user_id = ? AND last_refresh = ?`,
		formatTime(now), prev.UserID, stamp)
	if err != nil {
		return Ledger{}, fmt.Errorf("failed to advance refresh ledger: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Ledger{}, fmt.Errorf("failed to advance refresh ledger: %w", err)
	}
	if n == 0 {
		return Ledger{}, ErrRefreshConflict
	}
	return getLedger(ctx, q, prev.UserID)
}

func upsertBooster(ctx context.Context, q querier, userID string, bs picker.BoosterStats) error {
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO pack_picker_boosters (
			user_id, booster_id,
			chance_new, expected_new, missing_count, total_count,
			base_chance_new, base_expected_new, base_missing_count, base_total_count,
			rare_chance_new, rare_expected_new, rare_missing_count, rare_total_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, booster_id) DO UPDATE SET
			chance_new = excluded.chance_new,
			expected_new = excluded.expected_new,
			missing_count = excluded.missing_count,
			total_count = excluded.total_count,
			base_chance_new = excluded.base_chance_new,
			base_expected_new = excluded.base_expected_new,
			base_missing_count = excluded.base_missing_count,
			base_total_count = excluded.base_total_count,
			rare_chance_new = excluded.rare_chance_new,
			rare_expected_new = excluded.rare_expected_new,
			rare_missing_count = excluded.rare_missing_count,
			rare_total_count = excluded.rare_total_count
		RETURNING id`,
		userID, bs.Booster.ID,
		bs.Overall.ChanceNew, bs.Overall.ExpectedNew, bs.Overall.MissingCount, bs.Overall.TotalCount,
		bs.Base.ChanceNew, bs.Base.ExpectedNew, bs.Base.MissingCount, bs.Base.TotalCount,
		bs.Rare.ChanceNew, bs.Rare.ExpectedNew, bs.Rare.MissingCount, bs.Rare.TotalCount,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot for booster %s: %w", bs.Booster.TCGID, err)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM pack_picker_rarities WHERE picker_booster_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear snapshot rarities: %w", err)
	}
	for _, r := range pack.Rarities() {
		st, ok := bs.Rarities[r]
		if !ok {
			continue
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO pack_picker_rarities (picker_booster_id, rarity, chance_new, expected_new, missing_count, total_count)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, r.String(), st.ChanceNew, st.ExpectedNew, st.MissingCount, st.TotalCount,
		); err != nil {
			return fmt.Errorf("failed to insert snapshot rarity %s: %w", r, err)
		}
	}
	return nil
}
