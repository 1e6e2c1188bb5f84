package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xtding233/packpicker/internal/pack"
)

// CatalogRepository reads the card catalog.
type CatalogRepository interface {
	// ListBoosters returns every booster ordered by TCG ID.
	ListBoosters(ctx context.Context) ([]pack.Booster, error)

	// GetBooster looks a booster up by TCG ID.
	GetBooster(ctx context.Context, tcgID string) (pack.Booster, bool, error)

	// DropRates returns the drop-rate rows of a booster. Rows whose slot or
	// rarity is not recognised are returned with a zero Slot or Rarity.
	DropRates(ctx context.Context, boosterID int64) ([]pack.DropRate, error)

	// Cards returns the cards of one pool of a booster.
	Cards(ctx context.Context, boosterID int64, pool pack.Pool) ([]pack.Card, error)
}

type catalogRepository struct {
	db querier
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

const boosterColumns = `
	b.id, b.tcg_id, b.name, b.god_pack_prob, b.sixth_card_prob,
	COALESCE((
		SELECT s.tcg_id FROM set_boosters sb
		JOIN sets s ON s.id = sb.set_id
		WHERE sb.booster_id = b.id
		ORDER BY s.tcg_id LIMIT 1
	), '')`

func scanBooster(row interface{ Scan(...any) error }) (pack.Booster, error) {
	var b pack.Booster
	err := row.Scan(&b.ID, &b.TCGID, &b.Name, &b.GodPackProb, &b.SixthCardProb, &b.SetTCGID)
	return b, err
}

func (r *catalogRepository) ListBoosters(ctx context.Context) ([]pack.Booster, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+boosterColumns+` FROM boosters b ORDER BY b.tcg_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list boosters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []pack.Booster
	for rows.Next() {
		b, err := scanBooster(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booster: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating boosters: %w", err)
	}
	return out, nil
}

func (r *catalogRepository) GetBooster(ctx context.Context, tcgID string) (pack.Booster, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+boosterColumns+` FROM boosters b WHERE b.tcg_id = ?`, tcgID)
	b, err := scanBooster(row)
	if errors.Is(err, sql.ErrNoRows) {
		return pack.Booster{}, false, nil
	}
	if err != nil {
		return pack.Booster{}, false, fmt.Errorf("failed to get booster: %w", err)
	}
	return b, true, nil
}

func (r *catalogRepository) DropRates(ctx context.Context, boosterID int64) ([]pack.DropRate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT slot, rarity, probability FROM booster_drop_rates
		WHERE booster_id = ?
		ORDER BY slot, rarity`, boosterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query drop rates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []pack.DropRate
	for rows.Next() {
		var slot, rarity string
		dr := pack.DropRate{BoosterID: boosterID}
		if err := rows.Scan(&slot, &rarity, &dr.Probability); err != nil {
			return nil, fmt.Errorf("failed to scan drop rate: %w", err)
		}
		// unknown values stay zero and are reported by the picker
		dr.Slot, _ = pack.ParseSlot(slot)
		dr.Rarity, _ = pack.ParseRarity(rarity)
		out = append(out, dr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drop rates: %w", err)
	}
	return out, nil
}

func (r *catalogRepository) Cards(ctx context.Context, boosterID int64, pool pack.Pool) ([]pack.Card, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.tcg_id, c.name, c.rarity, c.is_sixth_exclusive
		FROM cards c
		JOIN card_boosters cb ON cb.card_id = c.id
		WHERE cb.booster_id = ? AND c.is_sixth_exclusive = ?
		ORDER BY c.tcg_id`, boosterID, pool == pack.PoolSixth)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []pack.Card
	for rows.Next() {
		var c pack.Card
		var rarity string
		if err := rows.Scan(&c.ID, &c.TCGID, &c.Name, &rarity, &c.SixthExclusive); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		c.Rarity, _ = pack.ParseRarity(rarity)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}
	return out, nil
}
