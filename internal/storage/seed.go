package storage

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"

	"github.com/xtding233/packpicker/internal/catalog"
	"github.com/xtding233/packpicker/internal/pack"
)

// SeedStats counts the rows written by ImportSeed.
type SeedStats struct {
	Sets        int
	Boosters    int
	DropRates   int
	Cards       int
	Collections int
}

// ImportSeed upserts a validated catalog seed in one transaction. Sets,
// boosters and cards are matched by TCG ID; a booster's drop rates and set
// links, and a card's booster links, are replaced by the seed's. Entities
// absent from the seed are left untouched.
func (db *DB) ImportSeed(ctx context.Context, seed *catalog.Seed) (SeedStats, error) {
	var st SeedStats
	err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
		setIDs := map[string]int64{}
		for _, s := range seed.Sets {
			var id int64
			if err := tx.QueryRowContext(ctx, `
				INSERT INTO sets (tcg_id, name) VALUES (?, ?)
				ON CONFLICT(tcg_id) DO UPDATE SET name = excluded.name
				RETURNING id`, s.ID, s.Name).Scan(&id); err != nil {
				return fmt.Errorf("failed to upsert set %s: %w", s.ID, err)
			}
			setIDs[s.ID] = id
			st.Sets++
		}

		boosterIDs := map[string]int64{}
		for _, b := range seed.Boosters {
			id, n, err := importBooster(ctx, tx, b, setIDs)
			if err != nil {
				return err
			}
			boosterIDs[b.ID] = id
			st.Boosters++
			st.DropRates += n
		}

		cardIDs := map[string]int64{}
		for _, c := range seed.Cards {
			id, err := importCard(ctx, tx, c, setIDs, boosterIDs)
			if err != nil {
				return err
			}
			cardIDs[c.ID] = id
			st.Cards++
		}

		for _, user := range slices.Sorted(maps.Keys(seed.Collections)) {
			if err := ensureUser(ctx, tx, user); err != nil {
				return err
			}
			owned := seed.Collections[user]
			for _, card := range slices.Sorted(maps.Keys(owned)) {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO user_collection (user_id, card_id, quantity) VALUES (?, ?, ?)
					ON CONFLICT(user_id, card_id) DO UPDATE SET quantity = excluded.quantity`,
					user, cardIDs[card], owned[card]); err != nil {
					return fmt.Errorf("failed to import collection %s/%s: %w", user, card, err)
				}
				st.Collections++
			}
		}
		return nil
	})
	if err != nil {
		return SeedStats{}, err
	}
	return st, nil
}

func importBooster(ctx context.Context, tx *sql.Tx, b catalog.BoosterSpec, setIDs map[string]int64) (int64, int, error) {
	god, sixth := pack.DefaultGodPackProb, pack.DefaultSixthCardProb
	if b.GodPackProb != nil {
		god = *b.GodPackProb
	}
	if b.SixthCardProb != nil {
		sixth = *b.SixthCardProb
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO boosters (tcg_id, name, god_pack_prob, sixth_card_prob) VALUES (?, ?, ?, ?)
		ON CONFLICT(tcg_id) DO UPDATE SET
			name = excluded.name,
			god_pack_prob = excluded.god_pack_prob,
			sixth_card_prob = excluded.sixth_card_prob
		RETURNING id`, b.ID, b.Name, god, sixth).Scan(&id); err != nil {
		return 0, 0, fmt.Errorf("failed to upsert booster %s: %w", b.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM set_boosters WHERE booster_id = ?`, id); err != nil {
		return 0, 0, fmt.Errorf("failed to clear sets of booster %s: %w", b.ID, err)
	}
	for _, set := range b.Sets {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO set_boosters (set_id, booster_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
			setIDs[set], id); err != nil {
			return 0, 0, fmt.Errorf("failed to link booster %s to set %s: %w", b.ID, set, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM booster_drop_rates WHERE booster_id = ?`, id); err != nil {
		return 0, 0, fmt.Errorf("failed to clear drop rates of booster %s: %w", b.ID, err)
	}
	n := 0
	for _, key := range slices.Sorted(maps.Keys(b.DropRates)) {
		slot, err := pack.ParseSlot(key)
		if err != nil {
			return 0, 0, fmt.Errorf("booster %s: %w", b.ID, err)
		}
		rates := b.DropRates[key]
		for _, name := range slices.Sorted(maps.Keys(rates)) {
			rarity, err := pack.ParseRarity(name)
			if err != nil {
				return 0, 0, fmt.Errorf("booster %s slot %s: %w", b.ID, slot, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO booster_drop_rates (booster_id, slot, rarity, probability) VALUES (?, ?, ?, ?)
				ON CONFLICT(booster_id, slot, rarity) DO UPDATE SET probability = excluded.probability`,
				id, slot.String(), rarity.String(), rates[name]); err != nil {
				return 0, 0, fmt.Errorf("failed to insert drop rate %s/%s/%s: %w", b.ID, slot, rarity, err)
			}
			n++
		}
	}
	return id, n, nil
}

func importCard(ctx context.Context, tx *sql.Tx, c catalog.CardSpec, setIDs, boosterIDs map[string]int64) (int64, error) {
	rarity, err := pack.ParseRarity(c.Rarity)
	if err != nil {
		return 0, fmt.Errorf("card %s: %w", c.ID, err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO cards (tcg_id, name, rarity, set_id, is_sixth_exclusive) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tcg_id) DO UPDATE SET
			name = excluded.name,
			rarity = excluded.rarity,
			set_id = excluded.set_id,
			is_sixth_exclusive = excluded.is_sixth_exclusive
		RETURNING id`, c.ID, c.Name, rarity.String(), setIDs[c.Set], c.SixthExclusive).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to upsert card %s: %w", c.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM card_boosters WHERE card_id = ?`, id); err != nil {
		return 0, fmt.Errorf("failed to clear boosters of card %s: %w", c.ID, err)
	}
	for _, b := range c.Boosters {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO card_boosters (card_id, booster_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
			id, boosterIDs[b]); err != nil {
			return 0, fmt.Errorf("failed to link card %s to booster %s: %w", c.ID, b, err)
		}
	}
	return id, nil
}
