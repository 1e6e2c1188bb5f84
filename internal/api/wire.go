package api

import (
	"bytes"
	"time"

	"github.com/goccy/go-json"

	"github.com/xtding233/packpicker/internal/pack"
	"github.com/xtding233/packpicker/internal/picker"
)

// pickerResponse is the body of GET /api/pack/picker.
type pickerResponse struct {
	Boosters    []boosterChances `json:"boosters"`
	LastRefresh string           `json:"last_refresh"`
}

type boosterChances struct {
	BoosterName      string        `json:"booster_name"`
	BoosterID        string        `json:"booster_id"`
	BoosterSetID     string        `json:"booster_set_id"`
	ChanceNew        float64       `json:"chance_new"`
	ExpectedNew      float64       `json:"expected_new"`
	MissingCount     int           `json:"missing_count"`
	TotalCount       int           `json:"total_count"`
	BaseMissingCount int           `json:"base_missing_count"`
	BaseTotalCount   int           `json:"base_total_count"`
	BaseChanceNew    float64       `json:"base_chance_new"`
	RareMissingCount int           `json:"rare_missing_count"`
	RareTotalCount   int           `json:"rare_total_count"`
	RareChanceNew    float64       `json:"rare_chance_new"`
	RarityChances    rarityChances `json:"rarity_chances"`
}

type rarityChance struct {
	ChanceNew    float64 `json:"chance_new"`
	ExpectedNew  float64 `json:"expected_new"`
	MissingCount int     `json:"missing_count"`
	TotalCount   int     `json:"total_count"`
}

// rarityChances is a rarity-keyed object whose keys keep display order.
type rarityChances map[pack.Rarity]rarityChance

func (rc rarityChances) MarshalJSON() ([]byte, error) {
	return marshalByRarity(rc)
}

// marshalByRarity writes a JSON object keyed by rarity name in enum order.
func marshalByRarity[V any](m map[pack.Rarity]V) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, r := range pack.Rarities() {
		v, ok := m[r]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(r.String())
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func newPickerResponse(stats []picker.BoosterStats, lastRefresh time.Time) pickerResponse {
	resp := pickerResponse{
		Boosters:    make([]boosterChances, 0, len(stats)),
		LastRefresh: formatTime(lastRefresh),
	}
	for _, s := range stats {
		rc := make(rarityChances, len(s.Rarities))
		for r, st := range s.Rarities {
			rc[r] = rarityChance{
				ChanceNew:    st.ChanceNew,
				ExpectedNew:  st.ExpectedNew,
				MissingCount: st.MissingCount,
				TotalCount:   st.TotalCount,
			}
		}
		resp.Boosters = append(resp.Boosters, boosterChances{
			BoosterName:      s.Booster.Name,
			BoosterID:        s.Booster.TCGID,
			BoosterSetID:     s.Booster.SetTCGID,
			ChanceNew:        s.Overall.ChanceNew,
			ExpectedNew:      s.Overall.ExpectedNew,
			MissingCount:     s.Overall.MissingCount,
			TotalCount:       s.Overall.TotalCount,
			BaseMissingCount: s.Base.MissingCount,
			BaseTotalCount:   s.Base.TotalCount,
			BaseChanceNew:    s.Base.ChanceNew,
			RareMissingCount: s.Rare.MissingCount,
			RareTotalCount:   s.Rare.TotalCount,
			RareChanceNew:    s.Rare.ChanceNew,
			RarityChances:    rc,
		})
	}
	return resp
}

// boosterInfo is one entry of GET /api/boosters.
type boosterInfo struct {
	BoosterID     string  `json:"booster_id"`
	BoosterName   string  `json:"booster_name"`
	BoosterSetID  string  `json:"booster_set_id"`
	GodPackProb   float64 `json:"god_pack_prob"`
	SixthCardProb float64 `json:"sixth_card_prob"`
}

type boostersResponse struct {
	Boosters []boosterInfo `json:"boosters"`
}

func newBoosterInfo(b pack.Booster) boosterInfo {
	return boosterInfo{
		BoosterID:     b.TCGID,
		BoosterName:   b.Name,
		BoosterSetID:  b.SetTCGID,
		GodPackProb:   b.GodPackProb,
		SixthCardProb: b.SixthCardProb,
	}
}

type rarityOdds struct {
	Regular float64 `json:"regular"`
	Sixth   float64 `json:"sixth"`
	God     float64 `json:"god"`
	Total   float64 `json:"total"`
}

type oddsByRarity map[pack.Rarity]rarityOdds

func (o oddsByRarity) MarshalJSON() ([]byte, error) {
	return marshalByRarity(o)
}

// oddsResponse is the body of GET /api/boosters/{boosterID}/odds.
type oddsResponse struct {
	boosterInfo
	Rarities oddsByRarity `json:"rarities"`
}

func newOddsResponse(b pack.Booster, odds map[pack.Rarity]picker.RarityOdds) oddsResponse {
	out := make(oddsByRarity, len(odds))
	for r, o := range odds {
		out[r] = rarityOdds(o)
	}
	return oddsResponse{boosterInfo: newBoosterInfo(b), Rarities: out}
}

type openedCard struct {
	Slot     string `json:"slot"`
	Rarity   string `json:"rarity"`
	Pool     string `json:"pool"`
	CardID   string `json:"card_id,omitempty"`
	CardName string `json:"card_name,omitempty"`
	Owned    bool   `json:"owned"`
	New      bool   `json:"new"`
}

// openResponse is the body of POST /api/boosters/{boosterID}/open.
type openResponse struct {
	BoosterID string       `json:"booster_id"`
	Cards     []openedCard `json:"cards"`
	NewCount  int          `json:"new_count"`
}

func newOpenResponse(b pack.Booster, pulls []picker.OpenedCard) openResponse {
	resp := openResponse{BoosterID: b.TCGID, Cards: make([]openedCard, 0, len(pulls))}
	for _, p := range pulls {
		oc := openedCard{
			Slot:   p.Slot.String(),
			Rarity: p.Rarity.String(),
			Pool:   p.Pool.String(),
			Owned:  p.Owned,
		}
		if p.Card != nil {
			oc.CardID = p.Card.TCGID
			oc.CardName = p.Card.Name
			oc.New = !p.Owned
			if oc.New {
				resp.NewCount++
			}
		}
		resp.Cards = append(resp.Cards, oc)
	}
	return resp
}
