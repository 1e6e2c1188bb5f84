// Package catalog loads the card catalog seed (sets, boosters with their
// drop-rate tables, cards and optional collection fixtures) from YAML files and
// watches them for changes.
package catalog

// Seed is the catalog as written in YAML.
type Seed struct {
	Version     string                    `yaml:"version"`
	Sets        []SetSpec                 `yaml:"sets"`
	Boosters    []BoosterSpec             `yaml:"boosters"`
	Cards       []CardSpec                `yaml:"cards"`
	Collections map[string]map[string]int `yaml:"collections,omitempty"` // user -> card id -> quantity
}

type SetSpec struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type BoosterSpec struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	GodPackProb   *float64 `yaml:"god_pack_prob,omitempty"`
	SixthCardProb *float64 `yaml:"sixth_card_prob,omitempty"`
	Sets          []string `yaml:"sets"`
	// slot -> rarity name -> relative weight
	DropRates map[string]map[string]float64 `yaml:"drop_rates"`
}

type CardSpec struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Rarity         string   `yaml:"rarity"`
	Set            string   `yaml:"set"`
	Boosters       []string `yaml:"boosters"`
	SixthExclusive bool     `yaml:"sixth_exclusive,omitempty"`
}
