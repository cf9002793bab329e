package hanabi

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	DefaultVariant = "No Variant"

	MinPlayers = 2
	MaxPlayers = 6
)

// Variant describes the fixed shape of a deck and the token economy.
type Variant struct {
	Name       string
	Suits      []string
	MaxRank    int
	MaxClues   int
	MaxStrikes int
}

var variants = map[string]*Variant{}

func init() {
	base := []string{"Red", "Yellow", "Green", "Blue", "Purple"}
	register("No Variant", base)
	register("6 Suits", append(append([]string{}, base...), "Teal"))
	register("4 Suits", base[:4])
	register("3 Suits", base[:3])
}

func register(name string, suits []string) {
	variants[name] = &Variant{
		Name:       name,
		Suits:      suits,
		MaxRank:    5,
		MaxClues:   8,
		MaxStrikes: 3,
	}
}

// GetVariant looks up a variant by name.
func GetVariant(name string) (*Variant, error) {
	v, ok := variants[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (choose one of: %s)", ErrUnknownVariant, name, strings.Join(VariantNames(), ", "))
	}
	return v, nil
}

// VariantNames lists every registered variant, sorted.
func VariantNames() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// copiesOf is the number of copies of each rank in a suit.
func (v *Variant) copiesOf(rank int) int {
	switch {
	case rank == 1:
		return 3
	case rank == v.MaxRank:
		return 1
	default:
		return 2
	}
}

func (v *Variant) maxScore() int {
	return len(v.Suits) * v.MaxRank
}

// Options are the table settings chosen when the table is created.
type Options struct {
	Variant     string        `json:"variant"`
	Timed       bool          `json:"timed"`
	BaseTime    time.Duration `json:"baseTime"`
	TimePerTurn time.Duration `json:"timePerTurn"`
}

// Validate fills defaults and rejects unusable settings.
func (o *Options) Validate() error {
	if o.Variant == "" {
		o.Variant = DefaultVariant
	}
	if _, err := GetVariant(o.Variant); err != nil {
		return err
	}
	if o.Timed {
		if o.BaseTime <= 0 {
			return ErrInvalidTimeSettings
		}
		if o.TimePerTurn < 0 {
			return ErrInvalidTimeSettings
		}
	}
	return nil
}

// handSize follows the standard table: 5 cards for 2-3 players, 4 for 4-5, 3 for 6.
func handSize(numPlayers int) int {
	switch {
	case numPlayers <= 3:
		return 5
	case numPlayers <= 5:
		return 4
	default:
		return 3
	}
}
