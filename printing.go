package cardvault

import (
	"fmt"
	"maps"
	"strings"
)

// Game identifies a trading card game.
type Game string

// Known games. Any other lower case identifier is accepted as is.
const (
	Lorcana       Game = "lorcana"
	Magic         Game = "mtg"
	Pokemon       Game = "pokemon"
	OnePiece      Game = "onepiece"
	YuGiOh        Game = "yugioh"
	FleshAndBlood Game = "fab"
	StarWars      Game = "swu"
)

var gameAliases = map[string]Game{
	"lorcana":                   Lorcana,
	"disney lorcana":            Lorcana,
	"disney-lorcana":            Lorcana,
	"mtg":                       Magic,
	"magic":                     Magic,
	"magic: the gathering":      Magic,
	"magic-the-gathering":       Magic,
	"pokemon":                   Pokemon,
	"pokémon":                   Pokemon,
	"pokemon tcg":               Pokemon,
	"onepiece":                  OnePiece,
	"one piece":                 OnePiece,
	"one piece card game":       OnePiece,
	"one-piece-card-game":       OnePiece,
	"yugioh":                    YuGiOh,
	"yu-gi-oh":                  YuGiOh,
	"yu-gi-oh!":                 YuGiOh,
	"fab":                       FleshAndBlood,
	"flesh and blood":           FleshAndBlood,
	"flesh-and-blood-tcg":       FleshAndBlood,
	"swu":                       StarWars,
	"star wars unlimited":       StarWars,
	"star-wars-unlimited":       StarWars,
	"star wars: unlimited":      StarWars,
	"disney lorcana tcg":        Lorcana,
	"magic the gathering":       Magic,
	"pokemon trading card game": Pokemon,
}

// ParseGame returns the game for a name or one of its common aliases.
func ParseGame(s string) (Game, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("game is missing")
	}
	if g, ok := gameAliases[s]; ok {
		return g, nil
	}
	if strings.ContainsAny(s, "/ ") {
		return "", fmt.Errorf("invalid game %q", s)
	}
	return Game(s), nil
}

// Finish is the surface treatment of a printing.
type Finish string

const (
	Normal      Finish = "normal"
	Foil        Finish = "foil"
	ReverseFoil Finish = "reverse_foil"
	ColdFoil    Finish = "cold_foil"
	Enchanted   Finish = "enchanted"
	Promo       Finish = "promo"
)

// ParseFinish accepts finish names as exported by catalogs and spreadsheets.
// The empty string is Normal.
func ParseFinish(s string) (Finish, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "nonfoil", "non-foil", "non foil", "regular", "no", "false", "0", "unlimited":
		return Normal, nil
	case "foil", "holo", "holofoil", "yes", "true", "1", "etched", "foiled":
		return Foil, nil
	case "reverse", "reverse holo", "reverse holofoil", "reverse_holofoil", "reverse foil", "reverse_foil":
		return ReverseFoil, nil
	case "cold foil", "cold_foil", "coldfoil":
		return ColdFoil, nil
	case "enchanted":
		return Enchanted, nil
	case "promo", "promo foil", "prerelease":
		return Promo, nil
	}
	return "", fmt.Errorf("unknown finish %q", s)
}

// Condition is the grading of a physical copy.
type Condition string

const (
	NearMint         Condition = "NM"
	LightlyPlayed    Condition = "LP"
	ModeratelyPlayed Condition = "MP"
	HeavilyPlayed    Condition = "HP"
	Damaged          Condition = "DMG"
)

// Conditions lists all conditions from best to worst.
var Conditions = []Condition{NearMint, LightlyPlayed, ModeratelyPlayed, HeavilyPlayed, Damaged}

// ParseCondition accepts common grading names. The empty string is NearMint.
func ParseCondition(s string) (Condition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nm", "near mint", "near-mint", "mint", "m", "nm-m", "nm/m":
		return NearMint, nil
	case "lp", "lightly played", "slightly played", "sp", "excellent", "ex":
		return LightlyPlayed, nil
	case "mp", "moderately played", "played", "pl", "good", "gd":
		return ModeratelyPlayed, nil
	case "hp", "heavily played", "poor", "po":
		return HeavilyPlayed, nil
	case "dmg", "damaged", "dm":
		return Damaged, nil
	}
	return "", fmt.Errorf("unknown condition %q", s)
}

// Provider names used as keys of Printing.Refs.
const (
	RefLorcast    = "lorcast"
	RefJustTCG    = "justtcg"
	RefCardTrader = "cardtrader"
)

// Printing is a specific set/number/finish/language variant of a card.
type Printing struct {
	Game     Game              `json:"game"`
	Set      string            `json:"set"`
	Number   string            `json:"number"`
	Name     string            `json:"name,omitempty"`
	Finish   Finish            `json:"finish,omitempty"`
	Language string            `json:"language,omitempty"`
	SetName  string            `json:"set_name,omitempty"`
	Rarity   string            `json:"rarity,omitempty"`
	Image    string            `json:"image,omitempty"`
	Refs     map[string]string `json:"refs,omitempty"`
}

// Key returns the composite key identifying this printing.
func (p Printing) Key() PrintingKey {
	return NewKey(p.Game, p.Set, p.Number, p.Finish, p.Language)
}

// Ref returns the id of this printing for a provider.
func (p Printing) Ref(provider string) (string, bool) {
	id, ok := p.Refs[provider]
	return id, ok && id != ""
}

// merge fills p's empty fields with q's. Refs are unioned, p wins.
func (p Printing) merge(q Printing) Printing {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&p.Name, q.Name)
	fill(&p.SetName, q.SetName)
	fill(&p.Rarity, q.Rarity)
	fill(&p.Image, q.Image)
	if len(q.Refs) > 0 {
		refs := maps.Clone(q.Refs)
		maps.Copy(refs, p.Refs)
		p.Refs = refs
	}
	return p
}

func (p Printing) String() string {
	if p.Name == "" {
		return string(p.Key())
	}
	return fmt.Sprintf("%s (%s #%s %s)", p.Name, strings.ToUpper(p.Set), p.Number, p.finish())
}

func (p Printing) finish() Finish {
	if p.Finish == "" {
		return Normal
	}
	return p.Finish
}

// PrintingKey is "game/set/number/finish/language", all lower case.
type PrintingKey string

// NewKey normalizes parts into a key: lower case, the collector number is trimmed of
// leading zeros and of its "/total" suffix, missing finish is normal and missing language english.
func NewKey(game Game, set, number string, finish Finish, language string) PrintingKey {
	number, _, _ = strings.Cut(strings.TrimSpace(number), "/")
	number = strings.TrimLeft(strings.ToLower(number), "0")
	if number == "" {
		number = "0"
	}
	if finish == "" {
		finish = Normal
	}
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = "en"
	}
	clean := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "/", "-")
	}
	return PrintingKey(strings.Join([]string{
		clean(string(game)), clean(set), clean(number), clean(string(finish)), clean(language),
	}, "/"))
}

// ParseKey parses and normalizes a key.
func ParseKey(s string) (PrintingKey, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 5 {
		return "", fmt.Errorf("invalid printing key %q: want game/set/number/finish/language", s)
	}
	for i, p := range parts[:3] {
		if strings.TrimSpace(p) == "" {
			return "", fmt.Errorf("invalid printing key %q: part %d is empty", s, i+1)
		}
	}
	finish, err := ParseFinish(parts[3])
	if err != nil {
		return "", fmt.Errorf("invalid printing key %q: %w", s, err)
	}
	return NewKey(Game(parts[0]), parts[1], parts[2], finish, parts[4]), nil
}

// Game returns the game part of the key.
func (k PrintingKey) Game() Game { return Game(k.part(0)) }

// Set returns the set part of the key.
func (k PrintingKey) Set() string { return k.part(1) }

// Number returns the collector number part of the key.
func (k PrintingKey) Number() string { return k.part(2) }

// Finish returns the finish part of the key.
func (k PrintingKey) Finish() Finish { return Finish(k.part(3)) }

// Language returns the language part of the key.
func (k PrintingKey) Language() string { return k.part(4) }

func (k PrintingKey) part(i int) string {
	parts := strings.SplitN(string(k), "/", 5)
	if i < len(parts) {
		return parts[i]
	}
	return ""
}
