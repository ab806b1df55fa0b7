package theme

import (
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"
)

// PlaymatStyle styles every playmat.
type PlaymatStyle struct {
	Overlay PlaymatOverlay `json:"overlay"`
	Edge    EdgeStyle      `json:"edge"`
	Shadow  bool           `json:"shadow"`
}

// CardBackStyle styles both card backs. The two backs pick overlays
// independently and share edge and shadow.
type CardBackStyle struct {
	DeckOverlay CardBackOverlay `json:"deck_overlay"`
	DonOverlay  CardBackOverlay `json:"don_overlay"`
	Edge        EdgeStyle       `json:"edge"`
	Shadow      bool            `json:"shadow"`
}

// OverlayFor returns the overlay selected for the given back.
func (s CardBackStyle) OverlayFor(bt BackType) CardBackOverlay {
	if bt == BackDonCards {
		return s.DonOverlay
	}
	return s.DeckOverlay
}

// DonStyle styles the don card.
type DonStyle struct {
	Overlay DonOverlay `json:"overlay"`
	Edge    EdgeStyle  `json:"edge"`
	Shadow  bool       `json:"shadow"`
}

// CardStyle styles every individual card.
type CardStyle struct {
	Edge   CardEdge `json:"edge"`
	Shadow bool     `json:"shadow"`
}

// DefaultPlaymatStyle is the style of a fresh configuration.
func DefaultPlaymatStyle() PlaymatStyle {
	return PlaymatStyle{Overlay: PlaymatOverlayNone, Edge: EdgeSquare}
}

// DefaultCardBackStyle is the style of a fresh configuration.
func DefaultCardBackStyle() CardBackStyle {
	return CardBackStyle{DeckOverlay: CardBackOverlayNone, DonOverlay: CardBackOverlayNone, Edge: EdgeSquare}
}

// DefaultDonStyle is the style of a fresh configuration.
func DefaultDonStyle() DonStyle {
	return DonStyle{Overlay: DonOverlayNone, Edge: EdgeSquare}
}

// DefaultCardStyle is the style of a fresh configuration.
func DefaultCardStyle() CardStyle {
	return CardStyle{Edge: CardEdgeSquare}
}

// Configuration is one session's theme. It is created with every fixed slot
// present and empty, mutated through its setters and read by the renderers.
// It is not safe for concurrent writers.
type Configuration struct {
	playmatStyle PlaymatStyle
	playmats     map[LeaderColor]*Image

	menus map[MenuKey]*Image

	cardBackStyle CardBackStyle
	cardBacks     map[BackType]*Image

	donStyle DonStyle
	don      *Image

	cardStyle CardStyle
	cards     map[string]*Image
}

// NewConfiguration returns a configuration with every slot empty and default styles.
func NewConfiguration() *Configuration {
	c := &Configuration{
		playmatStyle:  DefaultPlaymatStyle(),
		playmats:      make(map[LeaderColor]*Image, len(LeaderColors)),
		menus:         make(map[MenuKey]*Image, len(MenuKeys)),
		cardBackStyle: DefaultCardBackStyle(),
		cardBacks:     make(map[BackType]*Image, len(BackTypes)),
		donStyle:      DefaultDonStyle(),
		cardStyle:     DefaultCardStyle(),
		cards:         make(map[string]*Image),
	}
	for _, k := range LeaderColors {
		c.playmats[k] = nil
	}
	for _, k := range MenuKeys {
		c.menus[k] = nil
	}
	for _, k := range BackTypes {
		c.cardBacks[k] = nil
	}
	return c
}

// Style accessors.

func (c *Configuration) PlaymatStyle() PlaymatStyle   { return c.playmatStyle }
func (c *Configuration) CardBackStyle() CardBackStyle { return c.cardBackStyle }
func (c *Configuration) DonStyle() DonStyle           { return c.donStyle }
func (c *Configuration) CardStyle() CardStyle         { return c.cardStyle }

// Slot accessors. A nil result means the slot is empty.

func (c *Configuration) Playmat(k LeaderColor) *Image { return c.playmats[k] }
func (c *Configuration) Menu(k MenuKey) *Image        { return c.menus[k] }
func (c *Configuration) CardBack(k BackType) *Image   { return c.cardBacks[k] }
func (c *Configuration) Don() *Image                  { return c.don }
func (c *Configuration) Card(name string) *Image      { return c.cards[name] }

// CardNames returns the populated card names in sorted order.
func (c *Configuration) CardNames() []string {
	return slices.Sorted(maps.Keys(c.cards))
}

// Setters validate before assigning; an invalid value leaves the configuration unchanged.

// SetPlaymatOverlay selects the playmat overlay.
func (c *Configuration) SetPlaymatOverlay(v string) error {
	o, err := ParsePlaymatOverlay(v)
	if err != nil {
		return err
	}
	c.playmatStyle.Overlay = o
	return nil
}

// SetPlaymatEdge selects the playmat edge style.
func (c *Configuration) SetPlaymatEdge(v string) error {
	e, err := ParseEdgeStyle("playmats.edge", v)
	if err != nil {
		return err
	}
	c.playmatStyle.Edge = e
	return nil
}

// SetPlaymatShadow toggles the playmat shadow.
func (c *Configuration) SetPlaymatShadow(on bool) { c.playmatStyle.Shadow = on }

// SetCardBackOverlay selects the overlay for one card back.
func (c *Configuration) SetCardBackOverlay(back, v string) error {
	bt, err := ParseBackType(back)
	if err != nil {
		return err
	}
	field := "card_backs.deck_overlay"
	if bt == BackDonCards {
		field = "card_backs.don_overlay"
	}
	o, err := ParseCardBackOverlay(field, v)
	if err != nil {
		return err
	}
	if bt == BackDonCards {
		c.cardBackStyle.DonOverlay = o
	} else {
		c.cardBackStyle.DeckOverlay = o
	}
	return nil
}

// SetCardBackEdge selects the card back edge style.
func (c *Configuration) SetCardBackEdge(v string) error {
	e, err := ParseEdgeStyle("card_backs.edge", v)
	if err != nil {
		return err
	}
	c.cardBackStyle.Edge = e
	return nil
}

// SetCardBackShadow toggles the card back shadow.
func (c *Configuration) SetCardBackShadow(on bool) { c.cardBackStyle.Shadow = on }

// SetDonOverlay selects the don card overlay.
func (c *Configuration) SetDonOverlay(v string) error {
	o, err := ParseDonOverlay(v)
	if err != nil {
		return err
	}
	c.donStyle.Overlay = o
	return nil
}

// SetDonEdge selects the don card edge style.
func (c *Configuration) SetDonEdge(v string) error {
	e, err := ParseEdgeStyle("don_card.edge", v)
	if err != nil {
		return err
	}
	c.donStyle.Edge = e
	return nil
}

// SetDonShadow toggles the don card shadow.
func (c *Configuration) SetDonShadow(on bool) { c.donStyle.Shadow = on }

// SetCardEdge selects the card edge style.
func (c *Configuration) SetCardEdge(v string) error {
	e, err := ParseCardEdge(v)
	if err != nil {
		return err
	}
	c.cardStyle.Edge = e
	return nil
}

// SetCardShadow toggles the card shadow.
func (c *Configuration) SetCardShadow(on bool) { c.cardStyle.Shadow = on }

// SetPlaymat assigns (or clears, with nil) a playmat slot.
func (c *Configuration) SetPlaymat(color string, img *Image) error {
	k, err := ParseLeaderColor(color)
	if err != nil {
		return err
	}
	c.playmats[k] = img
	return nil
}

// SetMenu assigns (or clears) a menu slot.
func (c *Configuration) SetMenu(key string, img *Image) error {
	k, err := ParseMenuKey(key)
	if err != nil {
		return err
	}
	c.menus[k] = img
	return nil
}

// SetCardBack assigns (or clears) a card back slot.
func (c *Configuration) SetCardBack(back string, img *Image) error {
	k, err := ParseBackType(back)
	if err != nil {
		return err
	}
	c.cardBacks[k] = img
	return nil
}

// SetDon assigns (or clears) the don card slot.
func (c *Configuration) SetDon(img *Image) { c.don = img }

// SetCard assigns a card slot; a nil image removes the card.
func (c *Configuration) SetCard(name string, img *Image) error {
	key := CardName(name)
	if key == "" {
		return &InvalidSettingError{Field: "cards.name", Value: name}
	}
	if img == nil {
		delete(c.cards, key)
		return nil
	}
	c.cards[key] = img
	return nil
}

// CardName normalises a user supplied card filename into a card key:
// directories and the extension are dropped.
func CardName(filename string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// Snapshot is a read-only, serialisable copy of a configuration.
type Snapshot struct {
	Playmats struct {
		Style  PlaymatStyle           `json:"style"`
		Images map[LeaderColor]*Image `json:"images"`
	} `json:"playmats"`
	Menus     map[MenuKey]*Image `json:"menus"`
	CardBacks struct {
		Style  CardBackStyle       `json:"style"`
		Images map[BackType]*Image `json:"images"`
	} `json:"card_backs"`
	DonCard struct {
		Style DonStyle `json:"style"`
		Image *Image   `json:"image"`
	} `json:"don_card"`
	Cards struct {
		Style  CardStyle         `json:"style"`
		Images map[string]*Image `json:"images"`
	} `json:"cards"`
}

// Snapshot copies the configuration.
func (c *Configuration) Snapshot() Snapshot {
	var s Snapshot
	s.Playmats.Style = c.playmatStyle
	s.Playmats.Images = maps.Clone(c.playmats)
	s.Menus = maps.Clone(c.menus)
	s.CardBacks.Style = c.cardBackStyle
	s.CardBacks.Images = maps.Clone(c.cardBacks)
	s.DonCard.Style = c.donStyle
	s.DonCard.Image = c.don
	s.Cards.Style = c.cardStyle
	s.Cards.Images = maps.Clone(c.cards)
	return s
}

// Clone returns an independent copy. Images are shared since they are
// replaced, never modified.
func (c *Configuration) Clone() *Configuration {
	cp := *c
	cp.playmats = maps.Clone(c.playmats)
	cp.menus = maps.Clone(c.menus)
	cp.cardBacks = maps.Clone(c.cardBacks)
	cp.cards = maps.Clone(c.cards)
	return &cp
}

// Populated counts the non-empty slots across all categories.
func (c *Configuration) Populated() int {
	n := len(c.cards)
	for _, img := range c.playmats {
		if img != nil {
			n++
		}
	}
	for _, img := range c.menus {
		if img != nil {
			n++
		}
	}
	for _, img := range c.cardBacks {
		if img != nil {
			n++
		}
	}
	if c.don != nil {
		n++
	}
	return n
}

// String summarises the configuration for logs.
func (c *Configuration) String() string {
	return fmt.Sprintf("theme(%d populated slots, %d cards)", c.Populated(), len(c.cards))
}
