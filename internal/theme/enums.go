// Package theme holds the theme configuration a user assembles in one session:
// which art fills each slot of each category and how every category is styled.
package theme

import "slices"

// LeaderColor keys a playmat slot.
type LeaderColor string

const (
	Red    LeaderColor = "Red"
	Green  LeaderColor = "Green"
	Blue   LeaderColor = "Blue"
	Purple LeaderColor = "Purple"
	Black  LeaderColor = "Black"
	Yellow LeaderColor = "Yellow"

	RedGreen     LeaderColor = "RedGreen"
	RedBlue      LeaderColor = "RedBlue"
	RedPurple    LeaderColor = "RedPurple"
	RedBlack     LeaderColor = "RedBlack"
	RedYellow    LeaderColor = "RedYellow"
	GreenBlue    LeaderColor = "GreenBlue"
	GreenPurple  LeaderColor = "GreenPurple"
	GreenBlack   LeaderColor = "GreenBlack"
	GreenYellow  LeaderColor = "GreenYellow"
	BluePurple   LeaderColor = "BluePurple"
	BlueBlack    LeaderColor = "BlueBlack"
	BlueYellow   LeaderColor = "BlueYellow"
	PurpleBlack  LeaderColor = "PurpleBlack"
	PurpleYellow LeaderColor = "PurpleYellow"
	BlackYellow  LeaderColor = "BlackYellow"
)

// LeaderColors lists every playmat slot in export order.
var LeaderColors = []LeaderColor{
	Red, Green, Blue, Purple, Black, Yellow,
	RedGreen, RedBlue, RedPurple, RedBlack, RedYellow,
	GreenBlue, GreenPurple, GreenBlack, GreenYellow,
	BluePurple, BlueBlack, BlueYellow,
	PurpleBlack, PurpleYellow,
	BlackYellow,
}

// MenuKey keys a menu background slot.
type MenuKey string

const (
	MenuHome       MenuKey = "Home"
	MenuDeckEditor MenuKey = "DeckEditor"
)

// MenuKeys lists every menu slot in export order.
var MenuKeys = []MenuKey{MenuHome, MenuDeckEditor}

// BackType keys a card back slot.
type BackType string

const (
	BackDeckCards BackType = "DeckCards"
	BackDonCards  BackType = "DonCards"
)

// BackTypes lists every card back slot in export order.
var BackTypes = []BackType{BackDeckCards, BackDonCards}

// EdgeStyle is the corner treatment for playmats, card backs and don cards.
type EdgeStyle string

const (
	EdgeSquare        EdgeStyle = "square"
	EdgeRoundedSmall  EdgeStyle = "rounded-small"
	EdgeRoundedMedium EdgeStyle = "rounded-medium"
	EdgeRoundedLarge  EdgeStyle = "rounded-large"
)

// EdgeStyles lists every edge style.
var EdgeStyles = []EdgeStyle{EdgeSquare, EdgeRoundedSmall, EdgeRoundedMedium, EdgeRoundedLarge}

// PlaymatOverlay selects the decoration composited on playmats.
type PlaymatOverlay string

const (
	PlaymatOverlayNone            PlaymatOverlay = "none"
	PlaymatOverlayAreaMarkers     PlaymatOverlay = "area-markers"
	PlaymatOverlayAreaMarkersText PlaymatOverlay = "area-markers-text"
)

// PlaymatOverlays lists every playmat overlay.
var PlaymatOverlays = []PlaymatOverlay{PlaymatOverlayNone, PlaymatOverlayAreaMarkers, PlaymatOverlayAreaMarkersText}

// CardBackOverlay selects the decoration applied to a card back.
type CardBackOverlay string

const (
	CardBackOverlayNone       CardBackOverlay = "none"
	CardBackOverlayOPText     CardBackOverlay = "op-text"
	CardBackOverlayOPLogo     CardBackOverlay = "op-logo"
	CardBackOverlayDonSymbol  CardBackOverlay = "don-symbol"
	CardBackOverlayBorderOnly CardBackOverlay = "border-only"
)

// CardBackOverlays lists every card back overlay.
var CardBackOverlays = []CardBackOverlay{
	CardBackOverlayNone, CardBackOverlayOPText, CardBackOverlayOPLogo,
	CardBackOverlayDonSymbol, CardBackOverlayBorderOnly,
}

// DonOverlay selects the decoration composited on the don card.
type DonOverlay string

const (
	DonOverlayNone               DonOverlay = "none"
	DonOverlayDonSymbol          DonOverlay = "don-symbol"
	DonOverlayDonSymbolText      DonOverlay = "don-symbol-text"
	DonOverlayFocusLines         DonOverlay = "focus-lines"
	DonOverlayFocusLinesText     DonOverlay = "focus-lines-text"
	DonOverlayBorderOnly         DonOverlay = "border-only"
	DonOverlayBorderOnlyWithText DonOverlay = "border-only-text"
)

// DonOverlays lists every don card overlay.
var DonOverlays = []DonOverlay{
	DonOverlayDonSymbol, DonOverlayDonSymbolText,
	DonOverlayFocusLines, DonOverlayFocusLinesText,
	DonOverlayBorderOnly, DonOverlayBorderOnlyWithText,
	DonOverlayNone,
}

// CardEdge is the binary corner treatment for individual cards.
type CardEdge string

const (
	CardEdgeSquare  CardEdge = "square"
	CardEdgeRounded CardEdge = "rounded"
)

// CardEdges lists every card edge style.
var CardEdges = []CardEdge{CardEdgeSquare, CardEdgeRounded}

// Rounded reports whether the style rounds corners.
func (e EdgeStyle) Rounded() bool { return e != EdgeSquare }

// parseEnum validates v against the closed set all.
func parseEnum[T ~string](field, v string, all []T) (T, error) {
	t := T(v)
	if !slices.Contains(all, t) {
		valid := make([]string, len(all))
		for i, a := range all {
			valid[i] = string(a)
		}
		return "", &InvalidSettingError{Field: field, Value: v, Valid: valid}
	}
	return t, nil
}

// ParseLeaderColor validates a playmat slot key.
func ParseLeaderColor(v string) (LeaderColor, error) {
	return parseEnum("playmats.color", v, LeaderColors)
}

// ParseMenuKey validates a menu slot key.
func ParseMenuKey(v string) (MenuKey, error) {
	return parseEnum("menus.key", v, MenuKeys)
}

// ParseBackType validates a card back slot key.
func ParseBackType(v string) (BackType, error) {
	return parseEnum("card_backs.type", v, BackTypes)
}

// ParseEdgeStyle validates an edge style for field.
func ParseEdgeStyle(field, v string) (EdgeStyle, error) {
	return parseEnum(field, v, EdgeStyles)
}

// ParsePlaymatOverlay validates a playmat overlay.
func ParsePlaymatOverlay(v string) (PlaymatOverlay, error) {
	return parseEnum("playmats.overlay", v, PlaymatOverlays)
}

// ParseCardBackOverlay validates a card back overlay for field.
func ParseCardBackOverlay(field, v string) (CardBackOverlay, error) {
	return parseEnum(field, v, CardBackOverlays)
}

// ParseDonOverlay validates a don card overlay.
func ParseDonOverlay(v string) (DonOverlay, error) {
	return parseEnum("don_card.overlay", v, DonOverlays)
}

// ParseCardEdge validates a card edge style.
func ParseCardEdge(v string) (CardEdge, error) {
	return parseEnum("cards.edge", v, CardEdges)
}
