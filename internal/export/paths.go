package export

import (
	"path"
	"strings"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/theme"
)

// Archive paths mirror the simulator's install layout.
const (
	HomeBackgroundPath       = "background.jpg"
	DeckEditorBackgroundPath = "deckeditbackground.jpg"
	CardBackRegularPath      = "CardBacks/CardBackRegular.png"
	CardBackDonPath          = "CardBacks/CardBackDon.png"
	DonCardPath              = "Cards/Don/Don.png"
	// OtherCardFolder holds cards whose name has no set prefix.
	OtherCardFolder = "Other"
)

// PlaymatPath returns the entry path for a playmat.
func PlaymatPath(c theme.LeaderColor) string {
	return path.Join("Playmats", string(c)+".png")
}

// MenuPath returns the entry path for a menu background.
func MenuPath(k theme.MenuKey) string {
	if k == theme.MenuDeckEditor {
		return DeckEditorBackgroundPath
	}
	return HomeBackgroundPath
}

// CardBackPath returns the entry path for a card back.
func CardBackPath(bt theme.BackType) string {
	if bt == theme.BackDonCards {
		return CardBackDonPath
	}
	return CardBackRegularPath
}

// CardFolder is the set prefix of a card name: "OP01-001" is in "OP01".
func CardFolder(name string) string {
	prefix, _, found := strings.Cut(name, "-")
	if !found || prefix == "" {
		return OtherCardFolder
	}
	return prefix
}

// CardPath returns the entry path for a card.
func CardPath(name string) string {
	return path.Join("Cards", CardFolder(name), name+".png")
}
