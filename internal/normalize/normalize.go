package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Name trims surrounding space and brings the name to NFC, so visually equal names compare equal.
func Name(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
