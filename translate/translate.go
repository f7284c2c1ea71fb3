// Package translate formats the user visible messages of hexvm for the
// locale of the user.
package translate

import (
	"log"
	"sync/atomic"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Fallback is the language of the message formats.
var Fallback = language.AmericanEnglish

type localePrinter struct {
	tag     language.Tag
	printer *message.Printer
}

var current atomic.Pointer[localePrinter]

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("hexvm: locale: %v", err)
	}

	SetLocale(locales...)
}

// SetLocale selects the first well-formed BCP 47 locale, or Fallback if
// there is none.
func SetLocale(locales ...string) {
	tag := Fallback
	for _, name := range locales {
		parsed, err := language.Parse(name)
		if err == nil && parsed != language.Und {
			tag = parsed
			break
		}
	}

	current.Store(&localePrinter{tag: tag, printer: message.NewPrinter(tag)})
}

// Language returns the selected locale.
func Language() language.Tag {
	return current.Load().tag
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return current.Load().printer.Sprintf(key, args...)
}
