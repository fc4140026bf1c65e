package ir

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"unicode"
)

// DiscriminatorSize is the byte length of every discriminator.
const DiscriminatorSize = 8

// Discriminator tags accounts, instructions, and events so stored bytes can
// be recognised without out-of-band type information.
type Discriminator [DiscriminatorSize]byte

// Discriminator namespaces.
const (
	namespaceAccount     = "account"
	namespaceInstruction = "global"
	namespaceEvent       = "event"
)

func discriminator(namespace, name string) Discriminator {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d Discriminator
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// AccountDiscriminator returns sha256("account:<name>")[:8].
func AccountDiscriminator(name string) Discriminator {
	return discriminator(namespaceAccount, name)
}

// InstructionDiscriminator returns sha256("global:<snake_case name>")[:8].
// Camel-case names are converted, so "initializeCounter" and
// "initialize_counter" produce the same tag.
func InstructionDiscriminator(name string) Discriminator {
	return discriminator(namespaceInstruction, SnakeCase(name))
}

// EventDiscriminator returns sha256("event:<name>")[:8].
func EventDiscriminator(name string) Discriminator {
	return discriminator(namespaceEvent, name)
}

// Bytes returns the discriminator as a slice.
func (d Discriminator) Bytes() []byte {
	return d[:]
}

// String renders the discriminator as a decimal byte list, matching how
// manifests spell it.
func (d Discriminator) String() string {
	parts := make([]string, len(d))
	for i, b := range d {
		parts[i] = fmt.Sprintf("%d", b)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// SnakeCase converts camelCase to snake_case. Already snake-cased input is
// returned unchanged.
func SnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
