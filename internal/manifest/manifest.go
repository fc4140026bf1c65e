// Package manifest loads the CUE document that describes the counter
// program: its ID, seed label, account layout, instructions, and event.
package manifest

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/counterslot/internal/derive"
	"github.com/roach88/counterslot/internal/ir"
)

//go:embed counter.cue
var defaultSource []byte

// Required names. The lifecycle manager implements exactly these.
const (
	InstructionInitialize = "initializeCounter"
	InstructionUpdate     = "updateCounter"
)

// fieldTypes lists the scalar types a manifest may declare.
var fieldTypes = map[string]bool{
	"u8": true, "u16": true, "u32": true, "u64": true,
	"i64": true, "bool": true, "string": true, "pubkey": true,
}

// Manifest is a compiled program description.
type Manifest struct {
	Name         string        `json:"name"`
	Version      string        `json:"version"`
	ProgramID    ir.Address    `json:"address"`
	Seed         string        `json:"seed"`
	Accounts     []Item        `json:"accounts"`
	Instructions []Instruction `json:"instructions"`
	Events       []Item        `json:"events"`
}

// Item is an account or event type.
type Item struct {
	Name          string           `json:"name"`
	Discriminator ir.Discriminator `json:"discriminator"`
	Fields        []Field          `json:"fields"`
}

// Instruction is an entry point.
type Instruction struct {
	Name          string           `json:"name"`
	Discriminator ir.Discriminator `json:"discriminator"`
	Accounts      []string         `json:"accounts"`
	Args          []Field          `json:"args"`
}

// Field is a named, typed member.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Instruction returns the instruction named name.
func (m *Manifest) Instruction(name string) (Instruction, bool) {
	for _, in := range m.Instructions {
		if in.Name == name {
			return in, true
		}
	}
	return Instruction{}, false
}

// Deriver returns an address deriver bound to the manifest's program ID.
func (m *Manifest) Deriver() *derive.Deriver {
	return derive.New(m.ProgramID)
}

// Default compiles the embedded manifest.
func Default() (*Manifest, error) {
	return compileSource(defaultSource, "counter.cue")
}

// Load reads and compiles the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return compileSource(data, path)
}

// LoadOrDefault loads path, or the embedded manifest when path is empty.
func LoadOrDefault(path string) (*Manifest, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

func compileSource(data []byte, filename string) (*Manifest, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	programVal := v.LookupPath(cue.ParsePath("program"))
	if !programVal.Exists() {
		return nil, &CompileError{Field: "program", Message: "program is required", Pos: v.Pos()}
	}
	return Compile(programVal)
}

// Compile parses a CUE value into a Manifest.
//
// The CUE value should be the program struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`program: { ... }`)
//	m, err := Compile(v.LookupPath(cue.ParsePath("program")))
func Compile(v cue.Value) (*Manifest, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &Manifest{}
	var err error

	if m.Name, err = requiredString(v, "name"); err != nil {
		return nil, err
	}
	if m.Version, err = optionalString(v, "version"); err != nil {
		return nil, err
	}

	address, err := requiredString(v, "address")
	if err != nil {
		return nil, err
	}
	if m.ProgramID, err = ir.ParseAddress(address); err != nil {
		return nil, &CompileError{Field: "address", Message: err.Error(), Pos: v.LookupPath(cue.ParsePath("address")).Pos()}
	}

	if m.Seed, err = requiredString(v, "seed"); err != nil {
		return nil, err
	}
	if len(m.Seed) > derive.MaxSeedLength {
		return nil, &CompileError{
			Field:   "seed",
			Message: fmt.Sprintf("seed is %d bytes (max %d)", len(m.Seed), derive.MaxSeedLength),
			Pos:     v.LookupPath(cue.ParsePath("seed")).Pos(),
		}
	}

	if m.Accounts, err = parseItems(v, "account", ir.AccountDiscriminator); err != nil {
		return nil, err
	}
	if m.Events, err = parseItems(v, "event", ir.EventDiscriminator); err != nil {
		return nil, err
	}
	if m.Instructions, err = parseInstructions(v); err != nil {
		return nil, err
	}

	if !hasItem(m.Accounts, ir.CounterAccountName) {
		return nil, &CompileError{
			Field:   "account",
			Message: fmt.Sprintf("account %q is required", ir.CounterAccountName),
			Pos:     v.Pos(),
		}
	}
	for _, name := range []string{InstructionInitialize, InstructionUpdate} {
		if _, ok := m.Instruction(name); !ok {
			return nil, &CompileError{
				Field:   "instruction",
				Message: fmt.Sprintf("instruction %q is required", name),
				Pos:     v.Pos(),
			}
		}
	}

	return m, nil
}

// parseItems extracts account or event definitions.
func parseItems(v cue.Value, section string, tag func(string) ir.Discriminator) ([]Item, error) {
	var items []Item

	sectionVal := v.LookupPath(cue.ParsePath(section))
	if !sectionVal.Exists() {
		return items, nil
	}

	iter, err := sectionVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Label()
		itemVal := iter.Value()

		d, err := parseDiscriminator(itemVal, fmt.Sprintf("%s.%s", section, name), tag(name))
		if err != nil {
			return nil, err
		}

		fields, err := parseFields(itemVal, "fields", fmt.Sprintf("%s.%s.fields", section, name))
		if err != nil {
			return nil, err
		}

		items = append(items, Item{Name: name, Discriminator: d, Fields: fields})
	}

	return items, nil
}

// parseInstructions extracts instruction definitions.
func parseInstructions(v cue.Value) ([]Instruction, error) {
	var instructions []Instruction

	instrVal := v.LookupPath(cue.ParsePath("instruction"))
	if !instrVal.Exists() {
		return instructions, nil
	}

	iter, err := instrVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Label()
		instrValue := iter.Value()
		path := "instruction." + name

		d, err := parseDiscriminator(instrValue, path, ir.InstructionDiscriminator(name))
		if err != nil {
			return nil, err
		}

		in := Instruction{Name: name, Discriminator: d}

		accountsVal := instrValue.LookupPath(cue.ParsePath("accounts"))
		if accountsVal.Exists() {
			accIter, err := accountsVal.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for accIter.Next() {
				acc, err := accIter.Value().String()
				if err != nil {
					return nil, formatCUEError(err)
				}
				in.Accounts = append(in.Accounts, acc)
			}
		}

		if in.Args, err = parseFields(instrValue, "args", path+".args"); err != nil {
			return nil, err
		}

		instructions = append(instructions, in)
	}

	return instructions, nil
}

// parseFields extracts a name -> type struct.
func parseFields(v cue.Value, key, path string) ([]Field, error) {
	var fields []Field

	fieldsVal := v.LookupPath(cue.ParsePath(key))
	if !fieldsVal.Exists() {
		return fields, nil
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Label()
		typ, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if !fieldTypes[typ] {
			return nil, &CompileError{
				Field:   path + "." + name,
				Message: fmt.Sprintf("unsupported type %q", typ),
				Pos:     iter.Value().Pos(),
			}
		}
		fields = append(fields, Field{Name: name, Type: typ})
	}

	return fields, nil
}

// parseDiscriminator reads an optional 8-byte list and checks it against want.
// A missing discriminator takes the computed value.
func parseDiscriminator(v cue.Value, path string, want ir.Discriminator) (ir.Discriminator, error) {
	dVal := v.LookupPath(cue.ParsePath("discriminator"))
	if !dVal.Exists() {
		return want, nil
	}

	iter, err := dVal.List()
	if err != nil {
		return ir.Discriminator{}, formatCUEError(err)
	}

	var got ir.Discriminator
	n := 0
	for iter.Next() {
		b, err := iter.Value().Int64()
		if err != nil {
			return ir.Discriminator{}, formatCUEError(err)
		}
		if b < 0 || b > 255 || n >= ir.DiscriminatorSize {
			return ir.Discriminator{}, &CompileError{
				Field:   path + ".discriminator",
				Message: fmt.Sprintf("must be %d bytes in 0..255", ir.DiscriminatorSize),
				Pos:     dVal.Pos(),
			}
		}
		got[n] = byte(b)
		n++
	}
	if n != ir.DiscriminatorSize {
		return ir.Discriminator{}, &CompileError{
			Field:   path + ".discriminator",
			Message: fmt.Sprintf("must be %d bytes, got %d", ir.DiscriminatorSize, n),
			Pos:     dVal.Pos(),
		}
	}
	if got != want {
		return ir.Discriminator{}, &CompileError{
			Field:   path + ".discriminator",
			Message: fmt.Sprintf("declared %s does not match computed %s", got, want),
			Pos:     dVal.Pos(),
		}
	}
	return got, nil
}

func requiredString(v cue.Value, key string) (string, error) {
	val := v.LookupPath(cue.ParsePath(key))
	if !val.Exists() {
		return "", &CompileError{Field: key, Message: key + " is required", Pos: v.Pos()}
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	if s == "" {
		return "", &CompileError{Field: key, Message: key + " must not be empty", Pos: val.Pos()}
	}
	return s, nil
}

func optionalString(v cue.Value, key string) (string, error) {
	val := v.LookupPath(cue.ParsePath(key))
	if !val.Exists() {
		return "", nil
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func hasItem(items []Item, name string) bool {
	for _, it := range items {
		if it.Name == name {
			return true
		}
	}
	return false
}

// CompileError represents a manifest error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
