package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/counterslot/internal/ir"
)

func TestDefault(t *testing.T) {
	m, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "counterslot", m.Name)
	assert.Equal(t, "0.1.0", m.Version)
	assert.Equal(t, "794WyttcZeD1xWA3aXN4er2DW4JhjS48qigdmGM2cbvL", m.ProgramID.String())
	assert.Equal(t, "Counter", m.Seed)

	require.Len(t, m.Accounts, 1)
	assert.Equal(t, ir.AccountDiscriminator("Counter"), m.Accounts[0].Discriminator)
	assert.Equal(t, []Field{{Name: "count", Type: "u8"}}, m.Accounts[0].Fields)

	initIn, ok := m.Instruction(InstructionInitialize)
	require.True(t, ok)
	assert.Equal(t, "[67, 89, 100, 87, 231, 172, 35, 124]", initIn.Discriminator.String())
	assert.Empty(t, initIn.Args)

	update, ok := m.Instruction(InstructionUpdate)
	require.True(t, ok)
	assert.Equal(t, []Field{{Name: "newCount", Type: "u8"}}, update.Args)
	assert.Equal(t, []string{"signer", "counter", "systemProgram"}, update.Accounts)

	require.Len(t, m.Events, 1)
	assert.Equal(t, "CustomEvent", m.Events[0].Name)
}

func TestDefault_DeriverUsesProgramID(t *testing.T) {
	m, err := Default()
	require.NoError(t, err)
	assert.Equal(t, m.ProgramID, m.Deriver().ProgramID())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.cue")
	src := strings.Replace(string(defaultSource), `seed: "Counter"`, `seed: "Tally"`, 1)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Tally", m.Seed)
}

func TestLoadOrDefault(t *testing.T) {
	m, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, "Counter", m.Seed)

	_, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}

func TestCompile_MinimalComputesDiscriminators(t *testing.T) {
	m := compileString(t, `
		program: {
			name:    "tally"
			address: "794WyttcZeD1xWA3aXN4er2DW4JhjS48qigdmGM2cbvL"
			seed:    "Counter"
			account: Counter: fields: count: "u8"
			instruction: initializeCounter: {}
			instruction: updateCounter: args: newCount: "u8"
		}
	`)

	assert.Equal(t, ir.AccountDiscriminator("Counter"), m.Accounts[0].Discriminator)
	update, _ := m.Instruction(InstructionUpdate)
	assert.Equal(t, ir.InstructionDiscriminator("update_counter"), update.Discriminator)
	assert.Empty(t, m.Version)
	assert.Empty(t, m.Events)
}

func TestCompile_Errors(t *testing.T) {
	base := `
		name:    "tally"
		address: "794WyttcZeD1xWA3aXN4er2DW4JhjS48qigdmGM2cbvL"
		seed:    "Counter"
		account: Counter: fields: count: "u8"
		instruction: initializeCounter: {}
		instruction: updateCounter: args: newCount: "u8"
	`

	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{
			name:    "missing name",
			src:     strings.Replace(base, `name:    "tally"`, "", 1),
			wantMsg: "name is required",
		},
		{
			name:    "bad address",
			src:     strings.Replace(base, "794WyttcZeD1xWA3aXN4er2DW4JhjS48qigdmGM2cbvL", "abc", 1),
			wantMsg: "address",
		},
		{
			name:    "empty seed",
			src:     strings.Replace(base, `seed:    "Counter"`, `seed: ""`, 1),
			wantMsg: "seed must not be empty",
		},
		{
			name:    "seed too long",
			src:     strings.Replace(base, `seed:    "Counter"`, `seed: "`+strings.Repeat("s", 33)+`"`, 1),
			wantMsg: "max 32",
		},
		{
			name:    "missing account",
			src:     strings.Replace(base, `account: Counter: fields: count: "u8"`, "", 1),
			wantMsg: `account "Counter" is required`,
		},
		{
			name:    "missing update",
			src:     strings.Replace(base, `instruction: updateCounter: args: newCount: "u8"`, "", 1),
			wantMsg: `instruction "updateCounter" is required`,
		},
		{
			name:    "wrong discriminator",
			src:     strings.Replace(base, "instruction: initializeCounter: {}", "instruction: initializeCounter: discriminator: [1, 2, 3, 4, 5, 6, 7, 8]", 1),
			wantMsg: "does not match computed",
		},
		{
			name:    "short discriminator",
			src:     strings.Replace(base, "instruction: initializeCounter: {}", "instruction: initializeCounter: discriminator: [1, 2]", 1),
			wantMsg: "must be 8 bytes",
		},
		{
			name:    "unsupported field type",
			src:     strings.Replace(base, `count: "u8"`, `count: "f32"`, 1),
			wantMsg: `unsupported type "f32"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := cuecontext.New()
			v := ctx.CompileString("program: {" + tt.src + "}")
			require.NoError(t, v.Err())

			_, err := Compile(v.LookupPath(cue.ParsePath("program")))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoad_MissingProgram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.cue")
	require.NoError(t, os.WriteFile(path, []byte(`other: 1`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "program is required")
}

func TestLoad_SyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.cue")
	require.NoError(t, os.WriteFile(path, []byte(`program: {`), 0o644))

	_, err := Load(path)
	require.Error(t, err)

	var ce *CompileError
	assert.ErrorAs(t, err, &ce)
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "seed", Message: "seed is required"}
	assert.Equal(t, "seed: seed is required", err.Error())
}

func compileString(t *testing.T, src string) *Manifest {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	m, err := Compile(v.LookupPath(cue.ParsePath("program")))
	require.NoError(t, err)
	return m
}
