package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/store"
)

var seedPath = filepath.Join("testdata", "seed.yaml")

func TestSeedCommand_Text(t *testing.T) {
	db := filepath.Join(t.TempDir(), "relq.db")

	out, _, err := execute(t, "seed", "--db", db, seedPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 11 record(s)")
	assert.Contains(t, out, "  entities: 6\n  layers: 3\n  owners: 2\n")
}

func TestSeedCommand_JSONReplacesByID(t *testing.T) {
	db := filepath.Join(t.TempDir(), "relq.db")

	_, _, err := execute(t, "seed", "--db", db, seedPath)
	require.NoError(t, err)

	// Seeding again replaces records with the same kind and id.
	out, _, err := execute(t, "--format", "json", "seed", "--db", db, seedPath)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   SeedResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 11, resp.Data.Written)
	assert.Equal(t, []KindCount{
		{Kind: "entities", Count: 6},
		{Kind: "layers", Count: 3},
		{Kind: "owners", Count: 2},
	}, resp.Data.Kinds)
}

func TestSeedCommand_HandlesForRowsWithoutID(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "relq.db")
	path := filepath.Join(dir, "anon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("layers:\n  - {name: A}\n  - {name: B}\n"), 0644))

	n := 0
	opts := &SeedOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    db,
		Handles: store.HandleFunc(func() string {
			n++
			return fmt.Sprintf("h%d", n)
		}),
	}
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, runSeed(opts, []string{path}, cmd))
	assert.Contains(t, out.String(), "Seeded 2 record(s)")

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	rec, err := st.Get(context.Background(), "layers", "h2")
	require.NoError(t, err)
	assert.Equal(t, "h2", rec.ID)
}

func TestSeedCommand_MissingFile(t *testing.T) {
	db := filepath.Join(t.TempDir(), "relq.db")

	_, _, err := execute(t, "seed", "--db", db, "/nonexistent/seed.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}

func TestSeedCommand_InvalidSeed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("layers: {id: L1}\n"), 0644))

	_, _, err := execute(t, "seed", "--db", filepath.Join(dir, "relq.db"), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeLoadFailed)
}
