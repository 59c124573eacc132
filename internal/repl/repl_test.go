package repl

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/chzyer/readline"
	"github.com/neekrasov/kvstore/internal/storage/hashengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*Session, *bytes.Buffer) {
	t.Helper()

	engine := hashengine.New()
	t.Cleanup(engine.Close)

	var out bytes.Buffer
	rl, err := readline.NewEx(&readline.Config{
		Stdin:  io.NopCloser(strings.NewReader("")),
		Stdout: &out,
		Stderr: &out,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rl.Close() })

	return &Session{engine: engine, rl: rl}, &out
}

func TestDispatch_SetGet(t *testing.T) {
	s, out := newTestSession(t)

	require.NoError(t, s.dispatch("SET user1 Smith John 1990 NYC 100"))
	assert.Equal(t, "OK\n", out.String())
	out.Reset()

	require.NoError(t, s.dispatch("GET user1"))
	assert.Equal(t, "Smith John 1990 NYC 100\n", out.String())
}

func TestDispatch_SetKeyAlreadyExists(t *testing.T) {
	s, out := newTestSession(t)

	require.NoError(t, s.dispatch("SET a X Y 2000 Z 1"))
	out.Reset()

	require.NoError(t, s.dispatch("SET a X Y 2000 Z 1"))
	assert.Equal(t, "ERROR: key already exists\n", out.String())
}

func TestDispatch_GetMissing(t *testing.T) {
	s, out := newTestSession(t)

	require.NoError(t, s.dispatch("GET missing"))
	assert.Equal(t, "(null)\n", out.String())
}

func TestDispatch_ExistsDel(t *testing.T) {
	s, out := newTestSession(t)

	require.NoError(t, s.dispatch("SET k A B 1 C 1"))
	out.Reset()

	require.NoError(t, s.dispatch("EXISTS k"))
	assert.Equal(t, "true\n", out.String())
	out.Reset()

	require.NoError(t, s.dispatch("DEL k"))
	assert.Equal(t, "true\n", out.String())
	out.Reset()

	require.NoError(t, s.dispatch("DEL k"))
	assert.Equal(t, "false\n", out.String())
}

func TestDispatch_UpdatePartialMask(t *testing.T) {
	s, out := newTestSession(t)

	require.NoError(t, s.dispatch("SET k A B 1 C 1"))
	out.Reset()

	require.NoError(t, s.dispatch("UPDATE k - - - - 0 EX 5"))
	assert.Equal(t, "OK\n", out.String())
	out.Reset()

	require.NoError(t, s.dispatch("GET k"))
	assert.Equal(t, "A B 1 C 0\n", out.String())
	out.Reset()

	require.NoError(t, s.dispatch("TTL k"))
	assert.Equal(t, "5\n", out.String())
}

func TestDispatch_Find(t *testing.T) {
	s, out := newTestSession(t)

	require.NoError(t, s.dispatch("SET k1 A B 1 C 1"))
	require.NoError(t, s.dispatch("SET k2 A B 2 C 1"))
	require.NoError(t, s.dispatch("SET k3 A B 2 C 1"))
	out.Reset()

	require.NoError(t, s.dispatch("FIND - - 2 - -"))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 2)
}

func TestDispatch_KeysEmpty(t *testing.T) {
	s, out := newTestSession(t)

	require.NoError(t, s.dispatch("KEYS"))
	assert.Equal(t, "(null)\n", out.String())
}

func TestDispatch_Rename(t *testing.T) {
	s, out := newTestSession(t)

	require.NoError(t, s.dispatch("SET old A B 1 C 1 EX 100"))
	out.Reset()

	require.NoError(t, s.dispatch("RENAME old new"))
	assert.Equal(t, "true\n", out.String())
	out.Reset()

	require.NoError(t, s.dispatch("EXISTS old"))
	assert.Equal(t, "false\n", out.String())
}

func TestDispatch_TTLSentinels(t *testing.T) {
	s, out := newTestSession(t)

	require.NoError(t, s.dispatch("TTL missing"))
	assert.Equal(t, "-2\n", out.String())
	out.Reset()

	require.NoError(t, s.dispatch("SET user1 Smith John 1990 NYC 100"))
	out.Reset()

	require.NoError(t, s.dispatch("TTL user1"))
	assert.Equal(t, "-3\n", out.String())
}

func TestDispatch_Return(t *testing.T) {
	s, _ := newTestSession(t)
	assert.ErrorIs(t, s.dispatch("RETURN"), errReturn)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	s, out := newTestSession(t)
	require.NoError(t, s.dispatch("FROBNICATE"))
	assert.Equal(t, "ERROR: unknown command\n", out.String())
}
