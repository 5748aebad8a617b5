package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const capyID = "0x00000000000000000000000000000000000000000000000000000000000000c1"

func TestDecodeExplainInput(t *testing.T) {
	fixture, err := os.ReadFile(fixturePath)
	require.NoError(t, err)

	t.Run("bare transaction", func(t *testing.T) {
		raw, objects, err := decodeExplainInput(fixture)
		require.NoError(t, err)
		assert.Equal(t, "11111111111111111111111111111111", raw.Digest)
		assert.Nil(t, objects)
	})

	t.Run("json-rpc envelope", func(t *testing.T) {
		data := `{"jsonrpc":"2.0","id":1,"result":` + string(fixture) + `}`
		raw, _, err := decodeExplainInput([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, "11111111111111111111111111111111", raw.Digest)
	})

	t.Run("explain request with objects", func(t *testing.T) {
		data := `{"transaction":` + string(fixture) + `,"objects":{"` + capyID + `":{"objectId":"` + capyID + `","display":{"name":"Capy #7"}}}}`
		raw, objects, err := decodeExplainInput([]byte(data))
		require.NoError(t, err)
		assert.NotNil(t, raw)
		require.Contains(t, objects, capyID)
		assert.Equal(t, "Capy #7", objects[capyID].Display["name"])
	})

	t.Run("not json", func(t *testing.T) {
		_, _, err := decodeExplainInput([]byte("nope"))
		assert.ErrorContains(t, err, "invalid transaction JSON")
	})

	t.Run("no transaction", func(t *testing.T) {
		_, _, err := decodeExplainInput([]byte(`{"objects":{}}`))
		assert.ErrorContains(t, err, "neither a transaction nor an explain request")
	})
}

func TestExplainCommand(t *testing.T) {
	t.Run("jq headline", func(t *testing.T) {
		out, err := runApp(t, "explain", "--file", fixturePath, "--jq", ".headline")
		require.NoError(t, err)
		assert.Equal(t, "{{User A}} created {{1 object}}.", strings.TrimSpace(out))
	})

	t.Run("objects change the headline", func(t *testing.T) {
		fixture, err := os.ReadFile(fixturePath)
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "explain.json")
		body := `{"transaction":` + string(fixture) + `,"objects":{"` + capyID + `":{"objectId":"` + capyID + `","display":{"name":"Capy #7"}}}}`
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

		out, err := runApp(t, "explain", "--file", path, "--jq", ".headline")
		require.NoError(t, err)
		assert.Equal(t, "{{User B}} received {{Capy #7}} from {{User A}}.", strings.TrimSpace(out))
	})

	t.Run("text output", func(t *testing.T) {
		out, err := runApp(t, "explain", "--file", fixturePath)
		require.NoError(t, err)
		assert.Contains(t, out, "Digest:      11111111111111111111111111111111")
		assert.Contains(t, out, "Gas:         0.002521880 SUI")
		assert.Contains(t, out, "User A")
	})

	t.Run("requirement met", func(t *testing.T) {
		_, err := runApp(t, "explain", "--file", fixturePath, "--must-jq", ".success", "--must-jq", ".gas_cost_mist == \"2521880\"")
		require.NoError(t, err)
	})

	t.Run("requirement not met", func(t *testing.T) {
		_, err := runApp(t, "explain", "--file", fixturePath, "--must-jq", ".success", "--must-jq", ".success | not")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jq requirement 2 not met")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := runApp(t, "explain", "--file", filepath.Join(t.TempDir(), "missing.json"))
		assert.ErrorContains(t, err, "failed to read transaction file")
	})
}

func TestInterpretCommand_InvalidDigest(t *testing.T) {
	_, err := runApp(t, "interpret", "not-a-digest!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid transaction digest")
}

func TestInterpretCommand_MissingDigest(t *testing.T) {
	_, err := runApp(t, "interpret")
	assert.ErrorContains(t, err, "transaction digest is required")
}

func TestFormatTimestampMs(t *testing.T) {
	assert.Equal(t, "2023-11-14T22:13:20Z", formatTimestampMs("1700000000000"))
	assert.Equal(t, "soon", formatTimestampMs("soon"))
}
