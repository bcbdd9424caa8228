package memory

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiverWrite(t *testing.T) {
	dir := t.TempDir()
	a, err := NewArchiver(dir)
	require.NoError(t, err)

	msg := Message{Role: RoleUser, Content: "hello", Timestamp: time.Now()}
	require.NoError(t, a.Write("conv-1", msg))
	require.NoError(t, a.Write("conv-1", Message{Role: RoleAssistant, Content: "hi there", Timestamp: time.Now()}))

	file, err := os.Open(filepath.Join(dir, "conv-1.jsonl"))
	require.NoError(t, err)
	defer file.Close()

	var entries []transcriptEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry transcriptEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, entries, 2)
	assert.Equal(t, "conv-1", entries[0].ConversationID)
	assert.Equal(t, "hello", entries[0].Message.Content)
	assert.Equal(t, RoleAssistant, entries[1].Message.Role)
}

func TestArchiverKeyValidation(t *testing.T) {
	a, err := NewArchiver(t.TempDir())
	require.NoError(t, err)

	msg := Message{Role: RoleUser, Content: "x"}

	assert.Error(t, a.Write("", msg))
	assert.Error(t, a.Write("../escape", msg))
	assert.Error(t, a.Write("a/b", msg))
	assert.Error(t, a.Write("a\\b", msg))
	assert.Error(t, a.Write("a\x00b", msg))
}

func TestArchiverList(t *testing.T) {
	dir := t.TempDir()
	a, err := NewArchiver(dir)
	require.NoError(t, err)

	ids, err := a.List()
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, a.Write("conv-a", Message{Role: RoleUser, Content: "x"}))
	require.NoError(t, a.Write("conv-b", Message{Role: RoleUser, Content: "y"}))

	ids, err = a.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"conv-a", "conv-b"}, ids)
}

func TestStoreWithArchiver(t *testing.T) {
	dir := t.TempDir()
	a, err := NewArchiver(dir)
	require.NoError(t, err)

	s := NewStore(WithArchiver(a))
	require.NoError(t, s.Append("conv-1", Message{Role: RoleUser, Content: "archived"}))

	data, err := os.ReadFile(filepath.Join(dir, "conv-1.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "archived")
}
