package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// transcriptEntry is one archived line
type transcriptEntry struct {
	ConversationID string  `json:"conversationId"`
	Message        Message `json:"message"`
}

// Archiver writes conversation transcripts to per-conversation JSONL files.
// It is write-only: the store never reads transcripts back, so archiver
// failures degrade to log warnings instead of failing the turn.
type Archiver struct {
	dir        string
	writeLocks map[string]*sync.Mutex
	locksMu    sync.Mutex
}

// NewArchiver creates a transcript archiver rooted at dir
func NewArchiver(dir string) (*Archiver, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, ".concierge", "transcripts")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create transcripts directory: %w", err)
	}

	log.Info().Str("dir", dir).Msg("Transcript archiver initialized")

	return &Archiver{
		dir:        dir,
		writeLocks: make(map[string]*sync.Mutex),
	}, nil
}

// validateKey rejects conversation ids that could escape the archive dir
func (a *Archiver) validateKey(conversationID string) error {
	if conversationID == "" {
		return fmt.Errorf("conversation id cannot be empty")
	}
	if strings.Contains(conversationID, "..") {
		return fmt.Errorf("conversation id cannot contain '..'")
	}
	if strings.ContainsAny(conversationID, "/\\") {
		return fmt.Errorf("conversation id cannot contain path separators")
	}
	if strings.Contains(conversationID, "\x00") {
		return fmt.Errorf("conversation id cannot contain null bytes")
	}
	return nil
}

func (a *Archiver) transcriptPath(conversationID string) string {
	return filepath.Join(a.dir, conversationID+".jsonl")
}

func (a *Archiver) getWriteLock(conversationID string) *sync.Mutex {
	a.locksMu.Lock()
	defer a.locksMu.Unlock()

	if lock, exists := a.writeLocks[conversationID]; exists {
		return lock
	}
	lock := &sync.Mutex{}
	a.writeLocks[conversationID] = lock
	return lock
}

// Write appends one message to the conversation's transcript file
func (a *Archiver) Write(conversationID string, message Message) error {
	if err := a.validateKey(conversationID); err != nil {
		return err
	}

	lock := a.getWriteLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	file, err := os.OpenFile(a.transcriptPath(conversationID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open transcript file: %w", err)
	}
	defer file.Close()

	entry := transcriptEntry{
		ConversationID: conversationID,
		Message:        message,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript entry: %w", err)
	}

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write transcript entry: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync transcript file: %w", err)
	}

	return nil
}

// List returns the conversation ids with archived transcripts
func (a *Archiver) List() ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read transcripts directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".jsonl"))
	}
	return ids, nil
}
