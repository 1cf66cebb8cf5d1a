// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package journal persists advisory decisions to BadgerDB, one entry per
// committed step, keyed session/<uuid>/<step>. Sessions can be replayed
// in step order for post-craft analysis. An in-memory mode backs tests
// and ephemeral runs.
package journal

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alchemancy/cauldron/services/advisor/craft"
)

var (
	// ErrClosed is returned by operations on a closed journal.
	ErrClosed = errors.New("journal is closed")

	// ErrCorrupted is returned when a stored entry fails its checksum.
	ErrCorrupted = errors.New("journal entry corrupted")

	// ErrBadSessionID is returned when a session id is not a UUID.
	ErrBadSessionID = errors.New("session id must be a UUID")

	// ErrNilContext is returned when a nil context is passed.
	ErrNilContext = errors.New("context must not be nil")
)

// Config holds journal settings.
type Config struct {
	// Path is the directory for BadgerDB files. Required unless
	// InMemory is set.
	Path string

	// InMemory keeps all entries in RAM. Data is lost on Close.
	InMemory bool

	// SyncWrites makes every Record durable before it returns.
	SyncWrites bool

	// SkipCorrupted makes Session log and skip entries that fail
	// their checksum instead of failing the replay.
	SkipCorrupted bool

	// GCInterval is how often to run value log garbage collection.
	// Zero disables it. Ignored in memory mode.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum garbage ratio before GC rewrites
	// a value log file.
	GCDiscardRatio float64

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns production settings: durable writes and hourly
// value log GC.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     time.Hour,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns settings for tests and ephemeral runs.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Entry is one recorded advisory decision: which action was committed
// at which step, how the search scored it, and what the search cost.
type Entry struct {
	// SessionID groups entries for one craft. Must be a UUID.
	SessionID string `json:"session_id"`

	// Step is the turn the decision was committed on. Recording the
	// same (session, step) twice overwrites the earlier entry.
	Step int `json:"step"`

	// Condition is the canonical tier label the decision was made under.
	Condition string `json:"condition,omitempty"`

	// ActionKey is the stable key of the chosen action.
	ActionKey string `json:"action_key"`

	// Score is the search score of the chosen action.
	Score float64 `json:"score"`

	// Metrics is the search cost that produced the decision.
	Metrics craft.Metrics `json:"metrics"`

	// StateDigest identifies the state after committing the action.
	StateDigest string `json:"state_digest,omitempty"`

	// RecordedAt is filled by Record when zero.
	RecordedAt time.Time `json:"recorded_at"`
}

// Stats reports journal counters. Entries includes entries found on
// open; AppendedBytes counts only bytes written since open.
type Stats struct {
	Entries       int64
	AppendedBytes int64
}

// StateDigest returns a stable hex digest of a state. Map keys are
// sorted by the JSON encoder, so equal states digest equally.
func StateDigest(s *craft.State) string {
	if s == nil {
		return ""
	}
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NewSessionID returns a fresh session id for Record.
func NewSessionID() string {
	return uuid.NewString()
}

// Journal is a BadgerDB-backed session log. Safe for concurrent use.
type Journal struct {
	db     *badger.DB
	cfg    Config
	logger *slog.Logger

	entries       atomic.Int64
	appendedBytes atomic.Int64
	closed        atomic.Bool

	gcStop chan struct{}
	gcDone chan struct{}
}

// badgerLogger routes BadgerDB's internal logging through slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens the journal, creating the directory if needed. Call Close
// when done.
func Open(cfg Config) (*Journal, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent journal")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create journal directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)
	opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	j := &Journal{
		db:     db,
		cfg:    cfg,
		logger: cfg.Logger.With(slog.String("component", "journal")),
	}

	if err := j.initEntryCount(); err != nil {
		db.Close()
		return nil, fmt.Errorf("count journal entries: %w", err)
	}

	if !cfg.InMemory && cfg.GCInterval > 0 {
		j.gcStop = make(chan struct{})
		j.gcDone = make(chan struct{})
		go j.runGC()
	}

	j.logger.Info("journal opened",
		slog.String("path", cfg.Path),
		slog.Bool("in_memory", cfg.InMemory),
		slog.Int64("entries", j.entries.Load()))

	return j, nil
}

const keyPrefix = "session/"

// entryKey builds the key for one decision. Zero-padding the step keeps
// a session's entries in step order under Badger's lexicographic keys.
func entryKey(sessionID string, step int) []byte {
	return []byte(fmt.Sprintf("%s%s/%06d", keyPrefix, sessionID, step))
}

func sessionPrefix(sessionID string) []byte {
	return []byte(keyPrefix + sessionID + "/")
}

// initEntryCount scans existing keys so Stats reflects reopened data.
func (j *Journal) initEntryCount() error {
	return j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		var n int64
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		j.entries.Store(n)
		return nil
	})
}

// encodeEntry prepends a CRC32 checksum to the gob encoding.
func encodeEntry(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&e); err != nil {
		return nil, fmt.Errorf("encode entry: %w", err)
	}
	out := make([]byte, 4+buf.Len())
	binary.BigEndian.PutUint32(out[:4], crc32.ChecksumIEEE(buf.Bytes()))
	copy(out[4:], buf.Bytes())
	return out, nil
}

// decodeEntry verifies the checksum before decoding.
func decodeEntry(data []byte) (Entry, error) {
	if len(data) < 5 {
		return Entry{}, fmt.Errorf("%w: entry too short", ErrCorrupted)
	}
	stored := binary.BigEndian.Uint32(data[:4])
	if computed := crc32.ChecksumIEEE(data[4:]); stored != computed {
		return Entry{}, fmt.Errorf("%w: stored %08x, computed %08x", ErrCorrupted, stored, computed)
	}
	var e Entry
	if err := gob.NewDecoder(bytes.NewReader(data[4:])).Decode(&e); err != nil {
		return Entry{}, fmt.Errorf("decode entry: %w", err)
	}
	return e, nil
}

// Record persists one decision. The same (session, step) pair may be
// recorded again; the last write wins.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if ctx == nil {
		return ErrNilContext
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if j.closed.Load() {
		return ErrClosed
	}
	if _, err := uuid.Parse(e.SessionID); err != nil {
		return fmt.Errorf("%w: %q", ErrBadSessionID, e.SessionID)
	}
	if e.Step < 0 {
		return fmt.Errorf("step must be non-negative, got %d", e.Step)
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}

	_, span := otel.Tracer("journal").Start(ctx, "journal.Record",
		trace.WithAttributes(
			attribute.String("session_id", e.SessionID),
			attribute.Int("step", e.Step),
			attribute.String("action_key", e.ActionKey),
		))
	defer span.End()

	data, err := encodeEntry(e)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return err
	}

	key := entryKey(e.SessionID, e.Step)
	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return fmt.Errorf("write entry: %w", err)
	}

	j.entries.Add(1)
	j.appendedBytes.Add(int64(len(data)))

	j.logger.Debug("decision recorded",
		slog.String("session_id", e.SessionID),
		slog.Int("step", e.Step),
		slog.String("action", e.ActionKey),
		slog.Int("bytes", len(data)))

	return nil
}

// Session replays one session's entries in step order. A session with
// no entries replays empty.
func (j *Journal) Session(ctx context.Context, sessionID string) ([]Entry, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if j.closed.Load() {
		return nil, ErrClosed
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadSessionID, sessionID)
	}

	ctx, span := otel.Tracer("journal").Start(ctx, "journal.Session",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	var out []Entry
	skipped := 0
	prefix := sessionPrefix(sessionID)
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			err := it.Item().Value(func(val []byte) error {
				e, err := decodeEntry(val)
				if err != nil {
					if errors.Is(err, ErrCorrupted) && j.cfg.SkipCorrupted {
						skipped++
						j.logger.Warn("skipping corrupted entry",
							slog.String("key", string(it.Item().Key())),
							slog.String("error", err.Error()))
						return nil
					}
					return err
				}
				out = append(out, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "replay failed")
		return nil, fmt.Errorf("replay session %s: %w", sessionID, err)
	}

	span.SetAttributes(
		attribute.Int("entry_count", len(out)),
		attribute.Int("skipped", skipped),
	)
	return out, nil
}

// Sessions lists the ids of all recorded sessions, sorted.
func (j *Journal) Sessions(ctx context.Context) ([]string, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if j.closed.Load() {
		return nil, ErrClosed
	}

	seen := make(map[string]struct{})
	prefix := []byte(keyPrefix)
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			key := string(it.Item().Key())
			rest := strings.TrimPrefix(key, keyPrefix)
			if i := strings.IndexByte(rest, '/'); i > 0 {
				seen[rest[:i]] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Stats returns the journal counters.
func (j *Journal) Stats() Stats {
	return Stats{
		Entries:       j.entries.Load(),
		AppendedBytes: j.appendedBytes.Load(),
	}
}

// Sync flushes pending writes. No-op in memory mode.
func (j *Journal) Sync() error {
	if j.closed.Load() {
		return ErrClosed
	}
	if j.cfg.InMemory {
		return nil
	}
	return j.db.Sync()
}

// Close stops GC, syncs, and releases the database. Safe to call twice.
func (j *Journal) Close() error {
	if j.closed.Swap(true) {
		return nil
	}
	if j.gcStop != nil {
		close(j.gcStop)
		<-j.gcDone
	}
	if !j.cfg.InMemory {
		if err := j.db.Sync(); err != nil {
			j.logger.Warn("sync before close failed", slog.String("error", err.Error()))
		}
	}
	return j.db.Close()
}

// runGC drives value log garbage collection until Close.
func (j *Journal) runGC() {
	defer close(j.gcDone)

	ticker := time.NewTicker(j.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-j.gcStop:
			return
		case <-ticker.C:
			// ErrNoRewrite means nothing needed collecting.
			err := j.db.RunValueLogGC(j.cfg.GCDiscardRatio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				j.logger.Warn("value log GC failed", slog.String("error", err.Error()))
			}
		}
	}
}
