package repositories

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/spotgram/spotgram/internal/models"
	"github.com/spotgram/spotgram/internal/shared"
)

// MemoryStatsStore is the volatile [models.StatsStore].
type MemoryStatsStore struct {
	mu      sync.Mutex
	stats   map[string]models.Stats
	artists map[string]map[string]int
}

// NewMemoryStatsStore creates an empty in-memory stats store.
func NewMemoryStatsStore() *MemoryStatsStore {
	return &MemoryStatsStore{
		stats:   make(map[string]models.Stats),
		artists: make(map[string]map[string]int),
	}
}

func (s *MemoryStatsStore) Stats(identity string) (models.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats[identity], nil
}

func (s *MemoryStatsStore) RecordAdd(identity, artist string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats[identity]
	st.Added++
	st.LastAdd = at
	if st.FirstAdd.IsZero() {
		st.FirstAdd = at
	}
	s.stats[identity] = st

	if artist != "" {
		if s.artists[identity] == nil {
			s.artists[identity] = make(map[string]int)
		}
		s.artists[identity][artist]++
	}

	return nil
}

func (s *MemoryStatsStore) RecordDelete(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats[identity]
	st.Deleted++
	s.stats[identity] = st
	return nil
}

func (s *MemoryStatsStore) FavoriteArtist(identity string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var favorite string
	var best int
	for artist, count := range s.artists[identity] {
		if count > best || (count == best && artist < favorite) {
			favorite = artist
			best = count
		}
	}
	return favorite, nil
}

// StatsRepository implements [models.StatsStore] on SQLite.
type StatsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new [StatsRepository] with the given database connection.
func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Stats retrieves the usage counters for the given identity.
func (r *StatsRepository) Stats(identity string) (models.Stats, error) {
	query := `
		SELECT added, deleted, first_add, last_add
		FROM library_stats
		WHERE identity = ?
	`

	var (
		stats    models.Stats
		firstAdd sql.NullTime
		lastAdd  sql.NullTime
	)

	err := r.db.QueryRow(query, identity).Scan(&stats.Added, &stats.Deleted, &firstAdd, &lastAdd)
	if err == sql.ErrNoRows {
		return models.Stats{}, nil
	}
	if err != nil {
		return models.Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}

	if firstAdd.Valid {
		stats.FirstAdd = firstAdd.Time
	}
	if lastAdd.Valid {
		stats.LastAdd = lastAdd.Time
	}

	return stats, nil
}

// RecordAdd increments the add counter, updates first/last add times, and
// bumps the per-artist count.
func (r *StatsRepository) RecordAdd(identity, artist string, at time.Time) error {
	query := `
		INSERT INTO library_stats (id, identity, added, deleted, first_add, last_add)
		VALUES (?, ?, 1, 0, ?, ?)
		ON CONFLICT (identity) DO UPDATE SET
			added = added + 1,
			first_add = COALESCE(first_add, excluded.first_add),
			last_add = excluded.last_add
	`

	if _, err := r.db.Exec(query, shared.GenerateID(), identity, at, at); err != nil {
		return fmt.Errorf("failed to record add: %w", err)
	}

	if artist == "" {
		return nil
	}

	query = `
		INSERT INTO artist_counts (id, identity, artist, count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (identity, artist) DO UPDATE SET count = count + 1
	`

	if _, err := r.db.Exec(query, shared.GenerateID(), identity, artist); err != nil {
		return fmt.Errorf("failed to record artist: %w", err)
	}

	return nil
}

// RecordDelete increments the delete counter.
func (r *StatsRepository) RecordDelete(identity string) error {
	query := `
		INSERT INTO library_stats (id, identity, added, deleted)
		VALUES (?, ?, 0, 1)
		ON CONFLICT (identity) DO UPDATE SET deleted = deleted + 1
	`

	if _, err := r.db.Exec(query, shared.GenerateID(), identity); err != nil {
		return fmt.Errorf("failed to record delete: %w", err)
	}

	return nil
}

// FavoriteArtist returns the artist with the highest add count for identity.
func (r *StatsRepository) FavoriteArtist(identity string) (string, error) {
	query := `
		SELECT artist
		FROM artist_counts
		WHERE identity = ?
		ORDER BY count DESC, artist ASC
		LIMIT 1
	`

	var artist string
	err := r.db.QueryRow(query, identity).Scan(&artist)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query favorite artist: %w", err)
	}

	return artist, nil
}
