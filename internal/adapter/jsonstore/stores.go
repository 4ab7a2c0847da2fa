package jsonstore

import (
	"log/slog"
	"path/filepath"

	"github.com/Strob0t/AgentForge/internal/config"
)

// Stores bundles every file-backed store under one data directory.
type Stores struct {
	Tasks         *TaskStore
	Schedules     *ScheduleStore
	Relationships *RelationshipStore
	Stats         *StatsStore
	Profiles      *ProfileStore
	Hub           *Hub
}

// Open creates or loads every collection under cfg.Dir.
func Open(cfg config.Storage, log *slog.Logger) (*Stores, error) {
	quiet := cfg.FlushQuiet

	tasks, err := newTaskStore(filepath.Join(cfg.Dir, "tasks.json"), quiet, log)
	if err != nil {
		return nil, err
	}
	schedules, err := newScheduleStore(filepath.Join(cfg.Dir, "schedules.json"), quiet, log)
	if err != nil {
		return nil, err
	}
	relationships, err := newRelationshipStore(filepath.Join(cfg.Dir, "relationships.json"), quiet, log)
	if err != nil {
		return nil, err
	}
	stats, err := newStatsStore(filepath.Join(cfg.Dir, "stats.json"), quiet, log)
	if err != nil {
		return nil, err
	}
	profiles, err := newProfileStore(filepath.Join(cfg.Dir, "agents.json"), quiet, log)
	if err != nil {
		return nil, err
	}
	hub, err := NewHub(filepath.Join(cfg.Dir, "channels"))
	if err != nil {
		return nil, err
	}

	return &Stores{
		Tasks:         tasks,
		Schedules:     schedules,
		Relationships: relationships,
		Stats:         stats,
		Profiles:      profiles,
		Hub:           hub,
	}, nil
}

// Close forces every pending debounced write to disk.
func (s *Stores) Close() {
	s.Tasks.col.flush()
	s.Schedules.col.flush()
	s.Relationships.col.flush()
	s.Stats.col.flush()
	s.Profiles.col.flush()
}
