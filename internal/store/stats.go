package store

import (
	"context"
)

// Stats holds database statistics.
type Stats struct {
	Backend        string `json:"backend"`
	DBPath         string `json:"db_path"`
	DBSizeBytes    int64  `json:"db_size_bytes"`
	SchemaVersion  int    `json:"schema_version"`
	Chats          int    `json:"chats"`
	Messages       int    `json:"messages"`
	SystemPrompts  int    `json:"system_prompts"`
	OrphanMessages int    `json:"orphan_messages"`
}

// Stats returns database statistics.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		Backend:     s.eng.backend(),
		DBPath:      s.path,
		DBSizeBytes: s.eng.sizeBytes(),
	}

	var err error
	if st.SchemaVersion, err = s.eng.schemaVersion(ctx); err != nil {
		return st, wrap(kvCollection, "schemaVersion", err)
	}
	if st.Chats, err = s.Chats.Count(ctx); err != nil {
		return st, err
	}
	if st.SystemPrompts, err = s.Prompts.Count(ctx); err != nil {
		return st, err
	}
	orphans, err := s.orphans(ctx)
	if err != nil {
		return st, err
	}
	st.OrphanMessages = len(orphans)
	if st.Messages, err = s.Messages.Count(ctx); err != nil {
		return st, err
	}

	return st, nil
}

// orphans returns ids of messages whose chat no longer exists.
func (s *Store) orphans(ctx context.Context) ([]string, error) {
	chats, err := s.Chats.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(chats))
	for _, c := range chats {
		known[c.ID] = true
	}

	msgs, err := s.Messages.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, m := range msgs {
		if b := m.Base(); !known[b.ChatID] {
			ids = append(ids, b.ID)
		}
	}
	return ids, nil
}

// PurgeOrphans deletes messages whose chat no longer exists and returns
// how many were removed.
func (s *Store) PurgeOrphans(ctx context.Context) (int, error) {
	ids, err := s.orphans(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.Messages.Delete(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}
