package chat

import (
	"context"
	"strings"

	"github.com/rcliao/gchat/internal/model"
)

// FolderGroup is the chats filed under one folder.
type FolderGroup struct {
	Folder model.Folder `json:"folder"`
	Chats  []model.Chat `json:"chats"`
}

// ChatList is the sidebar partition of chats. Every group is ordered
// most recent first.
type ChatList struct {
	Pinned        []model.Chat  `json:"pinned"`
	Folders       []FolderGroup `json:"folders"`
	Uncategorized []model.Chat  `json:"uncategorized"`
	Archived      []model.Chat  `json:"archived"`
}

// ListChats partitions chats matching search (case-insensitive title
// substring; "" matches all). Archived chats go to Archived, pinned ones
// to Pinned, chats in a known folder to that folder's group and the rest
// to Uncategorized. Folders appear in settings order; an empty folder is
// omitted only while a search is active.
func (m *Manager) ListChats(ctx context.Context, search string) (ChatList, error) {
	chats, err := m.allChats(ctx)
	if err != nil {
		return ChatList{}, err
	}
	return partition(chats, m.settings.Get().Folders, search), nil
}

func partition(chats []model.Chat, folders []model.Folder, search string) ChatList {
	needle := strings.ToLower(search)

	known := make(map[string]bool, len(folders))
	for _, f := range folders {
		known[f.ID] = true
	}

	list := ChatList{
		Pinned:        []model.Chat{},
		Folders:       []FolderGroup{},
		Uncategorized: []model.Chat{},
		Archived:      []model.Chat{},
	}
	byFolder := make(map[string][]model.Chat)
	for _, c := range chats {
		if needle != "" && !strings.Contains(strings.ToLower(c.Title), needle) {
			continue
		}
		switch {
		case c.IsArchived:
			list.Archived = append(list.Archived, c)
		case c.IsPinned:
			list.Pinned = append(list.Pinned, c)
		case c.FolderID != "" && known[c.FolderID]:
			byFolder[c.FolderID] = append(byFolder[c.FolderID], c)
		default:
			list.Uncategorized = append(list.Uncategorized, c)
		}
	}

	for _, f := range folders {
		group := byFolder[f.ID]
		if len(group) == 0 && search != "" {
			continue
		}
		if group == nil {
			group = []model.Chat{}
		}
		list.Folders = append(list.Folders, FolderGroup{Folder: f, Chats: group})
	}
	return list
}
