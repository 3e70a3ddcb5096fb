package store

import (
	"slices"

	"github.com/aretw0/quire/pkg/core"
)

// FolderNode is a folder with its nested subfolders.
type FolderNode struct {
	Folder   core.Folder
	Children []*FolderNode
}

// Roots returns the owned folders at the root level.
func (f *Folders) Roots() []core.Folder {
	return f.Filter(func(folder core.Folder) bool {
		return folder.ParentID == nil
	})
}

// Children returns the owned folders whose parent is folderID.
func (f *Folders) Children(folderID string) []core.Folder {
	return f.Filter(func(folder core.Folder) bool {
		return core.RefersTo(folder.ParentID, folderID)
	})
}

// AncestorPath returns the names of the ancestors of folderID, from the root
// down to its immediate parent. The walk stops early, returning what it has,
// when an ancestor cannot be found or the chain loops back on itself.
func (f *Folders) AncestorPath(folderID string) []string {
	byID := indexFolders(f.ListOwned())

	folder, ok := byID[folderID]
	if !ok {
		return []string{}
	}

	path := []string{}
	seen := map[string]bool{folderID: true}
	for cur := folder.ParentID; cur != nil; {
		if seen[*cur] {
			break
		}
		seen[*cur] = true

		parent, ok := byID[*cur]
		if !ok {
			break
		}
		path = append(path, parent.Name)
		cur = parent.ParentID
	}

	slices.Reverse(path)
	return path
}

// Descendants returns the ids of every owned folder below folderID.
func (f *Folders) Descendants(folderID string) []string {
	children := make(map[string][]string)
	for _, folder := range f.ListOwned() {
		if folder.ParentID != nil {
			children[*folder.ParentID] = append(children[*folder.ParentID], folder.ID)
		}
	}

	var out []string
	seen := map[string]bool{folderID: true}
	queue := []string{folderID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// Tree returns the owned folders as a forest. Folders whose parent is missing
// are treated as roots.
func (f *Folders) Tree() []*FolderNode {
	owned := f.ListOwned()

	nodes := make(map[string]*FolderNode, len(owned))
	for _, folder := range owned {
		nodes[folder.ID] = &FolderNode{Folder: folder}
	}

	var roots []*FolderNode
	for _, folder := range owned {
		node := nodes[folder.ID]
		var parent *FolderNode
		if folder.ParentID != nil {
			parent = nodes[*folder.ParentID]
		}
		if parent != nil && !reaches(nodes, folder.ID, *folder.ParentID) {
			parent.Children = append(parent.Children, node)
			continue
		}
		roots = append(roots, node)
	}
	return roots
}

// reaches reports whether walking up from start arrives at id, which would make
// attaching id under start a cycle.
func reaches(nodes map[string]*FolderNode, id, start string) bool {
	seen := make(map[string]bool)
	for cur := start; ; {
		if cur == id {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
		node, ok := nodes[cur]
		if !ok || node.Folder.ParentID == nil {
			return false
		}
		cur = *node.Folder.ParentID
	}
}
