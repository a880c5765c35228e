package document

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"
)

// Node is one entry of the folder tree.
type Node struct {
	Name     string
	Path     string
	IsDir    bool
	Children []*Node
}

// Tree is the folder tree of documents under a root directory. Only files
// whose names match one of the tree's patterns are kept.
type Tree struct {
	mu       sync.RWMutex
	root     *Node
	patterns []glob.Glob
}

// NewTree creates an empty tree rooted at root. patterns are glob patterns
// matched against file names; none means every file matches.
func NewTree(root string, patterns []string) (*Tree, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid document pattern %q: %w", p, err)
		}
		compiled = append(compiled, g)
	}
	root = filepath.Clean(root)
	return &Tree{
		root:     &Node{Name: filepath.Base(root), Path: root, IsDir: true},
		patterns: compiled,
	}, nil
}

// Root returns the root directory.
func (t *Tree) Root() string { return t.root.Path }

// Matches reports whether a file name is a document.
func (t *Tree) Matches(name string) bool {
	if len(t.patterns) == 0 {
		return true
	}
	for _, g := range t.patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Insert adds the file at path and any missing parent folders. Returns false
// when path is outside the root, does not match, or is already present.
func (t *Tree) Insert(path string) bool {
	rel, ok := t.relative(path)
	if !ok || !t.Matches(filepath.Base(path)) {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	parts := strings.Split(rel, string(filepath.Separator))
	node := t.root
	for i, part := range parts {
		isDir := i < len(parts)-1
		child := findChild(node, part)
		if child == nil {
			child = &Node{
				Name:  part,
				Path:  filepath.Join(node.Path, part),
				IsDir: isDir,
			}
			node.Children = append(node.Children, child)
			sortChildren(node)
		} else if !isDir || !child.IsDir {
			return false
		}
		node = child
	}
	return true
}

// Remove deletes the file at path. Empty folders are kept.
func (t *Tree) Remove(path string) bool {
	rel, ok := t.relative(path)
	if !ok {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	parts := strings.Split(rel, string(filepath.Separator))
	node := t.root
	for _, part := range parts[:len(parts)-1] {
		if node = findChild(node, part); node == nil {
			return false
		}
	}
	last := parts[len(parts)-1]
	for i, c := range node.Children {
		if c.Name == last && !c.IsDir {
			node.Children = append(node.Children[:i], node.Children[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether the file at path is in the tree.
func (t *Tree) Contains(path string) bool {
	rel, ok := t.relative(path)
	if !ok {
		return false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	node := t.root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if node = findChild(node, part); node == nil {
			return false
		}
	}
	return !node.IsDir
}

// Files returns the paths of every file in the tree, depth-first, sorted.
func (t *Tree) Files() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			if c.IsDir {
				walk(c)
			} else {
				out = append(out, c.Path)
			}
		}
	}
	walk(t.root)
	return out
}

// Scan inserts every matching file under the root on fs. Hidden directories
// are skipped.
func (t *Tree) Scan(fs afero.Fs) error {
	return afero.Walk(fs, t.root.Path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			if path != t.root.Path && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		t.Insert(path)
		return nil
	})
}

func (t *Tree) relative(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	rel, err := filepath.Rel(t.root.Path, filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

func findChild(n *Node, name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// sortChildren orders folders before files, then by name.
func sortChildren(n *Node) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		return a.Name < b.Name
	})
}
