package hdf5

import (
	"fmt"
	"path"
	"strings"

	"github.com/l1ktools/l1kio/internal/btree"
	"github.com/l1ktools/l1kio/internal/heap"
	"github.com/l1ktools/l1kio/internal/message"
	"github.com/l1ktools/l1kio/internal/object"
)

// Group is an HDF5 group.
type Group struct {
	file   *File
	path   string
	header *object.Header // nil while the file is being written

	// write state, encoded when the file is flushed
	link   *message.Link // this group's link in its parent
	links  []*message.Link
	attrs  []*message.Attribute
	groups []*Group
}

// member is one link of a group.
type member struct {
	name     string
	addr     uint64
	soft     string
	external bool
}

// Name returns the last component of the group path.
func (g *Group) Name() string {
	if g.path == "/" {
		return "/"
	}
	return path.Base(g.path)
}

// Path returns the absolute path of the group.
func (g *Group) Path() string {
	return g.path
}

// OpenGroup opens a group by path, absolute or relative to g.
func (g *Group) OpenGroup(p string) (*Group, error) {
	obj, err := g.open(p)
	if err != nil {
		return nil, err
	}
	group, ok := obj.(*Group)
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNotGroup)
	}
	return group, nil
}

// OpenDataset opens a dataset by path, absolute or relative to g.
func (g *Group) OpenDataset(p string) (*Dataset, error) {
	obj, err := g.open(p)
	if err != nil {
		return nil, err
	}
	ds, ok := obj.(*Dataset)
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNotDataset)
	}
	return ds, nil
}

// Members returns the names of the links in g, in storage order.
func (g *Group) Members() ([]string, error) {
	members, err := g.members()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.name
	}
	return names, nil
}

// Attrs returns the attribute names of the group.
func (g *Group) Attrs() []string {
	if g.header == nil {
		names := make([]string, len(g.attrs))
		for i, a := range g.attrs {
			names[i] = a.Name
		}
		return names
	}
	return attrNames(g.header)
}

// Attr returns the named attribute, or nil.
func (g *Group) Attr(name string) *Attribute {
	if g.header == nil {
		for _, a := range g.attrs {
			if a.Name == name {
				return &Attribute{msg: a}
			}
		}
		return nil
	}
	return attrByName(g.file, g.header, name)
}

// open returns the *Group or *Dataset at p.
func (g *Group) open(p string) (interface{}, error) {
	h, objPath, err := g.lookup(p, 0)
	if err != nil {
		return nil, err
	}
	switch {
	case h.IsDataset():
		return newDataset(g.file, objPath, h)
	case h.IsGroup() || objPath == "/":
		return &Group{file: g.file, path: objPath, header: h}, nil
	default:
		return nil, fmt.Errorf("%s is neither a group nor a dataset: %w", objPath, ErrUnsupported)
	}
}

// lookup resolves p, absolute or relative to g, to an object header and its
// path. depth counts the soft links already followed.
func (g *Group) lookup(p string, depth int) (*object.Header, string, error) {
	if g.header == nil {
		return nil, "", fmt.Errorf("reading a file that is being written: %w", ErrUnsupported)
	}

	cur := g
	if strings.HasPrefix(p, "/") {
		cur = g.file.root
	}
	h, objPath := cur.header, cur.path
	for i, name := range SplitPath(p) {
		if i > 0 {
			if !h.IsGroup() {
				return nil, "", fmt.Errorf("%s: %w", objPath, ErrNotGroup)
			}
			cur = &Group{file: g.file, path: objPath, header: h}
		}
		m, err := cur.member(name)
		if err != nil {
			return nil, "", err
		}
		objPath = path.Join(cur.path, name)

		switch {
		case m.external:
			return nil, "", fmt.Errorf("external link %s: %w", objPath, ErrUnsupported)
		case m.soft != "":
			if depth >= MaxLinkDepth {
				return nil, "", fmt.Errorf("soft link %s: %w", objPath, ErrLinkDepth)
			}
			if h, _, err = cur.lookup(m.soft, depth+1); err != nil {
				return nil, "", fmt.Errorf("soft link %s -> %s: %w", objPath, m.soft, err)
			}
		default:
			if h, err = object.Read(g.file.reader, m.addr); err != nil {
				return nil, "", fmt.Errorf("reading %s: %w", objPath, err)
			}
		}
	}
	return h, objPath, nil
}

// member finds the link called name among the members of g.
func (g *Group) member(name string) (member, error) {
	members, err := g.members()
	if err != nil {
		return member{}, err
	}
	for _, m := range members {
		if m.name == name {
			return m, nil
		}
	}
	return member{}, fmt.Errorf("%s: %w", path.Join(g.path, name), ErrNotFound)
}

// members lists the links of g. New-style groups keep them as link
// messages, old-style groups in a symbol table.
func (g *Group) members() ([]member, error) {
	if g.header == nil {
		members := make([]member, len(g.links))
		for i, l := range g.links {
			members[i] = member{name: l.Name, addr: l.ObjectAddress}
		}
		return members, nil
	}

	r := g.file.reader
	if li, ok := object.First[*message.LinkInfo](g.header); ok && !r.IsUndefined(li.FractalHeapAddress) {
		return nil, fmt.Errorf("group %s uses dense link storage: %w", g.path, ErrUnsupported)
	}

	var members []member
	for _, l := range object.All[*message.Link](g.header) {
		members = append(members, member{
			name:     l.Name,
			addr:     l.ObjectAddress,
			soft:     l.SoftLinkValue,
			external: l.IsExternal(),
		})
	}

	if st := g.header.SymbolTable(); st != nil {
		names, err := heap.ReadLocal(r, st.LocalHeapAddress)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", g.path, err)
		}
		entries, err := btree.ReadGroup(r, st.BTreeAddress, names)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", g.path, err)
		}
		for _, e := range entries {
			members = append(members, member{name: e.Name, addr: e.Address, soft: e.SoftTarget})
		}
	}
	return members, nil
}
