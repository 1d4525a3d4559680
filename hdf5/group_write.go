package hdf5

import (
	"fmt"
	"path"
	"strings"

	"github.com/l1ktools/l1kio/internal/message"
)

// CreateGroup adds an empty subgroup to g.
func (g *Group) CreateGroup(name string) (*Group, error) {
	if err := g.checkNewMember(name); err != nil {
		return nil, err
	}
	child := &Group{
		file: g.file,
		path: path.Join(g.path, name),
		link: message.NewHardLink(name, 0),
	}
	g.links = append(g.links, child.link)
	g.groups = append(g.groups, child)
	return child, nil
}

// CreateGroupPath returns the group at p, absolute or relative to g,
// creating every missing group along the way.
func (g *Group) CreateGroupPath(p string) (*Group, error) {
	cur := g
	if strings.HasPrefix(p, "/") {
		cur = g.file.root
	}
	for _, name := range SplitPath(p) {
		next := cur.subgroup(name)
		if next == nil {
			var err error
			if next, err = cur.CreateGroup(name); err != nil {
				return nil, err
			}
		}
		cur = next
	}
	return cur, nil
}

// CreateSoftLink adds a link called name that resolves target, a path
// absolute or relative to g, when it is opened.
func (g *Group) CreateSoftLink(name, target string) error {
	if err := g.checkNewMember(name); err != nil {
		return err
	}
	if target == "" {
		return fmt.Errorf("soft link %q: %w", name, ErrInvalidPath)
	}
	g.links = append(g.links, &message.Link{LinkType: message.LinkTypeSoft, Name: name, SoftLinkValue: target})
	return nil
}

// SetAttr sets an attribute of the group, replacing one of the same name.
// The value is a number, a string or a slice of either.
func (g *Group) SetAttr(name string, value interface{}) error {
	if err := g.checkWritable(); err != nil {
		return err
	}
	attr, err := newAttribute(name, value)
	if err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	for i, a := range g.attrs {
		if a.Name == name {
			g.attrs[i] = attr
			return nil
		}
	}
	g.attrs = append(g.attrs, attr)
	return nil
}

// subgroup returns the pending child group called name, or nil.
func (g *Group) subgroup(name string) *Group {
	for _, child := range g.groups {
		if child.link.Name == name {
			return child
		}
	}
	return nil
}

// checkWritable fails for closed files and for groups read from disk.
func (g *Group) checkWritable() error {
	switch {
	case g.file.closed:
		return ErrClosed
	case !g.file.writable() || g.header != nil:
		return ErrReadOnly
	}
	return nil
}

// checkNewMember reports whether a link called name can be added to g.
func (g *Group) checkNewMember(name string) error {
	if err := g.checkWritable(); err != nil {
		return err
	}
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return fmt.Errorf("member name %q: %w", name, ErrInvalidPath)
	}
	for _, l := range g.links {
		if l.Name == name {
			return fmt.Errorf("%s already exists", path.Join(g.path, name))
		}
	}
	return nil
}
