// Package manifest describes a publish declaratively.
//
// A manifest is a YAML document listing, for each stage, the transactions to
// commit: filesystem action lists, object store uploads and deletes, and
// nested groups. New turns a validated manifest into a publish.Publisher.
//
// Example:
//
//	name: asset-v3
//	root: /srv/publish
//	context: {project: demo}
//	stages:
//	  pre_publish:
//	    - filesystem:
//	        actions:
//	          - create_directory: out
//	  publish:
//	    - parallel: true
//	      filesystem:
//	        actions:
//	          - copy: {source: /work/a.txt, target: out/a.txt}
//	  post_publish:
//	    - filesystem:
//	        actions:
//	          - change_owner_permissions: {path: out/a.txt, permissions: "r--------"}
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scott-wilson/publish/pkg/publish"
	"gopkg.in/yaml.v3"
)

// Manifest is the root of a publish manifest.
type Manifest struct {
	// Name labels the run in logs, history and metrics.
	Name string `yaml:"name,omitempty" json:"name,omitempty" validate:"omitempty,max=256" jsonschema:"description=Name of the publish"`

	// Root is the default filesystem root for filesystem entries. Relative
	// roots and upload sources resolve against the manifest directory;
	// relative action sources resolve inside the transaction root.
	Root string `yaml:"root,omitempty" json:"root,omitempty" jsonschema:"description=Default filesystem root"`

	// Context seeds the publish context passed to the first stage.
	Context map[string]any `yaml:"context,omitempty" json:"context,omitempty" jsonschema:"description=Initial publish context values"`

	Stages Stages `yaml:"stages" json:"stages"`

	// dir is the directory relative paths are resolved against.
	dir string
}

// Stages lists the entries of each stage. Entries of one stage commit in
// order unless marked parallel.
type Stages struct {
	PrePublish  []Entry `yaml:"pre_publish,omitempty" json:"pre_publish,omitempty" validate:"dive"`
	Publish     []Entry `yaml:"publish,omitempty" json:"publish,omitempty" validate:"dive"`
	PostPublish []Entry `yaml:"post_publish,omitempty" json:"post_publish,omitempty" validate:"dive"`
}

// Entry is one transaction of a stage. Exactly one of Filesystem,
// ObjectStore and Group is set.
type Entry struct {
	// Parallel commits the entry together with the preceding entry.
	Parallel bool `yaml:"parallel,omitempty" json:"parallel,omitempty"`

	Filesystem  *FilesystemEntry  `yaml:"filesystem,omitempty" json:"filesystem,omitempty"`
	ObjectStore *ObjectStoreEntry `yaml:"object_store,omitempty" json:"object_store,omitempty"`

	// Group is a nested transaction whose entries commit and roll back as
	// one child.
	Group []Entry `yaml:"group,omitempty" json:"group,omitempty" validate:"omitempty,dive"`
}

// FilesystemEntry is a filesystem transaction.
type FilesystemEntry struct {
	// Root overrides the manifest root.
	Root    string             `yaml:"root,omitempty" json:"root,omitempty"`
	Actions []FilesystemAction `yaml:"actions" json:"actions" validate:"required,min=1,dive"`
}

// FilesystemAction is one filesystem operation. Exactly one field is set.
type FilesystemAction struct {
	CreateDirectory        string            `yaml:"create_directory,omitempty" json:"create_directory,omitempty"`
	Copy                   *PathPair         `yaml:"copy,omitempty" json:"copy,omitempty"`
	Move                   *PathPair         `yaml:"move,omitempty" json:"move,omitempty"`
	HardLink               *PathPair         `yaml:"hard_link,omitempty" json:"hard_link,omitempty"`
	SoftLink               *PathPair         `yaml:"soft_link,omitempty" json:"soft_link,omitempty"`
	Delete                 string            `yaml:"delete,omitempty" json:"delete,omitempty"`
	ChangeOwnerPermissions *OwnerPermissions `yaml:"change_owner_permissions,omitempty" json:"change_owner_permissions,omitempty"`
}

// PathPair is the source and target of a copy, move or link.
type PathPair struct {
	Source string `yaml:"source" json:"source" validate:"required"`
	Target string `yaml:"target" json:"target" validate:"required"`
}

// OwnerPermissions changes the owner, group and mode of a path. Empty fields
// are left unchanged.
type OwnerPermissions struct {
	Path  string `yaml:"path" json:"path" validate:"required"`
	User  string `yaml:"user,omitempty" json:"user,omitempty"`
	Group string `yaml:"group,omitempty" json:"group,omitempty"`

	// Permissions is a symbolic ("rw-r-----", "." leaves a bit unchanged) or
	// octal ("0640") mode.
	Permissions string `yaml:"permissions,omitempty" json:"permissions,omitempty"`
}

// ObjectStoreEntry is an object store transaction against one bucket.
type ObjectStoreEntry struct {
	Bucket  string   `yaml:"bucket" json:"bucket" validate:"required"`
	Prefix  string   `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Uploads []Upload `yaml:"uploads,omitempty" json:"uploads,omitempty" validate:"dive"`
	Deletes []string `yaml:"deletes,omitempty" json:"deletes,omitempty" validate:"dive,required"`
}

// Upload copies a local file to a key.
type Upload struct {
	Source string `yaml:"source" json:"source" validate:"required"`
	Key    string `yaml:"key" json:"key" validate:"required"`
}

// Load reads, parses and validates the manifest at path. Relative roots and
// upload sources are resolved against its directory.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest path: %w", err)
	}
	m.dir = filepath.Dir(abs)
	return m, nil
}

// Parse decodes and validates a manifest. Unknown fields are rejected.
// Relative roots and upload sources resolve against the working directory.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Dir returns the directory relative paths resolve against. Empty means the
// working directory.
func (m *Manifest) Dir() string {
	return m.dir
}

// InitialContext converts the context section into a publish.Context.
func (m *Manifest) InitialContext() (publish.Context, error) {
	return publish.ContextFromMap(m.Context)
}

// resolve makes p absolute against the manifest directory. Empty and
// absolute paths are returned unchanged.
func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.dir == "" {
		return p
	}
	return filepath.Join(m.dir, p)
}

// rootFor returns the filesystem root of e.
func (m *Manifest) rootFor(e *FilesystemEntry) string {
	if e.Root != "" {
		return m.resolve(e.Root)
	}
	return m.resolve(m.Root)
}

func (s *Stages) entries(stage publish.Stage) []Entry {
	switch stage {
	case publish.StagePrePublish:
		return s.PrePublish
	case publish.StagePublish:
		return s.Publish
	case publish.StagePostPublish:
		return s.PostPublish
	default:
		return nil
	}
}
