// Package catalog loads the declarative YAML device-type catalog and compiles
// each entry's format templates into an immutable, shareable format set. The
// catalog is read once at startup; parsing itself lives in internal/sentence.
package catalog

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/OceanDataTools/openrvdas-contrib/internal/sentence"
)

//go:embed devices.yaml
var builtinCatalog []byte

// FieldMeta is the static per-field annotation carried alongside a device's
// templates. It never enters the parse result; downstream consumers use it to
// annotate records.
type FieldMeta struct {
	Units       string `yaml:"units"`
	Description string `yaml:"description"`
}

// FormatList accepts the catalog's `format` key as either a single scalar or
// an ordered list of strings. Order is preserved: it defines template
// precedence.
type FormatList []string

func (f *FormatList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*f = FormatList{s}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if err := node.Decode(&ss); err != nil {
			return err
		}
		*f = FormatList(ss)
		return nil
	}
	return fmt.Errorf("format must be a string or a list of strings")
}

type deviceEntry struct {
	Category    string               `yaml:"category"`
	Description string               `yaml:"description"`
	Format      FormatList           `yaml:"format"`
	Fields      map[string]FieldMeta `yaml:"fields"`
}

// Device is one loaded device type: compiled templates plus field metadata.
type Device struct {
	Name        string
	Category    string
	Description string
	Formats     *sentence.FormatSet
	Fields      map[string]FieldMeta
}

// Parse applies the device's templates in declared order to one raw line.
func (d *Device) Parse(line string) (sentence.Record, error) {
	return d.Formats.Parse(line)
}

// Catalog is the full set of loaded device types.
type Catalog struct {
	devices map[string]*Device
}

// Options controls loader behaviour for malformed device entries.
type Options struct {
	// SkipInvalid logs and drops a device whose templates fail to compile
	// or whose captures lack field metadata, instead of failing the whole
	// load. The daemon uses this so one bad entry cannot keep every other
	// instrument offline.
	SkipInvalid bool
}

// Load parses a YAML catalog document and compiles every device entry.
func Load(data []byte, opts Options) (*Catalog, error) {
	var entries map[string]deviceEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	c := &Catalog{devices: make(map[string]*Device, len(entries))}
	for name, entry := range entries {
		dev, err := buildDevice(name, entry)
		if err != nil {
			if opts.SkipInvalid {
				log.Printf("skipping device %s: %v", name, err)
				continue
			}
			return nil, fmt.Errorf("device %s: %w", name, err)
		}
		c.devices[name] = dev
	}
	return c, nil
}

// LoadFile loads a catalog from a YAML file on disk.
func LoadFile(path string, opts Options) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Load(data, opts)
}

// Builtin loads the catalog embedded in the binary.
func Builtin() (*Catalog, error) {
	return Load(builtinCatalog, Options{})
}

func buildDevice(name string, entry deviceEntry) (*Device, error) {
	set, err := sentence.NewFormatSet(entry.Format...)
	if err != nil {
		return nil, err
	}

	// every named capture needs a fields entry; the reverse is advisory
	// only, since a multi-template device may declare metadata for fields
	// absent from some alternatives
	for _, field := range set.FieldNames() {
		if _, ok := entry.Fields[field]; !ok {
			return nil, fmt.Errorf("capture %q has no fields metadata", field)
		}
	}

	return &Device{
		Name:        name,
		Category:    entry.Category,
		Description: entry.Description,
		Formats:     set,
		Fields:      entry.Fields,
	}, nil
}

// Device looks up a device type by name.
func (c *Catalog) Device(name string) (*Device, bool) {
	d, ok := c.devices[name]
	return d, ok
}

// Names returns the loaded device type names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.devices))
	for name := range c.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of loaded device types.
func (c *Catalog) Len() int { return len(c.devices) }
