// Package config reads Klipper-style INI machine profiles with access
// tracking, so options nobody asked for can be reported.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"dualstrusion-go/pkg/errors"
)

// Config provides access to a configuration file with access tracking.
type Config struct {
	mu       sync.RWMutex
	sections map[string]*Section
	order    []string // Maintains section order

	accessedSections map[string]struct{}
}

// New creates a new empty Config.
func New() *Config {
	return &Config{
		sections:         make(map[string]*Section),
		accessedSections: make(map[string]struct{}),
	}
}

// Load reads a configuration file and returns a Config.
// Supports [include path] directives for including other config files.
func Load(path string) (*Config, error) {
	c := New()
	visited := make(map[string]bool)
	if err := c.parseFile(path, visited); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadString parses a configuration from a string. Include directives are
// rejected since there is no directory to resolve them against.
func LoadString(data string) (*Config, error) {
	c := New()
	if err := c.parse(strings.NewReader(data), "<string>", "", nil); err != nil {
		return nil, err
	}
	return c, nil
}

// parseFile parses a config file and handles include directives.
func (c *Config) parseFile(path string, visited map[string]bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrConfigSection, "invalid path").SetSource(path)
	}

	if visited[abs] {
		return errors.New(errors.ErrConfigSection, "recursive include").SetSource(path)
	}
	visited[abs] = true
	defer func() { visited[abs] = false }()

	f, err := os.Open(abs)
	if err != nil {
		return errors.Wrap(err, errors.ErrConfigSection, fmt.Sprintf("unable to open: %v", err)).SetSource(path)
	}
	defer f.Close()

	return c.parse(f, path, filepath.Dir(abs), visited)
}

// parse reads sections from r. dir resolves includes; an empty dir means
// includes are not allowed.
func (c *Config) parse(r io.Reader, name, dir string, visited map[string]bool) error {
	var currentSection string
	var currentOptions map[string]string
	flush := func() {
		if currentSection != "" {
			c.addSection(currentSection, currentOptions)
		}
	}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if idx := strings.IndexAny(line, "#;"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			flush()
			currentSection, currentOptions = "", nil

			header := strings.Join(strings.Fields(line[1:len(line)-1]), " ")
			if header == "" {
				return errors.New(errors.ErrConfigSection, "empty section header").SetSource(name).SetLine(lineNum)
			}

			if strings.HasPrefix(header, "include ") {
				if err := c.include(strings.TrimSpace(header[8:]), name, lineNum, dir, visited); err != nil {
					return err
				}
				continue
			}

			currentSection = header
			currentOptions = make(map[string]string)
			continue
		}

		// Options before the first section are ignored.
		if currentSection == "" {
			continue
		}

		// key: value or key = value
		kv := strings.SplitN(line, ":", 2)
		if len(kv) != 2 {
			kv = strings.SplitN(line, "=", 2)
		}
		if len(kv) != 2 {
			return errors.Newf(errors.ErrConfigOption, "expected 'key: value', got %q", line).
				SetSource(name).SetLine(lineNum)
		}
		key := strings.TrimSpace(kv[0])
		if key == "" {
			continue
		}
		currentOptions[key] = strings.TrimSpace(kv[1])
	}
	flush()

	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, errors.ErrConfigSection, "read failed").SetSource(name)
	}
	return nil
}

func (c *Config) include(spec, name string, lineNum int, dir string, visited map[string]bool) error {
	if dir == "" {
		return errors.New(errors.ErrConfigSection, "include not supported here").SetSource(name).SetLine(lineNum)
	}
	if spec == "" {
		return errors.New(errors.ErrConfigSection, "empty include").SetSource(name).SetLine(lineNum)
	}
	glob := filepath.Join(dir, spec)
	matches, err := filepath.Glob(glob)
	if err != nil {
		return errors.Wrap(err, errors.ErrConfigSection, fmt.Sprintf("invalid include pattern %q", spec)).
			SetSource(name).SetLine(lineNum)
	}
	sort.Strings(matches)
	if len(matches) == 0 && !hasGlobMeta(glob) {
		return errors.Newf(errors.ErrConfigSection, "include file does not exist: %s", glob).
			SetSource(name).SetLine(lineNum)
	}
	for _, m := range matches {
		if err := c.parseFile(m, visited); err != nil {
			return err
		}
	}
	return nil
}

// hasGlobMeta returns true if the path contains glob metacharacters.
func hasGlobMeta(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

// addSection adds a section, merging options into an existing one of the
// same name.
func (c *Config) addSection(name string, options map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.sections[name]; ok {
		for k, v := range options {
			existing.options[strings.ToLower(k)] = v
		}
		return
	}

	c.sections[name] = newSection(name, options)
	c.order = append(c.order, name)
}

// GetSection returns a Section by name, or error if not found.
func (c *Config) GetSection(name string) (*Section, error) {
	sec := c.GetSectionOptional(name)
	if sec == nil {
		return nil, errors.ConfigSectionError(name)
	}
	return sec, nil
}

// GetSectionOptional returns a Section if it exists, or nil if not.
func (c *Config) GetSectionOptional(name string) *Section {
	c.mu.Lock()
	defer c.mu.Unlock()

	sec, ok := c.sections[name]
	if ok {
		c.accessedSections[name] = struct{}{}
	}
	return sec
}

// HasSection checks if a section exists.
func (c *Config) HasSection(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sections[name]
	return ok
}

// GetSectionNames returns all section names in order.
func (c *Config) GetSectionNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]string, len(c.order))
	copy(result, c.order)
	return result
}

// GetUnusedSections returns a list of sections that were not accessed.
func (c *Config) GetUnusedSections() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []string
	for name := range c.sections {
		if _, ok := c.accessedSections[name]; !ok {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result
}

// Unused reports every section and option that no getter read, in file
// order. Typos in a profile surface here.
func (c *Config) Unused() []*errors.MergeError {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*errors.MergeError
	for _, name := range c.order {
		if _, ok := c.accessedSections[name]; !ok {
			out = append(out, errors.Newf(errors.ErrConfigSection, "unused section [%s]", name).
				SetContext("section", name))
			continue
		}
		for _, opt := range c.sections[name].GetUnusedOptions() {
			out = append(out, errors.Newf(errors.ErrConfigOption, "unused option '%s' in section '%s'", opt, name).
				SetContext("section", name).
				SetContext("option", opt))
		}
	}
	return out
}
