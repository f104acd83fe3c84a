package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

const yamlExt = ".yml"

// YAMLStore keeps one YAML file per document below a root directory:
//
//	{root}/episodes/general-conference/2022-april/gc-2022-04-....yml
//	{root}/episodes/general-conference/_artist.yml
//	{root}/people/jeffrey-r-holland.yml
type YAMLStore struct {
	root string
}

// OpenYAML opens (and creates if needed) a YAML store rooted at dir.
func OpenYAML(dir string) (*YAMLStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("yaml store root is required")
	}
	for _, p := range Partitions {
		if err := os.MkdirAll(filepath.Join(dir, string(p)), 0o755); err != nil {
			return nil, fmt.Errorf("create partition dir: %w", err)
		}
	}
	return &YAMLStore{root: dir}, nil
}

// Root returns the directory the store lives in.
func (s *YAMLStore) Root() string {
	return s.root
}

// Path returns the file backing key.
func (s *YAMLStore) Path(p Partition, key string) string {
	return filepath.Join(s.root, string(p), filepath.FromSlash(key)+yamlExt)
}

// Get implements Store.
func (s *YAMLStore) Get(ctx context.Context, p Partition, key string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(p, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", p, key, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s/%s: %w", p, key, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s/%s: %w", p, key, err)
	}
	if raw == nil {
		return Document{}, nil
	}
	return NormalizeDocument(raw), nil
}

// Put implements Store. The file is replaced atomically.
func (s *YAMLStore) Put(ctx context.Context, p Partition, key string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := s.Path(p, key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create dir for %s/%s: %w", p, key, err)
	}

	data, err := yaml.Marshal(map[string]any(doc))
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", p, key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "_tmp-*"+yamlExt)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s/%s: %w", p, key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s/%s: %w", p, key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("rename %s/%s: %w", p, key, err)
	}
	return nil
}

// Keys implements Store.
func (s *YAMLStore) Keys(ctx context.Context, p Partition) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches, err := doublestar.Glob(os.DirFS(filepath.Join(s.root, string(p))), "**/*"+yamlExt)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", p, err)
	}

	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		if IsReserved(m) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(m, yamlExt))
	}
	sort.Strings(keys)
	return keys, nil
}

// Close implements Store.
func (s *YAMLStore) Close() error {
	return nil
}
