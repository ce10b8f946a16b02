// Package store persists servers, projects and environment groups as JSON
// files under a data directory.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"deployer-backend/internal/model"
)

const (
	serversFile  = "servers.json"
	projectsFile = "projects.json"
	groupsFile   = "groups.json"
)

var ErrNotFound = errors.New("record not found")

// DefaultGroups seeds groups.json on first start.
var DefaultGroups = []model.EnvironmentGroup{
	{ID: "default", Name: "Production", Color: "#22c55e"},
}

type Store struct {
	dir   string
	mu    sync.Mutex
	newID func() string
}

func New(dir string) *Store {
	return &Store{
		dir:   dir,
		newID: func() string { return uuid.New().String() },
	}
}

func (s *Store) Dir() string { return s.dir }

// Init creates the data directory and any missing file.
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	seeds := map[string]any{
		serversFile:  []model.ServerConfig{},
		projectsFile: []model.DeployConfig{},
		groupsFile:   DefaultGroups,
	}
	for name, seed := range seeds {
		p := s.path(name)
		if _, err := os.Stat(p); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return err
		}
		if err := writeJSON(p, seed); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// Servers

func (s *Store) Servers() ([]model.ServerConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readList[model.ServerConfig](s.path(serversFile))
}

func (s *Store) Server(id string) (model.ServerConfig, error) {
	list, err := s.Servers()
	if err != nil {
		return model.ServerConfig{}, err
	}
	for _, sv := range list {
		if sv.ID == id {
			return sv, nil
		}
	}
	return model.ServerConfig{}, fmt.Errorf("server %s: %w", id, ErrNotFound)
}

func (s *Store) SaveServer(server model.ServerConfig) ([]model.ServerConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if server.ID == "" {
		server.ID = s.newID()
	}
	return update(s.path(serversFile), strict, func(list []model.ServerConfig) []model.ServerConfig {
		return upsert(list, server, func(v model.ServerConfig) string { return v.ID })
	})
}

func (s *Store) DeleteServer(id string) ([]model.ServerConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return update(s.path(serversFile), strict, func(list []model.ServerConfig) []model.ServerConfig {
		return remove(list, id, func(v model.ServerConfig) string { return v.ID })
	})
}

// Projects

func (s *Store) Projects() ([]model.DeployConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readList[model.DeployConfig](s.path(projectsFile))
}

func (s *Store) Project(id string) (model.DeployConfig, error) {
	list, err := s.Projects()
	if err != nil {
		return model.DeployConfig{}, err
	}
	for _, p := range list {
		if p.ID == id {
			return p, nil
		}
	}
	return model.DeployConfig{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
}

func (s *Store) SaveProject(project model.DeployConfig) ([]model.DeployConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if project.ID == "" {
		project.ID = s.newID()
	}
	return update(s.path(projectsFile), strict, func(list []model.DeployConfig) []model.DeployConfig {
		return upsert(list, project, func(v model.DeployConfig) string { return v.ID })
	})
}

func (s *Store) DeleteProject(id string) ([]model.DeployConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return update(s.path(projectsFile), strict, func(list []model.DeployConfig) []model.DeployConfig {
		return remove(list, id, func(v model.DeployConfig) string { return v.ID })
	})
}

// Groups. A damaged groups file is treated as empty.

func (s *Store) Groups() ([]model.EnvironmentGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readLenient[model.EnvironmentGroup](s.path(groupsFile))
}

func (s *Store) SaveGroup(group model.EnvironmentGroup) ([]model.EnvironmentGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if group.ID == "" {
		group.ID = s.newID()
	}
	return update(s.path(groupsFile), lenient, func(list []model.EnvironmentGroup) []model.EnvironmentGroup {
		return upsert(list, group, func(v model.EnvironmentGroup) string { return v.ID })
	})
}

func (s *Store) DeleteGroup(id string) ([]model.EnvironmentGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return update(s.path(groupsFile), lenient, func(list []model.EnvironmentGroup) []model.EnvironmentGroup {
		return remove(list, id, func(v model.EnvironmentGroup) string { return v.ID })
	})
}

type readMode int

const (
	strict readMode = iota
	lenient
)

// readList returns the records in path. A missing file is an empty list.
func readList[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []T{}, nil
	}
	if err != nil {
		return nil, err
	}
	list := []T{}
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}

func readLenient[T any](path string) ([]T, error) {
	list, err := readList[T](path)
	if err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return []T{}, nil
		}
		return nil, err
	}
	return list, nil
}

func update[T any](path string, mode readMode, fn func([]T) []T) ([]T, error) {
	var (
		list []T
		err  error
	)
	if mode == lenient {
		list, err = readLenient[T](path)
	} else {
		list, err = readList[T](path)
	}
	if err != nil {
		return nil, err
	}
	list = fn(list)
	if err := writeJSON(path, list); err != nil {
		return nil, err
	}
	return list, nil
}

func upsert[T any](list []T, item T, id func(T) string) []T {
	for i := range list {
		if id(list[i]) == id(item) {
			list[i] = item
			return list
		}
	}
	return append(list, item)
}

func remove[T any](list []T, target string, id func(T) string) []T {
	out := list[:0]
	for _, v := range list {
		if id(v) != target {
			out = append(out, v)
		}
	}
	return out
}

// writeJSON replaces path atomically.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
