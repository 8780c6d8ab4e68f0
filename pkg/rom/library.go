package rom

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// Extension is the file extension LoadFrom looks for.
const Extension = ".ch8"

// validName accepts plain file names such as "pong.ch8" or "IBM_Logo.ch8".
var validName = regexp.MustCompile(`^[a-zA-Z0-9_\-]{1,32}(\.[a-zA-Z0-9]{1,3})?$`)

var ErrInvalidName = errors.New("invalid rom name")

type Entry struct {
	Data     []byte
	Modified time.Time
}

// Library is an in-memory collection of ROM images, safe for concurrent use.
type Library struct {
	Mu    sync.RWMutex
	Files map[string]*Entry
}

func NewLibrary() *Library {
	return &Library{
		Files: make(map[string]*Entry),
	}
}

// Add stores a copy of data under name, replacing any existing entry.
func (l *Library) Add(name string, data []byte) error {
	if !validName.MatchString(name) {
		return ErrInvalidName
	}
	if err := Validate(data); err != nil {
		return err
	}

	newData := make([]byte, len(data))
	copy(newData, data)

	l.Mu.Lock()
	defer l.Mu.Unlock()
	l.Files[name] = &Entry{Data: newData, Modified: time.Now()}
	return nil
}

// Get returns a copy of the named ROM.
func (l *Library) Get(name string) ([]byte, error) {
	if !validName.MatchString(name) {
		return nil, ErrInvalidName
	}

	l.Mu.RLock()
	defer l.Mu.RUnlock()

	entry, ok := l.Files[name]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(entry.Data))
	copy(out, entry.Data)
	return out, nil
}

func (l *Library) Delete(name string) error {
	l.Mu.Lock()
	defer l.Mu.Unlock()

	if _, ok := l.Files[name]; !ok {
		return ErrNotFound
	}
	delete(l.Files, name)
	return nil
}

// List returns a sorted list of all ROM names.
func (l *Library) List() []string {
	l.Mu.RLock()
	defer l.Mu.RUnlock()

	keys := make([]string, 0, len(l.Files))
	for k := range l.Files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadFrom adds every valid .ch8 file in dir. Files that are badly named or
// do not fit in memory are skipped. A missing directory is not an error.
func (l *Library) LoadFrom(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	l.Mu.Lock()
	defer l.Mu.Unlock()

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), Extension) || !validName.MatchString(name) {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil || Validate(raw) != nil {
			continue
		}

		e := &Entry{Data: raw, Modified: time.Now()}
		if info, err := entry.Info(); err == nil {
			e.Modified = info.ModTime()
		}
		l.Files[name] = e
		loaded++
	}

	return loaded, nil
}
