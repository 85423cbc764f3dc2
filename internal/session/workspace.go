package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/JonMunkholm/dataplay/internal/table"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrTableExists   = errors.New("table already exists")
	ErrTableLimit    = errors.New("table limit reached")
	ErrInvalidName   = errors.New("invalid table name")
	ErrNoResult      = errors.New("no result to save")
)

// MaxNameLength bounds registry names.
const MaxNameLength = 128

// Result is the output of the most recent engine call, kept until the user
// saves it or runs another operation.
type Result struct {
	// Label describes the operation, e.g. "filter sales".
	Label string
	// SuggestedName is offered when saving (e.g. "orders_join_customers").
	SuggestedName string
	Table         *table.Table
}

// Workspace is one user's state: the named table registry, the current
// table and the last unsaved result. It is not safe for concurrent use;
// Session.Do serializes access.
type Workspace struct {
	tables    map[string]*table.Table
	order     []string
	current   string
	result    *Result
	maxTables int
}

// NewWorkspace returns an empty workspace. maxTables <= 0 means unlimited.
func NewWorkspace(maxTables int) *Workspace {
	return &Workspace{
		tables:    make(map[string]*table.Table),
		maxTables: maxTables,
	}
}

// ValidateName checks a registry name and returns it trimmed.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if len(name) > MaxNameLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidName, MaxNameLength)
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return "", fmt.Errorf("%w: contains control characters", ErrInvalidName)
	}
	return name, nil
}

// Add registers t under a new name. The first table added becomes current.
func (w *Workspace) Add(name string, t *table.Table) error {
	name, err := ValidateName(name)
	if err != nil {
		return err
	}
	if _, ok := w.tables[name]; ok {
		return fmt.Errorf("%w: %q", ErrTableExists, name)
	}
	if w.maxTables > 0 && len(w.tables) >= w.maxTables {
		return fmt.Errorf("%w: at most %d tables", ErrTableLimit, w.maxTables)
	}
	w.tables[name] = t
	w.order = append(w.order, name)
	if w.current == "" {
		w.current = name
	}
	return nil
}

// Put registers t under name, replacing any table already there.
func (w *Workspace) Put(name string, t *table.Table) error {
	name, err := ValidateName(name)
	if err != nil {
		return err
	}
	if _, ok := w.tables[name]; ok {
		w.tables[name] = t
		return nil
	}
	return w.Add(name, t)
}

// UniqueName returns base, or base_2, base_3, ... if base is taken.
func (w *Workspace) UniqueName(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "table"
	}
	if len(base) > MaxNameLength-4 {
		base = base[:MaxNameLength-4]
	}
	name := base
	for n := 2; w.Has(name); n++ {
		name = base + "_" + strconv.Itoa(n)
	}
	return name
}

func (w *Workspace) Has(name string) bool {
	_, ok := w.tables[name]
	return ok
}

// Get returns the named table.
func (w *Workspace) Get(name string) (*table.Table, error) {
	t, ok := w.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	return t, nil
}

// Names returns table names in the order they were added.
func (w *Workspace) Names() []string {
	return append([]string(nil), w.order...)
}

func (w *Workspace) Len() int { return len(w.tables) }

// Remove deletes a table. If it was current, the first remaining table
// becomes current.
func (w *Workspace) Remove(name string) error {
	if _, ok := w.tables[name]; !ok {
		return fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	delete(w.tables, name)
	for i, n := range w.order {
		if n == name {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	if w.current == name {
		w.current = ""
		if len(w.order) > 0 {
			w.current = w.order[0]
		}
	}
	return nil
}

// Select makes the named table current.
func (w *Workspace) Select(name string) error {
	if _, ok := w.tables[name]; !ok {
		return fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	w.current = name
	return nil
}

// Current returns the current table, if any.
func (w *Workspace) Current() (string, *table.Table, bool) {
	if w.current == "" {
		return "", nil, false
	}
	return w.current, w.tables[w.current], true
}

// SetResult replaces the last unsaved result.
func (w *Workspace) SetResult(r Result) {
	w.result = &r
}

// Result returns the last result, if any.
func (w *Workspace) Result() (Result, bool) {
	if w.result == nil {
		return Result{}, false
	}
	return *w.result, true
}

// SaveResult registers the last result under name, or under its suggested
// name when name is empty.
func (w *Workspace) SaveResult(name string) (string, error) {
	if w.result == nil {
		return "", ErrNoResult
	}
	if strings.TrimSpace(name) == "" {
		name = w.result.SuggestedName
	}
	name, err := ValidateName(name)
	if err != nil {
		return "", err
	}
	if err := w.Add(name, w.result.Table); err != nil {
		return "", err
	}
	return name, nil
}
