package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/paytally/paysync/internal/localfs"
	"github.com/paytally/paysync/internal/model"
)

// EmployeeStore persists the employee roster as a single keyed file:
// {root}/employees/employees.json. Employees are not time-bucketed.
type EmployeeStore struct {
	fs   localfs.FS
	root string
	log  *slog.Logger
}

func NewEmployeeStore(fs localfs.FS, root string, logger *slog.Logger) *EmployeeStore {
	return &EmployeeStore{fs: fs, root: root, log: logger}
}

type employeeFile struct {
	Meta struct {
		LastModified string `json:"lastModified"`
	} `json:"meta"`
	Employees map[string]model.Employee `json:"employees"`
}

func (s *EmployeeStore) path() string {
	return filepath.Join(s.root, "employees", "employees.json")
}

func (s *EmployeeStore) read() (map[string]model.Employee, error) {
	content, err := s.fs.ReadFile(s.path())
	if err != nil {
		if localfs.IsNotExist(err) {
			return map[string]model.Employee{}, nil
		}
		return nil, fmt.Errorf("reading employees file: %w", err)
	}
	var f employeeFile
	if err := json.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("parsing employees file: %w", err)
	}
	if f.Employees == nil {
		f.Employees = map[string]model.Employee{}
	}
	return f.Employees, nil
}

func (s *EmployeeStore) write(ctx context.Context, employees map[string]model.Employee) error {
	if err := s.fs.EnsureDir(filepath.Join(s.root, "employees")); err != nil {
		return err
	}
	var f employeeFile
	f.Meta.LastModified = model.FormatDate(time.Now())
	f.Employees = employees

	content, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding employees file: %w", err)
	}
	path := s.path()
	return localfs.Retry(ctx, 0, func() error {
		return s.fs.WriteFile(path, content)
	})
}

// Save upserts one employee. Also the apply routine for downloaded employees.
func (s *EmployeeStore) Save(ctx context.Context, e model.Employee) error {
	if e.ID == "" {
		return fmt.Errorf("employee has no id")
	}
	employees, err := s.read()
	if err != nil {
		return err
	}
	employees[e.ID] = e
	return s.write(ctx, employees)
}

// ApplyRemote stores an employee reconstructed from a remote document.
func (s *EmployeeStore) ApplyRemote(ctx context.Context, e model.Employee) error {
	return s.Save(ctx, e)
}

// Get returns one employee, reporting absence via the second return value.
func (s *EmployeeStore) Get(id string) (model.Employee, bool, error) {
	employees, err := s.read()
	if err != nil {
		return model.Employee{}, false, err
	}
	e, ok := employees[id]
	return e, ok, nil
}

// Delete removes one employee. Missing is a no-op.
func (s *EmployeeStore) Delete(ctx context.Context, id string) error {
	employees, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := employees[id]; !ok {
		return nil
	}
	delete(employees, id)
	return s.write(ctx, employees)
}

// List returns every employee, sorted by ID for stable output.
func (s *EmployeeStore) List() ([]model.Employee, error) {
	employees, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]model.Employee, 0, len(employees))
	for _, e := range employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Active returns the employees whose records attendance capture applies to.
func (s *EmployeeStore) Active() ([]model.Employee, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, e := range all {
		if e.Active {
			active = append(active, e)
		}
	}
	return active, nil
}

// LoadAllForSync enumerates the whole roster for upload.
func (s *EmployeeStore) LoadAllForSync(_ context.Context) ([]model.Employee, error) {
	return s.List()
}
