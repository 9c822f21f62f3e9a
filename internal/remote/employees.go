package remote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paytally/paysync/internal/docstore"
	"github.com/paytally/paysync/internal/model"
)

const employeesCollection = "employees"

// EmployeeAdapter handles the one non-time-bucketed entity: each employee is
// a single document keyed by the employee ID, with a meta block and the
// employee payload.
type EmployeeAdapter struct {
	gw  docstore.Gateway
	log *slog.Logger
}

// NewEmployeeAdapter wires the adapter to the gateway.
func NewEmployeeAdapter(gw docstore.Gateway, logger *slog.Logger) *EmployeeAdapter {
	return &EmployeeAdapter{gw: gw, log: logger}
}

// Save writes the employee's full document.
func (a *EmployeeAdapter) Save(ctx context.Context, e model.Employee) error {
	if e.ID == "" {
		return fmt.Errorf("employee has no id")
	}
	payload := map[string]any{
		"meta": map[string]any{
			"employeeId":   e.ID,
			"lastModified": model.FormatDate(time.Now()),
		},
		"employee": encodeEmployee(e),
	}
	if err := a.gw.Save(ctx, employeesCollection, e.ID, payload); err != nil {
		return fmt.Errorf("saving employee %s: %w", e.ID, err)
	}
	return nil
}

// Load fetches one employee; absent yields (nil, nil)-style zero plus false.
func (a *EmployeeAdapter) Load(ctx context.Context, id string) (model.Employee, bool, error) {
	data, err := a.gw.Fetch(ctx, employeesCollection, id)
	if err != nil {
		return model.Employee{}, false, fmt.Errorf("fetching employee %s: %w", id, err)
	}
	if data == nil {
		return model.Employee{}, false, nil
	}
	e, err := decodeEmployeeDoc(id, data)
	if err != nil {
		return model.Employee{}, false, err
	}
	return e, true, nil
}

// FetchAll returns every employee document, skipping undecodable ones with a
// warning.
func (a *EmployeeAdapter) FetchAll(ctx context.Context) ([]model.Employee, error) {
	snaps, err := a.gw.FetchAll(ctx, employeesCollection)
	if err != nil {
		return nil, fmt.Errorf("fetching employees collection: %w", err)
	}

	out := make([]model.Employee, 0, len(snaps))
	for _, snap := range snaps {
		e, err := decodeEmployeeDoc(snap.ID, snap.Data)
		if err != nil {
			a.log.Warn("skipping undecodable employee document", "doc", snap.ID, "error", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// SaveBucket satisfies the orchestrator's group-write contract. Employee
// buckets carry exactly one record (the grouping key is the employee ID).
func (a *EmployeeAdapter) SaveBucket(ctx context.Context, _ model.Bucket, records []model.Employee) error {
	for _, e := range records {
		if err := a.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func encodeEmployee(e model.Employee) map[string]any {
	schedule := make([]any, 0, len(e.Schedule))
	for _, wd := range e.Schedule {
		schedule = append(schedule, int(wd))
	}
	return map[string]any{
		"firstName": e.FirstName,
		"lastName":  e.LastName,
		"position":  e.Position,
		"dailyRate": e.DailyRate,
		"active":    e.Active,
		"startDate": model.FormatDate(e.StartDate),
		"schedule":  schedule,
	}
}

func decodeEmployeeDoc(id string, data map[string]any) (model.Employee, error) {
	payload, ok := data["employee"].(map[string]any)
	if !ok {
		return model.Employee{}, fmt.Errorf("employee document %s has no payload", id)
	}
	startDate, err := asTime(payload, "startDate")
	if err != nil {
		return model.Employee{}, err
	}

	var schedule []model.Weekday
	if raw, ok := payload["schedule"].([]any); ok {
		for _, v := range raw {
			switch d := v.(type) {
			case int64:
				schedule = append(schedule, model.Weekday(d))
			case float64:
				schedule = append(schedule, model.Weekday(int(d)))
			case int:
				schedule = append(schedule, model.Weekday(d))
			}
		}
	}

	return model.Employee{
		ID:        id,
		FirstName: asString(payload, "firstName"),
		LastName:  asString(payload, "lastName"),
		Position:  asString(payload, "position"),
		DailyRate: asFloat(payload, "dailyRate"),
		Active:    asBool(payload, "active"),
		StartDate: startDate,
		Schedule:  schedule,
	}, nil
}
