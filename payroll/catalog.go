/*
Package payroll holds the payroll-specific presets for the facet engine.

PURPOSE:
  The facet package knows nothing about payroll beyond the record shape.
  This package supplies the default catalog (which columns are filters,
  which are searchable, which are sortable), the status vocabulary, and a
  deterministic demo data set for development.

DEFAULT CATALOG:
  Dimensions: branch, department (searchable), position (searchable),
              status, period
  Search:     name, id (+ department, position)
  Sort keys:  id, name, position, department, branch, status, period,
              base_salary, deductions, net_pay (default: name)

SEE ALSO:
  - factory/catalog.go: JSON catalog parsing
  - payroll/demo.go: Demo records
*/
package payroll

import (
	"encoding/json"

	"github.com/warp/payroll-browse/facet"
	"github.com/warp/payroll-browse/factory"
)

// Statuses used by the payroll system.
const (
	StatusActive    = "Activo"
	StatusInactive  = "Baja"
	StatusSuspended = "Suspendido"
)

// Statuses returns the known status values.
func Statuses() []string {
	return []string{StatusActive, StatusInactive, StatusSuspended}
}

// DefaultCatalogJSON returns the JSON definition of the default catalog.
func DefaultCatalogJSON() string {
	cj := map[string]interface{}{
		"dimensions": []map[string]interface{}{
			{"name": "branch", "column": "branch"},
			{"name": "department", "column": "department", "searchable": true},
			{"name": "position", "column": "position", "searchable": true},
			{"name": "status", "column": "status"},
			{"name": "period", "column": "period", "kind": "period"},
		},
		"sort_keys": map[string]string{
			"id":          "id",
			"name":        "name",
			"position":    "position",
			"department":  "department",
			"branch":      "branch",
			"status":      "status",
			"period":      "period",
			"base_salary": "base_salary",
			"deductions":  "deductions",
			"net_pay":     "net_pay",
		},
		"default_sort":   "name",
		"search_columns": []string{"name", "id"},
	}
	b, _ := json.MarshalIndent(cj, "", "  ")
	return string(b)
}

// DefaultCatalog parses DefaultCatalogJSON. It panics if the preset is
// invalid, which is a programming error.
func DefaultCatalog() *facet.Catalog {
	c, err := factory.NewCatalogFactory().ParseCatalog(DefaultCatalogJSON())
	if err != nil {
		panic("payroll: invalid default catalog: " + err.Error())
	}
	return c
}
