// Package pipeline executes selected tasks: it resolves context, generates
// an operation via the LLM, substitutes resolved parameters, and runs the
// operation through a tool.
package pipeline

import (
	"strings"

	"github.com/kestrel-ai/kestrel/pkg/models"
)

// catalog declares the operations the business API exposes and their
// parameter schemas. The schema feeds the context resolution engine; the
// operation name steers generation.
var catalog = []models.OperationSchema{
	{
		Operation: "listCompanies",
		Required:  []models.ParamSpec{},
		Optional: []models.ParamSpec{
			{Name: "status", Type: models.ParamTypeString},
		},
	},
	{
		Operation: "getCompany",
		Required: []models.ParamSpec{
			{Name: "companyId", Type: models.ParamTypeString},
		},
	},
	{
		Operation: "listEmployees",
		Required: []models.ParamSpec{
			{Name: "companyId", Type: models.ParamTypeString},
		},
		Optional: []models.ParamSpec{
			{Name: "status", Type: models.ParamTypeString},
		},
	},
	{
		Operation: "getEmployee",
		Required: []models.ParamSpec{
			{Name: "employeeId", Type: models.ParamTypeString},
		},
	},
	{
		Operation: "updateEmployee",
		Required: []models.ParamSpec{
			{Name: "employeeId", Type: models.ParamTypeString},
		},
		Optional: []models.ParamSpec{
			{Name: "role", Type: models.ParamTypeString},
			{Name: "email", Type: models.ParamTypeString},
		},
	},
	{
		Operation: "listContracts",
		Required: []models.ParamSpec{
			{Name: "companyId", Type: models.ParamTypeString},
		},
		Optional: []models.ParamSpec{
			{Name: "status", Type: models.ParamTypeString},
		},
	},
	{
		Operation: "getContract",
		Required: []models.ParamSpec{
			{Name: "contractId", Type: models.ParamTypeString},
		},
	},
	{
		Operation: "terminateContract",
		Required: []models.ParamSpec{
			{Name: "contractId", Type: models.ParamTypeString},
		},
	},
	{
		Operation: "listPayments",
		Required: []models.ParamSpec{
			{Name: "companyId", Type: models.ParamTypeString},
		},
		Optional: []models.ParamSpec{
			{Name: "status", Type: models.ParamTypeString},
			{Name: "startDate", Type: models.ParamTypeString},
			{Name: "endDate", Type: models.ParamTypeString},
		},
	},
	{
		Operation: "createPayment",
		Required: []models.ParamSpec{
			{Name: "contractId", Type: models.ParamTypeString},
			{Name: "amount", Type: models.ParamTypeNumber},
		},
	},
}

// operationHints maps description keywords to catalog operations, most
// specific first. requireAll hints match only when every keyword appears;
// the rest match on any keyword.
var operationHints = []struct {
	keywords   []string
	requireAll bool
	operation  string
}{
	{[]string{"terminate", "contract"}, true, "terminateContract"},
	{[]string{"create", "payment"}, true, "createPayment"},
	{[]string{"update", "employee"}, true, "updateEmployee"},
	{[]string{"payment"}, false, "listPayments"},
	{[]string{"pay"}, false, "createPayment"},
	{[]string{"contract"}, false, "listContracts"},
	{[]string{"employee"}, false, "listEmployees"},
	{[]string{"company", "companies"}, false, "listCompanies"},
}

// InferSchema picks the catalog operation a task most likely targets from
// its description. Unrecognized descriptions get an empty schema: the
// pipeline still runs, the resolution engine just has nothing to gate on.
func InferSchema(task *models.Task) models.OperationSchema {
	desc := strings.ToLower(task.Description)

	for _, hint := range operationHints {
		matched := !hint.requireAll
		if hint.requireAll {
			all := true
			for _, kw := range hint.keywords {
				if !strings.Contains(desc, kw) {
					all = false
					break
				}
			}
			matched = all
		} else {
			any := false
			for _, kw := range hint.keywords {
				if strings.Contains(desc, kw) {
					any = true
					break
				}
			}
			matched = any
		}
		if !matched {
			continue
		}
		if schema, ok := SchemaFor(hint.operation); ok {
			// Singular lookups ("get company acme") beat list operations
			// when the description names a specific entity.
			if single, ok := singularVariant(desc, hint.operation); ok {
				if s, ok2 := SchemaFor(single); ok2 {
					return s
				}
			}
			return schema
		}
	}
	return models.OperationSchema{}
}

// singularVariant maps a list operation to its get variant when the
// description asks for one entity.
func singularVariant(desc, operation string) (string, bool) {
	if !strings.Contains(desc, "get ") && !strings.Contains(desc, "show ") && !strings.Contains(desc, "detail") {
		return "", false
	}
	switch operation {
	case "listCompanies":
		return "getCompany", true
	case "listEmployees":
		return "getEmployee", true
	case "listContracts":
		return "getContract", true
	}
	return "", false
}

// SchemaFor returns the schema for a named catalog operation.
func SchemaFor(operation string) (models.OperationSchema, bool) {
	for _, s := range catalog {
		if s.Operation == operation {
			return s, true
		}
	}
	return models.OperationSchema{}, false
}

// Operations returns the names of all catalog operations.
func Operations() []string {
	names := make([]string, len(catalog))
	for i, s := range catalog {
		names[i] = s.Operation
	}
	return names
}
