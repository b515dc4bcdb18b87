package resolve

import (
	"strings"

	"github.com/kestrel-ai/kestrel/pkg/models"
)

// Source confidence table. A strategy's confidence is the max across its
// contributing sources.
const (
	ConfidenceStatic      = 0.9
	ConfidenceUser        = 0.8
	ConfidenceDynamic     = 0.7
	ConfidenceDynamicList = 0.6
)

// synthesizeStrategies computes one ResolutionStrategy per declared
// parameter. A required parameter with no contributing source gets an
// explicit fallback placeholder and is excluded from resolved accounting.
func synthesizeStrategies(schema models.OperationSchema, static, user map[string]any, harvest dynamicHarvest) []models.ResolutionStrategy {
	specs := make([]models.ParamSpec, 0, len(schema.Required)+len(schema.Optional))
	specs = append(specs, schema.Required...)
	specs = append(specs, schema.Optional...)

	strategies := make([]models.ResolutionStrategy, 0, len(specs))
	for _, spec := range specs {
		st := models.ResolutionStrategy{
			Parameter: spec.Name,
			Required:  schema.IsRequired(spec.Name),
		}

		if v, ok := lookupParam(static, spec.Name); ok {
			st.Sources = append(st.Sources, models.SourceStatic)
			st.Confidence = ConfidenceStatic
			st.Value = v
		}
		if v, ok := lookupParam(user, spec.Name); ok {
			st.Sources = append(st.Sources, models.SourceUser)
			if st.Confidence < ConfidenceUser {
				st.Confidence = ConfidenceUser
				st.Value = v
			}
		}
		if v, ok := lookupParam(harvest.direct, spec.Name); ok {
			st.Sources = append(st.Sources, models.SourceDynamic)
			if st.Confidence < ConfidenceDynamic {
				st.Confidence = ConfidenceDynamic
				st.Value = v
			}
		}
		if v, ok := lookupParam(harvest.listDerived, spec.Name); ok {
			st.Sources = append(st.Sources, models.SourceDynamicList)
			if st.Confidence < ConfidenceDynamicList {
				st.Confidence = ConfidenceDynamicList
				st.Value = v
			}
		}

		if !st.Resolved() && st.Required {
			st.FallbackPlaceholder = "<" + spec.Name + ">"
		}
		strategies = append(strategies, st)
	}
	return strategies
}

// lookupParam finds a value for the parameter in a context map, tolerating
// naming-convention drift (companyId vs company_id vs CompanyID).
func lookupParam(ctx map[string]any, param string) (any, bool) {
	if v, ok := ctx[param]; ok {
		return v, true
	}
	want := normalizeKey(param)
	for k, v := range ctx {
		if strings.HasPrefix(k, "_") {
			// Underscore-prefixed keys are gap-analysis breadcrumbs, not
			// resolvable values.
			continue
		}
		if normalizeKey(k) == want {
			return v, true
		}
	}
	return nil, false
}

func normalizeKey(k string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(k) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// userContext projects the resolved identity into the user-context map.
func userContext(id models.Identity) map[string]any {
	out := make(map[string]any)
	if id.ID != "" {
		out["userId"] = id.ID
	}
	if id.Email != "" {
		out["email"] = id.Email
	}
	if id.Name != "" {
		out["name"] = id.Name
	}
	if id.Role != "" {
		out["role"] = id.Role
	}
	if id.CompanyID != "" {
		out["companyId"] = id.CompanyID
	}
	if id.CompanyName != "" {
		out["companyName"] = id.CompanyName
	}
	if id.Locale != "" {
		out["locale"] = id.Locale
	}
	return out
}

// applyCompoundRules layers bespoke resolution rules for a handful of named
// compound parameters on top of the generic source table.
func applyCompoundRules(gc *models.GatheredContext, schema models.OperationSchema) {
	// Employee-scoped company ID: employee lookups are always scoped to the
	// caller's own company, so the authenticated company wins over anything
	// harvested out of prior results. Only an explicit mention in the
	// utterance outranks it.
	if isEmployeeOperation(schema) {
		st := gc.Strategy("companyId")
		if st == nil {
			return
		}
		userCompany, hasUser := lookupParam(gc.UserContext, "companyId")
		if !hasUser {
			return
		}
		for _, src := range st.Sources {
			if src == models.SourceStatic {
				return
			}
		}
		st.Sources = []models.ResolutionSource{models.SourceUser}
		st.Confidence = ConfidenceUser
		st.Value = userCompany
		st.FallbackPlaceholder = ""
	}
}

// isEmployeeOperation reports whether the schema targets an employee-scoped
// operation.
func isEmployeeOperation(schema models.OperationSchema) bool {
	if strings.Contains(strings.ToLower(schema.Operation), "employee") {
		return true
	}
	for _, name := range schema.ParamNames() {
		if strings.Contains(strings.ToLower(name), "employee") {
			return true
		}
	}
	return false
}
