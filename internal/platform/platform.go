package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rflorenc/catalog-migrator/internal/models"
)

// Graph collection paths, relative to the versioned base URL.
const (
	LegacyPoliciesPath     = "/deviceManagement/groupPolicyConfigurations"
	TargetPoliciesPath     = "/deviceManagement/configurationPolicies"
	SettingDefinitionsPath = "/deviceManagement/configurationSettings"
)

// Ping verifies connectivity and that the token is accepted.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Get(ctx, LegacyPoliciesPath, url.Values{"$top": {"1"}, "$select": {"id"}}, nil)
	return err
}

// ListLegacyPolicies returns every Administrative Templates policy.
func (c *Client) ListLegacyPolicies(ctx context.Context) ([]models.Resource, error) {
	return c.GetAll(ctx, LegacyPoliciesPath, nil)
}

// ListDefinitionValues returns the configured settings of a legacy policy,
// with their definitions and presentation values expanded.
func (c *Client) ListDefinitionValues(ctx context.Context, policyID string) ([]models.Resource, error) {
	path := fmt.Sprintf("%s/%s/definitionValues", LegacyPoliciesPath, policyID)
	return c.GetAll(ctx, path, url.Values{
		"$expand": {"definition,presentationValues($expand=presentation)"},
	})
}

// ListLegacyAssignments returns the assignments of a legacy policy.
func (c *Client) ListLegacyAssignments(ctx context.Context, policyID string) ([]models.Resource, error) {
	return c.GetAll(ctx, fmt.Sprintf("%s/%s/assignments", LegacyPoliciesPath, policyID), nil)
}

// SearchSettingDefinitions runs one Settings Catalog definition search.
// Full-text searches carry the eventual-consistency header Graph requires.
func (c *Client) SearchSettingDefinitions(ctx context.Context, q models.DefinitionQuery) ([]models.CandidateSetting, error) {
	params := url.Values{}
	var header http.Header
	switch {
	case q.Search != "":
		params.Set("$search", strconv.Quote(q.Search))
		header = http.Header{"ConsistencyLevel": {"eventual"}}
	case q.Filter != "":
		params.Set("$filter", q.Filter)
	default:
		return nil, fmt.Errorf("definition query has neither filter nor search")
	}
	if q.Top > 0 {
		params.Set("$top", strconv.Itoa(q.Top))
	}

	body, err := c.Get(ctx, SettingDefinitionsPath, params, header)
	if err != nil {
		return nil, err
	}
	var page pagedResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	out := make([]models.CandidateSetting, 0, len(page.Value))
	for _, raw := range page.Value {
		var rec struct {
			ODataType   string `json:"@odata.type"`
			ID          string `json:"id"`
			DisplayName string `json:"displayName"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("parsing setting definition: %w", err)
		}
		out = append(out, models.CandidateSetting{
			ID:          rec.ID,
			DisplayName: rec.DisplayName,
			Description: rec.Description,
			Kind:        SettingKindOf(rec.ODataType),
		})
	}
	return out, nil
}

// SettingKindOf maps a setting definition @odata.type to its kind tag.
func SettingKindOf(odataType string) models.SettingKind {
	lower := strings.ToLower(odataType)
	switch {
	case strings.HasSuffix(lower, "choicesettingdefinition"):
		return models.KindChoice
	case strings.HasSuffix(lower, "simplesettingdefinition"):
		return models.KindSimple
	}
	return models.KindUnknown
}

// ListTargetPolicies returns every Settings Catalog policy.
func (c *Client) ListTargetPolicies(ctx context.Context) ([]models.TargetPolicy, error) {
	recs, err := c.GetAll(ctx, TargetPoliciesPath, url.Values{
		"$select": {"id,name,description,platforms,technologies"},
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.TargetPolicy, 0, len(recs))
	for _, r := range recs {
		out = append(out, models.TargetPolicy{
			ID:           stringField(r, "id"),
			Name:         stringField(r, "name"),
			Description:  stringField(r, "description"),
			Platforms:    stringField(r, "platforms"),
			Technologies: stringField(r, "technologies"),
		})
	}
	return out, nil
}

// CreateTargetPolicy creates a Settings Catalog policy and returns it.
func (c *Client) CreateTargetPolicy(ctx context.Context, p models.NewTargetPolicy) (models.TargetPolicy, error) {
	body, err := c.Post(ctx, TargetPoliciesPath, p)
	if err != nil {
		return models.TargetPolicy{}, err
	}
	var created models.TargetPolicy
	if err := json.Unmarshal(body, &created); err != nil {
		return models.TargetPolicy{}, fmt.Errorf("parsing created policy: %w", err)
	}
	if created.ID == "" {
		return models.TargetPolicy{}, fmt.Errorf("create %q: response has no id", p.Name)
	}
	return created, nil
}

// AddPolicySetting attaches one setting to an existing Settings Catalog policy.
func (c *Client) AddPolicySetting(ctx context.Context, policyID string, setting models.SettingPayload) error {
	_, err := c.Post(ctx, fmt.Sprintf("%s/%s/settings", TargetPoliciesPath, policyID), setting)
	return err
}

// AssignTargetPolicy replaces the assignments of a Settings Catalog policy.
func (c *Client) AssignTargetPolicy(ctx context.Context, policyID string, assignments []models.Assignment) error {
	type assignment struct {
		Target *models.AssignmentTarget `json:"target"`
	}
	body := struct {
		Assignments []assignment `json:"assignments"`
	}{Assignments: make([]assignment, 0, len(assignments))}
	for _, a := range assignments {
		body.Assignments = append(body.Assignments, assignment{Target: a.Target})
	}
	_, err := c.Post(ctx, fmt.Sprintf("%s/%s/assign", TargetPoliciesPath, policyID), body)
	return err
}

// DeleteTargetPolicy deletes a Settings Catalog policy.
func (c *Client) DeleteTargetPolicy(ctx context.Context, policyID string) error {
	return c.Delete(ctx, fmt.Sprintf("%s/%s", TargetPoliciesPath, policyID))
}

func stringField(obj map[string]interface{}, field string) string {
	if v, ok := obj[field].(string); ok {
		return v
	}
	return ""
}
