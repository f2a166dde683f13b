package dataservice

import (
	"context"

	"gridprep/models"
)

// Validator-scoped configuration endpoints. Each call echoes the resulting
// validator configuration back, which the property panels render directly.

// CreateValidator registers a new validator configuration.
func (c *Client) CreateValidator(ctx context.Context, name string) (*models.ValidatorConfig, error) {
	var cfg models.ValidatorConfig
	body := map[string]string{"name": name}
	if err := c.postJSON(ctx, "/validators/create_new", body, "Validator creation failed", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetValidatorConfig fetches an existing validator configuration.
func (c *Client) GetValidatorConfig(ctx context.Context, validatorID string) (*models.ValidatorConfig, error) {
	var cfg models.ValidatorConfig
	body := map[string]string{"validator_id": validatorID}
	if err := c.postJSON(ctx, "/validators/get_validator_config", body, "Validator lookup failed", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigureValidationConfig replaces a validator's rule set.
func (c *Client) ConfigureValidationConfig(ctx context.Context, validatorID string, rules map[string]any) (*models.ValidatorConfig, error) {
	var cfg models.ValidatorConfig
	body := map[string]any{
		"validator_id": validatorID,
		"rules":        rules,
	}
	if err := c.postJSON(ctx, "/validators/configure_validation_config", body, "Validator configuration failed", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ClassifyColumns records identifier/measure roles on the validator.
func (c *Client) ClassifyColumns(ctx context.Context, validatorID string, roles map[string]string) (*models.ValidatorConfig, error) {
	var cfg models.ValidatorConfig
	body := map[string]any{
		"validator_id": validatorID,
		"column_roles": roles,
	}
	if err := c.postJSON(ctx, "/validators/classify_columns", body, "Column classification failed", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpdateColumnTypes records the user's type overrides on the validator.
func (c *Client) UpdateColumnTypes(ctx context.Context, validatorID string, types map[string]string) (*models.ValidatorConfig, error) {
	var cfg models.ValidatorConfig
	body := map[string]any{
		"validator_id": validatorID,
		"column_types": types,
	}
	if err := c.postJSON(ctx, "/validators/update_column_types", body, "Column type update failed", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
