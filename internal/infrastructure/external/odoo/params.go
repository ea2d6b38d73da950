package odoo

import (
	"context"
	"fmt"

	"github.com/osusproperties/brokerage-core/internal/application/port"
)

const modelConfigParameter = "ir.config_parameter"

// GetParam reads one ir.config_parameter value
func (c *Client) GetParam(ctx context.Context, key string) (string, bool, error) {
	var rows []map[string]interface{}
	domain := []interface{}{[]interface{}{"key", "=", key}}
	err := c.ExecuteKw(ctx, modelConfigParameter, "search_read",
		[]interface{}{domain},
		map[string]interface{}{"fields": []string{"value"}, "limit": 1},
		&rows)
	if err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}

	switch v := rows[0]["value"].(type) {
	case string:
		return v, true, nil
	case bool:
		// Odoo sends False for empty values
		return "", true, nil
	default:
		return "", false, fmt.Errorf("%w: value of %s is %T", ErrInvalidResponse, key, v)
	}
}

var _ port.ParamReader = (*Client)(nil)
