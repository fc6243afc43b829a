package sheetsclient

import (
	"fmt"
	"strings"

	"github.com/jakechorley/helping-hands/pkg/core/model"
)

// Expected column names in the roster sheet
var rosterFields = []string{
	"Unique ID",
	"Username",
	"First name",
	"Last name",
	"Email",
	"Role",
}

// ListRoster reads the users listed in a roster tab
func (c *Client) ListRoster(spreadsheetID, tab string) ([]model.User, error) {
	values, err := c.GetValues(spreadsheetID, tab)
	if err != nil {
		return nil, fmt.Errorf("failed to get roster data: %w", err)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("spreadsheet is empty")
	}

	users, err := parseRoster(values)
	if err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	return users, nil
}

// parseRoster converts raw spreadsheet data into users. Rows without a username are skipped.
func parseRoster(raw [][]interface{}) ([]model.User, error) {
	if len(raw) < 1 {
		return nil, fmt.Errorf("no header row found")
	}

	fieldIndexes := make(map[string]int)
	for _, field := range rosterFields {
		index := -1
		for i, cell := range raw[0] {
			if cellStr, ok := cell.(string); ok && strings.TrimSpace(cellStr) == field {
				index = i
				break
			}
		}
		if index == -1 {
			return nil, fmt.Errorf("missing required field in header: %s", field)
		}
		fieldIndexes[field] = index
	}

	getField := func(field string, row []interface{}) string {
		index := fieldIndexes[field]
		if index >= len(row) {
			return ""
		}
		if str, ok := row[index].(string); ok {
			return strings.TrimSpace(str)
		}
		return ""
	}

	users := make([]model.User, 0, len(raw)-1)
	for i := 1; i < len(raw); i++ {
		row := raw[i]

		username := getField("Username", row)
		if username == "" {
			continue
		}

		role := model.Role(strings.ToUpper(getField("Role", row)))
		if !role.IsValid() {
			// Sheet rows are 1-indexed and the header is row 1
			return nil, fmt.Errorf("invalid role %q in row %d", getField("Role", row), i+1)
		}

		users = append(users, model.User{
			ID:        getField("Unique ID", row),
			Username:  username,
			FirstName: getField("First name", row),
			LastName:  getField("Last name", row),
			Email:     getField("Email", row),
			Role:      role,
		})
	}

	return users, nil
}
