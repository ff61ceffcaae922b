// README: Read-only employee directory backed by a Google Sheet.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"tripdesk/internal/modules/conversation"
	"tripdesk/internal/types"
)

var ErrNotFound = errors.New("directory: user not found")

// keyColumns are the header spellings accepted for the user id column, in
// lookup order.
var keyColumns = []string{"Slack ID", "slack_id", "Slack_Id", "slack id"}

const readRange = "A:ZZ"

// SheetsDirectory looks users up in the first sheet of a spreadsheet whose
// first row is a header.
type SheetsDirectory struct {
	svc     *sheets.Service
	sheetID string
	teamID  string
}

// NewSheetsDirectory creates a read-only Sheets client. teamID, when set, is
// prefixed to user ids as "<team>-<user>" to form the row key.
func NewSheetsDirectory(ctx context.Context, sheetID, teamID string, opts ...option.ClientOption) (*SheetsDirectory, error) {
	if sheetID == "" {
		return nil, fmt.Errorf("directory: missing sheet id")
	}
	opts = append([]option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}, opts...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("directory: sheets client: %w", err)
	}
	return &SheetsDirectory{svc: svc, sheetID: sheetID, teamID: teamID}, nil
}

// GetProfile returns the row for userID as header → cell text.
func (d *SheetsDirectory) GetProfile(ctx context.Context, userID types.ID) (conversation.Profile, error) {
	resp, err := d.svc.Spreadsheets.Values.Get(d.sheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("directory: read sheet: %w", err)
	}
	p, ok := FindProfile(resp.Values, RowKey(d.teamID, userID))
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// RowKey is the value stored in the key column for a user.
func RowKey(teamID string, userID types.ID) string {
	if teamID == "" {
		return string(userID)
	}
	return teamID + "-" + string(userID)
}

// FindProfile scans rows (header first) for the one whose key column equals
// key. Empty cells are left out of the profile.
func FindProfile(rows [][]interface{}, key string) (conversation.Profile, bool) {
	if len(rows) < 2 {
		return nil, false
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(cell(h))
	}
	keyIdx := make([]int, 0, len(keyColumns))
	for _, name := range keyColumns {
		for i, h := range header {
			if h == name {
				keyIdx = append(keyIdx, i)
			}
		}
	}
	if len(keyIdx) == 0 {
		return nil, false
	}

	for _, row := range rows[1:] {
		var rowKey string
		for _, i := range keyIdx {
			if i < len(row) {
				if v := strings.TrimSpace(cell(row[i])); v != "" {
					rowKey = v
					break
				}
			}
		}
		if rowKey == "" || rowKey != key {
			continue
		}
		p := conversation.Profile{}
		for i, h := range header {
			if h == "" || i >= len(row) {
				continue
			}
			if v := strings.TrimSpace(cell(row[i])); v != "" {
				p[h] = v
			}
		}
		return p, true
	}
	return nil, false
}

func cell(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
