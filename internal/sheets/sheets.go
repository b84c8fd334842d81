package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"timeslot-service/internal/catalog"
)

var ErrNoTypeColumn = errors.New("sheets: header row has no type column")

// Source reads client rules from a spreadsheet.
//
// The rules range has a header row `id | type | display_name | <meeting type>...`
// and one row per client type. Cells hold minutes: blank means no entry, 0 means
// not offered. The optional meeting types range holds `name | minutes` rows.
type Source struct {
	svc               *sheetsapi.Service
	spreadsheetID     string
	rulesRange        string
	meetingTypesRange string
}

func NewSource(ctx context.Context, credentialsFile, spreadsheetID, rulesRange, meetingTypesRange string) (*Source, error) {
	creds, err := credentials(ctx, credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets: credentials: %w", err)
	}
	svc, err := sheetsapi.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return NewSourceFromService(svc, spreadsheetID, rulesRange, meetingTypesRange), nil
}

// credentials loads the given file, or application default credentials when empty.
func credentials(ctx context.Context, file string) (*google.Credentials, error) {
	if file == "" {
		return google.FindDefaultCredentials(ctx, sheetsapi.SpreadsheetsReadonlyScope)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return google.CredentialsFromJSON(ctx, data, sheetsapi.SpreadsheetsReadonlyScope)
}

func NewSourceFromService(svc *sheetsapi.Service, spreadsheetID, rulesRange, meetingTypesRange string) *Source {
	return &Source{svc: svc, spreadsheetID: spreadsheetID, rulesRange: rulesRange, meetingTypesRange: meetingTypesRange}
}

func (s *Source) FetchRules(ctx context.Context) (catalog.RuleSet, error) {
	return s.pull(ctx)
}

// RefreshRules reads the sheet again; the spreadsheet has no cache to bypass.
func (s *Source) RefreshRules(ctx context.Context) (catalog.RuleSet, error) {
	return s.pull(ctx)
}

func (s *Source) pull(ctx context.Context) (catalog.RuleSet, error) {
	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rulesRange).Context(ctx).Do()
	if err != nil {
		return catalog.RuleSet{}, fmt.Errorf("sheets: read %s: %w", s.rulesRange, err)
	}
	rules, err := ParseRules(vr.Values)
	if err != nil {
		return catalog.RuleSet{}, err
	}
	set := catalog.RuleSet{Rules: rules}

	if s.meetingTypesRange != "" {
		vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.meetingTypesRange).Context(ctx).Do()
		if err != nil {
			return catalog.RuleSet{}, fmt.Errorf("sheets: read %s: %w", s.meetingTypesRange, err)
		}
		if set.MeetingTypes, err = ParseMeetingTypes(vr.Values); err != nil {
			return catalog.RuleSet{}, err
		}
	}
	return set, nil
}

// ParseRules converts sheet rows (header first) into client rules.
// Rows with a blank type are skipped.
func ParseRules(rows [][]interface{}) ([]catalog.ClientRule, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	header := make([]string, len(rows[0]))
	idCol, typeCol, nameCol := -1, -1, -1
	for i, cell := range rows[0] {
		// Meeting-type columns keep their case; slots name them the same way.
		header[i] = cellString(cell)
		switch strings.ToLower(header[i]) {
		case "id":
			idCol = i
		case "type":
			typeCol = i
		case "display_name":
			nameCol = i
		}
	}
	if typeCol < 0 {
		return nil, ErrNoTypeColumn
	}

	var rules []catalog.ClientRule
	for r, row := range rows[1:] {
		line := r + 2
		typ := cellAt(row, typeCol)
		if typ == "" {
			continue
		}
		rule := catalog.ClientRule{
			Type:        typ,
			DisplayName: cellAt(row, nameCol),
			Durations:   make(map[string]int),
		}
		if raw := cellAt(row, idCol); raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("sheets: row %d: id %q is not a number", line, raw)
			}
			rule.ID = &id
		}
		for col, name := range header {
			if col == idCol || col == typeCol || col == nameCol || name == "" {
				continue
			}
			raw := cellAt(row, col)
			if raw == "" {
				continue
			}
			minutes, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("sheets: row %d: %s minutes %q is not a number", line, name, raw)
			}
			rule.Durations[name] = minutes
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// ParseMeetingTypes reads `name | minutes` rows. A leading header row is skipped.
func ParseMeetingTypes(rows [][]interface{}) ([]catalog.MeetingTypeDefinition, error) {
	var out []catalog.MeetingTypeDefinition
	for i, row := range rows {
		name, raw := cellAt(row, 0), cellAt(row, 1)
		if name == "" {
			continue
		}
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("sheets: meeting type %s: minutes %q is not a number", name, raw)
		}
		out = append(out, catalog.MeetingTypeDefinition{Name: name, Minutes: minutes})
	}
	return out, nil
}

func cellAt(row []interface{}, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return cellString(row[col])
}

func cellString(v interface{}) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
