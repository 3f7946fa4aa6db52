// Package dataset reads team rosters from spreadsheets and writes analysis
// reports back out as workbooks.
package dataset

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"team-insights-go/internal/logger"
	"team-insights-go/internal/types"
)

// LoadRoster reads people from the first sheet of an xlsx file. Columns are
// found by header heuristics; rows without a name are skipped. ProjectID is
// left for the caller to set.
func LoadRoster(path string, log *logrus.Entry) ([]types.Person, error) {
	log = logger.OrDiscard(log, "dataset.roster").WithField("path", path)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	cols := detectColumns(rows[0])
	if cols.name == -1 {
		return nil, fmt.Errorf("no name column in header %v", rows[0])
	}
	log.WithFields(logrus.Fields{
		"nameIdx":  cols.name,
		"roleIdx":  cols.role,
		"orgIdx":   cols.org,
		"aliasIdx": cols.aliases,
		"emailIdx": cols.email,
		"kindIdx":  cols.kind,
	}).Debug("detected roster column indices")

	var out []types.Person
	for i, r := range rows {
		if i == 0 {
			continue
		}
		p := types.Person{
			Name:         cell(r, cols.name),
			Role:         cell(r, cols.role),
			Organization: cell(r, cols.org),
			Email:        cell(r, cols.email),
			Aliases:      splitAliases(cell(r, cols.aliases)),
			Source:       sourceOf(cell(r, cols.kind)),
		}
		if p.Name == "" {
			continue
		}
		out = append(out, p)
	}
	log.WithField("people", len(out)).Info("roster loaded")
	return out, nil
}

type columns struct {
	name, role, org, aliases, email, kind int
}

func detectColumns(header []string) columns {
	c := columns{-1, -1, -1, -1, -1, -1}
	set := func(idx *int, i int) {
		if *idx == -1 {
			*idx = i
		}
	}
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "alias") || strings.Contains(l, "nickname") || strings.Contains(l, "also known"):
			set(&c.aliases, i)
		case strings.Contains(l, "mail"):
			set(&c.email, i)
		case strings.Contains(l, "org") || strings.Contains(l, "company") || strings.Contains(l, "team"):
			set(&c.org, i)
		case strings.Contains(l, "role") || strings.Contains(l, "title") || strings.Contains(l, "position"):
			set(&c.role, i)
		case strings.Contains(l, "kind") || strings.Contains(l, "type") || strings.Contains(l, "relation"):
			set(&c.kind, i)
		case strings.Contains(l, "name") || l == "person" || l == "member":
			set(&c.name, i)
		}
	}
	return c
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func splitAliases(s string) []string {
	var out []string
	for _, a := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' || r == '|' }) {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func sourceOf(kind string) types.PersonSource {
	switch strings.ToLower(kind) {
	case "contact", "external", "client", "customer", "stakeholder":
		return types.SourceContact
	}
	return types.SourceTeamMember
}
