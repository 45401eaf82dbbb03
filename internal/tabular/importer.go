package tabular

import (
	"fmt"
	"strings"

	"github.com/gochang/agri-notify/internal/project"
)

// Column positions of the import layout.
const (
	ColID = iota
	ColCategory
	ColName
	ColApplicationPeriod
	ColSupport1
	ColSupport2
	ColTarget
	ColLocation
	ColEtc
	ColNotificationDate
	ColIsActive
	ColPhone
	ColEmail
	ColRequirements

	ColumnCount
)

// Header is the fixed column header of the import and export layout.
var Header = []string{
	"id", "category", "name", "applicationPeriod", "support1", "support2",
	"target", "location", "etc", "notificationDate", "isActive",
	"phone", "email", "requirements",
}

// SkippedRow describes a data row that did not produce a project.
type SkippedRow struct {
	Row    int    `json:"row"` // 1-based, as shown by spreadsheet programs
	Reason string `json:"reason"`
}

// Result is the outcome of mapping a sheet to projects.
type Result struct {
	Projects []project.Project `json:"projects"`
	Skipped  []SkippedRow      `json:"skipped,omitempty"`
	DataRows int               `json:"dataRows"`
}

// Import maps every data row of sheet to a project, in order. The header
// row is never included. Rows whose cells fail to convert, or whose id or
// name is empty, are skipped and reported in Result.Skipped.
func Import(sheet Sheet) Result {
	var res Result
	if len(sheet.Rows) <= 1 {
		return res
	}
	res.DataRows = len(sheet.Rows) - 1
	res.Projects = make([]project.Project, 0, res.DataRows)

	for i, row := range sheet.Rows[1:] {
		p, err := RowToProject(row)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedRow{Row: i + 2, Reason: err.Error()})
			continue
		}
		res.Projects = append(res.Projects, p)
	}
	return res
}

// RowToProject converts one data row. Missing trailing cells read as "".
func RowToProject(row Row) (project.Project, error) {
	var values [ColumnCount]string
	for col := range ColumnCount {
		if col >= len(row) {
			break
		}
		s, err := row[col].String()
		if err != nil {
			return project.Project{}, fmt.Errorf("column %s: %w", Header[col], err)
		}
		values[col] = s
	}

	p := project.Project{
		ID:                values[ColID],
		Category:          project.ParseCategory(values[ColCategory]),
		Name:              values[ColName],
		ApplicationPeriod: values[ColApplicationPeriod],
		Support1:          values[ColSupport1],
		Support2:          values[ColSupport2],
		Target:            values[ColTarget],
		Location:          values[ColLocation],
		Etc:               values[ColEtc],
		NotificationDate:  values[ColNotificationDate],
		IsActive:          strings.EqualFold(values[ColIsActive], "TRUE"),
		Phone:             values[ColPhone],
		Email:             values[ColEmail],
		Requirements:      values[ColRequirements],
	}
	if p.ID == "" {
		return project.Project{}, fmt.Errorf("empty id")
	}
	if p.Name == "" {
		return project.Project{}, fmt.Errorf("empty name")
	}
	return p, nil
}

// ProjectToRecord renders a project in column order. Booleans use their
// textual form and absent optional fields are "".
func ProjectToRecord(p project.Project) []string {
	record := make([]string, ColumnCount)
	record[ColID] = p.ID
	record[ColCategory] = string(p.Category)
	record[ColName] = p.Name
	record[ColApplicationPeriod] = p.ApplicationPeriod
	record[ColSupport1] = p.Support1
	record[ColSupport2] = p.Support2
	record[ColTarget] = p.Target
	record[ColLocation] = p.Location
	record[ColEtc] = p.Etc
	record[ColNotificationDate] = p.NotificationDate
	if p.IsActive {
		record[ColIsActive] = "true"
	} else {
		record[ColIsActive] = "false"
	}
	record[ColPhone] = p.Phone
	record[ColEmail] = p.Email
	record[ColRequirements] = p.Requirements
	return record
}
