// Package sqlbuilderutil derives sqlbuilder tables from model structs, using
// the same naming rules as the record mapper: the first field's sql tag may
// carry a "table" parameter, and untagged fields are snake cased.
package sqlbuilderutil

import (
	"fmt"
	"strings"

	"fknsrs.biz/p/reflectutil"
	"fknsrs.biz/p/sqlbuilder"

	"fknsrs.biz/p/vidshelf/internal/stringutil"
)

type Table struct {
	*sqlbuilder.Table
	columns []string
	nameMap map[string]string
}

// C accepts a field name, its lowercase form, or a column name.
func (t *Table) C(name string) *sqlbuilder.BasicColumn {
	if columnName, ok := t.nameMap[name]; ok {
		name = columnName
	}

	return t.Table.C(name)
}

func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

func MakeTable(v interface{}) (*Table, error) {
	s, err := reflectutil.GetDescription(v)
	if err != nil {
		return nil, fmt.Errorf("sqlbuilderutil.MakeTable: could not get struct description: %w", err)
	}

	t := Table{nameMap: make(map[string]string)}

	var tableName string

	for _, f := range s.Fields().WithoutTagValue("sql", "-") {
		sqlTag := f.Tag("sql")

		name := stringutil.PascalToSnake(f.Name())
		if sqlTag != nil && sqlTag.Value() != "" {
			name = sqlTag.Value()
		}

		t.columns = append(t.columns, name)

		t.nameMap[f.Name()] = name
		t.nameMap[strings.ToLower(f.Name())] = name
		t.nameMap[name] = name

		if sqlTag != nil {
			if p := sqlTag.Parameter("table"); p != nil && tableName == "" {
				tableName = p.Value()
			}
		}
	}

	if len(t.columns) == 0 {
		return nil, fmt.Errorf("sqlbuilderutil.MakeTable: %s has no columns", s.Name())
	}

	if tableName == "" {
		tableName = stringutil.PascalToSnake(s.Name())
	}

	t.Table = sqlbuilder.NewTable(tableName, t.columns...)

	return &t, nil
}

func MustMakeTable(v interface{}) *Table {
	t, err := MakeTable(v)
	if err != nil {
		panic(err)
	}
	return t
}
