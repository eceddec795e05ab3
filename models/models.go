// Package models maps the library tables that are read one row at a time.
package models

import (
	"fknsrs.biz/p/sorm"
)

func init() {
	sorm.SetParameterPrefix("?")
}
