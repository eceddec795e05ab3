package models

import (
	"database/sql"

	"fknsrs.biz/p/vidshelf/internal/sqlbuilderutil"
	"fknsrs.biz/p/vidshelf/internal/sqltypes"
)

var (
	CatalogVideoTable *sqlbuilderutil.Table
)

func init() {
	CatalogVideoTable = sqlbuilderutil.MustMakeTable(CatalogVideo{})
}

// CatalogVideo is a row of the video table. The key is (Service, ServiceID)
// but the table does not enforce it.
type CatalogVideo struct {
	Service     string `sql:",table:video"`
	ServiceID   string
	Artist      string
	Title       string
	Description string
	UploadDate  string
	Filepath    string
}

func (v *CatalogVideo) OverrideScan(names []string, scanners []sql.Scanner) error {
	for i, name := range names {
		switch name {
		case "Artist":
			scanners[i] = &sqltypes.NullStringScanner{Value: &v.Artist}
		case "Title":
			scanners[i] = &sqltypes.NullStringScanner{Value: &v.Title}
		case "Description":
			scanners[i] = &sqltypes.NullStringScanner{Value: &v.Description}
		case "UploadDate":
			scanners[i] = &sqltypes.NullStringScanner{Value: &v.UploadDate}
		case "Filepath":
			scanners[i] = &sqltypes.NullStringScanner{Value: &v.Filepath}
		}
	}

	return nil
}
