package models

import (
	"database/sql"

	"fknsrs.biz/p/vidshelf/internal/sqlbuilderutil"
	"fknsrs.biz/p/vidshelf/internal/sqltypes"
)

var (
	YTVideoTable         *sqlbuilderutil.Table
	YTVideoTagTable      *sqlbuilderutil.Table
	YTVideoCategoryTable *sqlbuilderutil.Table
)

func init() {
	YTVideoTable = sqlbuilderutil.MustMakeTable(YTVideo{})
	YTVideoTagTable = sqlbuilderutil.MustMakeTable(YTVideoTag{})
	YTVideoCategoryTable = sqlbuilderutil.MustMakeTable(YTVideoCategory{})
}

// YTVideo holds YouTube specifics; VideoID is the video's service_id.
type YTVideo struct {
	VideoID    string `sql:",table:ytvideo"`
	UploaderID string
}

func (v *YTVideo) OverrideScan(names []string, scanners []sql.Scanner) error {
	for i, name := range names {
		switch name {
		case "UploaderID":
			scanners[i] = &sqltypes.NullStringScanner{Value: &v.UploaderID}
		}
	}

	return nil
}

type YTVideoTag struct {
	VideoID string `sql:",table:ytvideotag"`
	Tag     string
}

type YTVideoCategory struct {
	VideoID  string `sql:",table:ytvideocategory"`
	Category string
}
