package schema

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	_ "modernc.org/sqlite"
)

func TestMigrate(t *testing.T) {
	a := assert.New(t)

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	a.NoError(Migrate(db, nil))
	a.NoError(Migrate(db, nil))

	for _, table := range []string{"video", "ytvideo", "ytvideotag", "ytvideocategory", "chapter", "chapterdisplay"} {
		var n int
		a.NoError(db.QueryRow("select count(*) from sqlite_master where type = 'table' and name = ?", table).Scan(&n), table)
		a.Equal(1, n, table)
	}
}

func TestMigrateExistingLibrary(t *testing.T) {
	a := assert.New(t)

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	_, err = db.Exec("create table video (service text, service_id text, artist text, title text, description text, upload_date text, filepath text)")
	a.NoError(err)
	_, err = db.Exec("insert into video (service, service_id, title) values ('youtube', 'abc', 'Existing')")
	a.NoError(err)

	a.NoError(Migrate(db, nil))

	var title string
	a.NoError(db.QueryRow("select title from video where service_id = 'abc'").Scan(&title))
	a.Equal("Existing", title)
}
