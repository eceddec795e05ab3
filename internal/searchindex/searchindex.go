// Package searchindex rebuilds the videosearch full text table from video.
package searchindex

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/vidshelf/internal/ctxdb"
	"fknsrs.biz/p/vidshelf/internal/ctxlogger"
)

var schema = []string{
	"drop table if exists videosearch",
	"create virtual table videosearch using fts5(service UNINDEXED, service_id UNINDEXED, title, artist, description)",
}

// Rebuild replaces the contents of videosearch with the current contents of
// video, in one transaction. It returns the number of rows indexed.
func Rebuild(ctx context.Context) (int64, error) {
	l := ctxlogger.GetLogger(ctx)

	var count int64

	if err := ctxdb.UsingTx(ctx, nil, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("searchindex.Rebuild: %w", err)
			}
		}

		query, args, err := sq.Insert("videosearch").
			Columns("service", "service_id", "title", "artist", "description").
			Select(sq.Select(
				"service",
				"service_id",
				"coalesce(title, '')",
				"coalesce(artist, '')",
				"coalesce(description, '')",
			).From("video")).
			ToSql()
		if err != nil {
			return fmt.Errorf("searchindex.Rebuild: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("searchindex.Rebuild: %w", err)
		}

		if err := tx.GetContext(ctx, &count, "select count(*) from videosearch"); err != nil {
			return fmt.Errorf("searchindex.Rebuild: %w", err)
		}

		return nil
	}); err != nil {
		return 0, err
	}

	l.WithFields(logrus.Fields{"search.rows": count}).Info("rebuilt search index")

	return count, nil
}
