package catalog

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// highlight() and snippet() wrap matches in these markers. Escaping leaves
// them alone, so the text is escaped first and the markers are swapped for
// <mark> tags afterwards.
const (
	markOpen  = "\x02"
	markClose = "\x03"
)

// videosearch column indexes, for highlight() and snippet()
const (
	searchColumnTitle       = 2
	searchColumnDescription = 4
)

// SearchResult is a Summary annotated with highlighted title and description
// markup.
type SearchResult struct {
	Summary
	TitleHTML       template.HTML `db:"-"`
	DescriptionHTML template.HTML `db:"-"`
}

type searchRow struct {
	Summary
	TitleMarked       string `db:"title_marked"`
	DescriptionMarked string `db:"description_marked"`
}

// Search runs a full text query against videosearch, best matches first.
// The query uses FTS5 syntax; a malformed query is returned as an error.
func Search(ctx context.Context, q Querier, query string) ([]SearchResult, error) {
	sqlQuery, args, err := sq.Select(
		"videosearch.service as service",
		"videosearch.service_id as service_id",
		"coalesce(v.artist, videosearch.artist, '') as artist",
		"coalesce(v.title, videosearch.title, '') as title",
		"coalesce(v.description, videosearch.description, '') as description",
		"coalesce(v.upload_date, '') as upload_date",
		"coalesce(yt.uploader_id, '') as uploader_id",
	).
		Column(sq.Expr(fmt.Sprintf("highlight(videosearch, %d, ?, ?) as title_marked", searchColumnTitle), markOpen, markClose)).
		Column(sq.Expr(fmt.Sprintf("snippet(videosearch, %d, ?, ?, '…', 32) as description_marked", searchColumnDescription), markOpen, markClose)).
		From("videosearch").
		LeftJoin("video v on v.service = videosearch.service and v.service_id = videosearch.service_id").
		LeftJoin("ytvideo yt on yt.video_id = videosearch.service_id").
		Where("videosearch match ?", query).
		OrderBy("videosearch.rank").
		Limit(SearchLimit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("catalog.Search: %w", err)
	}

	var rows []searchRow
	if err := sqlx.SelectContext(ctx, q, &rows, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("catalog.Search: %w", err)
	}

	results := make([]SearchResult, len(rows))
	for i, row := range rows {
		results[i] = SearchResult{
			Summary:         row.Summary,
			TitleHTML:       Markup(row.TitleMarked),
			DescriptionHTML: Markup(row.DescriptionMarked),
		}
	}

	return results, nil
}

var markReplacer = strings.NewReplacer(markOpen, "<mark>", markClose, "</mark>")

// Markup escapes s and turns highlight markers into <mark> elements.
func Markup(s string) template.HTML {
	return template.HTML(markReplacer.Replace(html.EscapeString(s)))
}
