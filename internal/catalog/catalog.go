// Package catalog answers the read queries behind the library pages.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fknsrs.biz/p/sorm"
	"fknsrs.biz/p/sorm/qsorm"
	sb "fknsrs.biz/p/sqlbuilder"
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"fknsrs.biz/p/vidshelf/internal/chapters"
	"fknsrs.biz/p/vidshelf/models"
)

const (
	FeedLimit   = 25
	SearchLimit = 25
)

var (
	ErrNotFound = fmt.Errorf("catalog: not found")
)

// Querier is satisfied by *sqlx.DB, *sqlx.Conn and *sqlx.Tx.
type Querier interface {
	sqlx.QueryerContext
	sorm.Querier
}

// Summary is one entry of a video list.
type Summary struct {
	Service     string `db:"service"`
	ServiceID   string `db:"service_id"`
	Artist      string `db:"artist"`
	Title       string `db:"title"`
	Description string `db:"description"`
	UploadDate  string `db:"upload_date"`
	UploaderID  string `db:"uploader_id"`
}

type ArtistLink struct {
	Service    string `db:"service"`
	Artist     string `db:"artist"`
	UploaderID string `db:"uploader_id"`
}

// Feed returns the most recently uploaded videos.
func Feed(ctx context.Context, q Querier) ([]Summary, error) {
	var videos []models.CatalogVideo
	if err := qsorm.FindWhere(
		ctx,
		q,
		&videos,
		nil,
		[]sb.AsOrderingTerm{sb.OrderDesc(models.CatalogVideoTable.C("UploadDate"))},
		sb.OffsetLimit(nil, sb.Literal(fmt.Sprintf("%d", FeedLimit))),
	); err != nil {
		return nil, fmt.Errorf("catalog.Feed: %w", err)
	}

	uploaders, err := uploaderIDs(ctx, q, videos)
	if err != nil {
		return nil, fmt.Errorf("catalog.Feed: %w", err)
	}

	summaries := make([]Summary, len(videos))
	for i, v := range videos {
		summaries[i] = Summary{
			Service:     v.Service,
			ServiceID:   v.ServiceID,
			Artist:      v.Artist,
			Title:       v.Title,
			Description: v.Description,
			UploadDate:  v.UploadDate,
			UploaderID:  uploaders[v.ServiceID],
		}
	}

	return summaries, nil
}

func uploaderIDs(ctx context.Context, q Querier, videos []models.CatalogVideo) (map[string]string, error) {
	m := make(map[string]string)

	if len(videos) == 0 {
		return m, nil
	}

	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.ServiceID
	}

	where, args, err := sq.Eq{"video_id": ids}.ToSql()
	if err != nil {
		return nil, fmt.Errorf("catalog.uploaderIDs: %w", err)
	}

	var rows []models.YTVideo
	if err := sorm.FindWhere(ctx, q, &rows, "where "+where, args...); err != nil {
		return nil, fmt.Errorf("catalog.uploaderIDs: %w", err)
	}

	for _, row := range rows {
		if _, ok := m[row.VideoID]; !ok {
			m[row.VideoID] = row.UploaderID
		}
	}

	return m, nil
}

// Sidebar lists every (service, artist, uploader) combination, by artist.
func Sidebar(ctx context.Context, q Querier) ([]ArtistLink, error) {
	query, args, err := sq.Select("v.service", "coalesce(v.artist, '') as artist", "yt.uploader_id").
		Distinct().
		From("video v").
		Join("ytvideo yt on yt.video_id = v.service_id").
		Where("yt.uploader_id is not null").
		OrderBy("artist", "yt.uploader_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("catalog.Sidebar: %w", err)
	}

	var links []ArtistLink
	if err := sqlx.SelectContext(ctx, q, &links, query, args...); err != nil {
		return nil, fmt.Errorf("catalog.Sidebar: %w", err)
	}

	return links, nil
}

// Video returns the single video with the given key. No match, or more than
// one, is ErrNotFound.
func Video(ctx context.Context, q Querier, service, serviceID string) (*models.CatalogVideo, error) {
	var videos []models.CatalogVideo
	if err := sorm.FindWhere(ctx, q, &videos, "where service = ? and service_id = ?", service, serviceID); err != nil {
		return nil, fmt.Errorf("catalog.Video: %w", err)
	}

	if len(videos) != 1 {
		return nil, fmt.Errorf("catalog.Video: %w: %s/%s matched %d rows", ErrNotFound, service, serviceID, len(videos))
	}

	return &videos[0], nil
}

// UploaderID returns "" for videos without a ytvideo row.
func UploaderID(ctx context.Context, q Querier, videoID string) (string, error) {
	var v models.YTVideo
	if err := sorm.FindFirstWhere(ctx, q, &v, "where video_id = ?", videoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}

		return "", fmt.Errorf("catalog.UploaderID: %w", err)
	}

	return v.UploaderID, nil
}

func Tags(ctx context.Context, q Querier, videoID string) ([]string, error) {
	var rows []models.YTVideoTag
	if err := sorm.FindWhere(ctx, q, &rows, "where video_id = ? order by rowid", videoID); err != nil {
		return nil, fmt.Errorf("catalog.Tags: %w", err)
	}

	tags := make([]string, len(rows))
	for i, row := range rows {
		tags[i] = row.Tag
	}

	return tags, nil
}

func Categories(ctx context.Context, q Querier, videoID string) ([]string, error) {
	var rows []models.YTVideoCategory
	if err := sorm.FindWhere(ctx, q, &rows, "where video_id = ? order by rowid", videoID); err != nil {
		return nil, fmt.Errorf("catalog.Categories: %w", err)
	}

	categories := make([]string, len(rows))
	for i, row := range rows {
		categories[i] = row.Category
	}

	return categories, nil
}

// ArtistVideos lists an uploader's videos on one service, newest first.
func ArtistVideos(ctx context.Context, q Querier, service, uploaderID string) ([]Summary, error) {
	query, args, err := sq.Select(
		"v.service",
		"v.service_id",
		"coalesce(v.artist, '') as artist",
		"coalesce(v.title, '') as title",
		"coalesce(v.description, '') as description",
		"coalesce(v.upload_date, '') as upload_date",
		"yt.uploader_id",
	).
		From("video v").
		Join("ytvideo yt on yt.video_id = v.service_id").
		Where(sq.Eq{"v.service": service, "yt.uploader_id": uploaderID}).
		OrderBy("v.upload_date desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("catalog.ArtistVideos: %w", err)
	}

	var videos []Summary
	if err := sqlx.SelectContext(ctx, q, &videos, query, args...); err != nil {
		return nil, fmt.Errorf("catalog.ArtistVideos: %w", err)
	}

	return videos, nil
}

// Chapters returns a video's chapter rows by start time. The label is taken
// from the display row in the preferred language if there is one, otherwise
// from any display row.
func Chapters(ctx context.Context, q Querier, service, serviceID, language string) ([]chapters.Row, error) {
	query, args, err := sq.Select("c.start_ms", "c.end_ms").
		Column(sq.Expr(
			"coalesce((select d.chapterstring from chapterdisplay d"+
				" where d.service = c.service and d.service_id = c.service_id and d.chapter_uid = c.chapter_uid"+
				" order by coalesce(d.language = ?, 0) desc, d.rowid limit 1), '') as label",
			language,
		)).
		From("chapter c").
		Where(sq.Eq{"c.service": service, "c.service_id": serviceID}).
		OrderBy("c.start_ms", "c.rowid").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("catalog.Chapters: %w", err)
	}

	var rows []chapters.Row
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("catalog.Chapters: %w", err)
	}

	return rows, nil
}
