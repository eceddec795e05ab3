package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/vidshelf/internal/catalog"
	"fknsrs.biz/p/vidshelf/internal/chapters"
	"fknsrs.biz/p/vidshelf/internal/ctxconfig"
	"fknsrs.biz/p/vidshelf/internal/ctxlogger"
	"fknsrs.biz/p/vidshelf/internal/ctxtemplate"
	"fknsrs.biz/p/vidshelf/internal/ffmpeg"
	"fknsrs.biz/p/vidshelf/internal/httputil"
)

func Video(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	cfg := ctxconfig.GetConfig(r.Context())
	q := conn(r)

	video, err := catalog.Video(r.Context(), q, vars["service"], vars["service_id"])
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			httputil.NotFound(rw, r)
			return
		}

		panic(err)
	}

	tags, err := catalog.Tags(r.Context(), q, video.ServiceID)
	if err != nil {
		panic(err)
	}

	categories, err := catalog.Categories(r.Context(), q, video.ServiceID)
	if err != nil {
		panic(err)
	}

	uploaderID, err := catalog.UploaderID(r.Context(), q, video.ServiceID)
	if err != nil {
		panic(err)
	}

	rows, err := catalog.Chapters(r.Context(), q, video.Service, video.ServiceID, cfg.ChapterLanguage)
	if err != nil {
		panic(err)
	}

	var info *ffmpeg.MediaInfo
	if video.Filepath != "" {
		if v, err := ffmpeg.Probe(cfg.FfprobePath, video.Filepath); err != nil {
			ctxlogger.GetLogger(r.Context()).WithError(err).WithFields(logrus.Fields{
				"video.service":    video.Service,
				"video.service_id": video.ServiceID,
			}).Warn("could not probe video file")
		} else {
			info = v
		}
	}

	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_video", map[string]interface{}{
		"Video":      video,
		"Tags":       tags,
		"Categories": categories,
		"UploaderID": uploaderID,
		"Chapters":   chapters.Build(rows),
		"MediaInfo":  info,
	}); err != nil {
		panic(err)
	}
}
