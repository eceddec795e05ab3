package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/vidshelf/internal/catalog"
	"fknsrs.biz/p/vidshelf/internal/chapters"
	"fknsrs.biz/p/vidshelf/internal/ctxconfig"
	"fknsrs.biz/p/vidshelf/internal/ctxlimiter"
	"fknsrs.biz/p/vidshelf/internal/ctxlogger"
	"fknsrs.biz/p/vidshelf/internal/ctxtimer"
	"fknsrs.biz/p/vidshelf/internal/ffmpeg"
	"fknsrs.biz/p/vidshelf/internal/httputil"
	"fknsrs.biz/p/vidshelf/internal/mkvtoolnix"
	"fknsrs.biz/p/vidshelf/models"
)

const timerNameRemux = "handlers.remux"

// videoFile loads the video named by the route. It writes the not found page
// and returns nil if there is no such video or it has no file.
func videoFile(rw http.ResponseWriter, r *http.Request) *models.CatalogVideo {
	vars := mux.Vars(r)

	video, err := catalog.Video(r.Context(), conn(r), vars["service"], vars["service_id"])
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			httputil.NotFound(rw, r)
			return nil
		}

		panic(err)
	}

	if video.Filepath == "" {
		httputil.NotFound(rw, r)
		return nil
	}

	return video
}

// VideoFile remuxes the stored file to mp4 and streams the result. The
// remuxed copy only lives as long as the request.
func VideoFile(rw http.ResponseWriter, r *http.Request) {
	video := videoFile(rw, r)
	if video == nil {
		return
	}

	cfg := ctxconfig.GetConfig(r.Context())
	l := ctxlogger.GetLogger(r.Context()).WithFields(logrus.Fields{
		"video.service":    video.Service,
		"video.service_id": video.ServiceID,
	})

	release, err := ctxlimiter.Acquire(r.Context())
	if err != nil {
		if r.Context().Err() != nil {
			l.WithError(err).Debug("request cancelled while waiting to remux")
			return
		}

		panic(err)
	}
	defer release()

	f, err := os.CreateTemp(cfg.TempPath, "vidshelf-*.mp4")
	if err != nil {
		panic(err)
	}
	defer os.Remove(f.Name())

	if err := f.Close(); err != nil {
		panic(err)
	}

	if err := ctxtimer.Mark(r.Context(), timerNameRemux); err != nil {
		l.WithError(err).Debug("could not start remux timer")
	}

	output, err := ffmpeg.Remux(r.Context(), cfg.FfmpegPath, video.Filepath, f.Name())
	if err != nil {
		l.WithError(err).WithField("ffmpeg.output", output).Error("remux failed")
		panic(err)
	}

	if d, err := ctxtimer.Elapsed(r.Context(), timerNameRemux); err == nil {
		l = l.WithField("remux.duration", d)
	}

	l.Debug("remux finished")

	out, err := os.Open(f.Name())
	if err != nil {
		panic(err)
	}
	defer out.Close()

	st, err := out.Stat()
	if err != nil {
		panic(err)
	}

	rw.Header().Set("content-type", "video/mp4")

	http.ServeContent(rw, r, "", st.ModTime(), out)
}

// Thumbnail sends the cover art embedded in the video file.
func Thumbnail(rw http.ResponseWriter, r *http.Request) {
	video := videoFile(rw, r)
	if video == nil {
		return
	}

	cfg := ctxconfig.GetConfig(r.Context())

	attachment, data, err := mkvtoolnix.Thumbnail(r.Context(), cfg.MkvmergePath, cfg.MkvextractPath, video.Filepath, cfg.ThumbnailAttachment)
	if err != nil {
		if errors.Is(err, mkvtoolnix.ErrAttachmentNotFound) {
			httputil.NotFound(rw, r)
			return
		}

		panic(err)
	}

	httputil.Attachment(rw, r, attachment.FileName, attachment.ContentType, data)
}

// Chapters sends the video's chapters as a WebVTT document. A video without
// chapters gets a document with no cues.
func Chapters(rw http.ResponseWriter, r *http.Request) {
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

	rows, err := catalog.Chapters(r.Context(), q, video.Service, video.ServiceID, cfg.ChapterLanguage)
	if err != nil {
		panic(err)
	}

	rw.Header().Set("content-type", "text/vtt; charset=utf-8")

	if err := chapters.WriteWebVTT(rw, chapters.Build(rows)); err != nil {
		ctxlogger.GetLogger(r.Context()).WithError(err).Warn("could not write chapters")
	}
}
