package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"fknsrs.biz/p/vidshelf/internal/catalog"
	"fknsrs.biz/p/vidshelf/internal/ctxtemplate"
	"fknsrs.biz/p/vidshelf/internal/httputil"
)

func Artist(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	q := conn(r)

	videos, err := catalog.ArtistVideos(r.Context(), q, vars["service"], vars["uploader_id"])
	if err != nil {
		panic(err)
	}

	if len(videos) == 0 {
		httputil.NotFound(rw, r)
		return
	}

	artists, err := catalog.Sidebar(r.Context(), q)
	if err != nil {
		panic(err)
	}

	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_artist", map[string]interface{}{
		"Service":    vars["service"],
		"UploaderID": vars["uploader_id"],
		"Artist":     videos[0].Artist,
		"Videos":     videos,
		"Artists":    artists,
	}); err != nil {
		panic(err)
	}
}
