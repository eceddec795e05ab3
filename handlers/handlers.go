// Package handlers implements the HTTP routes of the catalog browser.
package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"fknsrs.biz/p/vidshelf/internal/catalog"
	"fknsrs.biz/p/vidshelf/internal/ctxdb"
)

// Register adds every catalog and media route to m.
func Register(m *mux.Router) {
	m.Methods(http.MethodGet).Path("/").HandlerFunc(Index)
	m.Methods(http.MethodGet).Path("/video/{service}/{service_id}").HandlerFunc(Video)
	m.Methods(http.MethodGet).Path("/video/{service}/{service_id}/videofile").HandlerFunc(VideoFile)
	m.Methods(http.MethodGet).Path("/video/{service}/{service_id}/thumbnail").HandlerFunc(Thumbnail)
	m.Methods(http.MethodGet).Path("/video/{service}/{service_id}/chapters").HandlerFunc(Chapters)
	m.Methods(http.MethodGet).Path("/artist/{service}/{uploader_id}").HandlerFunc(Artist)
}

func conn(r *http.Request) catalog.Querier {
	c, err := ctxdb.GetConn(r.Context())
	if err != nil {
		panic(err)
	}

	return c
}
