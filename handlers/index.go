package handlers

import (
	"net/http"

	"github.com/monoculum/formam"

	"fknsrs.biz/p/vidshelf/internal/catalog"
	"fknsrs.biz/p/vidshelf/internal/ctxtemplate"
)

type indexInput struct {
	Q string `formam:"q"`
}

var queryDecoder = formam.NewDecoder(&formam.DecoderOptions{
	TagName:           "formam",
	IgnoreUnknownKeys: true,
})

func Index(rw http.ResponseWriter, r *http.Request) {
	var input indexInput
	if err := queryDecoder.Decode(r.URL.Query(), &input); err != nil {
		panic(err)
	}

	q := conn(r)

	data := map[string]interface{}{"Q": input.Q}

	if input.Q == "" {
		videos, err := catalog.Feed(r.Context(), q)
		if err != nil {
			panic(err)
		}

		data["Videos"] = videos
	} else {
		results, err := catalog.Search(r.Context(), q, input.Q)
		if err != nil {
			panic(err)
		}

		data["Results"] = results
	}

	artists, err := catalog.Sidebar(r.Context(), q)
	if err != nil {
		panic(err)
	}

	data["Artists"] = artists

	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_index", data); err != nil {
		panic(err)
	}
}
