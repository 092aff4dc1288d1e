package server

import (
	"net/http"

	"Bpsb/model"

	"github.com/gorilla/mux"
)

// GetAlbumsHandler 获取专辑列表
func (h *APIHandler) GetAlbumsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Albums())
}

// GetAlbumHandler 获取专辑详情
func (h *APIHandler) GetAlbumHandler(w http.ResponseWriter, r *http.Request) {
	album, ok := h.catalog.Album(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "Album not found")
		return
	}
	writeJSON(w, http.StatusOK, album)
}

// SearchHandler searches the catalog by title, artist or album.
func (h *APIHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	results := h.catalog.Search(r.URL.Query().Get("q"))
	if results == nil {
		results = []model.Track{}
	}
	writeJSON(w, http.StatusOK, results)
}
