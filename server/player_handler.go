package server

import (
	"net/http"

	"Bpsb/model"
)

type trackRequest struct {
	TrackID string       `json:"trackId,omitempty"`
	Track   *model.Track `json:"track,omitempty"`
}

type valueRequest struct {
	Value *float64 `json:"value"`
}

type albumRequest struct {
	AlbumID string `json:"albumId"`
}

// resolveTrack accepts either a catalog track ID or an inline track.
func (h *APIHandler) resolveTrack(w http.ResponseWriter, r *http.Request) (model.Track, bool) {
	var req trackRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return model.Track{}, false
	}
	if req.Track != nil {
		if req.Track.ID == "" || req.Track.Src == "" {
			writeError(w, http.StatusBadRequest, "track id and src are required")
			return model.Track{}, false
		}
		return *req.Track, true
	}
	t, ok := h.catalog.Track(req.TrackID)
	if !ok {
		writeError(w, http.StatusNotFound, "Track not found")
		return model.Track{}, false
	}
	return t, true
}

func (h *APIHandler) readValue(w http.ResponseWriter, r *http.Request) (float64, bool) {
	var req valueRequest
	if err := decodeBody(r, &req); err != nil || req.Value == nil {
		writeError(w, http.StatusBadRequest, "value is required")
		return 0, false
	}
	return *req.Value, true
}

// GetPlayerStateHandler 获取播放状态
func (h *APIHandler) GetPlayerStateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.player.State())
}

func (h *APIHandler) PlayHandler(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolveTrack(w, r)
	if !ok {
		return
	}
	h.player.PlayTrack(t)
	writeJSON(w, http.StatusOK, h.player.State())
}

func (h *APIHandler) QueueHandler(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolveTrack(w, r)
	if !ok {
		return
	}
	h.player.AddToQueue(t)
	writeJSON(w, http.StatusOK, h.player.State())
}

// PlayAlbumHandler plays the album's first track. The queue is not touched.
func (h *APIHandler) PlayAlbumHandler(w http.ResponseWriter, r *http.Request) {
	var req albumRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	album, ok := h.catalog.Album(req.AlbumID)
	if !ok {
		writeError(w, http.StatusNotFound, "Album not found")
		return
	}
	if len(album.Tracks) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "Album has no tracks")
		return
	}
	h.player.PlayTrack(album.Tracks[0])
	writeJSON(w, http.StatusOK, h.player.State())
}

func (h *APIHandler) TogglePlayHandler(w http.ResponseWriter, r *http.Request) {
	h.player.TogglePlay()
	writeJSON(w, http.StatusOK, h.player.State())
}

func (h *APIHandler) NextTrackHandler(w http.ResponseWriter, r *http.Request) {
	h.player.NextTrack()
	writeJSON(w, http.StatusOK, h.player.State())
}

func (h *APIHandler) PreviousTrackHandler(w http.ResponseWriter, r *http.Request) {
	h.player.PreviousTrack()
	writeJSON(w, http.StatusOK, h.player.State())
}

func (h *APIHandler) VolumeHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := h.readValue(w, r)
	if !ok {
		return
	}
	h.player.SetVolume(v)
	writeJSON(w, http.StatusOK, h.player.State())
}

func (h *APIHandler) SeekHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := h.readValue(w, r)
	if !ok {
		return
	}
	h.player.SeekTo(v)
	writeJSON(w, http.StatusOK, h.player.State())
}

func (h *APIHandler) RepeatHandler(w http.ResponseWriter, r *http.Request) {
	h.player.ToggleRepeat()
	writeJSON(w, http.StatusOK, h.player.State())
}

func (h *APIHandler) ShuffleHandler(w http.ResponseWriter, r *http.Request) {
	h.player.ToggleShuffle()
	writeJSON(w, http.StatusOK, h.player.State())
}
