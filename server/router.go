package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter registers every API route on a gorilla/mux router.
func NewRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/signup", h.SignupHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", h.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/logout", h.AuthMiddleware(h.LogoutHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/me", h.AuthMiddleware(h.MeHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/user/profile", h.AuthMiddleware(h.UpdateProfileHandler)).Methods(http.MethodPatch)

	// 专辑与搜索
	router.HandleFunc("/api/albums", h.GetAlbumsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/albums/{id}", h.GetAlbumHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/search", h.SearchHandler).Methods(http.MethodGet)

	// 播放控制
	p := router.PathPrefix("/api/player").Subrouter()
	p.HandleFunc("", h.GetPlayerStateHandler).Methods(http.MethodGet)
	p.HandleFunc("/play", h.PlayHandler).Methods(http.MethodPost)
	p.HandleFunc("/album", h.PlayAlbumHandler).Methods(http.MethodPost)
	p.HandleFunc("/queue", h.QueueHandler).Methods(http.MethodPost)
	p.HandleFunc("/toggle", h.TogglePlayHandler).Methods(http.MethodPost)
	p.HandleFunc("/next", h.NextTrackHandler).Methods(http.MethodPost)
	p.HandleFunc("/previous", h.PreviousTrackHandler).Methods(http.MethodPost)
	p.HandleFunc("/volume", h.VolumeHandler).Methods(http.MethodPost)
	p.HandleFunc("/seek", h.SeekHandler).Methods(http.MethodPost)
	p.HandleFunc("/repeat", h.RepeatHandler).Methods(http.MethodPost)
	p.HandleFunc("/shuffle", h.ShuffleHandler).Methods(http.MethodPost)

	router.HandleFunc("/ws/player", h.PlayerWebSocketHandler)

	return router
}
