package server

import (
	"errors"
	"net/http"

	"Bpsb/core/account"
	"Bpsb/core/auth"
	"Bpsb/core/catalog"
	"Bpsb/core/player"
	"Bpsb/logger"

	"github.com/goccy/go-json"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	accounts *account.Store
	player   *player.Coordinator
	catalog  *catalog.Catalog
	tokens   *auth.TokenIssuer
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	accounts *account.Store,
	coordinator *player.Coordinator,
	cat *catalog.Catalog,
	tokens *auth.TokenIssuer,
) *APIHandler {
	return &APIHandler{
		accounts: accounts,
		player:   coordinator,
		catalog:  cat,
		tokens:   tokens,
	}
}

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data}); err != nil {
		logger.Error("编码响应失败", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(apiResponse{Success: false, Error: msg}); err != nil {
		logger.Error("编码错误响应失败", logger.ErrorField(err))
	}
}

// writeAccountError maps account store errors onto HTTP statuses.
func writeAccountError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, account.ErrUsernameTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, account.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("账户操作失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
