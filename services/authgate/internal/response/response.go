// internal/response/response.go
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/YaganovValera/storefront-auth/services/authgate/internal/autherr"
)

// errorBody — фиксированное тело ответа об ошибке.
type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// JSON пишет успешный ответ с кодом status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error — единственная точка отображения ошибки на HTTP-ответ.
// Ошибки вне таксономии отдаются как 500 без подробностей.
func Error(w http.ResponseWriter, err error) {
	var e *autherr.Error
	if !errors.As(err, &e) {
		e = autherr.New(autherr.Internal)
	}
	JSON(w, autherr.Status(e.Kind), errorBody{Detail: e.Public(), Code: string(e.Kind)})
}
