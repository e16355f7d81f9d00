// services/authgate/internal/usecase/handler.go
package usecase

type Handler struct {
	Login    LoginHandler
	Register RegisterHandler
	Logout   LogoutHandler
	Users    UserHandler
}

func NewHandler(
	login LoginHandler,
	register RegisterHandler,
	logout LogoutHandler,
	users UserHandler,
) Handler {
	return Handler{
		Login:    login,
		Register: register,
		Logout:   logout,
		Users:    users,
	}
}
