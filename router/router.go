package router

import (
	"go-auth-api/handler"
	"go-auth-api/service"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "go-auth-api/docs"
)

func NewRouter(authHandler *handler.AuthHandler, userHandler *handler.UserHandler, signer service.ITokenSigner) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/register", handler.ErrorHandlingMiddleware(authHandler.Register))
	mux.Handle("/login", handler.ErrorHandlingMiddleware(authHandler.Login))
	mux.Handle("/logout", handler.ErrorHandlingMiddleware(authHandler.Logout))
	mux.Handle("/refresh", handler.ErrorHandlingMiddleware(authHandler.Refresh))
	mux.Handle("/sendResetLink", handler.ErrorHandlingMiddleware(authHandler.SendResetLink))
	mux.Handle("/resetPassword", handler.ErrorHandlingMiddleware(authHandler.ResetPassword))

	mux.Handle("/me", handler.AuthMiddleware(signer, handler.ErrorHandlingMiddleware(userHandler.Me)))

	mux.HandleFunc("/health", handler.HealthCheck)
	mux.Handle("/swagger/", httpSwagger.Handler())

	return mux
}
