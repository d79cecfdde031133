package handlers

import "github.com/labstack/echo/v4"

type Services struct {
	Blunts      BluntService
	Users       UserService
	Authorities Authorities
	Keys        KeySource
}

func Register(server *echo.Echo, services Services) {
	server.HTTPErrorHandler = ErrorHandler
	// Forwarded headers only count when a proxy extractor was set beforehand.
	if server.IPExtractor == nil {
		server.IPExtractor = echo.ExtractIPDirect()
	}

	api := server.Group("/api", Viewer(services.Users))

	api.POST("/blunts", ComposeBlunt(services.Blunts))
	api.GET("/blunts/:id", ViewBlunt(services.Blunts))
	api.POST("/blunts/:id/acknowledge", AcknowledgeBlunt(services.Blunts))
	api.POST("/blunts/:id/deny", DenyBlunt(services.Blunts))
	api.POST("/blunts/:id/replies", ReplyToBlunt(services.Blunts))
	api.GET("/feed", Feed(services.Blunts))
	api.GET("/dashboard", Dashboard(services.Blunts))
	api.GET("/chats", Conversations(services.Blunts))
	api.GET("/chats/:id", Thread(services.Blunts))
	api.GET("/limits", Limits(services.Blunts))
	api.GET("/authorities", ListAuthorities(services.Authorities))

	api.POST("/users", SignUp(services.Users))
	api.POST("/sessions", Login(services.Users))
	api.GET("/sessions/key", SessionKey(services.Keys))
	api.GET("/me", Me())
	api.PATCH("/me", UpdateProfile(services.Users))
}
