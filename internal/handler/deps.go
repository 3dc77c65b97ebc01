package handler

import (
	"cesuchat/internal/app/hub"
	"cesuchat/internal/app/store"
	"cesuchat/internal/configs"
)

// AppDeps bundles the dependencies the HTTP and WebSocket handlers need.
type AppDeps struct {
	Gateway *hub.Gateway
	Config  *configs.AppConfig
	Users   *store.Users
}
