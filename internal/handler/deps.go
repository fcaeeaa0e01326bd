package handler

import (
	"flirto/internal/app/chat"
	"flirto/internal/app/store"
	"flirto/internal/configs"
)

type AppDeps struct {
	Config *configs.AppConfig
	Store  store.Store
	Engine *chat.Engine
}
