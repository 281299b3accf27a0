package handler

import (
	"github.com/Tanmay-110/Code-Collab/internal/app/session"
	"github.com/Tanmay-110/Code-Collab/internal/configs"
)

type AppDeps struct {
	Coordinator *session.Coordinator
	Config      *configs.AppConfig
}
