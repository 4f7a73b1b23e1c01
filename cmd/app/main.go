package main

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/diario-app/diario-back/internal/config"
	"github.com/diario-app/diario-back/internal/db"
	"github.com/diario-app/diario-back/internal/service"
	"github.com/diario-app/diario-back/internal/transport"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			NewLogger,
			db.NewGormClient,
			service.NewAuth,
			service.NewDiary,
			transport.NewHTTPServer,
		),
		fx.Invoke(func(server *transport.HTTPServer) {}),
	)

	app.Run()
}

func NewLogger() (*zap.SugaredLogger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	return l.Sugar(), nil
}
