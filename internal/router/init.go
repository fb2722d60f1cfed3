package router

import (
	"github.com/prestigemetals/account-service/internal/application"
	"github.com/prestigemetals/account-service/internal/container"
	pginfra "github.com/prestigemetals/account-service/internal/infrastructure/postgres"
	handlers "github.com/prestigemetals/account-service/internal/interface/http"
	"github.com/prestigemetals/account-service/internal/router/modules"
	"github.com/prestigemetals/account-service/pkg/mailer"
)

// InitModules initializes all application modules and registers them with
// the router registry. Called once during startup.
func InitModules(r *Registry) {
	users := pginfra.NewUserRepository(container.GetPGPool())

	notifier := mailer.NewQueueNotifier(container.GetRabbitPub(), container.GetConfig().MailSendEnabled)

	svc := application.NewService(
		users,
		container.GetJWT(),
		notifier,
		container.GetLogger(),
		container.GetConfig(),
	)

	handler := handlers.NewAuthHandler(svc, container.GetLogger())

	r.Add(modules.NewAuthModule(handler, users, container.GetJWT()))
}
