package router

import (
	"github.com/oksasatya/student-store/internal/application"
	"github.com/oksasatya/student-store/internal/container"
	handlers "github.com/oksasatya/student-store/internal/interface/http"
	"github.com/oksasatya/student-store/internal/router/modules"
	"github.com/oksasatya/student-store/pkg/helpers"
	"github.com/oksasatya/student-store/pkg/imaging"
)

type Services struct {
	Auth     *application.AuthService
	Users    *application.UserService
	Products *application.ProductService
}

// BuildServices wires the application services from the container.
func BuildServices(c *container.Container) Services {
	cfg := c.Config

	auth := application.NewAuthService(c.Users, c.Provider, c.JWT, c.Pub, c.Recorder(), c.Logger)
	auth.AppName = cfg.AppName
	auth.FrontendURL = cfg.FrontendURL
	auth.MailEnabled = cfg.MailSendEnabled

	products := application.NewProductService(c.Products, c.Users, c.Blobs, c.Logger)
	products.Cache = c.Cache()
	products.Index = c.Index()
	products.Pub = c.Pub
	products.Metrics = c.Recorder()
	products.Compression = imaging.Options{TargetKB: cfg.ImageTargetKB}
	products.UploadTimeout = cfg.BlobUploadTimeout
	products.AppName = cfg.AppName
	products.MailEnabled = cfg.MailSendEnabled

	return Services{
		Auth:     auth,
		Users:    application.NewUserService(c.Users, c.Logger),
		Products: products,
	}
}

// InitModules builds every feature module and adds it to the registry.
// This function should be called once during application startup.
func InitModules(r *Registry, c *container.Container) Services {
	svc := BuildServices(c)
	cookies := helpers.NewCookie(c.Config.CookieDomain, c.Config.CookieSecure)

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(svc.Auth, c.Logger, cookies, c.Config.FrontendURL), c.Redis))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(svc.Users, c.Logger), c.JWT, c.Redis))
	r.Add(modules.NewProductModule(handlers.NewProductHandler(svc.Products, c.Logger), c.JWT, c.Redis))
	if c.Registry != nil {
		r.AddRoot(modules.NewOpsModule(c.Registry, c.Config.MetricsEnabled))
	} else {
		r.AddRoot(modules.NewOpsModule(nil, false))
	}
	return svc
}
