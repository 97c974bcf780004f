package billing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures which surfaces to mount in the billing
// module. Each surface is optional and only mounted if provided.
type RouterOptions struct {
	// Webhook ingestion endpoints, one per provider.
	Paygate      Mountable
	LemonSqueezy Mountable

	// Authenticated account-facing management surface.
	Manage Mountable

	// Operator tick endpoint driving the automation engine.
	Tick Mountable
}

// Router creates the billing module router.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/billing", billing.Router(billing.RouterOptions{
//	    Paygate:      billing.NewPaygateWebhook(verifier, svc, logger),
//	    LemonSqueezy: billing.NewLemonWebhook(cfg.SigningSecret, svc, logger),
//	    Manage:       billing.NewManageService(svc, logger),
//	    Tick:         billing.NewTickService(cfg.TickToken, engine, logger),
//	}))
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Route("/webhooks", func(hooks chi.Router) {
		if opts.Paygate != nil {
			hooks.Mount("/paygate", opts.Paygate.Handle())
		}
		if opts.LemonSqueezy != nil {
			hooks.Mount("/lemonsqueezy", opts.LemonSqueezy.Handle())
		}
	})

	if opts.Manage != nil {
		r.Mount("/subscription", opts.Manage.Handle())
	}
	if opts.Tick != nil {
		r.Mount("/automation", opts.Tick.Handle())
	}

	return r
}
